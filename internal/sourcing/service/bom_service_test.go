package service

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/entity"
	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/supplier"
	"go.uber.org/zap"
)

// stubSupplier 可编程的假适配器，记录调用次数和最后一次查询
type stubSupplier struct {
	id, name  string
	parts     []entity.Part
	calls     int32
	lastQuery atomic.Value
}

func (s *stubSupplier) ID() string                { return s.id }
func (s *stubSupplier) Name() string              { return s.name }
func (s *stubSupplier) IsConfigured() bool        { return true }
func (s *stubSupplier) SetupInstructions() string { return "" }

func (s *stubSupplier) Search(ctx context.Context, q entity.Query) []entity.Part {
	atomic.AddInt32(&s.calls, 1)
	s.lastQuery.Store(q)
	return s.parts
}

func (s *stubSupplier) callCount() int {
	return int(atomic.LoadInt32(&s.calls))
}

// setupBOMTest 组装带三个假供应商的BOM服务
func setupBOMTest(t *testing.T) (*BOMService, *stubSupplier, *stubSupplier, *stubSupplier) {
	t.Helper()
	jlc := &stubSupplier{id: "jlcpcb", name: "JLCPCB"}
	dk := &stubSupplier{id: "digikey", name: "DigiKey"}
	mouser := &stubSupplier{id: "mouser", name: "Mouser"}

	logger := zap.NewNop()
	registry := supplier.NewRegistry(logger, jlc, dk, mouser)
	searchSvc := NewSearchService(registry, logger)
	return NewBOMService(searchSvc, logger), jlc, dk, mouser
}

func parseCSVForTest(t *testing.T, svc *BOMService, csvText string) *entity.BOMFile {
	t.Helper()
	file, err := svc.ParseUpload("test.csv", []byte(csvText))
	if err != nil {
		t.Fatalf("parse test csv: %v", err)
	}
	return file
}

func TestProcessMatchedRow(t *testing.T) {
	svc, jlc, dk, mouser := setupBOMTest(t)
	jlc.parts = []entity.Part{{
		Supplier: "JLCPCB",
		Stock:    15900000,
		Price:    0.001,
		LCSCPart: "C5137468",
	}}

	file := parseCSVForTest(t, svc, "Reference,Value,Footprint\n\"C1,C2\",100K,0402\n")
	report := svc.Process(context.Background(), "test.csv", file)

	if report.Matched != 1 || report.NotFound != 0 || report.Skipped != 0 || report.AlreadySourced != 0 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	row := report.Rows[0]
	if row.Outcome != entity.OutcomeMatched {
		t.Fatalf("outcome = %s", row.Outcome)
	}
	if !strings.Contains(row.Note, "JLCPCB") || !strings.Contains(row.Note, "15,900,000") {
		t.Errorf("note must mention supplier and stock: %q", row.Note)
	}
	if row.Quantity != 2 {
		t.Errorf("quantity from reference count = %d, want 2", row.Quantity)
	}

	// LCSC列被回填
	if !strings.Contains(report.CSV, "C5137468") {
		t.Errorf("output csv missing cross-reference:\n%s", report.CSV)
	}
	if file.Rows[0].Get("LCSC") != "C5137468" {
		t.Errorf("LCSC column = %q", file.Rows[0].Get("LCSC"))
	}
	if file.Rows[0].Get("LCSC Part #") != "C5137468" {
		t.Errorf("sibling LCSC column = %q", file.Rows[0].Get("LCSC Part #"))
	}

	// 三个供应商各被调用一次
	for _, s := range []*stubSupplier{jlc, dk, mouser} {
		if s.callCount() != 1 {
			t.Errorf("supplier %s called %d times, want 1", s.name, s.callCount())
		}
	}

	// 查询派生：位号C前缀→capacitor，封装带入
	q := jlc.lastQuery.Load().(entity.Query)
	if q.ComponentType != "capacitor" {
		t.Errorf("component type = %q, want capacitor", q.ComponentType)
	}
	if q.Value != "100K" || q.Footprint != "0402" || q.Limit != 10 {
		t.Errorf("unexpected query: %+v", q)
	}
}

func TestProcessDNPRowSkippedWithoutSearch(t *testing.T) {
	svc, jlc, dk, mouser := setupBOMTest(t)
	jlc.parts = []entity.Part{{Supplier: "JLCPCB", Stock: 100, LCSCPart: "C1"}}

	file := parseCSVForTest(t, svc, "Reference,Value,DNP\n\"C1,C2\",100K,yes\n")
	report := svc.Process(context.Background(), "test.csv", file)

	if report.Skipped != 1 {
		t.Fatalf("expected 1 skipped, got %+v", report)
	}
	if report.Rows[0].Outcome != entity.OutcomeSkipped {
		t.Errorf("outcome = %s", report.Rows[0].Outcome)
	}
	for _, s := range []*stubSupplier{jlc, dk, mouser} {
		if s.callCount() != 0 {
			t.Errorf("supplier %s must not be called for DNP row", s.name)
		}
	}
	// 行原样回写
	if !strings.Contains(report.CSV, "\"C1,C2\",100K,yes") {
		t.Errorf("dnp row must pass through unmodified:\n%s", report.CSV)
	}
}

func TestProcessExcludeFlagAlwaysSkips(t *testing.T) {
	svc, jlc, _, _ := setupBOMTest(t)
	jlc.parts = []entity.Part{{Supplier: "JLCPCB", Stock: 100, LCSCPart: "C1"}}

	// 其他列再丰富也挡不住排除标志
	file := parseCSVForTest(t, svc,
		"Reference,Value,MPN,LCSC,Exclude from BOM\nR1,100K,RC0402,,yes\n")
	report := svc.Process(context.Background(), "test.csv", file)

	if report.Rows[0].Outcome != entity.OutcomeSkipped {
		t.Errorf("outcome = %s, want skipped", report.Rows[0].Outcome)
	}
	if jlc.callCount() != 0 {
		t.Error("excluded row must not trigger searches")
	}
}

func TestProcessAlreadySourcedSkipsSearch(t *testing.T) {
	svc, jlc, dk, mouser := setupBOMTest(t)

	file := parseCSVForTest(t, svc, "Reference,Value,LCSC\nC1,100nF,C307331\n")
	report := svc.Process(context.Background(), "test.csv", file)

	if report.AlreadySourced != 1 {
		t.Fatalf("expected 1 already_sourced, got %+v", report)
	}
	for _, s := range []*stubSupplier{jlc, dk, mouser} {
		if s.callCount() != 0 {
			t.Errorf("already-sourced row must trigger zero search calls, %s got %d", s.name, s.callCount())
		}
	}
}

func TestProcessNothingToSearch(t *testing.T) {
	svc, _, _, _ := setupBOMTest(t)

	file := parseCSVForTest(t, svc, "Reference,Value\nJ1,\n")
	report := svc.Process(context.Background(), "test.csv", file)

	if report.NotFound != 1 {
		t.Fatalf("expected not_found, got %+v", report)
	}
	if report.Rows[0].Note != "Nothing to search" {
		t.Errorf("note = %q", report.Rows[0].Note)
	}
}

func TestProcessNoMatchesLeavesRowUntouched(t *testing.T) {
	svc, _, _, _ := setupBOMTest(t)

	file := parseCSVForTest(t, svc, "Reference,Value,CustomColumn\nR5,12K,keepme\n")
	report := svc.Process(context.Background(), "test.csv", file)

	if report.NotFound != 1 {
		t.Fatalf("expected not_found, got %+v", report)
	}
	if report.Rows[0].Note != "No matches found" {
		t.Errorf("note = %q", report.Rows[0].Note)
	}
	if !strings.Contains(report.CSV, "R5,12K,keepme") {
		t.Errorf("row must round-trip unmodified:\n%s", report.CSV)
	}
}

func TestMergeFillsOnlyEmptyColumns(t *testing.T) {
	svc, jlc, _, _ := setupBOMTest(t)
	jlc.parts = []entity.Part{{
		Supplier:               "JLCPCB",
		Stock:                  1000,
		LCSCPart:               "C42",
		Manufacturer:           "SupplierBrand",
		ManufacturerPartNumber: "SUP-123",
		Description:            "supplier description",
	}}

	file := parseCSVForTest(t, svc,
		"Reference,Value,Manufacturer,MPN,Description\nR1,100K,ExistingBrand,,\n")
	svc.Process(context.Background(), "test.csv", file)

	row := file.Rows[0]
	// 已有数据不覆盖
	if got := row.Get("Manufacturer"); got != "ExistingBrand" {
		t.Errorf("existing manufacturer overwritten: %q", got)
	}
	// 空位才填
	if got := row.Get("MPN"); got != "SUP-123" {
		t.Errorf("empty MPN not filled: %q", got)
	}
	if got := row.Get("Description"); got != "supplier description" {
		t.Errorf("empty description not filled: %q", got)
	}
}

func TestParseUploadQuotedFields(t *testing.T) {
	svc, _, _, _ := setupBOMTest(t)

	csvText := "Reference,Value,Description\n\"C1,C2,C3\",\"1uF\",\"cap, with \"\"quotes\"\" inside\"\n"
	file, err := svc.ParseUpload("board.csv", []byte(csvText))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	row := file.Rows[0]
	if row.Get("Reference") != "C1,C2,C3" {
		t.Errorf("quoted comma field broken: %q", row.Get("Reference"))
	}
	if row.Get("Description") != `cap, with "quotes" inside` {
		t.Errorf("doubled-quote escape broken: %q", row.Get("Description"))
	}
}

func TestParseUploadRejectsMissingColumns(t *testing.T) {
	svc, _, _, _ := setupBOMTest(t)

	if _, err := svc.ParseUpload("x.csv", []byte("Foo,Bar\n1,2\n")); err == nil {
		t.Error("expected error for missing reference column")
	}
	if _, err := svc.ParseUpload("x.csv", []byte("Reference,Notes\nC1,hello\n")); err == nil {
		t.Error("expected error for missing value column")
	}
	if _, err := svc.ParseUpload("x.csv", []byte("")); err == nil {
		t.Error("expected error for empty file")
	}
	if _, err := svc.ParseUpload("x.csv", []byte("Reference,Value\n")); err == nil {
		t.Error("expected error for header-only file")
	}
}

func TestOutputFilename(t *testing.T) {
	cases := map[string]string{
		"board.csv":       "board_sourced.csv",
		"my.project.xlsx": "my.project_sourced.csv",
		"noext":           "noext_sourced.csv",
	}
	for in, want := range cases {
		if got := outputFilename(in); got != want {
			t.Errorf("outputFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveFootprint(t *testing.T) {
	mkLine := func(footprint, pkg string) entity.BOMLine {
		l := entity.NewBOMLine()
		l.Fields["Footprint"] = footprint
		l.Fields["Case"] = pkg
		return l
	}

	// Metric紧邻的4位码优先
	if got := deriveFootprint(mkLine("Capacitor_SMD:C_0402_1005Metric", "")); got != "1005" {
		t.Errorf("metric token = %q, want 1005", got)
	}
	// 其次任意4位token
	if got := deriveFootprint(mkLine("res 0805 big", "")); got != "0805" {
		t.Errorf("bare token = %q, want 0805", got)
	}
	// 兜底壳体列
	if got := deriveFootprint(mkLine("SOT-23", "TO-92")); got != "TO-92" {
		t.Errorf("case fallback = %q, want TO-92", got)
	}
}

func TestCategoryFromReference(t *testing.T) {
	cases := map[string]string{
		"C1,C2,C3": "capacitor",
		"R12":      "resistor",
		"L3":       "inductor",
		"LED1":     "led",
		"D2":       "diode",
		"U7":       "ic",
		"Y1":       "crystal",
		"X2":       "crystal",
		"S1":       "switch",
		"J4":       "connector",
		"MIC1":     "microphone",
		"Q1":       "", // 未登记的前缀
		"":         "",
	}
	for in, want := range cases {
		if got := categoryFromReference(in); got != want {
			t.Errorf("categoryFromReference(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRowQuantity(t *testing.T) {
	mk := func(ref, qty string) entity.BOMLine {
		l := entity.NewBOMLine()
		l.Fields["Reference"] = ref
		if qty != "" {
			l.Fields["Quantity"] = qty
		}
		return l
	}
	if got := rowQuantity(mk("C1,C2,C3", "")); got != 3 {
		t.Errorf("reference count quantity = %d, want 3", got)
	}
	if got := rowQuantity(mk("C1,C2", "5")); got != 5 {
		t.Errorf("explicit quantity = %d, want 5", got)
	}
	if got := rowQuantity(mk("C1", "-2")); got != 1 {
		t.Errorf("non-positive quantity must fall back, got %d", got)
	}
	if got := rowQuantity(mk("", "")); got != 1 {
		t.Errorf("default quantity = %d, want 1", got)
	}
}

func TestProcessDNPViaMPNColumn(t *testing.T) {
	svc, jlc, _, _ := setupBOMTest(t)

	file := parseCSVForTest(t, svc, "Reference,Value,MPN\nR1,100K,DNP\n")
	report := svc.Process(context.Background(), "test.csv", file)

	if report.Rows[0].Outcome != entity.OutcomeSkipped {
		t.Errorf("MPN=DNP must skip, got %s", report.Rows[0].Outcome)
	}
	if jlc.callCount() != 0 {
		t.Error("DNP-via-MPN row must not trigger searches")
	}
}
