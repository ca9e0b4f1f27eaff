package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// BOM列名候选表，按优先顺序探测（大小写不敏感）
// KiCad、JLCPCB模板、手工表格的叫法都不一样
var (
	refColumns       = []string{"Reference", "References", "Designator", "RefDes"}
	valueColumns     = []string{"Value", "Comment"}
	footprintColumns = []string{"Footprint"}
	excludeColumns   = []string{"Exclude from BOM", "Exclude"}
	dnpColumns       = []string{"DNP", "Do Not Populate"}
	lcscColumns      = []string{"LCSC", "LCSC Part #", "JLCPCB Part #"}
	mfrColumns       = []string{"Manufacturer", "Mfr", "Mfg"}
	mpnColumns       = []string{"MPN", "Manufacturer Part Number", "Mfr Part #"}
	datasheetColumns = []string{"Datasheet"}
	descColumns      = []string{"Description"}
	caseColumns      = []string{"Package", "Case", "Case Code"}
	qtyColumns       = []string{"Quantity", "Qty"}
)

// referenceCategories 位号前缀 → 元件类别
// 取位号开头的连续字母段做精确匹配（LED1 → "LED"，C12 → "C"）
var referenceCategories = map[string]string{
	"C":   "capacitor",
	"R":   "resistor",
	"L":   "inductor",
	"LED": "led",
	"D":   "diode",
	"U":   "ic",
	"Y":   "crystal",
	"X":   "crystal",
	"S":   "switch",
	"J":   "connector",
	"MIC": "microphone",
}

var (
	// "0402 (1005 Metric)" / "C_0402_1005Metric" 里紧挨Metric的4位公制码
	metricCodeRe = regexp.MustCompile(`(?i)(\d{4})\s*Metric`)
	bareCodeRe   = regexp.MustCompile(`\b\d{4}\b`)
)

// BOMService BOM自动选料
// 逐行顺序处理：解读 → 多供应商搜索 → 打分选型 → 回填，
// 行与行之间没有并行（限制上游API压力），行内搜索是并发扇出
type BOMService struct {
	search *SearchService
	logger *zap.Logger
}

// NewBOMService 创建BOM服务
func NewBOMService(search *SearchService, logger *zap.Logger) *BOMService {
	return &BOMService{search: search, logger: logger}
}

// ParseUpload 解析上传的BOM文件
// 支持CSV（UTF-8或GBK）和XLSX；结构不合法或缺必需列时返回错误，
// 这是用户可见的失败，和供应商侧的静默降级不同
func (s *BOMService) ParseUpload(filename string, data []byte) (*entity.BOMFile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("uploaded file is empty")
	}

	var (
		file *entity.BOMFile
		err  error
	)
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		file, err = parseXLSX(data)
	} else {
		file, err = parseCSV(data)
	}
	if err != nil {
		return nil, err
	}
	if len(file.Rows) == 0 {
		return nil, fmt.Errorf("no data rows found in %s", filename)
	}

	// 必需列：位号 + 值
	probe := file.Rows[0]
	if _, col := probe.Lookup(refColumns...); col == "" {
		return nil, fmt.Errorf("missing required reference column (expected one of: %s)", strings.Join(refColumns, ", "))
	}
	if _, col := probe.Lookup(valueColumns...); col == "" {
		return nil, fmt.Errorf("missing required value column (expected one of: %s)", strings.Join(valueColumns, ", "))
	}
	return file, nil
}

// parseCSV 解析CSV字节流
// encoding/csv 处理带逗号的引号字段和双引号转义；
// 非UTF-8内容先按GBK转码（国内导出的BOM常见）
func parseCSV(data []byte) (*entity.BOMFile, error) {
	var reader io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		reader = transform.NewReader(reader, simplifiedchinese.GBK.NewDecoder())
	}

	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv file has no header row")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		// Excel导出的CSV首列常带UTF-8 BOM
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}

	return buildBOMFile(header, records[1:]), nil
}

// parseXLSX 解析XLSX，取第一个工作表，首行为表头
func parseXLSX(data []byte) (*entity.BOMFile, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("xlsx sheet %s is empty", sheets[0])
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	return buildBOMFile(header, rows[1:]), nil
}

func buildBOMFile(header []string, records [][]string) *entity.BOMFile {
	file := &entity.BOMFile{}
	for _, h := range header {
		if h != "" {
			file.AddColumn(h)
		}
	}
	for _, record := range records {
		line := entity.NewBOMLine()
		empty := true
		for i, v := range record {
			if i >= len(header) || header[i] == "" {
				continue
			}
			line.Fields[header[i]] = v
			if strings.TrimSpace(v) != "" {
				empty = false
			}
		}
		if !empty {
			file.Rows = append(file.Rows, line)
		}
	}
	return file
}

// Process 逐行处理BOM并生成选料报告
// 每行的结论只计算一次：排除/不贴装 → 已有编号 → 无可搜内容 → 搜索选型
func (s *BOMService) Process(ctx context.Context, filename string, file *entity.BOMFile) *entity.SourcingReport {
	report := &entity.SourcingReport{
		OutputFilename: outputFilename(filename),
	}

	for _, line := range file.Rows {
		result := s.processRow(ctx, file, line)
		switch result.Outcome {
		case entity.OutcomeMatched:
			report.Matched++
		case entity.OutcomeNotFound:
			report.NotFound++
		case entity.OutcomeSkipped:
			report.Skipped++
		case entity.OutcomeAlreadySourced:
			report.AlreadySourced++
		}
		report.Rows = append(report.Rows, result)
	}

	report.CSV = renderCSV(file)
	s.logger.Info("bom processed",
		zap.String("file", filename),
		zap.Int("rows", len(file.Rows)),
		zap.Int("matched", report.Matched),
		zap.Int("not_found", report.NotFound),
		zap.Int("skipped", report.Skipped),
		zap.Int("already_sourced", report.AlreadySourced),
	)
	return report
}

// processRow 处理一行，按固定顺序判定，首个命中的规则生效
func (s *BOMService) processRow(ctx context.Context, file *entity.BOMFile, line entity.BOMLine) entity.RowResult {
	result := entity.RowResult{
		Reference: line.Get(refColumns...),
		Value:     line.Get(valueColumns...),
		Quantity:  rowQuantity(line),
	}

	mpn := line.Get(mpnColumns...)

	// 规则1：明确排除出BOM
	exclude := strings.ToLower(line.Get(excludeColumns...))
	if exclude == "yes" || exclude == "true" || exclude == "excluded from bom" {
		result.Outcome = entity.OutcomeSkipped
		result.Note = "Excluded from BOM"
		return result
	}

	// 规则2：不贴装（DNP列为真，或MPN列直接写着DNP）
	if isTruthy(line.Get(dnpColumns...)) || strings.EqualFold(mpn, "DNP") {
		result.Outcome = entity.OutcomeSkipped
		result.Note = "Do not populate"
		return result
	}

	// 规则3：已有LCSC编号，不再搜索（省上游调用，不是正确性要求）
	if lcsc := line.Get(lcscColumns...); lcsc != "" {
		result.Outcome = entity.OutcomeAlreadySourced
		result.Note = "Already has part number: " + lcsc
		return result
	}

	// 规则4：既没有值也没有料号，无从搜起
	if result.Value == "" && mpn == "" {
		result.Outcome = entity.OutcomeNotFound
		result.Note = "Nothing to search"
		return result
	}

	// 规则5：搜索 + 选型
	query := entity.Query{
		Value:                  result.Value,
		Footprint:              deriveFootprint(line),
		ComponentType:          categoryFromReference(result.Reference),
		ManufacturerPartNumber: mpn,
		Limit:                  entity.DefaultLimit,
	}

	results := s.search.Search(ctx, query, nil)
	part, note, ok := SelectBest(results, s.search.CascadeOrder())
	if !ok {
		result.Outcome = entity.OutcomeNotFound
		result.Note = "No matches found"
		return result
	}

	mergePart(file, line, part)
	result.Outcome = entity.OutcomeMatched
	result.Note = note
	result.Part = part
	return result
}

// mergePart 把选中的元件回填到行里
// LCSC编号写主列和姊妹列；其余字段只填空，绝不覆盖已有数据
func mergePart(file *entity.BOMFile, line entity.BOMLine, part *entity.Part) {
	if part.LCSCPart != "" {
		for _, name := range []string{"LCSC", "LCSC Part #"} {
			col := resolveColumn(file, line, name)
			line.Set(col, part.LCSCPart)
		}
	}

	fillIfEmpty(file, line, mpnColumns, "MPN", part.ManufacturerPartNumber)
	fillIfEmpty(file, line, mfrColumns, "Manufacturer", part.Manufacturer)
	fillIfEmpty(file, line, datasheetColumns, "Datasheet", part.DatasheetURL)
	fillIfEmpty(file, line, descColumns, "Description", part.Description)
	fillIfEmpty(file, line, caseColumns, "Package", part.Package)
}

// fillIfEmpty 找到目标列（不存在则新建canonical列），仅当为空时写入
func fillIfEmpty(file *entity.BOMFile, line entity.BOMLine, candidates []string, canonical, value string) {
	if value == "" {
		return
	}
	if _, col := line.Lookup(candidates...); col != "" {
		line.SetIfEmpty(col, value)
		return
	}
	file.AddColumn(canonical)
	line.Set(canonical, value)
}

// resolveColumn 返回行内已有的同名列，否则把列登记进表头并用canonical名
func resolveColumn(file *entity.BOMFile, line entity.BOMLine, canonical string) string {
	if _, col := line.Lookup(canonical); col != "" {
		return col
	}
	for _, existing := range file.Columns {
		if strings.EqualFold(strings.TrimSpace(existing), canonical) {
			return existing
		}
	}
	file.AddColumn(canonical)
	return canonical
}

// deriveFootprint 从封装列推导封装码
// 优先取紧挨"Metric"的4位公制码，其次任意4位数字token，
// 再退到独立的封装/壳体列
func deriveFootprint(line entity.BOMLine) string {
	fp := line.Get(footprintColumns...)
	if m := metricCodeRe.FindStringSubmatch(fp); m != nil {
		return m[1]
	}
	if t := bareCodeRe.FindString(fp); t != "" {
		return t
	}
	return line.Get(caseColumns...)
}

// categoryFromReference 从位号前缀推断元件类别
// 位号分类优先于任何基于值形态的分类（后者只在适配器里兜底）
func categoryFromReference(reference string) string {
	reference = strings.TrimSpace(reference)
	// "C1,C2,C3" 取第一个位号
	if idx := strings.IndexByte(reference, ','); idx >= 0 {
		reference = reference[:idx]
	}
	var prefix strings.Builder
	for _, r := range reference {
		if !unicode.IsLetter(r) {
			break
		}
		prefix.WriteRune(r)
	}
	return referenceCategories[strings.ToUpper(prefix.String())]
}

// rowQuantity 行数量：数量列为正取之，否则数逗号分隔的位号个数，兜底为1
// 仅信息用途，不参与打分选型
func rowQuantity(line entity.BOMLine) int {
	if qty := line.Get(qtyColumns...); qty != "" {
		if n, err := strconv.Atoi(qty); err == nil && n > 0 {
			return n
		}
	}
	ref := strings.TrimSpace(line.Get(refColumns...))
	if ref != "" {
		count := 0
		for _, piece := range strings.Split(ref, ",") {
			if strings.TrimSpace(piece) != "" {
				count++
			}
		}
		if count > 0 {
			return count
		}
	}
	return 1
}

// isTruthy DNP这类标志列的宽松布尔解释
// 非空且不是明确的否定词就算真
func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "no", "false", "0":
		return false
	}
	return true
}

// renderCSV 把处理后的BOM渲染回CSV文本
// 表头是所有行出现过的列名并集，未匹配的行原样回写
func renderCSV(file *entity.BOMFile) string {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	w.Write(file.Columns)
	for _, line := range file.Rows {
		record := make([]string, len(file.Columns))
		for i, col := range file.Columns {
			record[i] = line.Fields[col]
		}
		w.Write(record)
	}
	w.Flush()
	return buf.String()
}

// outputFilename 原文件名去扩展名，加 _sourced.csv 后缀
func outputFilename(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "bom"
	}
	return stem + "_sourced.csv"
}
