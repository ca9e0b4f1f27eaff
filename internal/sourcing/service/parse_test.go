package service

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseUploadGBKEncodedCSV(t *testing.T) {
	svc, _, _, _ := setupBOMTest(t)

	// "中文" 的GBK编码，不是合法UTF-8，应触发转码
	gbk := append([]byte("Reference,Value,Description\nC1,100nF,"), 0xD6, 0xD0, 0xCE, 0xC4, '\n')
	file, err := svc.ParseUpload("board.csv", gbk)
	if err != nil {
		t.Fatalf("parse gbk csv: %v", err)
	}
	if got := file.Rows[0].Get("Description"); got != "中文" {
		t.Errorf("gbk description = %q, want %q", got, "中文")
	}
}

func TestParseUploadXLSX(t *testing.T) {
	svc, _, _, _ := setupBOMTest(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]string{"Reference", "Value", "Footprint"})
	f.SetSheetRow(sheet, "A2", &[]string{"R1", "10K", "0603"})
	f.SetSheetRow(sheet, "A3", &[]string{"C1", "1uF", "0805"})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	file, err := svc.ParseUpload("board.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("parse xlsx: %v", err)
	}
	if len(file.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(file.Rows))
	}
	if file.Rows[1].Get("Value") != "1uF" || file.Rows[1].Get("Footprint") != "0805" {
		t.Errorf("xlsx row mismatch: %+v", file.Rows[1].Fields)
	}
}

func TestParseUploadRejectsGarbageXLSX(t *testing.T) {
	svc, _, _, _ := setupBOMTest(t)
	if _, err := svc.ParseUpload("board.xlsx", []byte("this is not a zip")); err == nil {
		t.Error("expected error for corrupt xlsx")
	}
}
