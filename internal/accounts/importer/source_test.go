package importer

import (
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

var header = []string{"firstname", "lastname", "Mobil", "E-mail", "Uživatelská role", "Manažer", "provize makléř", "provize manažer", "provize kancelář"}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"FIRSTNAME", "LastName", "Mobil", "E-mail", "Uživatelská role", "Manažer", "provize makléř", "provize manažer", "provize kancelář"},
		{"Jana", "Nová", "777 123 456", "jana@example.cz", "Makléř", "Petr Malý", 50, 30, 20},
		{},
		{"Petr", "Malý", "", "", "manažer", "", "", "", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	got, err := ReadXLSX(buf)
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows (blank skipped), got %d", len(got))
	}
	if got[0].Line != 2 || got[0].Get(ColRole) != "Makléř" || got[0].Get(ColReferrerPct) != "50" {
		t.Fatalf("unexpected first row %+v", got[0])
	}
	if got[1].Line != 4 || got[1].Get(ColFirstName) != "Petr" {
		t.Fatalf("unexpected second row %+v", got[1])
	}
}

func TestReadCSVSemicolon(t *testing.T) {
	input := "\ufeff" + strings.Join(header, ";") + "\n" +
		"Jana;Nová;777123456;;makler;;12,5;0;0\n" +
		";;;;;;;;\n"
	rows, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 1 || rows[0].Get(ColFirstName) != "Jana" || rows[0].Get(ColReferrerPct) != "12,5" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("firstname,lastname\nJana,Nová\n"))
	if err == nil || !strings.Contains(err.Error(), `"Mobil"`) {
		t.Fatalf("expected a missing column error, got %v", err)
	}
}

func TestReadJSONAndYAML(t *testing.T) {
	jsonRows, err := ReadJSON([]byte(`[{"firstname": "Jana", "lastname": "Nová", "e-mail": "jana@example.cz", "Uživatelská role": "Kancelář", "provize makléř": 40}]`))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	yamlRows, err := ReadYAML([]byte("- firstname: Jana\n  lastname: Nová\n  E-mail: jana@example.cz\n  Uživatelská role: Kancelář\n  provize makléř: 40\n"))
	if err != nil {
		t.Fatalf("ReadYAML: %v", err)
	}
	for name, rows := range map[string][]Row{"json": jsonRows, "yaml": yamlRows} {
		if len(rows) != 1 {
			t.Fatalf("%s: expected 1 row, got %d", name, len(rows))
		}
		r := rows[0]
		if r.Line != 1 || r.Get(ColEmail) != "jana@example.cz" || r.Get(ColRole) != "Kancelář" || r.Get(ColReferrerPct) != "40" {
			t.Fatalf("%s: unexpected row %+v", name, r)
		}
	}
}

func TestReadFileRejectsUnknownExtension(t *testing.T) {
	path := t.TempDir() + "/users.txt"
	if err := writeFile(path, "x"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadFile(path); err == nil || !strings.Contains(err.Error(), "unsupported import format") {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}
