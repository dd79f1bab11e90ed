// Package importer loads users and their referrer structure from spreadsheet
// exports (XLSX, CSV, JSON or YAML).
package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

const (
	ColFirstName   = "firstname"
	ColLastName    = "lastname"
	ColPhone       = "Mobil"
	ColEmail       = "E-mail"
	ColRole        = "Uživatelská role"
	ColManager     = "Manažer"
	ColReferrerPct = "provize makléř"
	ColManagerPct  = "provize manažer"
	ColOfficePct   = "provize kancelář"
)

var requiredColumns = []string{
	ColFirstName, ColLastName, ColPhone, ColEmail, ColRole, ColManager,
	ColReferrerPct, ColManagerPct, ColOfficePct,
}

var ErrUnsupportedFormat = errors.New("unsupported import format")

// Row is one source record keyed by column name. Line is the 1-based line
// (or item number for JSON and YAML) used in warnings.
type Row struct {
	Line   int
	Values map[string]string
}

func (r Row) Get(column string) string {
	return strings.TrimSpace(r.Values[column])
}

func (r Row) empty() bool {
	for _, v := range r.Values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadFile picks the parser from the file extension.
func ReadFile(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(bytes.NewReader(data))
	case ".csv":
		return ReadCSV(bytes.NewReader(data))
	case ".json":
		return ReadJSON(data)
	case ".yaml", ".yml":
		return ReadYAML(data)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

// ReadXLSX reads the first sheet; row 1 is the header.
func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromRecords(records)
}

// ReadCSV accepts comma or semicolon separated files with a header line.
func ReadCSV(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	firstLine, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		reader.Comma = ';'
	}
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, errors.New("file is empty")
	}
	index, err := columnIndex(records[0])
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		row := Row{Line: i + 2, Values: make(map[string]string, len(index))}
		for column, pos := range index {
			if pos < len(record) {
				row.Values[column] = record[pos]
			}
		}
		if !row.empty() {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// columnIndex maps required columns to header positions, matching case-insensitively.
func columnIndex(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		positions[strings.ToLower(strings.TrimSpace(h))] = i
	}
	index := make(map[string]int, len(requiredColumns))
	for _, column := range requiredColumns {
		pos, ok := positions[strings.ToLower(column)]
		if !ok {
			return nil, fmt.Errorf("column %q not found", column)
		}
		index[column] = pos
	}
	return index, nil
}

// ReadJSON accepts an array of objects keyed by the spreadsheet column names.
func ReadJSON(data []byte) ([]Row, error) {
	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return fromMaps(items)
}

// ReadYAML accepts a sequence of mappings keyed like ReadJSON.
func ReadYAML(data []byte) ([]Row, error) {
	var items []map[string]any
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return fromMaps(items)
}

func fromMaps(items []map[string]any) ([]Row, error) {
	rows := make([]Row, 0, len(items))
	for i, item := range items {
		lowered := make(map[string]any, len(item))
		for k, v := range item {
			lowered[strings.ToLower(strings.TrimSpace(k))] = v
		}
		row := Row{Line: i + 1, Values: make(map[string]string, len(requiredColumns))}
		for _, column := range requiredColumns {
			v, ok := lowered[strings.ToLower(column)]
			if !ok || v == nil {
				continue
			}
			row.Values[column] = fmt.Sprint(v)
		}
		if !row.empty() {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
