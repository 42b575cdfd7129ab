// Package importer reads device ledger spreadsheets and writes catalog exports.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"ecom-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, only CSV and XLSX are allowed")
	ErrEmptyFile         = errors.New("file is empty")
)

// Device sheet columns, in order. The first row is a header and is skipped.
const (
	colSrNo = iota
	colModel
	colSKU
	colOrderID
	colInOut
	colPrice
	colRemarks
)

// RowError reports a spreadsheet row that could not be imported. Row is
// 1-based and counts data rows only.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// DeviceSheet is the parsed content of a device upload
type DeviceSheet struct {
	Transactions []models.DeviceTransaction
	Failed       []RowError
	TotalRows    int
}

// ParseDevices reads a CSV or XLSX upload, picking the format by extension
func ParseDevices(filename string, r io.Reader) (*DeviceSheet, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSV(r)
	case ".xlsx":
		rows, err = readXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, ErrEmptyFile
	}
	return parseDeviceRows(rows[1:]), nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	file, err := xlsx.OpenBinary(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to parse xlsx: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, ErrEmptyFile
	}

	sheet := file.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func parseDeviceRows(rows [][]string) *DeviceSheet {
	sheet := &DeviceSheet{}
	for i, cells := range rows {
		if blankRow(cells) {
			continue
		}
		sheet.TotalRows++

		get := func(idx int) string {
			if idx < len(cells) {
				v := strings.TrimSpace(cells[idx])
				if strings.EqualFold(v, "nan") {
					return ""
				}
				return v
			}
			return ""
		}

		srno, model, inOut := get(colSrNo), get(colModel), get(colInOut)
		if srno == "" || model == "" || inOut == "" {
			sheet.Failed = append(sheet.Failed, RowError{
				Row: i + 1,
				Error: fmt.Sprintf("missing mandatory field - SRNO: %s, Model: %s, IN_OUT: %s",
					orEmptyLabel(srno), orEmptyLabel(model), orEmptyLabel(inOut)),
			})
			continue
		}
		code, ok := models.ParseInOut(inOut)
		if !ok {
			sheet.Failed = append(sheet.Failed, RowError{Row: i + 1, Error: fmt.Sprintf("invalid IN_OUT value %q", inOut)})
			continue
		}

		t := models.DeviceTransaction{
			DeviceSrNo: srno,
			ModelName:  model,
			SKUID:      optional(get(colSKU)),
			OrderID:    optional(get(colOrderID)),
			InOut:      code,
			Remarks:    optional(get(colRemarks)),
		}
		if p := get(colPrice); p != "" {
			if d, err := decimal.NewFromString(p); err == nil {
				t.Price = decimal.NullDecimal{Decimal: d.Round(2), Valid: true}
			}
		}
		sheet.Transactions = append(sheet.Transactions, t)
	}
	return sheet
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orEmptyLabel(s string) string {
	if s == "" {
		return "empty"
	}
	return s
}
