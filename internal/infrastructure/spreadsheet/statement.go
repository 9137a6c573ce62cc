package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/port"
)

var statementDateLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02", "1/2/2006"}

var amountCleaner = strings.NewReplacer("$", "", ",", "", " ", "")

// ReadStatement reads date, amount, reference and optional client_id columns.
// The first non-blank row must be a header naming at least date and amount.
func (w *Workbooks) ReadStatement(r io.Reader, format port.StatementFormat) ([]port.StatementRow, []port.StatementError, error) {
	var (
		records []record
		serials bool
		err     error
	)
	switch format {
	case port.StatementCSV:
		records, err = readCSV(r)
	case port.StatementXLSX:
		records, err = readXLSX(r)
		serials = true
	default:
		return nil, nil, fmt.Errorf("unsupported statement format %q", format)
	}
	if err != nil {
		return nil, nil, err
	}

	start := -1
	for i, rec := range records {
		if !blank(rec.fields) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil, errors.New("statement is empty")
	}
	cols, err := headerColumns(records[start].fields)
	if err != nil {
		return nil, nil, err
	}

	var rows []port.StatementRow
	var skipped []port.StatementError
	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if blank(rec.fields) {
			continue
		}
		row, err := cols.parse(rec.fields, serials)
		if err != nil {
			skipped = append(skipped, port.StatementError{Line: rec.line, Reason: err.Error()})
			continue
		}
		row.Line = rec.line
		rows = append(rows, row)
	}

	w.logger.Info("Statement read",
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)),
		zap.Int("skipped", len(skipped)))
	return rows, skipped, nil
}

// record is one statement line with its 1-based line number in the source file
type record struct {
	line   int
	fields []string
}

func readCSV(r io.Reader) ([]record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []record
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv statement: %w", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record{line: line, fields: fields})
	}
}

func readXLSX(r io.Reader) ([]record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx statement: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("xlsx statement has no sheets")
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	records := make([]record, len(rows))
	for i, fields := range rows {
		records[i] = record{line: i + 1, fields: fields}
	}
	return records, nil
}

type columns struct {
	date, amount, reference, client int
}

func headerColumns(header []string) (columns, error) {
	cols := columns{date: -1, amount: -1, reference: -1, client: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date", "payment_date":
			cols.date = i
		case "amount":
			cols.amount = i
		case "reference", "description", "memo":
			if cols.reference < 0 {
				cols.reference = i
			}
		case "client_id", "client":
			cols.client = i
		}
	}
	if cols.date < 0 || cols.amount < 0 {
		return cols, errors.New("statement header must name date and amount columns")
	}
	return cols, nil
}

func (c columns) parse(rec []string, serials bool) (port.StatementRow, error) {
	var row port.StatementRow

	date, err := parseDate(field(rec, c.date), serials)
	if err != nil {
		return row, err
	}
	amount, err := parseAmount(field(rec, c.amount))
	if err != nil {
		return row, err
	}
	row.Date = date
	row.Amount = amount
	row.Reference = field(rec, c.reference)

	if raw := field(rec, c.client); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return row, fmt.Errorf("invalid client_id %q", raw)
		}
		row.ClientID = id
	}
	return row, nil
}

func parseDate(raw string, serials bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("missing date")
	}
	for _, layout := range statementDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	if serials {
		if serial, err := strconv.ParseFloat(raw, 64); err == nil {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func parseAmount(raw string) (float64, error) {
	cleaned := amountCleaner.Replace(raw)
	if cleaned == "" {
		return 0, errors.New("missing amount")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return v, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
