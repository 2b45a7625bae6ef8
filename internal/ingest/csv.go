// Package ingest loads raw retail transactions from CSV files. Rows are
// parsed into typed records without any cleaning; quality validation is
// a separate concern handled downstream.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"retailpulse/internal/retail"
)

// dateLayouts are the accepted transaction date formats, tried in order.
var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "01/02/2006"}

// RowError records a row that could not be parsed. The row index is
// 1-based over data rows, matching what a spreadsheet user would count.
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Result carries the parsed transactions plus per-row parse failures.
// Parse failures never become zero-valued records; a row either parses
// completely or is reported here.
type Result struct {
	Transactions []retail.Transaction
	RowErrors    []RowError
}

// LoadCSV reads a transactions CSV file. The header row is required and
// columns are located by name, so column order does not matter.
func LoadCSV(path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transactions file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads transactions CSV from a reader.
func Parse(r io.Reader) (*Result, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv content: %w", err)
	}

	// Strip a UTF-8 BOM if present; exports from spreadsheet tools
	// often carry one.
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		content = content[3:]
	}

	reader := csv.NewReader(strings.NewReader(string(content)))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}

	cols, err := findColumns(rows[0])
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for i, row := range rows[1:] {
		rowNum := i + 1
		tx, err := parseRow(row, cols)
		if err != nil {
			result.RowErrors = append(result.RowErrors, RowError{Row: rowNum, Reason: err.Error()})
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}

	slog.Info("loaded transactions csv",
		slog.Int("rows", len(rows)-1),
		slog.Int("parsed", len(result.Transactions)),
		slog.Int("row_errors", len(result.RowErrors)))

	return result, nil
}

// columnIndices holds the positions of the recognized columns. Optional
// columns stay -1 when absent.
type columnIndices struct {
	id        int
	date      int
	timeOfDay int
	customer  int
	gender    int
	age       int
	category  int
	quantity  int
	unitPrice int
	cogs      int
	total     int
}

func findColumns(header []string) (columnIndices, error) {
	cols := columnIndices{
		id: -1, date: -1, timeOfDay: -1, customer: -1, gender: -1,
		age: -1, category: -1, quantity: -1, unitPrice: -1, cogs: -1, total: -1,
	}

	for i, name := range header {
		switch normalize(name) {
		case "transactionid", "id":
			cols.id = i
		case "date", "transactiondate":
			cols.date = i
		case "timeofday", "time":
			cols.timeOfDay = i
		case "customerid", "customer":
			cols.customer = i
		case "gender":
			cols.gender = i
		case "age", "customerage":
			cols.age = i
		case "productcategory", "category":
			cols.category = i
		case "quantity", "qty":
			cols.quantity = i
		case "priceperunit", "unitprice":
			cols.unitPrice = i
		case "cogs", "costofgoodssold":
			cols.cogs = i
		case "totalamount", "totalsale", "total":
			cols.total = i
		}
	}

	var missing []string
	for _, req := range []struct {
		name string
		col  int
	}{
		{"Transaction ID", cols.id},
		{"Date", cols.date},
		{"Customer ID", cols.customer},
		{"Product Category", cols.category},
		{"Quantity", cols.quantity},
		{"Price Per Unit", cols.unitPrice},
		{"Total Amount", cols.total},
	} {
		if req.col == -1 {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("required columns not found: %v (header: %v)", missing, header)
	}
	return cols, nil
}

// normalize lowercases a header cell and drops separators so that
// "Price Per Unit", "price_per_unit" and "PricePerUnit" all match.
func normalize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r == ' ' || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parseRow(row []string, cols columnIndices) (retail.Transaction, error) {
	var tx retail.Transaction

	get := func(col int) string {
		if col < 0 || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	id, err := strconv.ParseInt(get(cols.id), 10, 64)
	if err != nil {
		return tx, fmt.Errorf("invalid transaction id %q", get(cols.id))
	}
	tx.ID = id

	date, err := parseDate(get(cols.date))
	if err != nil {
		return tx, err
	}
	tx.Date = date

	tx.CustomerID = get(cols.customer)
	if tx.CustomerID == "" {
		return tx, fmt.Errorf("missing customer id")
	}
	tx.Category = get(cols.category)
	if tx.Category == "" {
		return tx, fmt.Errorf("missing product category")
	}

	tx.TimeOfDay = get(cols.timeOfDay)
	tx.Gender = retail.ParseGender(get(cols.gender))

	if raw := get(cols.age); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			return tx, fmt.Errorf("invalid age %q", raw)
		}
		tx.Age = age
	}

	qty, err := strconv.Atoi(get(cols.quantity))
	if err != nil {
		return tx, fmt.Errorf("invalid quantity %q", get(cols.quantity))
	}
	tx.Quantity = qty

	tx.UnitPrice, err = parseMoney(get(cols.unitPrice), "unit price")
	if err != nil {
		return tx, err
	}
	tx.TotalSale, err = parseMoney(get(cols.total), "total amount")
	if err != nil {
		return tx, err
	}
	if raw := get(cols.cogs); raw != "" {
		tx.COGS, err = parseMoney(raw, "cogs")
		if err != nil {
			return tx, err
		}
	}

	return tx, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func parseMoney(raw, field string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimPrefix(raw, "$"), ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, raw)
	}
	return v, nil
}
