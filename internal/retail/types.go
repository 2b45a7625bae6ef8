package retail

import (
	"fmt"
	"time"
)

// Gender is the customer gender recorded on a transaction.
type Gender string

const (
	GenderMale    Gender = "Male"
	GenderFemale  Gender = "Female"
	GenderUnknown Gender = "Unknown"
)

// ParseGender normalizes a raw gender value. Anything unrecognized maps to
// GenderUnknown rather than failing the row.
func ParseGender(s string) Gender {
	switch s {
	case "Male", "male", "M", "m":
		return GenderMale
	case "Female", "female", "F", "f":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// Transaction is a single purchase event. Records are created once from
// external input, pass through Validate exactly once, and are immutable
// afterwards.
type Transaction struct {
	ID         int64     `json:"id"`
	Date       time.Time `json:"date"`
	TimeOfDay  string    `json:"time_of_day"` // "15:04:05"
	CustomerID string    `json:"customer_id"`
	Gender     Gender    `json:"gender"`
	Age        int       `json:"age"`
	Category   string    `json:"category"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	COGS       float64   `json:"cogs"`
	TotalSale  float64   `json:"total_sale"`
}

// ArithmeticTolerance is the currency rounding tolerance allowed between
// quantity*unitPrice and totalSale.
const ArithmeticTolerance = 0.01

// Profit returns the gross profit of the transaction.
func (t Transaction) Profit() float64 {
	return t.TotalSale - t.COGS
}

// Month returns the calendar month of the transaction date, normalized to
// the first day of the month in UTC. Cohort and trend calculations bucket
// by this value.
func (t Transaction) Month() time.Time {
	return time.Date(t.Date.Year(), t.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NumericField selects a numeric column of a Transaction for aggregation,
// window, and outlier operations.
type NumericField string

const (
	FieldQuantity  NumericField = "quantity"
	FieldUnitPrice NumericField = "unit_price"
	FieldCOGS      NumericField = "cogs"
	FieldTotalSale NumericField = "total_sale"
	FieldProfit    NumericField = "profit"
	FieldAge       NumericField = "age"
)

// Value extracts the selected field from a transaction.
func (f NumericField) Value(t Transaction) (float64, error) {
	switch f {
	case FieldQuantity:
		return float64(t.Quantity), nil
	case FieldUnitPrice:
		return t.UnitPrice, nil
	case FieldCOGS:
		return t.COGS, nil
	case FieldTotalSale:
		return t.TotalSale, nil
	case FieldProfit:
		return t.Profit(), nil
	case FieldAge:
		return float64(t.Age), nil
	default:
		return 0, fmt.Errorf("unknown numeric field %q", string(f))
	}
}

// ParseNumericField validates a raw field name from a request.
func ParseNumericField(s string) (NumericField, error) {
	f := NumericField(s)
	if _, err := f.Value(Transaction{}); err != nil {
		return "", err
	}
	return f, nil
}

// GroupField selects a grouping dimension of a Transaction.
type GroupField string

const (
	GroupCategory GroupField = "category"
	GroupGender   GroupField = "gender"
	GroupCustomer GroupField = "customer_id"
	GroupMonth    GroupField = "month"
)

// Key extracts the group key for a transaction.
func (g GroupField) Key(t Transaction) (string, error) {
	switch g {
	case GroupCategory:
		return t.Category, nil
	case GroupGender:
		return string(t.Gender), nil
	case GroupCustomer:
		return t.CustomerID, nil
	case GroupMonth:
		return t.Month().Format("2006-01"), nil
	default:
		return "", fmt.Errorf("unknown group field %q", string(g))
	}
}

// ParseGroupField validates a raw group-by name from a request.
func ParseGroupField(s string) (GroupField, error) {
	g := GroupField(s)
	if _, err := g.Key(Transaction{}); err != nil {
		return "", err
	}
	return g, nil
}

// Dataset is an immutable snapshot of validated transactions. All analytic
// operations receive a read-only view; nothing mutates the records after
// validation.
type Dataset struct {
	records []Transaction
}

// NewDataset copies records into a frozen snapshot.
func NewDataset(records []Transaction) *Dataset {
	cp := make([]Transaction, len(records))
	copy(cp, records)
	return &Dataset{records: cp}
}

// Len returns the number of records in the snapshot.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Records returns the underlying records. Callers must treat the returned
// slice as read-only.
func (d *Dataset) Records() []Transaction {
	return d.records
}
