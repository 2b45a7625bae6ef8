package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpulse/internal/retail"
)

const sampleCSV = `Transaction ID,Date,Customer ID,Gender,Age,Product Category,Quantity,Price per Unit,COGS,Total Amount
1,2024-01-15,CUST001,Male,34,Beauty,3,50,90,150
2,2024-01-16,CUST002,Female,26,Clothing,2,500,650,1000
3,2024-01-17,CUST003,Female,50,Electronics,1,30,18,30
`

func TestParse(t *testing.T) {
	result, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 3)
	assert.Empty(t, result.RowErrors)

	first := result.Transactions[0]
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "CUST001", first.CustomerID)
	assert.Equal(t, retail.GenderMale, first.Gender)
	assert.Equal(t, 34, first.Age)
	assert.Equal(t, "Beauty", first.Category)
	assert.Equal(t, 3, first.Quantity)
	assert.InDelta(t, 50, first.UnitPrice, 1e-9)
	assert.InDelta(t, 90, first.COGS, 1e-9)
	assert.InDelta(t, 150, first.TotalSale, 1e-9)
}

func TestParseStripsBOM(t *testing.T) {
	result, err := Parse(strings.NewReader("\xEF\xBB\xBF" + sampleCSV))
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 3)
}

func TestParseHeaderVariants(t *testing.T) {
	csv := `transaction_id,date,customer_id,gender,age,product_category,quantity,price_per_unit,cogs,total_amount
1,2024-01-15,CUST001,Male,34,Beauty,3,50,90,150
`
	result, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "CUST001", result.Transactions[0].CustomerID)
}

func TestParseReportsBadRowsWithoutFailing(t *testing.T) {
	csv := `Transaction ID,Date,Customer ID,Gender,Age,Product Category,Quantity,Price per Unit,COGS,Total Amount
1,2024-01-15,CUST001,Male,34,Beauty,3,50,90,150
oops,2024-01-16,CUST002,Female,26,Clothing,2,500,650,1000
3,not-a-date,CUST003,Female,50,Electronics,1,30,18,30
4,2024-01-18,,Female,50,Electronics,1,30,18,30
`
	result, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 1)
	require.Len(t, result.RowErrors, 3)

	assert.Equal(t, 2, result.RowErrors[0].Row)
	assert.Contains(t, result.RowErrors[0].Reason, "transaction id")
	assert.Contains(t, result.RowErrors[1].Reason, "invalid date")
	assert.Contains(t, result.RowErrors[2].Reason, "customer id")
}

func TestParseMoneyFormats(t *testing.T) {
	csv := `Transaction ID,Date,Customer ID,Gender,Age,Product Category,Quantity,Price per Unit,COGS,Total Amount
1,2024-01-15,CUST001,Male,34,Beauty,3,"$1,500.00",900,"$4,500.00"
`
	result, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.InDelta(t, 1500, result.Transactions[0].UnitPrice, 1e-9)
	assert.InDelta(t, 4500, result.Transactions[0].TotalSale, 1e-9)
}

func TestParseMissingRequiredColumn(t *testing.T) {
	csv := "Transaction ID,Date,Gender\n1,2024-01-15,Male\n"
	_, err := Parse(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required columns not found")
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	require.Error(t, err)
}
