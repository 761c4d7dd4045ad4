package statement_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconlab/bank_recon_app/internal/apperrors"
	"github.com/reconlab/bank_recon_app/internal/core/domain"
	"github.com/reconlab/bank_recon_app/internal/statement"
)

var testMapping = domain.ColumnMapping{
	Date:        "Date",
	Description: "Description",
	Debit:       "Debit",
	Credit:      "Credit",
	Balance:     "Balance",
	Reference:   "Reference",
}

func makeRow(values map[string]string) statement.Row {
	return statement.Row{Index: 0, Values: values}
}

func TestParseDate_KnownLayouts(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"15/12/2025", time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)},
		{"2025-12-15", time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)},
		{"15-Dec-2025", time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)},
		{"2 Jan 2026", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"15 December 2025", time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)},
		{"15.12.2025", time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)},
		{"15-12-2025", time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)},
		{"2025/12/15", time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := statement.ParseDate(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.True(t, got.Equal(tc.want), "%s parsed to %s", tc.raw, got)
	}
}

func TestParseDate_DayFirstWinsOverMonthFirst(t *testing.T) {
	// 01/02 is ambiguous; the day-first layout is tried first.
	got, err := statement.ParseDate("01/02/2026")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDate_Unrecognized(t *testing.T) {
	_, err := statement.ParseDate("not a date")
	var normErr *apperrors.NormalizationError
	require.ErrorAs(t, err, &normErr)
	assert.Equal(t, "date", normErr.Field)
}

func TestParseAmount_Formats(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"1234.56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"1234,56", "1234.56"},
		{"1,234", "1234"},
		{"£ 45.00", "45"},
		{"€1.250,00", "1250"},
		{"(99.95)", "-99.95"},
		{"-12.00", "-12"},
	}
	for _, tc := range cases {
		got, err := statement.ParseAmount(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "%s parsed to %s", tc.raw, got)
	}
}

func TestParseAmount_NoNumericContent(t *testing.T) {
	_, err := statement.ParseAmount("n/a")
	var normErr *apperrors.NormalizationError
	require.ErrorAs(t, err, &normErr)
}

func TestNormalizeRow_DebitRow(t *testing.T) {
	row := makeRow(map[string]string{
		"Date":        "15/12/2025",
		"Description": "COFFEE SHOP LONDON",
		"Debit":       "4.50",
		"Credit":      "",
		"Balance":     "1,200.00",
		"Reference":   "TXN-001",
	})

	got, err := statement.NormalizeRow(row, testMapping)
	require.NoError(t, err)
	require.NotNil(t, got.Debit)
	assert.Nil(t, got.Credit)
	assert.True(t, got.Debit.Equal(decimal.RequireFromString("4.50")))
	require.NotNil(t, got.Balance)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("1200")))
	assert.Equal(t, "TXN-001", got.Reference)
	assert.Equal(t, row.Values, got.Raw)
}

func TestNormalizeRow_CreditRowWithZeroDebit(t *testing.T) {
	// The unused side filled with 0.00 is not an error.
	row := makeRow(map[string]string{
		"Date":        "16/12/2025",
		"Description": "SALARY PAYMENT",
		"Debit":       "0.00",
		"Credit":      "2500.00",
	})

	got, err := statement.NormalizeRow(row, testMapping)
	require.NoError(t, err)
	assert.Nil(t, got.Debit)
	require.NotNil(t, got.Credit)
	assert.True(t, got.Credit.Equal(decimal.RequireFromString("2500")))
}

func TestNormalizeRow_BothSidesSet(t *testing.T) {
	row := makeRow(map[string]string{
		"Date":        "16/12/2025",
		"Description": "WEIRD ROW",
		"Debit":       "10.00",
		"Credit":      "20.00",
	})

	_, err := statement.NormalizeRow(row, testMapping)
	var normErr *apperrors.NormalizationError
	require.ErrorAs(t, err, &normErr)
	assert.Equal(t, "amount", normErr.Field)
}

func TestNormalizeRow_NeitherSideSet(t *testing.T) {
	row := makeRow(map[string]string{
		"Date":        "16/12/2025",
		"Description": "EMPTY ROW",
	})

	_, err := statement.NormalizeRow(row, testMapping)
	var normErr *apperrors.NormalizationError
	require.ErrorAs(t, err, &normErr)
	assert.Equal(t, "amount", normErr.Field)
}

func TestNormalizeRow_NegativeAmountRejected(t *testing.T) {
	row := makeRow(map[string]string{
		"Date":        "16/12/2025",
		"Description": "REFUNDED PAYMENT",
		"Debit":       "-4.50",
	})

	_, err := statement.NormalizeRow(row, testMapping)
	var normErr *apperrors.NormalizationError
	require.ErrorAs(t, err, &normErr)
	assert.Equal(t, "debit", normErr.Field)
}

func TestNormalizeRow_UnparseableAmount(t *testing.T) {
	row := makeRow(map[string]string{
		"Date":        "16/12/2025",
		"Description": "CARD PAYMENT",
		"Credit":      "n/a",
	})

	_, err := statement.NormalizeRow(row, testMapping)
	var normErr *apperrors.NormalizationError
	require.ErrorAs(t, err, &normErr)
	assert.Equal(t, "credit", normErr.Field)
	assert.NotEmpty(t, normErr.Reason)
}

func TestNormalizeRow_EmptyDescription(t *testing.T) {
	row := makeRow(map[string]string{
		"Date":        "16/12/2025",
		"Description": "   ",
		"Debit":       "4.50",
	})

	_, err := statement.NormalizeRow(row, testMapping)
	var normErr *apperrors.NormalizationError
	require.ErrorAs(t, err, &normErr)
	assert.Equal(t, "description", normErr.Field)
}

func TestNormalizeRow_OptionalColumnsUnmapped(t *testing.T) {
	mapping := domain.ColumnMapping{Date: "Date", Description: "Description", Debit: "Debit"}
	row := makeRow(map[string]string{
		"Date":        "16/12/2025",
		"Description": "CARD PAYMENT",
		"Debit":       "4.50",
	})

	got, err := statement.NormalizeRow(row, mapping)
	require.NoError(t, err)
	assert.Nil(t, got.Balance)
	assert.Empty(t, got.Reference)
}
