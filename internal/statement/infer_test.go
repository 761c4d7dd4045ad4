package statement_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconlab/bank_recon_app/internal/core/domain"
	"github.com/reconlab/bank_recon_app/internal/statement"
)

func bankRows(n int) []statement.Row {
	rows := make([]statement.Row, n)
	for i := range rows {
		values := map[string]string{
			"Value Date": fmt.Sprintf("%02d/12/2025", i+1),
			"Narrative":  "CARD PAYMENT TO COFFEE SHOP",
			"Withdrawal": "4.50",
			"Deposit":    "",
			"Balance":    "1,200.00",
		}
		if i%2 == 1 {
			values["Withdrawal"] = ""
			values["Deposit"] = "2500.00"
		}
		rows[i] = statement.Row{Index: i, Values: values}
	}
	return rows
}

func TestInferColumns_TypicalBankHeaders(t *testing.T) {
	inferred := statement.InferColumns(bankRows(8))

	date, ok := inferred[domain.RoleDate]
	require.True(t, ok, "date role must be inferred")
	assert.Equal(t, "Value Date", date.Column)
	assert.GreaterOrEqual(t, date.Confidence, 70)

	description, ok := inferred[domain.RoleDescription]
	require.True(t, ok)
	assert.Equal(t, "Narrative", description.Column)

	debit, ok := inferred[domain.RoleDebit]
	require.True(t, ok)
	assert.Equal(t, "Withdrawal", debit.Column)

	credit, ok := inferred[domain.RoleCredit]
	require.True(t, ok)
	assert.Equal(t, "Deposit", credit.Column)

	balance, ok := inferred[domain.RoleBalance]
	require.True(t, ok)
	assert.Equal(t, "Balance", balance.Column)

	assert.True(t, inferred.Confident())
}

func TestInferColumns_ConfidentMappingConverts(t *testing.T) {
	inferred := statement.InferColumns(bankRows(8))
	mapping := inferred.ToColumnMapping()

	assert.Empty(t, mapping.MissingRoles())
	assert.Equal(t, "Value Date", mapping.Date)
	assert.Equal(t, "Narrative", mapping.Description)
}

func TestInferColumns_NoRows(t *testing.T) {
	inferred := statement.InferColumns(nil)
	assert.Empty(t, inferred)
	assert.False(t, inferred.Confident())
}

func TestInferColumns_NumericColumnNotGuessedAsReference(t *testing.T) {
	rows := make([]statement.Row, 6)
	for i := range rows {
		rows[i] = statement.Row{Index: i, Values: map[string]string{
			"Date":     fmt.Sprintf("%02d/11/2025", i+1),
			"Details":  "DIRECT DEBIT ELECTRICITY",
			"Amount":   "55.00",
			"Column D": "123.45",
		}}
	}

	inferred := statement.InferColumns(rows)
	if ref, ok := inferred[domain.RoleReference]; ok {
		assert.NotEqual(t, "Column D", ref.Column)
		assert.NotEqual(t, "Amount", ref.Column)
	}
}

func TestInferColumns_HeaderAloneInsufficientForDate(t *testing.T) {
	// A column named like a date whose values never parse as dates must not
	// win the date role.
	rows := make([]statement.Row, 4)
	for i := range rows {
		rows[i] = statement.Row{Index: i, Values: map[string]string{
			"Date":    "pending",
			"Details": "CARD PAYMENT TO GROCER",
			"Amount":  "10.00",
		}}
	}

	inferred := statement.InferColumns(rows)
	_, ok := inferred[domain.RoleDate]
	assert.False(t, ok)
	assert.False(t, inferred.Confident())
}

func TestInferColumns_ShortKeywordMatchesWholeTokenOnly(t *testing.T) {
	// "cr" must not fire inside "description"; with "Cr" as its own header
	// token it must.
	rows := make([]statement.Row, 4)
	for i := range rows {
		rows[i] = statement.Row{Index: i, Values: map[string]string{
			"Date":        fmt.Sprintf("%02d/11/2025", i+1),
			"Description": "STANDING ORDER RENT",
			"Cr":          "900.00",
			"Dr":          "",
		}}
	}

	inferred := statement.InferColumns(rows)
	credit, ok := inferred[domain.RoleCredit]
	require.True(t, ok)
	assert.Equal(t, "Cr", credit.Column)

	description, ok := inferred[domain.RoleDescription]
	require.True(t, ok)
	assert.Equal(t, "Description", description.Column)
}
