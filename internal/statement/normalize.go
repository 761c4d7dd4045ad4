package statement

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reconlab/bank_recon_app/internal/apperrors"
	"github.com/reconlab/bank_recon_app/internal/core/domain"
)

// dateLayouts is the ordered list of formats NormalizeRow tries. Day-first
// layouts come before month-first because the statements this engine sees are
// predominantly day/month/year; the first successful parse wins.
var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-Jan-2006",
	"2 Jan 2006",
	"02 January 2006",
	"02.01.2006",
	"02-01-2006",
	"01/02/2006",
	"2006/01/02",
}

var currencyNoise = regexp.MustCompile(`[^\d.,\-()]`)

// NormalizedRow is the canonical transaction shape produced from one raw row.
// The raw row is preserved verbatim for audit purposes.
type NormalizedRow struct {
	Date        time.Time
	Description string
	Debit       *decimal.Decimal
	Credit      *decimal.Decimal
	Balance     *decimal.Decimal
	Reference   string
	Raw         map[string]string
}

// NormalizeRow converts one raw row into canonical transaction fields using a
// confirmed column mapping. Failures are apperrors.NormalizationError values
// naming the offending field.
func NormalizeRow(row Row, mapping domain.ColumnMapping) (*NormalizedRow, error) {
	date, err := ParseDate(row.Values[mapping.Date])
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(row.Values[mapping.Description])
	if description == "" {
		return nil, &apperrors.NormalizationError{Field: string(domain.RoleDescription), Reason: "value is empty"}
	}

	debit, err := parseOptionalAmount(row.Values[mapping.Debit], domain.RoleDebit)
	if err != nil {
		return nil, err
	}
	credit, err := parseOptionalAmount(row.Values[mapping.Credit], domain.RoleCredit)
	if err != nil {
		return nil, err
	}
	if debit != nil && credit != nil {
		return nil, &apperrors.NormalizationError{Field: "amount", Reason: "row has both a debit and a credit value"}
	}
	if debit == nil && credit == nil {
		return nil, &apperrors.NormalizationError{Field: "amount", Reason: "row has neither a debit nor a credit value"}
	}

	var balance *decimal.Decimal
	if mapping.Balance != "" {
		if raw := strings.TrimSpace(row.Values[mapping.Balance]); raw != "" {
			value, err := ParseAmount(raw)
			if err != nil {
				return nil, &apperrors.NormalizationError{Field: string(domain.RoleBalance), Reason: err.Error()}
			}
			balance = &value
		}
	}

	reference := ""
	if mapping.Reference != "" {
		reference = strings.TrimSpace(row.Values[mapping.Reference])
	}

	return &NormalizedRow{
		Date:        date,
		Description: description,
		Debit:       debit,
		Credit:      credit,
		Balance:     balance,
		Reference:   reference,
		Raw:         row.Values,
	}, nil
}

// ParseDate tries each known layout in order and accepts the first match.
func ParseDate(raw string) (time.Time, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return time.Time{}, &apperrors.NormalizationError{Field: string(domain.RoleDate), Reason: "value is empty"}
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, cleaned); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, &apperrors.NormalizationError{Field: string(domain.RoleDate), Reason: "unrecognized date format: " + cleaned}
}

// ParseAmount parses a currency-formatted string into a decimal. Currency
// symbols and whitespace are stripped, parenthesized values are negative, and
// both 1,234.56 and 1.234,56 separator conventions are handled.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	cleaned = currencyNoise.ReplaceAllString(cleaned, "")
	cleaned = standardizeSeparators(cleaned)
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, &apperrors.NormalizationError{Field: "amount", Reason: "no numeric content in " + raw}
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &apperrors.NormalizationError{Field: "amount", Reason: "not a number: " + raw}
	}
	if negative {
		value = value.Neg()
	}
	return value, nil
}

// standardizeSeparators resolves thousands and decimal separators so that the
// result parses as a plain decimal with a dot radix point.
func standardizeSeparators(s string) string {
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ".") < strings.LastIndex(s, ",") {
			// European style 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// Anglo style 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		parts := strings.Split(s, ",")
		if len(parts[len(parts)-1]) <= 2 {
			// Comma as decimal separator: 1234,56
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// Comma as thousands separator: 1,234
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return s
}

// parseOptionalAmount parses one amount cell. An empty or zero value is not
// an error: bank statements routinely fill the unused side with blanks or
// 0.00. Negative magnitudes are rejected.
func parseOptionalAmount(raw string, role domain.ColumnRole) (*decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil, nil
	}
	value, err := ParseAmount(cleaned)
	if err != nil {
		reason := err.Error()
		var normErr *apperrors.NormalizationError
		if errors.As(err, &normErr) {
			reason = normErr.Reason
		}
		return nil, &apperrors.NormalizationError{Field: string(role), Reason: reason}
	}
	if value.IsNegative() {
		return nil, &apperrors.NormalizationError{Field: string(role), Reason: "amount is negative: " + raw}
	}
	if value.IsZero() {
		return nil, nil
	}
	return &value, nil
}
