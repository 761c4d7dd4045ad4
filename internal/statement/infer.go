package statement

import (
	"strings"
	"unicode"

	"github.com/reconlab/bank_recon_app/internal/core/domain"
)

const (
	// sampleRows is how many rows the inferencer inspects per column.
	sampleRows = 10
	// confidenceFloor discards role guesses below this confidence.
	confidenceFloor = 50
)

// roleKeywords maps each role to the header keywords that vote for it.
// Keywords of one or two characters only match whole header tokens, so "cr"
// does not fire inside "description".
var roleKeywords = map[domain.ColumnRole][]string{
	domain.RoleDate:        {"date", "datum", "posted", "booking", "value date"},
	domain.RoleDescription: {"description", "narrative", "details", "particulars", "memo", "payee", "remarks"},
	domain.RoleDebit:       {"debit", "withdrawal", "paid out", "money out", "outflow", "dr"},
	domain.RoleCredit:      {"credit", "deposit", "paid in", "money in", "inflow", "cr"},
	domain.RoleBalance:     {"balance", "running", "saldo"},
	domain.RoleReference:   {"reference", "ref", "cheque", "check no", "receipt", "transaction id"},
}

// roleWeights holds the name/shape weight split per role, in percent. Shape
// evidence carries more weight than the header name for every role; the exact
// split is tuned per role.
var roleWeights = map[domain.ColumnRole]struct{ name, shape int }{
	domain.RoleDate:        {40, 60},
	domain.RoleDescription: {40, 60},
	domain.RoleDebit:       {50, 50},
	domain.RoleCredit:      {50, 50},
	domain.RoleBalance:     {50, 50},
	domain.RoleReference:   {45, 55},
}

// shapeRequired marks the roles that are discarded outright without any
// sampled value matching the expected shape, regardless of how well the
// header name matches.
var shapeRequired = map[domain.ColumnRole]bool{
	domain.RoleDate:        true,
	domain.RoleDescription: true,
	domain.RoleDebit:       true,
	domain.RoleCredit:      true,
	domain.RoleBalance:     true,
}

// InferColumns scores every column against every role and returns the
// best-guess mapping with per-role confidence. Roles with no candidate at or
// above the floor are absent. The result is a suggestion for manual
// confirmation, never authoritative.
func InferColumns(rows []Row) domain.InferredMapping {
	if len(rows) == 0 {
		return domain.InferredMapping{}
	}

	columns := collectColumns(rows)
	sample := rows
	if len(sample) > sampleRows {
		sample = sample[:sampleRows]
	}

	inferred := domain.InferredMapping{}
	for _, role := range domain.AllRoles {
		best := domain.InferredColumn{}
		for _, column := range columns {
			confidence := scoreColumn(role, column, sample)
			if confidence > best.Confidence {
				best = domain.InferredColumn{Column: column, Confidence: confidence}
			}
		}
		if best.Confidence >= confidenceFloor {
			inferred[role] = best
		}
	}
	return inferred
}

func collectColumns(rows []Row) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for name := range row.Values {
			if !seen[name] {
				seen[name] = true
				columns = append(columns, name)
			}
		}
	}
	return columns
}

func scoreColumn(role domain.ColumnRole, column string, sample []Row) int {
	name := nameScore(role, column)
	shape := shapeScore(role, column, sample)
	if shape == 0 && shapeRequired[role] {
		return 0
	}
	// A reference has no distinctive shape, so the header must carry the
	// evidence.
	if role == domain.RoleReference && name == 0 {
		return 0
	}
	weights := roleWeights[role]
	return (name*weights.name + shape*weights.shape) / 100
}

// nameScore is 100 when any role keyword matches the column header, else 0.
func nameScore(role domain.ColumnRole, column string) int {
	header := strings.ToLower(strings.TrimSpace(column))
	tokens := headerTokens(header)
	for _, keyword := range roleKeywords[role] {
		if len(keyword) <= 2 {
			for _, token := range tokens {
				if token == keyword {
					return 100
				}
			}
			continue
		}
		if strings.Contains(header, keyword) {
			return 100
		}
	}
	return 0
}

func headerTokens(header string) []string {
	return strings.FieldsFunc(header, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// shapeScore is the percentage of non-empty sampled values matching the
// role's expected shape. Columns that are empty throughout the sample score 0.
func shapeScore(role domain.ColumnRole, column string, sample []Row) int {
	nonEmpty := 0
	matching := 0
	for _, row := range sample {
		value := strings.TrimSpace(row.Values[column])
		if value == "" {
			continue
		}
		nonEmpty++
		if matchesShape(role, value) {
			matching++
		}
	}
	if nonEmpty == 0 {
		return 0
	}
	return matching * 100 / nonEmpty
}

func matchesShape(role domain.ColumnRole, value string) bool {
	switch role {
	case domain.RoleDate:
		_, err := ParseDate(value)
		return err == nil
	case domain.RoleDescription:
		return len(value) > 10 && !looksNumeric(value)
	case domain.RoleDebit, domain.RoleCredit, domain.RoleBalance:
		return looksNumeric(value)
	case domain.RoleReference:
		if _, err := ParseDate(value); err == nil {
			return false
		}
		return len(value) <= 24
	}
	return false
}

func looksNumeric(value string) bool {
	if _, err := ParseDate(value); err == nil {
		return false
	}
	_, err := ParseAmount(value)
	return err == nil
}
