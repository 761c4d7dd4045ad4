package domain

// ColumnRole names a canonical field a statement column can be mapped to.
type ColumnRole string

const (
	RoleDate        ColumnRole = "date"
	RoleDescription ColumnRole = "description"
	RoleDebit       ColumnRole = "debit"
	RoleCredit      ColumnRole = "credit"
	RoleBalance     ColumnRole = "balance"
	RoleReference   ColumnRole = "reference"
)

// AllRoles lists every role the column inferencer scores, in scoring order.
var AllRoles = []ColumnRole{RoleDate, RoleDescription, RoleDebit, RoleCredit, RoleBalance, RoleReference}

// ColumnMapping assigns source column names to canonical roles. Date and
// description are mandatory, as is at least one of debit/credit. A mapping is
// owned by one Import and is replaced wholesale, never patched field by field.
type ColumnMapping struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
	Balance     string `json:"balance,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

// MissingRoles returns the mandatory roles absent from the mapping. An empty
// result means the mapping is valid.
func (m ColumnMapping) MissingRoles() []string {
	var missing []string
	if m.Date == "" {
		missing = append(missing, string(RoleDate))
	}
	if m.Description == "" {
		missing = append(missing, string(RoleDescription))
	}
	if m.Debit == "" && m.Credit == "" {
		missing = append(missing, string(RoleDebit)+"|"+string(RoleCredit))
	}
	return missing
}

// Column returns the source column assigned to the given role, or "" if the
// role is unmapped.
func (m ColumnMapping) Column(role ColumnRole) string {
	switch role {
	case RoleDate:
		return m.Date
	case RoleDescription:
		return m.Description
	case RoleDebit:
		return m.Debit
	case RoleCredit:
		return m.Credit
	case RoleBalance:
		return m.Balance
	case RoleReference:
		return m.Reference
	}
	return ""
}

// InferredColumn is one role guess produced by the column inferencer.
type InferredColumn struct {
	Column     string `json:"column"`
	Confidence int    `json:"confidence"` // 0-100
}

// InferredMapping is the inferencer's best guess per role. It is a suggestion
// only; an import never processes rows until a mapping is explicitly confirmed.
type InferredMapping map[ColumnRole]InferredColumn

// ConfidentThreshold is the date-role confidence an inferred mapping needs
// before it is attached to a new import as the suggested mapping.
const ConfidentThreshold = 70

// Confident reports whether the inference is strong enough to suggest,
// requiring at least the date role to clear ConfidentThreshold.
func (im InferredMapping) Confident() bool {
	d, ok := im[RoleDate]
	return ok && d.Confidence >= ConfidentThreshold
}

// ToColumnMapping converts the inference result into a plain mapping.
func (im InferredMapping) ToColumnMapping() ColumnMapping {
	return ColumnMapping{
		Date:        im[RoleDate].Column,
		Description: im[RoleDescription].Column,
		Debit:       im[RoleDebit].Column,
		Credit:      im[RoleCredit].Column,
		Balance:     im[RoleBalance].Column,
		Reference:   im[RoleReference].Column,
	}
}
