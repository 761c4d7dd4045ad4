package domain

// FileKind identifies the physical format of an uploaded statement file.
type FileKind string

const (
	FileKindCSV FileKind = "csv"
	FileKindPDF FileKind = "pdf"
)

// Valid reports whether the kind is one the decoder understands.
func (k FileKind) Valid() bool {
	return k == FileKindCSV || k == FileKindPDF
}

// ImportStatus is the lifecycle state of one uploaded statement file.
type ImportStatus string

const (
	ImportPending   ImportStatus = "PENDING"
	ImportParsing   ImportStatus = "PARSING"
	ImportMapping   ImportStatus = "MAPPING"
	ImportImporting ImportStatus = "IMPORTING"
	ImportCompleted ImportStatus = "COMPLETED"
	ImportFailed    ImportStatus = "FAILED"
)

// importTransitions is the allowed-transition table for the import lifecycle.
// Mapping loops back onto itself because a mapping can be corrected and
// re-submitted; the terminal states have no outgoing edges.
var importTransitions = map[ImportStatus][]ImportStatus{
	ImportPending:   {ImportParsing, ImportMapping},
	ImportParsing:   {ImportMapping, ImportFailed},
	ImportMapping:   {ImportMapping, ImportImporting, ImportFailed},
	ImportImporting: {ImportImporting, ImportCompleted, ImportFailed},
}

// CanTransition reports whether the import lifecycle permits moving from one
// status to another. Every status mutation consults this table first.
func (s ImportStatus) CanTransition(to ImportStatus) bool {
	for _, next := range importTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status accepts no further mutations.
func (s ImportStatus) Terminal() bool {
	return s == ImportCompleted || s == ImportFailed
}

// RowError records one row that failed normalization during the importing
// phase. Only a small sample is retained on the import.
type RowError struct {
	RowIndex int    `json:"rowIndex"`
	Message  string `json:"message"`
}

// Import is one uploaded bank-statement file and its processing state.
// Invariants: ImportedRows <= TotalRows; Mapping is non-nil only in
// MAPPING/IMPORTING/COMPLETED; terminal statuses never mutate row counts.
type Import struct {
	ImportID     string         `json:"importID"`
	BusinessID   string         `json:"businessID"`
	FileName     string         `json:"fileName"`
	FileKind     FileKind       `json:"fileKind"`
	BankName     string         `json:"bankName,omitempty"`
	Status       ImportStatus   `json:"status"`
	Mapping      *ColumnMapping `json:"mapping,omitempty"`
	TotalRows    int            `json:"totalRows"`
	ImportedRows int            `json:"importedRows"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	RowErrors    []RowError     `json:"rowErrors,omitempty"`
	RowSnapshot  string         `json:"-"` // encrypted JSON of the first parsed rows
	AuditFields
}
