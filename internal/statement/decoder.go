// Package statement holds the pure statement-processing stages: decoding raw
// file bytes into row maps, inferring which column means what, and
// normalizing raw rows into canonical transaction fields. Nothing in this
// package touches persistence.
package statement

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/reconlab/bank_recon_app/internal/apperrors"
	"github.com/reconlab/bank_recon_app/internal/core/domain"
	portssvc "github.com/reconlab/bank_recon_app/internal/core/ports/services"
)

const (
	// MaxFileBytes is the hard cap on uploaded statement size.
	MaxFileBytes = 5 << 20
	// MaxRows is the hard cap on data rows per statement.
	MaxRows = 10000
)

// Row is one decoded statement line: the original row index (0-based over
// data rows) and a column-name -> raw-value map. The shape is identical for
// CSV and document input, which keeps downstream stages format-agnostic.
type Row struct {
	Index  int               `json:"index"`
	Values map[string]string `json:"values"`
}

// Decode turns raw file bytes into an ordered sequence of row maps.
// CSV input is decoded locally; pdf input is delegated to the document
// parser. Failures are apperrors.ParseError values.
func Decode(ctx context.Context, data []byte, kind domain.FileKind, parser portssvc.DocumentParser) ([]Row, error) {
	if len(data) > MaxFileBytes {
		return nil, apperrors.NewParseError(apperrors.ParseTooLarge,
			fmt.Sprintf("file is %d bytes, limit is %d", len(data), MaxFileBytes))
	}

	switch kind {
	case domain.FileKindCSV:
		return decodeCSV(data)
	case domain.FileKindPDF:
		return decodeDocument(ctx, data, parser)
	default:
		return nil, apperrors.NewParseError(apperrors.ParseNoTableFound, fmt.Sprintf("unsupported file kind %q", kind))
	}
}

func decodeCSV(data []byte) ([]Row, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	delimiter := sniffDelimiter(text)
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, 64)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewParseError(apperrors.ParseBadEncoding, fmt.Sprintf("malformed csv: %v", err))
		}
		if isBlankRecord(record) {
			continue
		}
		if len(rows) >= MaxRows {
			return nil, apperrors.NewParseError(apperrors.ParseTooManyRows,
				fmt.Sprintf("statement exceeds the %d row limit", MaxRows))
		}
		rows = append(rows, buildRow(len(rows), header, record))
	}
	return rows, nil
}

// readHeader consumes leading blank lines and returns the named columns with
// their positions. Columns with empty names are dropped.
func readHeader(reader *csv.Reader) ([]namedColumn, error) {
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewParseError(apperrors.ParseNoTableFound, "file has no header row")
		}
		if err != nil {
			return nil, apperrors.NewParseError(apperrors.ParseBadEncoding, fmt.Sprintf("malformed csv header: %v", err))
		}
		if isBlankRecord(record) {
			continue
		}
		var header []namedColumn
		for i, name := range record {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			header = append(header, namedColumn{index: i, name: name})
		}
		if len(header) == 0 {
			return nil, apperrors.NewParseError(apperrors.ParseNoTableFound, "header row has no named columns")
		}
		return header, nil
	}
}

type namedColumn struct {
	index int
	name  string
}

func buildRow(rowIndex int, header []namedColumn, record []string) Row {
	values := make(map[string]string, len(header))
	for _, col := range header {
		if col.index < len(record) {
			values[col.name] = strings.TrimSpace(record[col.index])
		} else {
			values[col.name] = ""
		}
	}
	return Row{Index: rowIndex, Values: values}
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// decodeText attempts a small set of encodings in order: UTF-8 (with or
// without BOM), UTF-16 (BOM required), then Windows-1252 as the legacy
// fallback common in bank exports.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		decoded, err := decoder.Bytes(data)
		if err == nil && utf8.Valid(decoded) {
			return string(decoded), nil
		}
		return "", apperrors.NewParseError(apperrors.ParseBadEncoding, "invalid UTF-16 content")
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", apperrors.NewParseError(apperrors.ParseBadEncoding, "content is not UTF-8, UTF-16 or Windows-1252")
	}
	return string(decoded), nil
}

// sniffDelimiter picks the candidate delimiter occurring most often in the
// first non-empty line, falling back to comma.
func sniffDelimiter(text string) rune {
	var sample string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			sample = line
			break
		}
	}

	best := ','
	bestCount := 0
	for _, candidate := range []rune{',', ';', '\t', '|'} {
		if count := strings.Count(sample, string(candidate)); count > bestCount {
			best = candidate
			bestCount = count
		}
	}
	return best
}

func decodeDocument(ctx context.Context, data []byte, parser portssvc.DocumentParser) ([]Row, error) {
	if parser == nil {
		return nil, apperrors.NewParseError(apperrors.ParseNoTableFound, "no document parser configured")
	}

	table, err := parser.ParseTable(ctx, data)
	if err != nil {
		var parseErr *apperrors.ParseError
		if errors.As(err, &parseErr) {
			return nil, parseErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewParseError(apperrors.ParseTimeout, "document parsing timed out")
		}
		return nil, apperrors.NewParseError(apperrors.ParseNoTableFound, err.Error())
	}

	if len(table) < 2 {
		return nil, apperrors.NewParseError(apperrors.ParseNoTableFound, "document contains no data table")
	}

	headerRow := table[0]
	var header []namedColumn
	for i, name := range headerRow {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		header = append(header, namedColumn{index: i, name: name})
	}
	if len(header) == 0 {
		return nil, apperrors.NewParseError(apperrors.ParseNoTableFound, "table header has no named columns")
	}

	rows := make([]Row, 0, len(table)-1)
	for _, record := range table[1:] {
		if len(record) != len(headerRow) {
			return nil, apperrors.NewParseError(apperrors.ParseNoTableFound,
				fmt.Sprintf("table row width %d does not match header width %d", len(record), len(headerRow)))
		}
		if isBlankRecord(record) {
			continue
		}
		if len(rows) >= MaxRows {
			return nil, apperrors.NewParseError(apperrors.ParseTooManyRows,
				fmt.Sprintf("statement exceeds the %d row limit", MaxRows))
		}
		rows = append(rows, buildRow(len(rows), header, record))
	}
	return rows, nil
}
