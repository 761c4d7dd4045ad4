// Package docintel implements the document-intelligence collaborator against
// Google Document AI. Only the table extraction output is consumed; layout,
// entities and everything else the processor returns is ignored.
package docintel

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	documentai "google.golang.org/api/documentai/v1"
	"google.golang.org/api/option"

	"github.com/reconlab/bank_recon_app/internal/apperrors"
	portssvc "github.com/reconlab/bank_recon_app/internal/core/ports/services"
)

// DocumentAIParser calls a Document AI processor to turn a PDF byte stream
// into a header+rows table.
type DocumentAIParser struct {
	svc           *documentai.Service
	processorName string
	timeout       time.Duration
}

var _ portssvc.DocumentParser = (*DocumentAIParser)(nil)

// NewDocumentAIParser creates the adapter. processorName is the full
// Document AI resource name
// (projects/{project}/locations/{location}/processors/{id}).
func NewDocumentAIParser(ctx context.Context, processorName string, timeout time.Duration) (*DocumentAIParser, error) {
	if processorName == "" {
		return nil, errors.New("document ai processor name cannot be empty")
	}
	creds, err := google.FindDefaultCredentials(ctx, documentai.CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve google credentials: %w", err)
	}
	svc, err := documentai.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create document ai client: %w", err)
	}
	return &DocumentAIParser{svc: svc, processorName: processorName, timeout: timeout}, nil
}

// ParseTable sends the document for processing and extracts the largest
// detected table. The request is bounded by the configured timeout; expiry
// surfaces as a parse timeout.
func (p *DocumentAIParser) ParseTable(ctx context.Context, data []byte) ([][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := &documentai.GoogleCloudDocumentaiV1ProcessRequest{
		RawDocument: &documentai.GoogleCloudDocumentaiV1RawDocument{
			Content:  base64.StdEncoding.EncodeToString(data),
			MimeType: "application/pdf",
		},
	}

	resp, err := p.svc.Projects.Locations.Processors.Process(p.processorName, req).Context(ctx).Do()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewParseError(apperrors.ParseTimeout, "document intelligence request timed out")
		}
		return nil, fmt.Errorf("document ai process request failed: %w", err)
	}
	if resp.Document == nil {
		return nil, apperrors.NewParseError(apperrors.ParseNoTableFound, "processor returned no document")
	}
	return extractTable(resp.Document)
}

// extractTable picks the table with the most body rows across all pages and
// flattens it into [][]string with the header first.
func extractTable(doc *documentai.GoogleCloudDocumentaiV1Document) ([][]string, error) {
	var best *documentai.GoogleCloudDocumentaiV1DocumentPageTable
	for _, page := range doc.Pages {
		for _, table := range page.Tables {
			if best == nil || len(table.BodyRows) > len(best.BodyRows) {
				best = table
			}
		}
	}
	if best == nil || len(best.HeaderRows) == 0 {
		return nil, apperrors.NewParseError(apperrors.ParseNoTableFound, "document contains no table")
	}

	result := make([][]string, 0, len(best.BodyRows)+1)
	result = append(result, flattenRow(doc.Text, best.HeaderRows[0]))
	for _, row := range best.BodyRows {
		result = append(result, flattenRow(doc.Text, row))
	}
	return result, nil
}

func flattenRow(text string, row *documentai.GoogleCloudDocumentaiV1DocumentPageTableTableRow) []string {
	cells := make([]string, 0, len(row.Cells))
	for _, cell := range row.Cells {
		cells = append(cells, anchorText(text, cell.Layout))
	}
	return cells
}

// anchorText resolves a layout's text anchor segments against the document's
// full text.
func anchorText(text string, layout *documentai.GoogleCloudDocumentaiV1DocumentPageLayout) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	var builder strings.Builder
	for _, segment := range layout.TextAnchor.TextSegments {
		start, end := segment.StartIndex, segment.EndIndex
		if start < 0 || end > int64(len(text)) || start >= end {
			continue
		}
		builder.WriteString(text[start:end])
	}
	return strings.TrimSpace(strings.ReplaceAll(builder.String(), "\n", " "))
}
