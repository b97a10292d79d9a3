//go:build !docext

// Default build without document extraction libraries. PDF and DOCX files
// are reported as unsupported and skipped during indexing.
//
// Build with -tags docext to enable extraction.

package indexer

import (
	"fmt"

	"github.com/dshills/localsearch-mcp/pkg/types"
)

func extractPDF(string) (string, error) {
	return "", fmt.Errorf("%w: pdf extraction requires the docext build", types.ErrUnsupportedFile)
}

func extractDOCX(string) (string, error) {
	return "", fmt.Errorf("%w: docx extraction requires the docext build", types.ErrUnsupportedFile)
}
