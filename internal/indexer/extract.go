package indexer

import (
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/dshills/localsearch-mcp/pkg/types"
)

// extractText returns the plain-text content of the file at path. Text files
// are decoded as UTF-8 with a GB18030 fallback; PDF and DOCX extraction is
// compiled in only under the docext build tag and otherwise reports
// types.ErrUnsupportedFile.
func extractText(path, ext string) (string, error) {
	switch ext {
	case ".txt", ".md":
		return readTextFile(path)
	case ".pdf":
		return extractPDF(path)
	case ".docx":
		return extractDOCX(path)
	}
	return "", fmt.Errorf("%w: %s", types.ErrUnsupportedFile, ext)
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := simplifiedchinese.GB18030.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode file encoding: %w", err)
	}
	return string(decoded), nil
}
