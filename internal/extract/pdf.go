// Package extract converts uploaded PDF bytes into plain text. It wraps the
// document parser behind a small adapter so the rest of the system only ever
// sees trimmed text or a typed failure.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a document parses cleanly but yields no usable
// text (image-only scans, empty pages).
var ErrNoText = errors.New("document contains no extractable text")

// ExtractionError wraps a parser failure on a specific document.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting document text: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// Text extracts all plain text from raw PDF bytes. The result is trimmed;
// whitespace-only extractions fail with ErrNoText. The parser needs random
// access to a file, so the bytes are staged in a temp file first.
func Text(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "perfil-upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("staging upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("staging upload: %w", err)
	}

	f, reader, err := pdf.Open(tmp.Name())
	if err != nil {
		return "", &ExtractionError{Cause: err}
	}
	defer f.Close()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", &ExtractionError{Cause: err}
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return "", &ExtractionError{Cause: err}
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
