package extract

import (
	"errors"
	"testing"
)

func TestText_NotAPDF(t *testing.T) {
	_, err := Text([]byte("plain text pretending to be a PDF"))
	if err == nil {
		t.Fatal("expected error for non-PDF bytes")
	}
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("error type = %T, want *ExtractionError", err)
	}
}

func TestText_Empty(t *testing.T) {
	_, err := Text(nil)
	if err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestText_Truncated(t *testing.T) {
	// A valid header followed by garbage must fail as an extraction error,
	// not panic or return empty text successfully.
	_, err := Text([]byte("%PDF-1.4\nnot actually a document"))
	if err == nil {
		t.Fatal("expected error for truncated PDF")
	}
}
