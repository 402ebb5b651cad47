package extract

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"docuchat/internal/model"
)

// Text converts stored file bytes into plain text via the method for the
// declared file type. Empty output is possible (scanned PDFs); callers
// decide whether that counts as a failure.
func Text(data []byte, fileType string) (string, error) {
	switch fileType {
	case model.FileTypePDF:
		return pdfText(data)
	case model.FileTypeMarkdown, model.FileTypeText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("decode %s file as utf-8 failed", fileType)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported file type %q", fileType)
	}
}

func pdfText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	return string(out), nil
}
