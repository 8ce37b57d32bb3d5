package render

import (
	"bytes"
	"fmt"
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// CheckPDF returns an error when data is not a PDF document.
func CheckPDF(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("render: empty output")
	}
	if !IsPDF(data) {
		head := data
		if len(head) > 8 {
			head = head[:8]
		}
		return fmt.Errorf("render: output is not a PDF (starts with %q)", head)
	}
	return nil
}
