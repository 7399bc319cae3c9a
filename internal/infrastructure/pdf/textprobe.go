package pdf

import (
	"bytes"
	"fmt"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
)

// PageText pulls the text layer of one page to prime the vision prompt with
// whatever the exporter embedded. Scanned drawings carry no text layer; an
// empty result is normal, not an error.
func PageText(data []byte, pageNumber, maxRunes int) (string, error) {
	reader, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf for text probe: %w", err)
	}
	if pageNumber < 1 || pageNumber > reader.NumPage() {
		return "", fmt.Errorf("page %d out of range, document has %d pages", pageNumber, reader.NumPage())
	}

	page := reader.Page(pageNumber)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		// Broken font maps are common in CAD exports; treat as no text layer.
		return "", nil
	}

	text = strings.TrimSpace(text)
	if maxRunes > 0 {
		runes := []rune(text)
		if len(runes) > maxRunes {
			text = string(runes[:maxRunes])
		}
	}
	return text, nil
}
