package openai

import (
	"fmt"
	"strings"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
	"github.com/Skrufy/ConstructionManager-sub015/internal/infrastructure/pdf"
)

// maxTextHintRunes caps how much of the embedded text layer is fed into the
// prompt. Title blocks sit well within this window; full sheet notes do not
// help the model and burn tokens.
const maxTextHintRunes = 2000

func buildInferencePrompt(pageDoc []byte, candidates []domain.ProjectInfo) string {
	var b strings.Builder

	b.WriteString(`You are reading the title block of a single construction drawing sheet.
Extract into the specified JSON structure:

1. "drawing_number": the sheet's drawing number (e.g. "A-101", "S-201", "M3.02"). Look in the title block, usually the lower right corner. Use empty string if not found.
2. "sheet_title": the sheet title (e.g. "FIRST FLOOR PLAN"). Use empty string if not found.
3. "discipline": the discipline, spelled out (e.g. "Architectural", "Structural", "Mechanical", "Electrical", "Plumbing", "Civil"). Infer from the drawing number prefix when the title block does not state it. Use empty string if unclear.
4. "revision": the current revision mark (e.g. "A", "2", "Rev B"). Use the highest entry of the revision table if present. Use empty string if none.
5. "scale": the drawing scale as printed (e.g. "1:100", "1/4\" = 1'-0\"", "NTS"). Use empty string if not found.
6. "confidence": your overall confidence (0.0-1.0) that the extracted fields are correct. Be conservative: scanned or rotated title blocks warrant lower values.

Do not confuse detail numbers, grid references, or project numbers with the drawing number.`)

	if len(candidates) > 0 {
		b.WriteString("\n\nThe sheet belongs to one of these projects; use the matching project name to disambiguate title-block text:\n")
		for _, p := range candidates {
			fmt.Fprintf(&b, "- %s\n", p.Name)
		}
	}

	if hint, err := pdf.PageText(pageDoc, 1, maxTextHintRunes); err == nil && hint != "" {
		b.WriteString("\n\nText layer extracted from the page, possibly out of reading order:\n")
		b.WriteString(hint)
	}

	return b.String()
}
