package pdf

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Extractor probes and splits PDFs fully in memory. Construction drawings are
// frequently produced by sloppy exporters, so validation runs relaxed.
type Extractor struct {
	conf *model.Configuration
}

func NewExtractor() *Extractor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Extractor{conf: conf}
}

func (e *Extractor) PageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), e.conf)
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return count, nil
}

// ExtractPage renders one page as a standalone single-page PDF. The source
// buffer is never mutated, so callers may extract distinct pages concurrently.
func (e *Extractor) ExtractPage(data []byte, pageNumber int) ([]byte, error) {
	if pageNumber < 1 {
		return nil, fmt.Errorf("invalid page number %d", pageNumber)
	}

	ctx, err := api.ReadContext(bytes.NewReader(data), e.conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf context: %w", err)
	}
	if pageNumber > ctx.PageCount {
		return nil, fmt.Errorf("page %d out of range, document has %d pages", pageNumber, ctx.PageCount)
	}

	pageCtx, err := pdfcpu.ExtractPages(ctx, []int{pageNumber}, false)
	if err != nil {
		return nil, fmt.Errorf("extract page %d: %w", pageNumber, err)
	}

	var buf bytes.Buffer
	if err := api.WriteContext(pageCtx, &buf); err != nil {
		return nil, fmt.Errorf("write page %d: %w", pageNumber, err)
	}
	return buf.Bytes(), nil
}
