package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"codeberg.org/go-pdf/fpdf"

	"trainingportal-backend/internal/config"
	"trainingportal-backend/internal/domain"
	"trainingportal-backend/internal/logger"
)

// Template names a document layout. The names double as the path segment of
// the preview route /templates/{applicationId}/{template}.
type Template string

const (
	TemplateProformaInvoice Template = "pro-forma-invoice"
	TemplateOfferLetter     Template = "offer-letter"
	TemplateReceipt         Template = "receipt"
)

var ErrUnknownTemplate = errors.New("unknown document template")

// ParseTemplate validates a template name from a URL.
func ParseTemplate(name string) (Template, error) {
	switch t := Template(name); t {
	case TemplateProformaInvoice, TemplateOfferLetter, TemplateReceipt:
		return t, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
}

// Kind returns the document kind a template produces.
func (t Template) Kind() domain.DocumentKind {
	switch t {
	case TemplateProformaInvoice:
		return domain.DocumentKindProformaInvoice
	case TemplateOfferLetter:
		return domain.DocumentKindOfferLetter
	case TemplateReceipt:
		return domain.DocumentKindReceipt
	}
	return ""
}

// Data is everything a template may print.
type Data struct {
	Details  *domain.ApplicationDetails
	FeeCents int64 // fee being billed, which may differ from the stored fee during approval
	Message  string
	Invoice  *domain.Invoice
	Payment  *domain.Payment
	IssuedAt time.Time
}

// Renderer turns a named template and data into a PDF.
type Renderer interface {
	Render(ctx context.Context, tmpl Template, data *Data) ([]byte, error)
}

// PDFRenderer draws documents with fpdf. Page format is A4 portrait; filled
// table headers are always printed.
type PDFRenderer struct {
	cfg     config.RenderConfig
	timeout time.Duration
}

func NewPDFRenderer(cfg config.RenderConfig) *PDFRenderer {
	return &PDFRenderer{
		cfg:     cfg,
		timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
	}
}

type result struct {
	data []byte
	err  error
}

func (r *PDFRenderer) Render(ctx context.Context, tmpl Template, data *Data) ([]byte, error) {
	if data == nil || data.Details == nil {
		return nil, errors.New("render: missing application details")
	}
	if data.IssuedAt.IsZero() {
		data.IssuedAt = time.Now()
	}

	var draw func(*document, *Data)
	switch tmpl {
	case TemplateProformaInvoice:
		draw = drawProformaInvoice
	case TemplateOfferLetter:
		draw = drawOfferLetter
	case TemplateReceipt:
		if data.Payment == nil {
			return nil, errors.New("render: receipt requires a payment")
		}
		draw = drawReceipt
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, tmpl)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render %s: %w", tmpl, err)
	}

	logger.ExternalServiceCall("pdf-renderer", string(tmpl), "applicationID", data.Details.Application.ID)

	done := make(chan result, 1)
	go func() {
		b, err := r.build(tmpl, draw, data)
		done <- result{data: b, err: err}
	}()

	select {
	case <-ctx.Done():
		err := fmt.Errorf("render %s: %w", tmpl, ctx.Err())
		logger.ExternalServiceResult("pdf-renderer", string(tmpl), err)
		return nil, err
	case res := <-done:
		logger.ExternalServiceResult("pdf-renderer", string(tmpl), res.err, "bytes", len(res.data))
		return res.data, res.err
	}
}

func (r *PDFRenderer) build(tmpl Template, draw func(*document, *Data), data *Data) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(data.IssuedAt)
	pdf.SetTitle(fmt.Sprintf("%s %d", tmpl, data.Details.Application.ID), true)
	pdf.SetAuthor(r.cfg.IssuerName, true)
	pdf.SetCreator("trainingportal-backend", true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")

	doc := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), cfg: r.cfg}
	pdf.SetFooterFunc(doc.footer)
	pdf.AddPage()
	doc.letterhead()

	draw(doc, data)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render %s: %w", tmpl, err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", tmpl, err)
	}
	return buf.Bytes(), nil
}
