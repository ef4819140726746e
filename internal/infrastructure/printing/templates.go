package printing

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/mfirdausali/wif-fin-sub004/internal/domain/printing"
)

//go:embed templates/*.html
var templateFS embed.FS

const partialsFile = "templates/partials.html"

// TemplateFunc turns a document record and company details into markup.
// It is pure: no network or storage access.
type TemplateFunc func(doc printing.Document, company printing.CompanyInfo) (string, error)

// documentView is the data every document template receives
type documentView[T printing.Document] struct {
	Title   string
	Doc     T
	Company printing.CompanyInfo
}

// TemplateRegistry maps each document type to its markup function
type TemplateRegistry struct {
	table map[printing.DocType]TemplateFunc
}

// NewTemplateRegistry parses the embedded templates and builds the static
// dispatch table. It fails if any document type lacks a template.
func NewTemplateRegistry(engine *TemplateEngine) (*TemplateRegistry, error) {
	if engine == nil {
		engine = NewTemplateEngine()
	}

	invoice, err := typedTemplate[*printing.InvoiceData](engine, printing.DocTypeInvoice)
	if err != nil {
		return nil, err
	}
	receipt, err := typedTemplate[*printing.ReceiptData](engine, printing.DocTypeReceipt)
	if err != nil {
		return nil, err
	}
	voucher, err := typedTemplate[*printing.PaymentVoucherData](engine, printing.DocTypePaymentVoucher)
	if err != nil {
		return nil, err
	}
	statement, err := typedTemplate[*printing.StatementOfPaymentData](engine, printing.DocTypeStatementOfPayment)
	if err != nil {
		return nil, err
	}

	r := &TemplateRegistry{
		table: map[printing.DocType]TemplateFunc{
			printing.DocTypeInvoice:            invoice,
			printing.DocTypeReceipt:            receipt,
			printing.DocTypePaymentVoucher:     voucher,
			printing.DocTypeStatementOfPayment: statement,
		},
	}
	for _, dt := range printing.AllDocTypes() {
		if _, ok := r.table[dt]; !ok {
			return nil, fmt.Errorf("no template registered for document type %s", dt)
		}
	}
	return r, nil
}

// Resolve returns the template function for documentType
func (r *TemplateRegistry) Resolve(documentType printing.DocType) (TemplateFunc, error) {
	fn, ok := r.table[documentType]
	if !ok {
		return nil, NewRenderError(ErrCodeUnknownDocumentType, "no template for document type: "+string(documentType), nil)
	}
	return fn, nil
}

// typedTemplate binds the template file for dt to its concrete record type.
// Totals are computed before execution so templates only format values.
func typedTemplate[T printing.Document](engine *TemplateEngine, dt printing.DocType) (TemplateFunc, error) {
	file := dt.Slug() + ".html"
	tmpl, err := engine.ParseFS(templateFS, partialsFile, "templates/"+file)
	if err != nil {
		return nil, err
	}
	return executeTyped[T](tmpl.Lookup(file), dt), nil
}

func executeTyped[T printing.Document](tmpl *template.Template, dt printing.DocType) TemplateFunc {
	return func(doc printing.Document, company printing.CompanyInfo) (string, error) {
		typed, ok := doc.(T)
		if !ok {
			return "", NewRenderError(ErrCodeValidation,
				fmt.Sprintf("document of type %T cannot be rendered as %s", doc, dt), nil)
		}
		typed.ComputeTotals()

		var buf bytes.Buffer
		view := documentView[T]{Title: dt.DisplayName(), Doc: typed, Company: company}
		if err := tmpl.Execute(&buf, view); err != nil {
			return "", NewRenderError(ErrCodeTemplateFailed, "failed to execute "+dt.String()+" template", err)
		}
		return buf.String(), nil
	}
}
