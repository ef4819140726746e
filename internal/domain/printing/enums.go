package printing

import (
	"strings"

	"github.com/mfirdausali/wif-fin-sub004/internal/domain/shared"
)

// DocType represents the type of financial document that can be rendered
type DocType string

const (
	DocTypeInvoice            DocType = "invoice"
	DocTypeReceipt            DocType = "receipt"
	DocTypePaymentVoucher     DocType = "payment_voucher"
	DocTypeStatementOfPayment DocType = "statement_of_payment"
)

// ParseDocType parses a document type tag. Hyphenated forms such as
// "payment-voucher" are accepted alongside the canonical underscore form.
func ParseDocType(s string) (DocType, error) {
	d := DocType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !d.IsValid() {
		return "", shared.NewDomainError(shared.ErrUnknownDocument.Code, "Unknown document type: "+s)
	}
	return d, nil
}

// IsValid checks if the DocType is a valid value
func (d DocType) IsValid() bool {
	switch d {
	case DocTypeInvoice, DocTypeReceipt, DocTypePaymentVoucher, DocTypeStatementOfPayment:
		return true
	}
	return false
}

// String returns the string representation of DocType
func (d DocType) String() string {
	return string(d)
}

// Slug returns the hyphenated form used in routes and artifact filenames
func (d DocType) Slug() string {
	return strings.ReplaceAll(string(d), "_", "-")
}

// PayloadKey returns the request body key that carries the document record
func (d DocType) PayloadKey() string {
	switch d {
	case DocTypePaymentVoucher:
		return "voucher"
	case DocTypeStatementOfPayment:
		return "statement"
	default:
		return string(d)
	}
}

// DisplayName returns the English title printed on the document
func (d DocType) DisplayName() string {
	switch d {
	case DocTypeInvoice:
		return "Invoice"
	case DocTypeReceipt:
		return "Official Receipt"
	case DocTypePaymentVoucher:
		return "Payment Voucher"
	case DocTypeStatementOfPayment:
		return "Statement of Payment"
	default:
		return string(d)
	}
}

// AllDocTypes returns all valid DocType values
func AllDocTypes() []DocType {
	return []DocType{
		DocTypeInvoice, DocTypeReceipt, DocTypePaymentVoucher, DocTypeStatementOfPayment,
	}
}

// PaperSize represents the paper size for printing
type PaperSize string

const (
	PaperSizeA4     PaperSize = "A4"     // 210mm x 297mm
	PaperSizeA5     PaperSize = "A5"     // 148mm x 210mm
	PaperSizeLetter PaperSize = "LETTER" // 216mm x 279mm
)

// IsValid checks if the PaperSize is a valid value
func (p PaperSize) IsValid() bool {
	switch p {
	case PaperSizeA4, PaperSizeA5, PaperSizeLetter:
		return true
	}
	return false
}

// String returns the string representation of PaperSize
func (p PaperSize) String() string {
	return string(p)
}

// Dimensions returns the paper dimensions in millimeters (width, height)
func (p PaperSize) Dimensions() (width, height int) {
	switch p {
	case PaperSizeA5:
		return 148, 210
	case PaperSizeLetter:
		return 216, 279
	default:
		return 210, 297
	}
}
