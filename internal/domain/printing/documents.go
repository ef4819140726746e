package printing

import (
	"fmt"
	"strings"

	"github.com/mfirdausali/wif-fin-sub004/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is applied when a document omits its currency
const DefaultCurrency = "MYR"

var hundred = decimal.NewFromInt(100)

// Document is implemented by every renderable financial document record
type Document interface {
	// DocType returns the closed document type tag
	DocType() DocType
	// Number returns the identifying document number
	Number() string
	// Validate checks the minimal shape a template requires
	Validate() error
	// ComputeTotals derives subtotal, tax and total fields from line items
	ComputeTotals()
}

// NewDocument returns an empty record for the given type, ready for decoding
func NewDocument(t DocType) (Document, error) {
	switch t {
	case DocTypeInvoice:
		return &InvoiceData{}, nil
	case DocTypeReceipt:
		return &ReceiptData{}, nil
	case DocTypePaymentVoucher:
		return &PaymentVoucherData{}, nil
	case DocTypeStatementOfPayment:
		return &StatementOfPaymentData{}, nil
	}
	return nil, shared.NewDomainError(shared.ErrUnknownDocument.Code, "Unknown document type: "+string(t))
}

// Party is a customer, payer or payee block
type Party struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// BankDetails are printed on invoices and vouchers for remittance
type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	SwiftCode     string `json:"swiftCode"`
}

// LineItem is a single billable line
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Amount      decimal.Decimal `json:"amount"`
}

// LineTotal returns the explicit amount, or quantity × unit price when amount is omitted
func (li LineItem) LineTotal() decimal.Decimal {
	if !li.Amount.IsZero() {
		return li.Amount
	}
	return li.Quantity.Mul(li.UnitPrice)
}

func sumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		items[i].Amount = items[i].LineTotal().Round(2)
		total = total.Add(items[i].Amount)
	}
	return total
}

func validateNumber(n string) error {
	if strings.TrimSpace(n) == "" {
		return validationError("documentNumber is required")
	}
	return nil
}

func validateItems(items []LineItem) error {
	for i, it := range items {
		if it.Quantity.IsNegative() {
			return validationError(fmt.Sprintf("items[%d].quantity must not be negative", i))
		}
		if it.UnitPrice.IsNegative() {
			return validationError(fmt.Sprintf("items[%d].unitPrice must not be negative", i))
		}
	}
	return nil
}

func validationError(msg string) *shared.DomainError {
	return shared.NewDomainError(shared.ErrValidation.Code, msg)
}

func currencyOrDefault(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

// InvoiceData is the invoice record
type InvoiceData struct {
	DocumentNumber string          `json:"documentNumber"`
	InvoiceDate    string          `json:"invoiceDate"`
	DueDate        string          `json:"dueDate"`
	Customer       Party           `json:"customer"`
	Items          []LineItem      `json:"items"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	Currency       string          `json:"currency"`
	PaymentTerms   string          `json:"paymentTerms"`
	Notes          string          `json:"notes"`
	BankDetails    *BankDetails    `json:"bankDetails,omitempty"`

	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Total     decimal.Decimal `json:"total"`
}

func (d *InvoiceData) DocType() DocType { return DocTypeInvoice }
func (d *InvoiceData) Number() string   { return d.DocumentNumber }

// Validate checks the invoice number, line items and tax rate
func (d *InvoiceData) Validate() error {
	if err := validateNumber(d.DocumentNumber); err != nil {
		return err
	}
	if d.TaxRate.IsNegative() || d.TaxRate.GreaterThan(hundred) {
		return validationError("taxRate must be between 0 and 100")
	}
	return validateItems(d.Items)
}

// ComputeTotals sets subtotal, tax = subtotal × rate / 100 and total
func (d *InvoiceData) ComputeTotals() {
	d.Currency = currencyOrDefault(d.Currency)
	d.Subtotal = sumItems(d.Items)
	d.TaxAmount = d.Subtotal.Mul(d.TaxRate).Div(hundred).Round(2)
	d.Total = d.Subtotal.Add(d.TaxAmount)
}

// ReceiptData is an official receipt acknowledging a payment
type ReceiptData struct {
	DocumentNumber      string          `json:"documentNumber"`
	ReceiptDate         string          `json:"receiptDate"`
	Payer               Party           `json:"payer"`
	PaymentMethod       string          `json:"paymentMethod"`
	PaymentReference    string          `json:"paymentReference"`
	LinkedInvoiceNumber string          `json:"linkedInvoiceNumber"`
	Description         string          `json:"description"`
	Items               []LineItem      `json:"items"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	ReceivedBy          string          `json:"receivedBy"`

	Total decimal.Decimal `json:"total"`
}

func (d *ReceiptData) DocType() DocType { return DocTypeReceipt }
func (d *ReceiptData) Number() string   { return d.DocumentNumber }

// Validate checks the receipt number and amounts
func (d *ReceiptData) Validate() error {
	if err := validateNumber(d.DocumentNumber); err != nil {
		return err
	}
	if d.Amount.IsNegative() {
		return validationError("amount must not be negative")
	}
	return validateItems(d.Items)
}

// ComputeTotals uses the line items when present, otherwise the received amount
func (d *ReceiptData) ComputeTotals() {
	d.Currency = currencyOrDefault(d.Currency)
	if len(d.Items) > 0 {
		d.Total = sumItems(d.Items)
		return
	}
	d.Total = d.Amount.Round(2)
}

// PaymentVoucherData authorises an outgoing payment
type PaymentVoucherData struct {
	DocumentNumber string       `json:"documentNumber"`
	VoucherDate    string       `json:"voucherDate"`
	Payee          Party        `json:"payee"`
	PayeeBank      *BankDetails `json:"payeeBank,omitempty"`
	Purpose        string       `json:"purpose"`
	Items          []LineItem   `json:"items"`
	Currency       string       `json:"currency"`
	PreparedBy     string       `json:"preparedBy"`
	ApprovedBy     string       `json:"approvedBy"`

	Total decimal.Decimal `json:"total"`
}

func (d *PaymentVoucherData) DocType() DocType { return DocTypePaymentVoucher }
func (d *PaymentVoucherData) Number() string   { return d.DocumentNumber }

// Validate checks the voucher number and line items
func (d *PaymentVoucherData) Validate() error {
	if err := validateNumber(d.DocumentNumber); err != nil {
		return err
	}
	return validateItems(d.Items)
}

// ComputeTotals sums the voucher lines
func (d *PaymentVoucherData) ComputeTotals() {
	d.Currency = currencyOrDefault(d.Currency)
	d.Total = sumItems(d.Items)
}

// Transaction is one settled transfer listed on a statement of payment
type Transaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
	Amount      decimal.Decimal `json:"amount"`
}

// StatementOfPaymentData confirms that a voucher has been paid out
type StatementOfPaymentData struct {
	DocumentNumber       string          `json:"documentNumber"`
	PaymentDate          string          `json:"paymentDate"`
	LinkedVoucherNumber  string          `json:"linkedVoucherNumber"`
	Payee                Party           `json:"payee"`
	PaymentMethod        string          `json:"paymentMethod"`
	TransactionReference string          `json:"transactionReference"`
	Transactions         []Transaction   `json:"transactions"`
	TransferFee          decimal.Decimal `json:"transferFee"`
	ExchangeRate         decimal.Decimal `json:"exchangeRate"`
	Currency             string          `json:"currency"`
	ConfirmedBy          string          `json:"confirmedBy"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
	ConvertedTotal decimal.Decimal `json:"convertedTotal"`
}

func (d *StatementOfPaymentData) DocType() DocType { return DocTypeStatementOfPayment }
func (d *StatementOfPaymentData) Number() string   { return d.DocumentNumber }

// Validate checks the statement number, fee and exchange rate
func (d *StatementOfPaymentData) Validate() error {
	if err := validateNumber(d.DocumentNumber); err != nil {
		return err
	}
	if d.TransferFee.IsNegative() {
		return validationError("transferFee must not be negative")
	}
	if d.ExchangeRate.IsNegative() {
		return validationError("exchangeRate must not be negative")
	}
	return nil
}

// ComputeTotals sums transactions, adds the transfer fee and converts to the
// local currency when an exchange rate is given
func (d *StatementOfPaymentData) ComputeTotals() {
	d.Currency = currencyOrDefault(d.Currency)
	sub := decimal.Zero
	for _, t := range d.Transactions {
		sub = sub.Add(t.Amount)
	}
	d.Subtotal = sub.Round(2)
	d.Total = d.Subtotal.Add(d.TransferFee.Round(2))
	if d.ExchangeRate.IsPositive() {
		d.ConvertedTotal = d.Total.Mul(d.ExchangeRate).Round(2)
	} else {
		d.ConvertedTotal = d.Total
	}
}

// Compile-time checks
var (
	_ Document = (*InvoiceData)(nil)
	_ Document = (*ReceiptData)(nil)
	_ Document = (*PaymentVoucherData)(nil)
	_ Document = (*StatementOfPaymentData)(nil)
)
