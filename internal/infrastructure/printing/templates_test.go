package printing

import (
	"encoding/json"
	"testing"

	"github.com/mfirdausali/wif-fin-sub004/internal/domain/printing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *TemplateRegistry {
	t.Helper()
	r, err := NewTemplateRegistry(NewTemplateEngine())
	require.NoError(t, err)
	return r
}

func sampleDocument(dt printing.DocType, number string) printing.Document {
	switch dt {
	case printing.DocTypeInvoice:
		return &printing.InvoiceData{DocumentNumber: number, Customer: printing.Party{Name: "Acme Travel"}}
	case printing.DocTypeReceipt:
		return &printing.ReceiptData{DocumentNumber: number, Amount: decimal.NewFromInt(50)}
	case printing.DocTypePaymentVoucher:
		return &printing.PaymentVoucherData{DocumentNumber: number, Payee: printing.Party{Name: "Hotel Nikko"}}
	default:
		return &printing.StatementOfPaymentData{DocumentNumber: number}
	}
}

func TestTemplateRegistry_ResolveAllTypes(t *testing.T) {
	r := newTestRegistry(t)

	for _, dt := range printing.AllDocTypes() {
		t.Run(dt.String(), func(t *testing.T) {
			fn, err := r.Resolve(dt)
			require.NoError(t, err)

			number := "NO-" + dt.Slug() + "-42"
			markup, err := fn(sampleDocument(dt, number), testCompany())
			require.NoError(t, err)
			assert.Contains(t, markup, number)
			assert.Contains(t, markup, dt.DisplayName())
			assert.Contains(t, markup, "WIF Japan Sdn Bhd")
		})
	}
}

func TestTemplateRegistry_UnknownType(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Resolve(printing.DocType("quotation"))
	require.Error(t, err)
	assert.True(t, IsRenderErrorCode(err, ErrCodeUnknownDocumentType))
}

func TestTemplateRegistry_MismatchedRecord(t *testing.T) {
	r := newTestRegistry(t)
	fn, err := r.Resolve(printing.DocTypeInvoice)
	require.NoError(t, err)

	_, err = fn(&printing.ReceiptData{DocumentNumber: "RCP-1"}, testCompany())
	assert.True(t, IsRenderErrorCode(err, ErrCodeValidation))
}

func TestTemplateRegistry_InvoiceTotals(t *testing.T) {
	raw := `{"documentNumber":"INV-001","items":[{"description":"Service A","quantity":2,"unitPrice":100.00,"amount":200.00}],"taxRate":6,"currency":"MYR"}`
	var inv printing.InvoiceData
	require.NoError(t, json.Unmarshal([]byte(raw), &inv))

	fn, err := newTestRegistry(t).Resolve(printing.DocTypeInvoice)
	require.NoError(t, err)
	markup, err := fn(&inv, testCompany())
	require.NoError(t, err)

	assert.Contains(t, markup, `<td class="num subtotal">MYR 200.00</td>`)
	assert.Contains(t, markup, `<td class="num tax">MYR 12.00</td>`)
	assert.Contains(t, markup, `<td class="num total">MYR 212.00</td>`)
	assert.Contains(t, markup, "Service A")
	assert.Contains(t, markup, "Tax (6%)")
}

func TestTemplateRegistry_Deterministic(t *testing.T) {
	fn, err := newTestRegistry(t).Resolve(printing.DocTypePaymentVoucher)
	require.NoError(t, err)

	doc := func() printing.Document {
		return &printing.PaymentVoucherData{
			DocumentNumber: "PV-7",
			Items:          []printing.LineItem{{Description: "Tour deposit", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(1500)}},
		}
	}
	a, err := fn(doc(), testCompany())
	require.NoError(t, err)
	b, err := fn(doc(), testCompany())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Contains(t, a, "MYR 4,500.00")
}

func TestTemplateRegistry_EscapesUserContent(t *testing.T) {
	fn, err := newTestRegistry(t).Resolve(printing.DocTypeReceipt)
	require.NoError(t, err)

	markup, err := fn(&printing.ReceiptData{
		DocumentNumber: "RCP-9",
		Description:    `<script>alert("x")</script>`,
	}, testCompany())
	require.NoError(t, err)

	assert.NotContains(t, markup, `<script>alert`)
}
