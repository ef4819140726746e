package printing

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mfirdausali/wif-fin-sub004/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceData_ComputeTotals(t *testing.T) {
	raw := `{
		"documentNumber": "INV-001",
		"items": [{"description": "Service A", "quantity": 2, "unitPrice": 100.00, "amount": 200.00}],
		"taxRate": 6,
		"currency": "MYR"
	}`
	var inv InvoiceData
	require.NoError(t, json.Unmarshal([]byte(raw), &inv))
	require.NoError(t, inv.Validate())

	inv.ComputeTotals()
	assert.Equal(t, "200.00", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "12.00", inv.TaxAmount.StringFixed(2))
	assert.Equal(t, "212.00", inv.Total.StringFixed(2))
}

func TestInvoiceData_AmountDerivedFromQuantity(t *testing.T) {
	inv := InvoiceData{
		DocumentNumber: "INV-002",
		Items: []LineItem{
			{Description: "Consulting", Quantity: decimal.NewFromFloat(1.5), UnitPrice: decimal.NewFromInt(80)},
			{Description: "Travel", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromFloat(33.335)},
		},
	}
	inv.ComputeTotals()

	assert.Equal(t, "120.00", inv.Items[0].Amount.StringFixed(2))
	assert.Equal(t, "33.34", inv.Items[1].Amount.StringFixed(2))
	assert.Equal(t, "153.34", inv.Total.StringFixed(2))
	assert.Equal(t, DefaultCurrency, inv.Currency)
}

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		ok   bool
	}{
		{"invoice ok", &InvoiceData{DocumentNumber: "INV-1"}, true},
		{"invoice blank number", &InvoiceData{DocumentNumber: "  "}, false},
		{"invoice tax too high", &InvoiceData{DocumentNumber: "INV-1", TaxRate: decimal.NewFromInt(101)}, false},
		{"invoice negative qty", &InvoiceData{DocumentNumber: "INV-1", Items: []LineItem{{Quantity: decimal.NewFromInt(-1)}}}, false},
		{"receipt ok", &ReceiptData{DocumentNumber: "RCP-1", Amount: decimal.NewFromInt(10)}, true},
		{"receipt negative", &ReceiptData{DocumentNumber: "RCP-1", Amount: decimal.NewFromInt(-10)}, false},
		{"voucher missing number", &PaymentVoucherData{}, false},
		{"statement ok", &StatementOfPaymentData{DocumentNumber: "SOP-1"}, true},
		{"statement negative fee", &StatementOfPaymentData{DocumentNumber: "SOP-1", TransferFee: decimal.NewFromInt(-1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrValidation))
		})
	}
}

func TestReceiptData_ComputeTotals(t *testing.T) {
	r := ReceiptData{DocumentNumber: "RCP-1", Amount: decimal.NewFromFloat(99.999)}
	r.ComputeTotals()
	assert.Equal(t, "100.00", r.Total.StringFixed(2))

	r.Items = []LineItem{{Amount: decimal.NewFromInt(40)}, {Amount: decimal.NewFromInt(2)}}
	r.ComputeTotals()
	assert.Equal(t, "42.00", r.Total.StringFixed(2))
}

func TestStatementOfPaymentData_ComputeTotals(t *testing.T) {
	s := StatementOfPaymentData{
		DocumentNumber: "SOP-9",
		Currency:       "jpy",
		Transactions: []Transaction{
			{Description: "Hotel", Amount: decimal.NewFromInt(10000)},
			{Description: "Transport", Amount: decimal.NewFromInt(2500)},
		},
		TransferFee:  decimal.NewFromInt(500),
		ExchangeRate: decimal.NewFromFloat(0.031),
	}
	s.ComputeTotals()

	assert.Equal(t, "JPY", s.Currency)
	assert.Equal(t, "12500.00", s.Subtotal.StringFixed(2))
	assert.Equal(t, "13000.00", s.Total.StringFixed(2))
	assert.Equal(t, "403.00", s.ConvertedTotal.StringFixed(2))
}

func TestNewDocument(t *testing.T) {
	for _, dt := range AllDocTypes() {
		doc, err := NewDocument(dt)
		require.NoError(t, err)
		assert.Equal(t, dt, doc.DocType())
	}

	_, err := NewDocument(DocType("quotation"))
	assert.True(t, errors.Is(err, shared.ErrUnknownDocument))
}

func TestPrinterInfo_HasAttribution(t *testing.T) {
	var p *PrinterInfo
	assert.False(t, p.HasAttribution())
	assert.False(t, (&PrinterInfo{UserName: "aina"}).HasAttribution())
}

func TestPrinterInfo_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		want        time.Time
		attribution bool
	}{
		{"rfc3339", `{"userName":"Aina","printTimestamp":"2026-03-01T06:30:00Z"}`, time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC), true},
		{"space separated", `{"userName":"Aina","printTimestamp":"2026-03-01 14:30:00"}`, time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC), true},
		{"date only", `{"userName":"Aina","printTimestamp":"2026-03-01"}`, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"blank", `{"userName":"Aina","printTimestamp":""}`, time.Time{}, false},
		{"garbage", `{"userName":"Aina","printTimestamp":"yesterday"}`, time.Time{}, false},
		{"number", `{"userName":"Aina","printTimestamp":1767225600}`, time.Time{}, false},
		{"null", `{"userName":"Aina","printTimestamp":null}`, time.Time{}, false},
		{"missing", `{"userName":"Aina"}`, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p PrinterInfo
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &p))
			assert.Equal(t, "Aina", p.UserName)
			assert.True(t, tt.want.Equal(p.PrintTimestamp), "got %v", p.PrintTimestamp)
			assert.Equal(t, tt.attribution, p.HasAttribution())
		})
	}
}

func TestPrinterInfo_UnmarshalJSONRejectsNonObject(t *testing.T) {
	var p PrinterInfo
	assert.Error(t, json.Unmarshal([]byte(`"Aina"`), &p))
}
