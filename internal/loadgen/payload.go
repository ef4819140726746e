// Package loadgen drives concurrent render requests against a running PDF
// service and summarises the latencies it observes.
package loadgen

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	domain "github.com/mfirdausali/wif-fin-sub004/internal/domain/printing"
)

// InvoiceFactory builds randomised invoice render requests
type InvoiceFactory struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
	seq   int
}

// NewInvoiceFactory creates a factory. A zero seed picks a random one.
func NewInvoiceFactory(seed uint64) *InvoiceFactory {
	return &InvoiceFactory{faker: gofakeit.New(seed)}
}

// invoiceRequest mirrors the body accepted by POST /api/pdf/invoice
type invoiceRequest struct {
	Invoice     *domain.InvoiceData `json:"invoice"`
	CompanyInfo domain.CompanyInfo  `json:"companyInfo"`
	PrinterInfo *domain.PrinterInfo `json:"printerInfo,omitempty"`
}

// Next returns the JSON body of a fresh invoice request
func (f *InvoiceFactory) Next() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	issued := f.faker.DateRange(time.Now().AddDate(0, -3, 0), time.Now())

	items := make([]domain.LineItem, f.faker.Number(1, 12))
	for i := range items {
		items[i] = domain.LineItem{
			Description: f.faker.ProductName(),
			Quantity:    decimal.NewFromInt(int64(f.faker.Number(1, 20))),
			UnitPrice:   decimal.NewFromFloat(f.faker.Price(5, 2500)).Round(2),
		}
	}

	req := invoiceRequest{
		Invoice: &domain.InvoiceData{
			DocumentNumber: fmt.Sprintf("INV-LOAD-%06d", f.seq),
			InvoiceDate:    issued.Format(time.DateOnly),
			DueDate:        issued.AddDate(0, 0, 30).Format(time.DateOnly),
			Customer: domain.Party{
				Name:    f.faker.Company(),
				Address: f.faker.Address().Address,
				Email:   f.faker.Email(),
				Phone:   f.faker.Phone(),
			},
			Items:        items,
			TaxRate:      decimal.NewFromInt(6),
			Currency:     "MYR",
			PaymentTerms: "Net 30",
			Notes:        f.faker.Sentence(12),
		},
		CompanyInfo: domain.CompanyInfo{
			Name:    f.faker.Company(),
			Address: f.faker.Address().Address,
			Tel:     f.faker.Phone(),
			Email:   f.faker.Email(),
		},
		PrinterInfo: &domain.PrinterInfo{
			UserName:       f.faker.Name(),
			PrintTimestamp: time.Now().UTC(),
			Timezone:       "Asia/Kuala_Lumpur",
		},
	}
	return json.Marshal(req)
}
