package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	printingapp "github.com/mfirdausali/wif-fin-sub004/internal/application/printing"
	domain "github.com/mfirdausali/wif-fin-sub004/internal/domain/printing"
	"github.com/mfirdausali/wif-fin-sub004/internal/domain/shared"
)

// legacyRoutePrefix is accepted in front of the document type,
// e.g. POST /api/pdf/generate-invoice
const legacyRoutePrefix = "generate-"

// Artifact response headers
const (
	HeaderRenderDuration   = "X-Render-Duration-Ms"
	HeaderEngineGeneration = "X-Page-Engine-Generation"
)

// PDFHandler is the ingress for document rendering
type PDFHandler struct {
	BaseHandler
	service *printingapp.RenderService
}

// NewPDFHandler creates a new PDFHandler
func NewPDFHandler(service *printingapp.RenderService) *PDFHandler {
	return &PDFHandler{service: service}
}

// PDFRequest is the render request body. Exactly one payload key is read,
// selected by the route's document type.
type PDFRequest struct {
	Invoice   json.RawMessage `json:"invoice"`
	Receipt   json.RawMessage `json:"receipt"`
	Voucher   json.RawMessage `json:"voucher"`
	Statement json.RawMessage `json:"statement"`

	CompanyInfo domain.CompanyInfo  `json:"companyInfo"`
	PrinterInfo *domain.PrinterInfo `json:"printerInfo"`
	PageOptions *PageOptionsRequest `json:"pageOptions"`
}

// PageOptionsRequest overrides pagination. Zero fields keep the defaults.
type PageOptionsRequest struct {
	PaperSize       string          `json:"paperSize"`
	Margins         *domain.Margins `json:"margins"`
	PrintBackground *bool           `json:"printBackground"`
	Scale           float64         `json:"scale" binding:"omitempty,gte=0.1,lte=2"`
}

func (r *PDFRequest) payload(dt domain.DocType) json.RawMessage {
	switch dt {
	case domain.DocTypeInvoice:
		return r.Invoice
	case domain.DocTypeReceipt:
		return r.Receipt
	case domain.DocTypePaymentVoucher:
		return r.Voucher
	case domain.DocTypeStatementOfPayment:
		return r.Statement
	}
	return nil
}

func (o *PageOptionsRequest) resolve() (*domain.PageOptions, error) {
	if o == nil {
		return nil, nil
	}
	opts := domain.DefaultPageOptions()
	if o.PaperSize != "" {
		size := domain.PaperSize(strings.ToUpper(o.PaperSize))
		if !size.IsValid() {
			return nil, shared.NewDomainError(shared.ErrValidation.Code,
				"Unsupported paper size: "+o.PaperSize)
		}
		opts.PaperSize = size
	}
	if o.Margins != nil {
		m, err := domain.NewMargins(o.Margins.Top, o.Margins.Right, o.Margins.Bottom, o.Margins.Left)
		if err != nil {
			return nil, err
		}
		opts.Margins = m
	}
	if o.PrintBackground != nil {
		opts.PrintBackground = *o.PrintBackground
	}
	if o.Scale > 0 {
		opts.Scale = o.Scale
	}
	return &opts, nil
}

var jsonNull = []byte("null")

// bind parses the route and body into a render request. It writes the
// error response itself and reports false on failure; nothing here touches
// the engine.
func (h *PDFHandler) bind(c *gin.Context) (printingapp.RenderRequest, bool) {
	dt, err := domain.ParseDocType(strings.TrimPrefix(c.Param("documentType"), legacyRoutePrefix))
	if err != nil {
		h.HandleError(c, err)
		return printingapp.RenderRequest{}, false
	}

	var body PDFRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.HandleBindError(c, err)
		return printingapp.RenderRequest{}, false
	}

	raw := bytes.TrimSpace(body.payload(dt))
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		h.HandleError(c, shared.NewDomainError(shared.ErrMissingPayload.Code,
			"Missing "+dt.PayloadKey()+" data"))
		return printingapp.RenderRequest{}, false
	}

	doc, err := domain.NewDocument(dt)
	if err != nil {
		h.HandleError(c, err)
		return printingapp.RenderRequest{}, false
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		h.HandleError(c, shared.NewDomainError(shared.ErrValidation.Code,
			"Invalid "+dt.PayloadKey()+" data: "+err.Error()))
		return printingapp.RenderRequest{}, false
	}

	pageOpts, err := body.PageOptions.resolve()
	if err != nil {
		h.HandleError(c, err)
		return printingapp.RenderRequest{}, false
	}

	return printingapp.RenderRequest{
		DocumentType: dt,
		Document:     doc,
		CompanyInfo:  body.CompanyInfo,
		PrinterInfo:  body.PrinterInfo,
		PageOptions:  pageOpts,
	}, true
}

// Render handles POST /api/pdf/:documentType and streams the PDF only after
// the whole render succeeded.
func (h *PDFHandler) Render(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	result, err := h.service.Render(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Header("Content-Length", strconv.Itoa(len(result.PDF)))
	c.Header(HeaderRenderDuration, strconv.FormatInt(result.Duration.Milliseconds(), 10))
	c.Header(HeaderEngineGeneration, strconv.FormatUint(result.EngineGeneration, 10))
	c.Data(http.StatusOK, "application/pdf", result.PDF)
}

// Preview handles POST /api/pdf/:documentType/preview and returns the markup
// that Render would paginate
func (h *PDFHandler) Preview(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	result, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("X-Document-Number", result.DocumentNumber)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(result.HTML))
}

// DocumentTypes handles GET /api/pdf/document-types
func (h *PDFHandler) DocumentTypes(c *gin.Context) {
	h.Success(c, h.service.DocumentTypes())
}
