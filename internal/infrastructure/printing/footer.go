package printing

import (
	"bytes"
	"html/template"
	"time"

	"github.com/mfirdausali/wif-fin-sub004/internal/domain/printing"
)

const (
	// TimezoneTokyo is the only zone that prints with a +9 offset
	TimezoneTokyo = "Asia/Tokyo"
	// DefaultTimezone is Malaysia standard time
	DefaultTimezone = "Asia/Kuala_Lumpur"

	footerDateLayout = "02 Jan 2006"
	footerTimeLayout = "3:04 PM"
)

// footerTemplate is rendered by Chrome in an isolated document per page, so
// all styling must be inline. pageNumber and totalPages are filled in by
// the engine during pagination.
var footerTemplate = template.Must(template.New("footer").Parse(
	`<div style="width:100%;padding:0 12mm;box-sizing:border-box;font-family:Arial,Helvetica,sans-serif;font-size:7pt;color:#555;line-height:1.4;">` +
		`<div class="footer-registration" style="text-align:center;">{{.Name}} (Registration No: {{.RegistrationNo}}) | Registered Office: {{.RegisteredOffice}}</div>` +
		`{{if .Attribution}}<div class="footer-attribution" style="text-align:center;">{{.Attribution}}</div>{{end}}` +
		`<div class="footer-pages" style="text-align:right;">Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>` +
		`</div>`))

type footerView struct {
	Name             string
	RegistrationNo   string
	RegisteredOffice string
	Attribution      template.HTML
}

// FooterComposer builds the footer markup printed on every page. It holds
// no state; Compose is deterministic for identical inputs.
type FooterComposer struct{}

// NewFooterComposer creates a FooterComposer
func NewFooterComposer() *FooterComposer {
	return &FooterComposer{}
}

// Compose returns the footer markup. The registration line is always
// present even when its fields are blank. The attribution line is added
// only when printer carries both a user name and a timestamp.
func (c *FooterComposer) Compose(company printing.CompanyInfo, printer *printing.PrinterInfo) string {
	view := footerView{
		Name:             company.Name,
		RegistrationNo:   company.RegistrationNo,
		RegisteredOffice: company.RegisteredOffice,
	}
	if printer.HasAttribution() {
		// HTMLEscapeString leaves "+" alone so the offset label stays literal
		view.Attribution = template.HTML(template.HTMLEscapeString(
			Attribution(printer.UserName, printer.PrintTimestamp, printer.Timezone)))
	}

	var buf bytes.Buffer
	// The template is static and the view is plain strings; Execute cannot fail.
	_ = footerTemplate.Execute(&buf, view)
	return buf.String()
}

// Attribution formats "Printed by <name> on <date> at <time> (<offset>)".
// Date and time are shown in the offset derived from timezone.
func Attribution(userName string, ts time.Time, timezone string) string {
	label, loc := OffsetFor(timezone)
	local := ts.In(loc)
	return "Printed by " + userName +
		" on " + local.Format(footerDateLayout) +
		" at " + local.Format(footerTimeLayout) +
		" (" + label + ")"
}

// OffsetFor maps a timezone identifier to its printed offset label and a
// fixed zone. Only Tokyo differs from the Malaysia default.
func OffsetFor(timezone string) (string, *time.Location) {
	if timezone == TimezoneTokyo {
		return "UTC+9", time.FixedZone("UTC+9", 9*60*60)
	}
	return "UTC+8", time.FixedZone("UTC+8", 8*60*60)
}
