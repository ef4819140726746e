package printing

import (
	"bytes"
	"html/template"
	"io/fs"
	"maps"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/mfirdausali/wif-fin-sub004/internal/domain/printing"
)

// TemplateEngine parses document templates with the shared formatting
// functions. Templates are plain html/template; they only format data they
// are handed and never perform I/O.
type TemplateEngine struct {
	funcMap template.FuncMap
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithFuncs adds or overrides template functions
func WithFuncs(funcs template.FuncMap) TemplateEngineOption {
	return func(e *TemplateEngine) {
		maps.Copy(e.funcMap, funcs)
	}
}

// NewTemplateEngine creates a new template engine with default configuration
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{}

	e.funcMap = template.FuncMap{
		// Money formatting
		"formatMoney":    formatMoney,
		"formatMoneyRaw": formatMoneyRaw,

		// Date formatting
		"formatDate": formatDate,

		// Number formatting
		"formatQty":     formatQty,
		"formatPercent": formatPercent,

		// String utilities
		"upper":   strings.ToUpper,
		"title":   titleCase,
		"trim":    strings.TrimSpace,
		"nl2br":   nl2br,
		"default": defaultString,

		// Slices
		"rowNo": func(i int) int { return i + 1 },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Parse compiles a named template with the engine's functions
func (e *TemplateEngine) Parse(name, content string) (*template.Template, error) {
	if strings.TrimSpace(content) == "" {
		return nil, NewRenderError(ErrCodeTemplateFailed, "template content is empty", nil)
	}
	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(content)
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateFailed, "failed to parse template "+name, err)
	}
	return tmpl, nil
}

// ParseFS compiles the named files from fsys into one template set. The
// first pattern is typically the shared partials.
func (e *TemplateEngine) ParseFS(fsys fs.FS, patterns ...string) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(e.funcMap).ParseFS(fsys, patterns...)
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateFailed, "failed to parse templates "+strings.Join(patterns, ","), err)
	}
	return tmpl, nil
}

// RenderString parses and executes a template string in one step
func (e *TemplateEngine) RenderString(name, content string, data any) (string, error) {
	tmpl, err := e.Parse(name, content)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "failed to execute template "+name, err)
	}
	return buf.String(), nil
}

// GetFuncMap returns a copy of the template functions
func (e *TemplateEngine) GetFuncMap() template.FuncMap {
	return maps.Clone(e.funcMap)
}

// formatMoney formats an amount with its currency code
// Example: (1234.5, "MYR") -> "MYR 1,234.50"
func formatMoney(v any, currency string) string {
	if currency == "" {
		return formatMoneyRaw(v)
	}
	return currency + " " + formatMoneyRaw(v)
}

// formatMoneyRaw formats a decimal value with thousand separators
// Example: 1234.56 -> "1,234.56"
func formatMoneyRaw(v any) string {
	d := toDecimal(v)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	intPart, decPart, _ := strings.Cut(d.StringFixed(2), ".")

	var result strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}

	return sign + result.String() + "." + decPart
}

var qtyPrinter = message.NewPrinter(language.English)

// formatQty prints a quantity with grouping and up to three decimals
// Example: 1500.25 -> "1,500.25"
func formatQty(v any) string {
	f, _ := toDecimal(v).Round(3).Float64()
	return qtyPrinter.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
}

// formatPercent prints a rate as a percentage
// Example: 6 -> "6%"
func formatPercent(v any) string {
	return toDecimal(v).String() + "%"
}

// formatDate renders a date as "02 Jan 2006", falling back to the raw input
func formatDate(v any) string {
	t := toTime(v)
	if t.IsZero() {
		if s, ok := v.(string); ok {
			return s
		}
		return ""
	}
	return t.Format("02 Jan 2006")
}

func titleCase(s string) string {
	caser := cases.Title(language.English)
	return caser.String(s)
}

// nl2br escapes s and turns newlines into line breaks
func nl2br(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

func defaultString(def, val string) string {
	if strings.TrimSpace(val) == "" {
		return def
	}
	return val
}

// toDecimal converts various numeric types to decimal.Decimal
func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case decimal.Decimal:
		return val
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero
		}
		return *val
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case float64:
		return decimal.NewFromFloat(val)
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// toTime converts various types to time.Time
func toTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case *time.Time:
		if val == nil {
			return time.Time{}
		}
		return *val
	case string:
		return printing.ParseTimestamp(val)
	default:
		return time.Time{}
	}
}
