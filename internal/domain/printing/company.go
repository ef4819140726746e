package printing

import (
	"encoding/json"
	"strings"
	"time"
)

// CompanyInfo identifies the issuing company. Every field may be blank; the
// footer still reserves its line.
type CompanyInfo struct {
	Name             string `json:"name" binding:"max=200"`
	RegistrationNo   string `json:"registrationNo" binding:"max=100"`
	RegisteredOffice string `json:"registeredOffice" binding:"max=500"`
	Address          string `json:"address" binding:"max=500"`
	Tel              string `json:"tel" binding:"max=50"`
	Email            string `json:"email" binding:"omitempty,email"`
}

// PrinterInfo attributes the printout to an operator
type PrinterInfo struct {
	UserName       string    `json:"userName"`
	PrintTimestamp time.Time `json:"printTimestamp"`
	Timezone       string    `json:"timezone"`
}

// HasAttribution reports whether both operator name and timestamp are present
func (p *PrinterInfo) HasAttribution() bool {
	return p != nil && p.UserName != "" && !p.PrintTimestamp.IsZero()
}

// timestampLayouts are tried in order when decoding a print timestamp
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses s with the accepted timestamp layouts. Blank or
// unrecognised input yields the zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// UnmarshalJSON decodes printer info leniently. A timestamp that is blank,
// malformed or not a string leaves PrintTimestamp zero, which only drops
// the attribution line.
func (p *PrinterInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserName       string          `json:"userName"`
		PrintTimestamp json.RawMessage `json:"printTimestamp"`
		Timezone       string          `json:"timezone"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PrinterInfo{UserName: raw.UserName, Timezone: raw.Timezone}
	var ts string
	if len(raw.PrintTimestamp) > 0 && json.Unmarshal(raw.PrintTimestamp, &ts) == nil {
		p.PrintTimestamp = ParseTimestamp(ts)
	}
	return nil
}
