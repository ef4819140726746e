package printing

// Margins represents the page margins in millimeters
type Margins struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// NewMargins creates a new Margins value object
func NewMargins(top, right, bottom, left int) (Margins, error) {
	if top < 0 || right < 0 || bottom < 0 || left < 0 {
		return Margins{}, validationError("Margins cannot be negative")
	}
	if top > 100 || right > 100 || bottom > 100 || left > 100 {
		return Margins{}, validationError("Margins cannot exceed 100mm")
	}
	return Margins{
		Top:    top,
		Right:  right,
		Bottom: bottom,
		Left:   left,
	}, nil
}

// FooterBandHeight is the minimum bottom margin that fits the three-line footer
const FooterBandHeight = 25

// DefaultMargins returns the default page margins for A4 output. The bottom
// margin leaves room for the footer band.
func DefaultMargins() Margins {
	return Margins{
		Top:    15,
		Right:  12,
		Bottom: FooterBandHeight,
		Left:   12,
	}
}

// WithFooterBand returns a copy whose bottom margin is at least FooterBandHeight
func (m Margins) WithFooterBand() Margins {
	if m.Bottom < FooterBandHeight {
		m.Bottom = FooterBandHeight
	}
	return m
}

// IsZero returns true if all margins are zero
func (m Margins) IsZero() bool {
	return m.Top == 0 && m.Right == 0 && m.Bottom == 0 && m.Left == 0
}

// PageOptions describes how the rendered content is paginated
type PageOptions struct {
	PaperSize       PaperSize `json:"paper_size"`
	Margins         Margins   `json:"margins"`
	PrintBackground bool      `json:"print_background"`
	Scale           float64   `json:"scale"`
}

// DefaultPageOptions returns A4 pages with footer-safe margins and backgrounds preserved
func DefaultPageOptions() PageOptions {
	return PageOptions{
		PaperSize:       PaperSizeA4,
		Margins:         DefaultMargins(),
		PrintBackground: true,
		Scale:           1.0,
	}
}
