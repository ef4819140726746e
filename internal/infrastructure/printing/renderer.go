package printing

import (
	"context"
	"errors"
	"time"
)

// Viewport is the CSS pixel size a page lays content out in
type Viewport struct {
	Width  int
	Height int
}

// PrintParams are the engine-level pagination parameters, in inches
type PrintParams struct {
	PaperWidth          float64
	PaperHeight         float64
	MarginTop           float64
	MarginRight         float64
	MarginBottom        float64
	MarginLeft          float64
	Scale               float64
	PrintBackground     bool
	DisplayHeaderFooter bool
	HeaderTemplate      string
	FooterTemplate      string
}

// Launcher starts a rendering engine process
type Launcher interface {
	// Launch starts the engine and returns once it accepts commands
	Launch(ctx context.Context) (Engine, error)
}

// Engine is a live connection to a rendering engine process
type Engine interface {
	// NewPage opens an isolated rendering context with the given viewport
	NewPage(ctx context.Context, viewport Viewport) (Page, error)
	// Connected reports whether the connection to the engine is still up
	Connected() bool
	// Done is closed once the engine disconnects or is closed
	Done() <-chan struct{}
	// Close shuts the engine process down
	Close(ctx context.Context) error
}

// Page is one isolated rendering context inside an Engine
type Page interface {
	// SetContent loads markup and waits until its resources are idle
	SetContent(ctx context.Context, html string) error
	// PrintToPDF paginates the loaded content
	PrintToPDF(ctx context.Context, params PrintParams) ([]byte, error)
	// Close releases the rendering context
	Close() error
}

// RenderError represents an error in the render pipeline
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for render failures
const (
	ErrCodeValidation          = "VALIDATION_FAILED"
	ErrCodeUnknownDocumentType = "UNKNOWN_DOCUMENT_TYPE"
	ErrCodeEngineUnavailable   = "ENGINE_UNAVAILABLE"
	ErrCodeSessionOpenFailed   = "SESSION_OPEN_FAILED"
	ErrCodeRenderTimeout       = "RENDER_TIMEOUT"
	ErrCodeEngineDisconnected  = "ENGINE_DISCONNECTED"
	ErrCodeRenderFailed        = "RENDER_FAILED"
	ErrCodeTemplateFailed      = "TEMPLATE_FAILED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRenderErrorCode reports whether err carries a RenderError with the given code
func IsRenderErrorCode(err error, code string) bool {
	var re *RenderError
	return errors.As(err, &re) && re.Code == code
}

// RenderErrorCode returns the code of the RenderError in err's chain, or ""
func RenderErrorCode(err error) string {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// classifyError maps a failed engine call onto the render error taxonomy.
// connected is sampled after the failure.
func classifyError(ctx context.Context, op string, timeout time.Duration, connected bool, err error) *RenderError {
	switch {
	case !connected:
		return NewRenderError(ErrCodeEngineDisconnected, op+": engine disconnected", err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return NewRenderError(ErrCodeRenderTimeout, op+" timed out after "+timeout.String(), err)
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return NewRenderError(ErrCodeRenderTimeout, op+" was cancelled", err)
	default:
		return NewRenderError(ErrCodeRenderFailed, op+" failed", err)
	}
}
