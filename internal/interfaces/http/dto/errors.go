package dto

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mfirdausali/wif-fin-sub004/internal/domain/shared"
	infra "github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/printing"
)

// Transport-level error codes. Domain and render codes are reused as-is.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInvalidJSON  = "INVALID_JSON"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	ErrCodeBodyTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
	ErrCodeBodyTooLarge: http.StatusRequestEntityTooLarge,

	// Rejected before any engine resource is touched -> 400
	shared.ErrInvalidInput.Code:      http.StatusBadRequest,
	shared.ErrValidation.Code:        http.StatusBadRequest,
	shared.ErrUnknownDocument.Code:   http.StatusBadRequest,
	shared.ErrMissingPayload.Code:    http.StatusBadRequest,
	infra.ErrCodeValidation:          http.StatusBadRequest,
	infra.ErrCodeUnknownDocumentType: http.StatusBadRequest,

	// Engine state -> 503, the caller may retry
	shared.ErrShuttingDown.Code:     http.StatusServiceUnavailable,
	infra.ErrCodeEngineUnavailable:  http.StatusServiceUnavailable,
	infra.ErrCodeEngineDisconnected: http.StatusServiceUnavailable,

	infra.ErrCodeRenderTimeout:     http.StatusGatewayTimeout,
	infra.ErrCodeSessionOpenFailed: http.StatusInternalServerError,
	infra.ErrCodeRenderFailed:      http.StatusInternalServerError,
	infra.ErrCodeTemplateFailed:    http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

const maxMessageLength = 500

var (
	goroutineHeader = regexp.MustCompile(`(?m)^goroutine \d+ \[[^\]]*\]:`)
	filePath        = regexp.MustCompile(`(?:[A-Za-z]:\\|/)(?:[^\s:/\\"']+[/\\])+[^\s:/\\"']*(?::\d+)?`)
)

// SanitizeMessage strips stack frames and filesystem paths from a diagnostic
// message before it is sent to a client
func SanitizeMessage(msg string) string {
	if loc := goroutineHeader.FindStringIndex(msg); loc != nil {
		msg = msg[:loc[0]]
	}
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	msg = filePath.ReplaceAllString(msg, "[path]")
	msg = strings.TrimSpace(msg)
	if len(msg) > maxMessageLength {
		cut := maxMessageLength
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	return msg
}
