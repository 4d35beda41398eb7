package http

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"registro/internal/core"
)

// checkText rejects control characters other than tab, CR and LF. Text is
// otherwise passed through unchanged.
func checkText(field, s string) error {
	bad := strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r'
	})
	if bad >= 0 {
		return core.NewValidationError(field, "must not contain control characters")
	}
	return nil
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	return "req_" + uuid.NewString()
}

// parseID parses a positive integer identifier.
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
