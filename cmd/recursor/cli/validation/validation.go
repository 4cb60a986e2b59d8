// Package validation checks identifiers that arrive from hook payloads or
// the command line before they reach the state file.
package validation

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// MaxConversationIDLength bounds ids so a malformed payload cannot bloat the
// state file.
const MaxConversationIDLength = 256

var ErrInvalidConversationID = errors.New("invalid conversation id")

// ValidateConversationID rejects empty ids, ids longer than
// MaxConversationIDLength, invalid UTF-8 and control characters.
func ValidateConversationID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidConversationID)
	}
	if len(id) > MaxConversationIDLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidConversationID, MaxConversationIDLength)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidConversationID)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: contains control character %U", ErrInvalidConversationID, r)
		}
	}
	return nil
}
