package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateConversationID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"uuid", "0f8fad5b-d9cb-469f-a165-70867728950e", false},
		{"default", "default", false},
		{"leading dash", "-rf", false},
		{"unicode", "会話-1", false},
		{"empty", "", true},
		{"newline", "abc\ndef", true},
		{"nul", "abc\x00", true},
		{"too long", strings.Repeat("a", MaxConversationIDLength+1), true},
		{"invalid utf8", "\xff\xfe", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateConversationID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateConversationID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConversationID) {
				t.Errorf("error %v does not wrap ErrInvalidConversationID", err)
			}
		})
	}
}
