package middleware

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

const maxMessageLength = 10000

// SecurityHeaders sets baseline security response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// ValidateConversationID checks that a conversation ID is a well-formed
// UUID.
func ValidateConversationID(id string) error {
	if id == "" {
		return fmt.Errorf("conversation id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("conversation id must be a valid UUID")
	}
	return nil
}

// ValidateMessageContent bounds inbound message content.
func ValidateMessageContent(content string) error {
	if len(content) > maxMessageLength {
		return fmt.Errorf("message content exceeds %d characters", maxMessageLength)
	}
	return nil
}
