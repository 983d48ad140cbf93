package api

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	completionIDPrefix = "chatcmpl-"
	toolCallIDPrefix   = "call_"
)

var (
	completionIDPattern = regexp.MustCompile(`^chatcmpl-[a-f0-9]{32}$`)
	toolCallIDPattern   = regexp.MustCompile(`^call_[a-f0-9-]{36}$`)
)

// NewCompletionID generates a chat completion ID with the "chatcmpl-" prefix
// followed by 32 hex characters.
func NewCompletionID() string {
	return completionIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewToolCallID generates a tool call ID of the form "call_<uuid>".
func NewToolCallID() string {
	return toolCallIDPrefix + uuid.NewString()
}

// ValidateCompletionID checks whether id was produced by NewCompletionID.
func ValidateCompletionID(id string) bool {
	return completionIDPattern.MatchString(id)
}

// ValidateToolCallID checks whether id was produced by NewToolCallID.
func ValidateToolCallID(id string) bool {
	return toolCallIDPattern.MatchString(id)
}
