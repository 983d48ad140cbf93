package api

import (
	"testing"
)

func TestNewCompletionID(t *testing.T) {
	id := NewCompletionID()
	if !ValidateCompletionID(id) {
		t.Errorf("NewCompletionID() = %q, want valid completion ID", id)
	}
}

func TestNewToolCallID(t *testing.T) {
	id := NewToolCallID()
	if !ValidateToolCallID(id) {
		t.Errorf("NewToolCallID() = %q, want valid tool call ID", id)
	}
}

func TestValidateToolCallID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid", "call_0f8fad5b-d9cb-469f-a165-70867728950e", true},
		{"wrong prefix", "tool_0f8fad5b-d9cb-469f-a165-70867728950e", false},
		{"too short", "call_abc", false},
		{"uppercase", "call_0F8FAD5B-D9CB-469F-A165-70867728950E", false},
		{"empty", "", false},
		{"prefix only", "call_", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateToolCallID(tt.id); got != tt.want {
				t.Errorf("ValidateToolCallID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewToolCallID()
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}
