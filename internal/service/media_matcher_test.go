package service_test

import (
	"testing"

	"github.com/okwach/wablast-backend/internal/service"
)

func TestDefaultMediaErrorMatcher(t *testing.T) {
	m := service.DefaultMediaErrorMatcher()

	mediaErrors := []string{
		"media upload failed",
		"Upload rejected by server",
		"request timed out",
		"context deadline exceeded: timeout",
		"websocket connection closed",
	}
	for _, msg := range mediaErrors {
		if !m.Match(msg) {
			t.Errorf("expected %q to classify as media-related", msg)
		}
	}

	otherErrors := []string{
		"recipient has blocked you",
		"invalid phone number",
		"rate limited",
	}
	for _, msg := range otherErrors {
		if m.Match(msg) {
			t.Errorf("expected %q NOT to classify as media-related", msg)
		}
	}
}

func TestCustomMatcherRules(t *testing.T) {
	m := service.NewMediaErrorMatcher("quota")
	if !m.Match("media QUOTA exceeded") {
		t.Error("expected case-insensitive match on custom rule")
	}
	if m.Match("upload failed") {
		t.Error("custom matcher should not inherit default rules")
	}
}
