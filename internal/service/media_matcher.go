// internal/service/media_matcher.go
package service

import "strings"

// MediaErrorMatcher classifies provider errors as media-related. The gateway
// only reports free-text messages, so classification is an ordered list of
// case-insensitive substring rules rather than structured codes. Rules are
// injected into the drainer so they can change without touching delivery
// logic.
type MediaErrorMatcher struct {
    rules []string
}

func NewMediaErrorMatcher(rules ...string) *MediaErrorMatcher {
    lowered := make([]string, 0, len(rules))
    for _, r := range rules {
        lowered = append(lowered, strings.ToLower(r))
    }
    return &MediaErrorMatcher{rules: lowered}
}

// DefaultMediaErrorMatcher covers upload failures, media rejections,
// timeouts and transport drops as observed from the gateway.
func DefaultMediaErrorMatcher() *MediaErrorMatcher {
    return NewMediaErrorMatcher("upload", "media", "timed out", "timeout", "websocket")
}

func (m *MediaErrorMatcher) Match(errMsg string) bool {
    lowered := strings.ToLower(errMsg)
    for _, r := range m.rules {
        if strings.Contains(lowered, r) {
            return true
        }
    }
    return false
}
