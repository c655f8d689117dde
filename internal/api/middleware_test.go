package api

import (
	"net/url"
	"strings"
	"testing"
)

func TestRedactQuery(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		leaks string
	}{
		{"empty", "", "", ""},
		{"no auth", "a=1&b=2", "a=1&b=2", ""},
		{"auth only", "auth=YWRtaW46c2VjcmV0", "auth=" + redactedValue, "YWRtaW46c2VjcmV0"},
		{"auth with others", "auth=YWRtaW46c2VjcmV0&x=1", "auth=" + redactedValue + "&x=1", "YWRtaW46c2VjcmV0"},
		{"auth repeated", "auth=one&auth=two", "auth=" + redactedValue, "two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactQuery(url.URL{Path: "/api/events", RawQuery: tt.raw})
			if got != tt.want {
				t.Errorf("redactQuery(%q) = %q, want %q", tt.raw, got, tt.want)
			}
			if tt.leaks != "" && strings.Contains(got, tt.leaks) {
				t.Errorf("redactQuery(%q) = %q still contains %q", tt.raw, got, tt.leaks)
			}
		})
	}
}
