package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeCallbackURL(t *testing.T) {
	t.Parallel()

	const base = "https://app.example.com"

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "empty collapses to origin", target: "", want: base},
		{name: "relative path resolved against origin", target: "/insights/go-generics", want: base + "/insights/go-generics"},
		{name: "relative path with query", target: "/profile?tab=posts", want: base + "/profile?tab=posts"},
		{name: "same-origin absolute passes", target: "https://app.example.com/forum", want: "https://app.example.com/forum"},
		{name: "other origin collapses", target: "https://evil.example.com/phish", want: base},
		{name: "scheme mismatch collapses", target: "http://app.example.com/forum", want: base},
		{name: "protocol-relative collapses", target: "//evil.example.com/phish", want: base},
		{name: "garbage collapses", target: "ht!tp://%%", want: base},
		{name: "whitespace trimmed", target: "  /profile  ", want: base + "/profile"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SafeCallbackURL(base, tt.target))
		})
	}

	t.Run("unparseable base is returned untouched", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "not a url", SafeCallbackURL("not a url", "/x"))
	})
}
