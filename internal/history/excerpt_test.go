package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "no toast", 20, "no toast"},
		{"exact", "abcde", 5, "abcde"},
		{"truncated", "expected text to be visible", 10, "expected..."},
		{"runes", "没有内容可复制!", 6, "没有内..."},
		{"default limit", string(make([]byte, 60)), 0, string(make([]byte, 47)) + "..."},
		{"tiny limit", "abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Excerpt(tt.in, tt.max))
		})
	}
}
