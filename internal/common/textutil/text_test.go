package textutil

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  Gentle   cleanser ", "Gentle cleanser"},
		{"tags", "<p>Hyaluronic <b>acid</b> serum</p><ul><li>30 ml</li></ul>", "Hyaluronic acid serum30 ml"},
		{"entities", "Tom &amp; Jerry", "Tom & Jerry"},
		{"script dropped", "<div>ok<script>alert(1)</script></div>", "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))

	got := Truncate("ğğğğğğğğğğ", 6)
	assert.Equal(t, "ğğğ...", got)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 6)

	assert.Equal(t, "ab", Truncate("abcdef", 2))
}
