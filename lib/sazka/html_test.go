package sazka

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello world", "hello world"},
		{"surrounding whitespace", "  hello world  ", "hello world"},
		{"newlines", "hello\nworld\n", "hello world"},
		{"runs", "a \t\n  b\r\n\nc", "a b c"},
		{"empty", " \n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeText(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeText(got), "normalizing twice must not change the text")
		})
	}
}

func TestSelectText(t *testing.T) {
	doc, err := htmlquery.Parse(strings.NewReader(`<div class="lp-cta-visual__text other"><p>Line
		one</p><p> two </p></div>`))
	require.NoError(t, err)

	assert.Equal(t, "Line one two", SelectText(doc, xpathText))
	assert.Equal(t, "", SelectText(doc, xpathSubtitle))
}
