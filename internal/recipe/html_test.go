package recipe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHTML(t *testing.T) {
	doc, err := LoadHTML(`<html><body><h1>Bonjour</h1></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", doc.Find("h1").Text())
}

func TestLoadHTMLRejectsEmpty(t *testing.T) {
	_, err := LoadHTML("")
	assert.Error(t, err)
}

func TestLoadHTMLRejectsOversized(t *testing.T) {
	_, err := LoadHTML(strings.Repeat("a", MaxHTMLSize+1))
	assert.Error(t, err)
}

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Tarte  aux\n\tpommes  ", "Tarte aux pommes"},
		{"une phrase", "une phrase"},
		{"   ", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeWhitespace(tt.input))
	}
}

func TestDetectCharsetDefaultsToUTF8(t *testing.T) {
	assert.Equal(t, "utf-8", DetectCharset(nil))
}
