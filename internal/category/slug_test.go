package category

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"punctuation stripped", "Men's & Boys' Wear!!", "mens-boys-wear"},
		{"simple", "Electronics", "electronics"},
		{"spaces", "Home Appliances", "home-appliances"},
		{"accents folded", "Café Équipement", "cafe-equipement"},
		{"slash removed", "T-Shirts/Tops", "t-shirtstops"},
		{"whitespace runs", "  Farm \t  Machinery  ", "farm-machinery"},
		{"repeated hyphens", "Pumps -- Compressors", "pumps-compressors"},
		{"digits kept", "3D Printers 2024", "3d-printers-2024"},
		{"leading and trailing hyphens", "--Labels--", "labels"},
		{"non latin dropped", "日本 Tea", "tea"},
		{"empty", "", ""},
		{"only symbols", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSlug(tt.input))
		})
	}
}

func TestGenerateSlug_Charset(t *testing.T) {
	valid := regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	inputs := []string{
		"Men's & Boys' Wear!!",
		"Ünïcödé --- Stuff ...",
		"a  -  b",
		"Kitchen/Dining & Bar",
	}
	for _, in := range inputs {
		got := GenerateSlug(in)
		assert.Regexp(t, valid, got, "input %q", in)
		assert.Equal(t, got, GenerateSlug(in), "deterministic for %q", in)
	}
}

func TestIsValidSlug(t *testing.T) {
	assert.True(t, IsValidSlug("home-appliances"))
	assert.False(t, IsValidSlug("Home Appliances"))
	assert.False(t, IsValidSlug("-labels"))
	assert.False(t, IsValidSlug(""))
}
