package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSymbols(t *testing.T) {
	got, err := NormalizeSymbols([]string{" vnm", "VCB", "vnm ", "", "hpg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"VNM", "VCB", "HPG"}, got)
}

func TestNormalizeSymbolsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input []string
	}{
		{"empty", nil},
		{"blank only", []string{" ", ""}},
		{"separator", []string{"VNM,VCB"}},
		{"query syntax", []string{"VNM~date"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeSymbols(tt.input)
			assert.Error(t, err)
		})
	}
}
