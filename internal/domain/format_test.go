package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFCFA(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "0\u00a0FCFA"},
		{950, "950\u00a0FCFA"},
		{912915, "912\u00a0915\u00a0FCFA"},
		{6125000, "6\u00a0125\u00a0000\u00a0FCFA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFCFA(tt.amount))
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "4,2\u00a0%", FormatPercent(4.15))
	assert.Equal(t, "10,2\u00a0%", FormatPercent(10.18))
	assert.Equal(t, "0,0\u00a0%", FormatPercent(0))
}
