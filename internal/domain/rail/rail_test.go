package rail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Rail
		ok   bool
	}{
		{"DQR", DynamicQR, true},
		{"dqr", DynamicQR, true},
		{" dqr ", DynamicQR, true},
		{"STATIC_QR", StaticQR, true},
		{"static_qr", StaticQR, true},
		{"EDC", EDC, true},
		{"PAYMENT_LINK", PaymentLink, true},
		{"payment_link", PaymentLink, true},
		{"UPI", "", false},
		{"", "", false},
		{"QR", "", false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestAll_CoversEveryRail(t *testing.T) {
	assert.Len(t, All, 4)
	for _, r := range All {
		got, ok := Parse(string(r))
		assert.True(t, ok)
		assert.Equal(t, r, got)
	}
}
