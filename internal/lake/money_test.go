package lake

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney_RoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.01", "12.5", "99999.99", "1234567890.1234"} {
		t.Run(s, func(t *testing.T) {
			d := decimal.RequireFromString(s)
			back := FromMoney(ToMoney(d))
			assert.True(t, d.Equal(back), "%s != %s", d, back)
		})
	}
}

func TestToMoney_RoundsToScale(t *testing.T) {
	back := FromMoney(ToMoney(decimal.RequireFromString("1.23456")))
	assert.Equal(t, "1.2346", back.String())

	assert.Equal(t, "1500000", ToMoney(decimal.RequireFromString("150")).BigInt().String())
}
