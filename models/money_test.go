package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyString(t *testing.T) {
	cases := map[Money]string{
		0:             "$0.00",
		4550:          "$45.50",
		104550:        "$1045.50",
		-2000:         "-$20.00",
		-5:            "-$0.05",
		math.MaxInt64: "$92233720368547758.07",
		math.MinInt64: "-$92233720368547758.08",
	}
	for m, want := range cases {
		assert.Equal(t, want, m.String())
	}
}

func TestFromFloatRoundsToCents(t *testing.T) {
	assert.Equal(t, Money(4550), FromFloat(45.5))
	assert.Equal(t, Money(10), FromFloat(0.1))
	assert.Equal(t, Money(30), FromFloat(0.1+0.2))
	assert.Equal(t, Money(-1235), FromFloat(-12.35))
	assert.Equal(t, Money(-1235), FromFloat(-12.345))
	assert.Equal(t, Money(0), FromFloat(0.0004))
}

func TestNewMoneyRejectsUnrepresentable(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e300, -1e300, 1e17} {
		_, err := NewMoney(f)
		assert.ErrorIs(t, err, ErrAmountOutOfRange, "%v", f)
	}
	assert.Panics(t, func() { FromFloat(1e300) })
}

func TestFromDecimalBounds(t *testing.T) {
	m, err := FromDecimal(decimal.RequireFromString("92233720368547758.07"))
	require.NoError(t, err)
	assert.Equal(t, Money(math.MaxInt64), m)

	_, err = FromDecimal(decimal.RequireFromString("92233720368547758.08"))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = FromDecimal(decimal.RequireFromString("1e2000000000"))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	m, err = FromDecimal(decimal.RequireFromString("5e-2000000000"))
	require.NoError(t, err)
	assert.Equal(t, Money(0), m)
}

func TestMoneyJSON(t *testing.T) {
	var r EvaluationResult
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Solar REC","payout":45.5}`), &r))
	assert.Equal(t, "Solar REC", r.CertificateType)
	assert.Equal(t, Money(4550), r.Payout)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Solar REC","payout":45.50}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"payout":"lots"}`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"payout":"45.5"}`), &r))
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"payout":1e300}`), &r), ErrAmountOutOfRange)
}
