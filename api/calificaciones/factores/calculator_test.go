package factores

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NuamCalifSaas/api/constants"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeFactors_Proportional(t *testing.T) {
	cfg := DefaultConfig()
	amounts := map[int]decimal.Decimal{
		8:  dec("500000"),
		9:  dec("300000"),
		10: dec("200000"),
	}

	factors := ComputeFactors(cfg, amounts)

	assert.True(t, factors[8].Equal(dec("0.5")), "factor_8 = %s", factors[8])
	assert.True(t, factors[9].Equal(dec("0.3")), "factor_9 = %s", factors[9])
	assert.True(t, factors[10].Equal(dec("0.2")), "factor_10 = %s", factors[10])
	assert.True(t, factors[11].IsZero())
	assert.True(t, factors[37].IsZero())
}

func TestComputeFactors_SumToOne(t *testing.T) {
	cfg := DefaultConfig()
	amounts := map[int]decimal.Decimal{
		8:  dec("1"),
		9:  dec("1"),
		10: dec("1"),
	}

	factors := ComputeFactors(cfg, amounts)

	sum := decimal.Zero
	for _, f := range factors {
		sum = sum.Add(f)
	}
	// 3 thirds rounded to 8 places: tolerance is one ulp per populated field
	diff := sum.Sub(decimal.NewFromInt(1)).Abs()
	tolerance := dec("0.00000001").Mul(decimal.NewFromInt(int64(len(amounts))))
	assert.True(t, diff.LessThanOrEqual(tolerance), "sum = %s", sum)
}

func TestComputeFactors_ZeroTotal(t *testing.T) {
	cfg := DefaultConfig()

	for name, amounts := range map[string]map[int]decimal.Decimal{
		"empty":      {},
		"all zeroes": {8: decimal.Zero, 20: decimal.Zero},
	} {
		factors := ComputeFactors(cfg, amounts)
		require.Len(t, factors, 30, name)
		for i := cfg.FirstIndex; i <= cfg.LastIndex; i++ {
			assert.Equal(t, "0.00000000", factors[i].StringFixed(8), "%s factor_%d", name, i)
		}
	}
}

func TestComputeFactors_DoesNotMutateInput(t *testing.T) {
	cfg := DefaultConfig()
	amounts := map[int]decimal.Decimal{8: dec("100")}

	ComputeFactors(cfg, amounts)

	require.Len(t, amounts, 1)
	assert.True(t, amounts[8].Equal(dec("100")))
}

func TestComputeFactors_RoundingHalfUp(t *testing.T) {
	cfg := DefaultConfig()
	// 1/3 = 0.333333333... -> 0.33333333, 2/3 = 0.666666666... -> 0.66666667
	amounts := map[int]decimal.Decimal{8: dec("1"), 9: dec("2")}

	factors := ComputeFactors(cfg, amounts)

	assert.Equal(t, "0.33333333", factors[8].StringFixed(8))
	assert.Equal(t, "0.66666667", factors[9].StringFixed(8))
}

func TestLegacyConversionRoundTrip(t *testing.T) {
	cfg := DefaultConfig()

	factor := LegacyFactorFromAmount(cfg, dec("5000000"))
	assert.Equal(t, "5.00000000", factor.StringFixed(8))

	monto := LegacyAmountFromFactor(cfg, dec("3.5"))
	assert.Equal(t, "3500000.0000", monto.StringFixed(4))
}

func TestDeriveLegacy_ByAmount(t *testing.T) {
	cfg := DefaultConfig()
	monto := decimal.NewNullDecimal(dec("2500000"))

	gotMonto, gotFactor := DeriveLegacy(cfg, constants.EntryByAmount, monto, decimal.NullDecimal{})

	require.True(t, gotFactor.Valid)
	assert.Equal(t, "2.50000000", gotFactor.Decimal.StringFixed(8))
	assert.True(t, gotMonto.Decimal.Equal(dec("2500000")))
}

func TestDeriveLegacy_ByFactor(t *testing.T) {
	cfg := DefaultConfig()
	factor := decimal.NewNullDecimal(dec("0.75"))

	gotMonto, gotFactor := DeriveLegacy(cfg, constants.EntryByFactor, decimal.NullDecimal{}, factor)

	require.True(t, gotMonto.Valid)
	assert.Equal(t, "750000.0000", gotMonto.Decimal.StringFixed(4))
	assert.True(t, gotFactor.Decimal.Equal(dec("0.75")))
}

func TestDeriveLegacy_NoMethodFillsMissingSideOnly(t *testing.T) {
	cfg := DefaultConfig()
	monto := decimal.NewNullDecimal(dec("1000000"))
	factor := decimal.NewNullDecimal(dec("9.9"))

	// both present, no method: nothing is overwritten
	gotMonto, gotFactor := DeriveLegacy(cfg, "", monto, factor)
	assert.True(t, gotMonto.Decimal.Equal(dec("1000000")))
	assert.True(t, gotFactor.Decimal.Equal(dec("9.9")))

	// only factor present: amount is derived
	gotMonto, _ = DeriveLegacy(cfg, "", decimal.NullDecimal{}, factor)
	require.True(t, gotMonto.Valid)
	assert.Equal(t, "9900000.0000", gotMonto.Decimal.StringFixed(4))
}

func TestConfigNarrowRange(t *testing.T) {
	// the early declaration layout had 5 factors; the engine must honor a
	// narrower configured range without code changes
	cfg := DefaultConfig()
	cfg.FirstIndex, cfg.LastIndex = 1, 5
	cfg.CriticalFirst, cfg.CriticalLast = 1, 3

	factors := ComputeFactors(cfg, map[int]decimal.Decimal{1: dec("40"), 5: dec("60")})

	require.Len(t, factors, 5)
	assert.Equal(t, "0.40000000", factors[1].StringFixed(8))
	assert.Equal(t, "0.60000000", factors[5].StringFixed(8))
	_, beyond := factors[8]
	assert.False(t, beyond)
}
