package factores

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CleanRecord(t *testing.T) {
	cfg := DefaultConfig()
	factors := map[int]decimal.Decimal{
		8: dec("0.5"),
		9: dec("0.3"),
	}

	assert.Empty(t, Validate(cfg, factors))
	assert.Equal(t, "", FirstViolation(cfg, factors))
}

func TestValidate_RangeViolationNamesField(t *testing.T) {
	cfg := DefaultConfig()
	factors := map[int]decimal.Decimal{
		8:  dec("0.2"),
		37: dec("5.0"),
	}

	violations := Validate(cfg, factors)

	require.Len(t, violations, 1)
	assert.Equal(t, "factor_37", violations[0].Field)
	assert.Contains(t, violations[0].Message, "factor_37")
	assert.Contains(t, violations[0].Message, "5.00000000")
}

func TestValidate_NegativeFactorRejected(t *testing.T) {
	cfg := DefaultConfig()
	factors := map[int]decimal.Decimal{12: dec("-0.00000001")}

	violations := Validate(cfg, factors)

	require.Len(t, violations, 1)
	assert.Equal(t, "factor_12", violations[0].Field)
}

func TestValidate_BoundaryValuesAccepted(t *testing.T) {
	cfg := DefaultConfig()
	factors := map[int]decimal.Decimal{
		20: decimal.Zero,
		21: decimal.NewFromInt(1),
	}

	assert.Empty(t, Validate(cfg, factors))
}

func TestValidate_SumViolationNamesSum(t *testing.T) {
	cfg := DefaultConfig()
	// every field in range, critical sum 9 * 0.2 = 1.8
	factors := make(map[int]decimal.Decimal)
	for i := cfg.CriticalFirst; i <= cfg.CriticalLast; i++ {
		factors[i] = dec("0.2")
	}

	violations := Validate(cfg, factors)

	require.Len(t, violations, 1)
	assert.Equal(t, "factor_8_16", violations[0].Field)
	assert.Contains(t, violations[0].Message, "1.80000000")
	assert.True(t, violations[0].Value.Equal(dec("1.8")))
}

func TestValidate_SumIgnoresNonCriticalIndices(t *testing.T) {
	cfg := DefaultConfig()
	// indices above the critical range may sum past 1 freely
	factors := map[int]decimal.Decimal{
		17: dec("0.9"),
		18: dec("0.9"),
		30: dec("0.9"),
	}

	assert.Empty(t, Validate(cfg, factors))
}

func TestValidate_RangeCheckedBeforeSum(t *testing.T) {
	cfg := DefaultConfig()
	factors := map[int]decimal.Decimal{
		8: dec("1.5"),
		9: dec("0.9"),
	}

	violations := Validate(cfg, factors)

	require.Len(t, violations, 2)
	assert.Equal(t, "factor_8", violations[0].Field)
	assert.Equal(t, "factor_8_16", violations[1].Field)
	assert.Equal(t, violations[0].Message, FirstViolation(cfg, factors))
}

func TestValidate_ExactSumOfOneAccepted(t *testing.T) {
	cfg := DefaultConfig()
	factors := map[int]decimal.Decimal{
		8: dec("0.5"),
		9: dec("0.5"),
	}

	assert.Empty(t, Validate(cfg, factors))
}
