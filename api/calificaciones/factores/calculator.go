package factores

import (
	"NuamCalifSaas/api/constants"

	"github.com/shopspring/decimal"
)

// Config carries the tunable numeric rules of the factor engine. The factor
// width changed across declaration-form revisions (5 factors in the early
// DJ layout, 30 in the current one), so the index ranges are configuration,
// not struct fields.
type Config struct {
	FirstIndex    int
	LastIndex     int
	CriticalFirst int
	CriticalLast  int
	Precision     int32
	LegacyDivisor decimal.Decimal
	MaxUploadRows int
}

// DefaultConfig returns the engine defaults (factors 8-37, critical subset
// 8-16, 8 decimal places, divisor 1,000,000).
func DefaultConfig() Config {
	return Config{
		FirstIndex:    constants.FactorFirstIndex,
		LastIndex:     constants.FactorLastIndex,
		CriticalFirst: constants.CriticalFirstIndex,
		CriticalLast:  constants.CriticalLastIndex,
		Precision:     constants.FactorPrecision,
		LegacyDivisor: decimal.NewFromInt(constants.LegacyDivisor),
		MaxUploadRows: constants.MaxUploadRows,
	}
}

// round quantizes to cfg.Precision decimal places, half-up.
func (cfg Config) round(d decimal.Decimal) decimal.Decimal {
	return d.Round(cfg.Precision)
}

// TotalAmount sums the configured amount indices; absent indices count as zero.
func TotalAmount(cfg Config, amounts map[int]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for i := cfg.FirstIndex; i <= cfg.LastIndex; i++ {
		if m, ok := amounts[i]; ok {
			total = total.Add(m)
		}
	}
	return total
}

// ComputeFactors converts the indexed sub-amounts into normalized factors:
// factor_i = amount_i / total, rounded to cfg.Precision places. A zero or
// absent total yields 0.00000000 for every index, never an error.
// The input map is not mutated.
func ComputeFactors(cfg Config, amounts map[int]decimal.Decimal) map[int]decimal.Decimal {
	total := TotalAmount(cfg, amounts)
	factors := make(map[int]decimal.Decimal, cfg.LastIndex-cfg.FirstIndex+1)
	for i := cfg.FirstIndex; i <= cfg.LastIndex; i++ {
		if total.IsZero() {
			factors[i] = decimal.Zero.Round(cfg.Precision)
			continue
		}
		m := amounts[i]
		factors[i] = cfg.round(m.Div(total))
	}
	return factors
}

// LegacyFactorFromAmount converts the legacy scalar amount to its factor:
// factor = monto / divisor.
func LegacyFactorFromAmount(cfg Config, monto decimal.Decimal) decimal.Decimal {
	return cfg.round(monto.Div(cfg.LegacyDivisor))
}

// LegacyAmountFromFactor converts the legacy factor back to its amount:
// monto = factor * divisor. Amounts are kept at 4 decimal places.
func LegacyAmountFromFactor(cfg Config, factor decimal.Decimal) decimal.Decimal {
	return factor.Mul(cfg.LegacyDivisor).Round(4)
}

// DeriveLegacy fills the missing side of the legacy (monto, factor) pair.
// When method is MONTO or FACTOR, that side is authoritative and overwrites
// the other, matching the record's historical save semantics. With no
// method, only the absent side is derived.
func DeriveLegacy(cfg Config, method string, monto, factor decimal.NullDecimal) (decimal.NullDecimal, decimal.NullDecimal) {
	switch method {
	case constants.EntryByAmount:
		if monto.Valid {
			factor = decimal.NewNullDecimal(LegacyFactorFromAmount(cfg, monto.Decimal))
		}
	case constants.EntryByFactor:
		if factor.Valid {
			monto = decimal.NewNullDecimal(LegacyAmountFromFactor(cfg, factor.Decimal))
		}
	default:
		if monto.Valid && !factor.Valid {
			factor = decimal.NewNullDecimal(LegacyFactorFromAmount(cfg, monto.Decimal))
		} else if factor.Valid && !monto.Valid {
			monto = decimal.NewNullDecimal(LegacyAmountFromFactor(cfg, factor.Decimal))
		}
	}
	return monto, factor
}
