package factores

import (
	"fmt"

	"NuamCalifSaas/api/constants"

	"github.com/shopspring/decimal"
)

// Violation describes one failed numeric rule on a classification record.
type Violation struct {
	Field   string
	Value   decimal.Decimal
	Message string
}

// Validate checks the factor container against the numeric rules and returns
// every violation found, in deterministic order: the per-index range rule
// for each configured index ascending, then the critical-sum rule. An empty
// result means the record is valid.
//
// Range rule: every present factor must satisfy 0 <= value <= 1.
// Sum rule: the factors in [CriticalFirst, CriticalLast] (absent counted as
// zero) must not sum to more than 1.
func Validate(cfg Config, factors map[int]decimal.Decimal) []Violation {
	var violations []Violation

	one := decimal.NewFromInt(1)
	for i := cfg.FirstIndex; i <= cfg.LastIndex; i++ {
		f, ok := factors[i]
		if !ok {
			continue
		}
		if f.IsNegative() || f.GreaterThan(one) {
			violations = append(violations, Violation{
				Field:   fmt.Sprintf("factor_%d", i),
				Value:   f,
				Message: fmt.Sprintf(constants.FmtFactorOutOfRange, i, f.StringFixed(cfg.Precision)),
			})
		}
	}

	sum := decimal.Zero
	for i := cfg.CriticalFirst; i <= cfg.CriticalLast; i++ {
		if f, ok := factors[i]; ok {
			sum = sum.Add(f)
		}
	}
	if sum.GreaterThan(one) {
		violations = append(violations, Violation{
			Field:   fmt.Sprintf("factor_%d_%d", cfg.CriticalFirst, cfg.CriticalLast),
			Value:   sum,
			Message: fmt.Sprintf(constants.FmtCriticalSumExceed, cfg.CriticalFirst, cfg.CriticalLast, sum.StringFixed(cfg.Precision)),
		})
	}

	return violations
}

// FirstViolation returns the first violation message, or "" when valid.
// Row-level ingestion reports only the first failure to keep the batch
// error detail readable; callers that need the full list use Validate.
func FirstViolation(cfg Config, factors map[int]decimal.Decimal) string {
	if v := Validate(cfg, factors); len(v) > 0 {
		return v[0].Message
	}
	return ""
}
