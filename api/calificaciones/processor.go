package calificaciones

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"NuamCalifSaas/api/calificaciones/factores"
	"NuamCalifSaas/api/constants"
)

// RowProcessor runs one uploaded row through the ingestion pipeline:
// resolve -> compute -> validate -> duplicate check -> persist. Every
// failure is caught and classified; nothing a single row does can abort
// the batch around it.
type RowProcessor struct {
	cfg      factores.Config
	repo     Repository
	resolver *InstrumentResolver
}

func NewRowProcessor(cfg factores.Config, repo Repository) *RowProcessor {
	return &RowProcessor{
		cfg:      cfg,
		repo:     repo,
		resolver: NewInstrumentResolver(repo),
	}
}

// Process returns the row's outcome; State is always PERSISTED or FAILED.
func (p *RowProcessor) Process(ctx context.Context, ordinal int, row Row, actor string) RowOutcome {
	fail := func(class RowClass, msg string) RowOutcome {
		return RowOutcome{Ordinal: ordinal, State: RowFailed, Class: class, Message: msg}
	}

	// PENDING: structural fields
	codigo := strings.TrimSpace(row[constants.ColInstrumentCode])
	if codigo == "" {
		return fail(ClassMissingField, fmt.Sprintf(constants.FmtMissingField, constants.ColInstrumentCode))
	}
	fechaRaw := strings.TrimSpace(row[constants.ColReportDate])
	if fechaRaw == "" {
		return fail(ClassMissingField, fmt.Sprintf(constants.FmtMissingField, constants.ColReportDate))
	}
	fechaInforme, err := parseDateValue(fechaRaw)
	if err != nil {
		return fail(ClassInvalidValue, fmt.Sprintf(constants.FmtInvalidValue, constants.ColReportDate, fechaRaw))
	}

	// PENDING -> RESOLVED
	inst, err := p.resolver.Resolve(ctx, codigo, row[constants.ColInstrumentName], row[constants.ColInstrumentType])
	if err != nil {
		return fail(ClassIntegrity, err.Error())
	}

	rec := &TaxClassificationRecord{
		InstrumentID:  inst.ID,
		Codigo:        inst.Codigo,
		MetodoIngreso: strings.ToUpper(strings.TrimSpace(row[constants.ColEntryMethod])),
		NumeroDJ:      strings.TrimSpace(row[constants.ColDeclaration]),
		FechaInforme:  fechaInforme,
		Observaciones: row[constants.ColObservations],
		CreadoPor:     actor,
	}
	if rec.MetodoIngreso == "" {
		rec.MetodoIngreso = constants.EntryByAmount
	}

	// RESOLVED -> COMPUTED
	var rowErr *RowError
	rec.Monto, rowErr = optionalDecimal(row, constants.ColAmount)
	if rowErr != nil {
		return fail(rowErr.Class, rowErr.Message)
	}
	rec.Factor, rowErr = optionalDecimal(row, constants.ColFactor)
	if rowErr != nil {
		return fail(rowErr.Class, rowErr.Message)
	}
	montos, factoresIn, rowErr := indexedColumns(p.cfg, row)
	if rowErr != nil {
		return fail(rowErr.Class, rowErr.Message)
	}

	if len(montos) > 0 {
		rec.Montos = montos
		rec.Factores = factores.ComputeFactors(p.cfg, montos)
	} else if len(factoresIn) > 0 {
		rec.Factores = factoresIn
	}
	rec.Monto, rec.Factor = factores.DeriveLegacy(p.cfg, rec.MetodoIngreso, rec.Monto, rec.Factor)
	if len(montos) > 0 {
		// downstream listings read the legacy amount as the aggregate
		rec.Monto = decimal.NewNullDecimal(factores.TotalAmount(p.cfg, montos))
	}

	// COMPUTED -> VALIDATED
	if msg := factores.FirstViolation(p.cfg, rec.Factores); msg != "" {
		return fail(ClassValidation, msg)
	}

	// VALIDATED: duplicate fast path, then persist
	exists, err := p.repo.ActiveRecordExists(ctx, inst.ID, rec.FechaInforme, rec.NumeroDJ)
	if err != nil {
		return fail(ClassIntegrity, err.Error())
	}
	if exists {
		return fail(ClassDuplicate, constants.ErrDuplicateRecord)
	}

	// -> PERSISTED
	if err := p.repo.CreateRecord(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// constraint beat us under a concurrent batch
			return fail(ClassDuplicate, constants.ErrDuplicateRecord)
		}
		return fail(ClassIntegrity, err.Error())
	}

	return RowOutcome{Ordinal: ordinal, State: RowPersisted, RecordID: rec.ID}
}

// indexedColumns extracts monto_<i> and factor_<i> for every configured
// index. Unparseable numeric text classifies the row as invalid.
func indexedColumns(cfg factores.Config, row Row) (map[int]decimal.Decimal, map[int]decimal.Decimal, *RowError) {
	montos := make(map[int]decimal.Decimal)
	factoresIn := make(map[int]decimal.Decimal)
	for i := cfg.FirstIndex; i <= cfg.LastIndex; i++ {
		montoCol := constants.AmountColPrefix + strconv.Itoa(i)
		if raw, ok := row[montoCol]; ok && strings.TrimSpace(raw) != "" {
			d, err := parseDecimalValue(raw)
			if err != nil {
				return nil, nil, &RowError{ClassInvalidValue, fmt.Sprintf(constants.FmtInvalidValue, montoCol, raw)}
			}
			montos[i] = d
		}
		factorCol := constants.FactorColPrefix + strconv.Itoa(i)
		if raw, ok := row[factorCol]; ok && strings.TrimSpace(raw) != "" {
			d, err := parseDecimalValue(raw)
			if err != nil {
				return nil, nil, &RowError{ClassInvalidValue, fmt.Sprintf(constants.FmtInvalidValue, factorCol, raw)}
			}
			factoresIn[i] = d.Round(cfg.Precision)
		}
	}
	return montos, factoresIn, nil
}

func optionalDecimal(row Row, col string) (decimal.NullDecimal, *RowError) {
	raw, ok := row[col]
	if !ok || strings.TrimSpace(raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := parseDecimalValue(raw)
	if err != nil {
		return decimal.NullDecimal{}, &RowError{ClassInvalidValue, fmt.Sprintf(constants.FmtInvalidValue, col, raw)}
	}
	return decimal.NewNullDecimal(d), nil
}

// parseDecimalValue accepts both plain and Spanish-formatted numbers
// ("1234567.89", "1.234.567,89", "12,5").
func parseDecimalValue(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

var dateLayouts = []string{
	constants.DateFormat,
	constants.DateFormatAlt,
	constants.DateFormatISO,
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"2 Jan 2006",
}

func parseDateValue(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
