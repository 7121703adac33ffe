package calificaciones

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"NuamCalifSaas/api/constants"
)

// InstrumentResolver finds or creates the instrument a classification
// references. Ingestion rows may name instruments the catalog has never
// seen; resolution creates them on the fly so a brand-new instrument never
// fails a row.
type InstrumentResolver struct {
	repo Repository
}

func NewInstrumentResolver(repo Repository) *InstrumentResolver {
	return &InstrumentResolver{repo: repo}
}

// Resolve returns the active instrument for codigo, creating it with the
// row-supplied name/type (or defaults) when absent. A lost create race with
// a concurrent batch is resolved by re-reading.
func (r *InstrumentResolver) Resolve(ctx context.Context, codigo, nombre, tipo string) (*FinancialInstrument, error) {
	codigo = strings.TrimSpace(codigo)
	if codigo == "" {
		return nil, errors.New(constants.ErrInstrumentCodeRequired)
	}
	inst, err := r.repo.GetInstrumentByCode(ctx, codigo)
	if err == nil {
		return inst, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if tipo == "" {
		tipo = constants.DefaultInstrumentType
	}
	inst = &FinancialInstrument{Codigo: codigo, Nombre: nombre, Tipo: tipo}
	err = r.repo.CreateInstrument(ctx, inst)
	if errors.Is(err, ErrDuplicate) {
		return r.repo.GetInstrumentByCode(ctx, codigo)
	}
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// Words that carry no identity when building a code out of a display name.
var (
	connectorWords = map[string]bool{
		"de": true, "del": true, "la": true, "las": true, "los": true,
		"el": true, "y": true, "e": true, "en": true, "a": true,
		"the": true, "of": true, "and": true,
	}
	legalSuffixes = map[string]bool{
		"sa": true, "spa": true, "ltda": true, "limitada": true,
		"inc": true, "corp": true, "sac": true, "eirl": true, "ag": true,
	}
)

// GenerateCode derives a catalog code from a display name: the uppercased
// initials of its significant words (a single significant word is used
// whole), capped at 10 characters. On collision a numeric suffix 1..999 is
// tried; if the space is exhausted a short random suffix is appended.
func (r *InstrumentResolver) GenerateCode(ctx context.Context, nombre string) (string, error) {
	base := codeBase(nombre)
	if base == "" {
		return "", errors.New(constants.ErrInstrumentNameRequired)
	}

	exists, err := r.repo.InstrumentCodeExists(ctx, base)
	if err != nil {
		return "", err
	}
	if !exists {
		return base, nil
	}

	for n := 1; n <= 999; n++ {
		candidate := fmt.Sprintf("%s%d", base, n)
		exists, err := r.repo.InstrumentCodeExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}

	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:4])
	return base + suffix, nil
}

// codeBase extracts the deterministic part of a generated code.
func codeBase(nombre string) string {
	var significant []string
	for _, word := range strings.Fields(nombre) {
		normalized := strings.ToLower(strings.Trim(word, ".,-"))
		normalized = strings.ReplaceAll(normalized, ".", "")
		if normalized == "" || connectorWords[normalized] || legalSuffixes[normalized] {
			continue
		}
		significant = append(significant, word)
	}
	if len(significant) == 0 {
		return ""
	}

	var code string
	if len(significant) == 1 {
		code = significant[0]
	} else {
		var initials strings.Builder
		for _, word := range significant {
			initials.WriteRune([]rune(word)[0])
		}
		code = initials.String()
	}
	code = strings.ToUpper(strings.ReplaceAll(code, ".", ""))
	if runes := []rune(code); len(runes) > 10 {
		code = string(runes[:10])
	}
	return code
}
