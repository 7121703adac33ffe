package calificaciones

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCreatesUnknownInstrument(t *testing.T) {
	repo := NewMemoryRepository()
	resolver := NewInstrumentResolver(repo)

	inst, err := resolver.Resolve(context.Background(), "AAPL", "Apple Inc", "")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", inst.Codigo)
	assert.Equal(t, "Apple Inc", inst.Nombre)
	assert.Equal(t, "Otro", inst.Tipo)
	assert.NotZero(t, inst.ID)

	stored, err := repo.GetInstrumentByCode(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, inst.ID, stored.ID)
}

func TestResolveReturnsExistingInstrument(t *testing.T) {
	repo := NewMemoryRepository()
	resolver := NewInstrumentResolver(repo)
	ctx := context.Background()

	require.NoError(t, repo.CreateInstrument(ctx, &FinancialInstrument{
		Codigo: "COPEC", Nombre: "Empresas Copec", Tipo: "Accion",
	}))

	inst, err := resolver.Resolve(ctx, "COPEC", "ignored name", "ignored type")
	require.NoError(t, err)
	assert.Equal(t, "Empresas Copec", inst.Nombre)
	assert.Equal(t, "Accion", inst.Tipo)

	all, err := repo.ListInstruments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestResolveRequiresCode(t *testing.T) {
	resolver := NewInstrumentResolver(NewMemoryRepository())
	_, err := resolver.Resolve(context.Background(), "   ", "Some Name", "")
	assert.Error(t, err)
}

func TestGenerateCodeFromInitials(t *testing.T) {
	resolver := NewInstrumentResolver(NewMemoryRepository())
	ctx := context.Background()

	code, err := resolver.GenerateCode(ctx, "Banco de Credito e Inversiones")
	require.NoError(t, err)
	assert.Equal(t, "BCI", code)

	// legal suffixes and connectors carry no identity
	code, err = resolver.GenerateCode(ctx, "Empresas CMPC S.A.")
	require.NoError(t, err)
	assert.Equal(t, "EC", code)
}

func TestGenerateCodeSingleWordUsedWhole(t *testing.T) {
	resolver := NewInstrumentResolver(NewMemoryRepository())

	code, err := resolver.GenerateCode(context.Background(), "Falabella S.A.")
	require.NoError(t, err)
	assert.Equal(t, "FALABELLA", code)
}

func TestGenerateCodeCapsAtTenRunes(t *testing.T) {
	resolver := NewInstrumentResolver(NewMemoryRepository())

	code, err := resolver.GenerateCode(context.Background(), "Inmobiliaria Ltda")
	require.NoError(t, err)
	assert.Equal(t, "INMOBILIAR", code)
}

func TestGenerateCodeCollisionSuffix(t *testing.T) {
	repo := NewMemoryRepository()
	resolver := NewInstrumentResolver(repo)
	ctx := context.Background()

	require.NoError(t, repo.CreateInstrument(ctx, &FinancialInstrument{Codigo: "BCI"}))

	code, err := resolver.GenerateCode(ctx, "Banco de Credito e Inversiones")
	require.NoError(t, err)
	assert.Equal(t, "BCI1", code)

	require.NoError(t, repo.CreateInstrument(ctx, &FinancialInstrument{Codigo: "BCI1"}))

	code, err = resolver.GenerateCode(ctx, "Banco de Credito e Inversiones")
	require.NoError(t, err)
	assert.Equal(t, "BCI2", code)
}

func TestGenerateCodeRequiresSignificantName(t *testing.T) {
	resolver := NewInstrumentResolver(NewMemoryRepository())

	_, err := resolver.GenerateCode(context.Background(), "de la S.A.")
	assert.Error(t, err)
}
