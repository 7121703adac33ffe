package auditoria

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_InsertsActorRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO logs_auditoria").
		WithArgs("analista1", AccionCreate, "calificaciones", int64(42), "10.0.0.7", "Calificación creada: CMPC").
		WillReturnResult(sqlmock.NewResult(1, 1))

	NewStore(db).Record(context.Background(), "analista1", AccionCreate, "calificaciones", 42, "10.0.0.7", "Calificación creada: CMPC")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_EmptyActorBecomesSystem(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO logs_auditoria").
		WithArgs("SYSTEM", AccionDelete, "cargas_masivas", int64(0), "", "retention purge").
		WillReturnResult(sqlmock.NewResult(1, 1))

	NewStore(db).Record(context.Background(), "", AccionDelete, "cargas_masivas", 0, "", "retention purge")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_SwallowsInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO logs_auditoria").
		WillReturnError(assert.AnError)

	// must not panic or propagate: audit failures never break the operation
	NewStore(db).Record(context.Background(), "analista1", AccionUpdate, "calificaciones", 7, "", "edit")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_ReturnsNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "usuario", "accion", "tabla_afectada", "registro_id", "ip_address", "detalles", "fecha_hora"}).
		AddRow(2, "analista1", AccionUpdate, "calificaciones", 42, "10.0.0.7", "edit", now).
		AddRow(1, "SYSTEM", AccionCreate, "calificaciones", 42, "", "create", now.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, usuario, accion").
		WithArgs("calificaciones", 50).
		WillReturnRows(rows)

	entries, err := NewStore(db).History(context.Background(), "calificaciones", 50)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "analista1", entries[0].Usuario)
	assert.Equal(t, int64(42), entries[0].RegistroID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
