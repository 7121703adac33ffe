package calificaciones

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"NuamCalifSaas/api/constants"
)

// PostgresRepository implements Repository on a pgx pool.
//
// The schema keeps the indexed factor/amount containers as JSONB so the
// configured index range can widen without migrations. The natural key is
// enforced by a partial unique index on active rows:
//
//	CREATE UNIQUE INDEX uniq_calif_natural_key
//	  ON calificaciones (instrumento_id, fecha_informe, numero_dj)
//	  WHERE activo;
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// classifyPgError maps driver errors onto the repository sentinels so the
// ingestion pipeline can tell a duplicate from a generic integrity failure.
func classifyPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicate
		case "23503", "23514":
			return fmt.Errorf("%s: %w", constants.ErrIntegrityRejection, err)
		}
	}
	return err
}

func (r *PostgresRepository) GetInstrument(ctx context.Context, id int64) (*FinancialInstrument, error) {
	var inst FinancialInstrument
	err := r.pool.QueryRow(ctx, `
		SELECT id, codigo_instrumento, nombre_instrumento, tipo_instrumento, activo, fecha_creacion
		FROM instrumentos_financieros
		WHERE id = $1
	`, id).Scan(&inst.ID, &inst.Codigo, &inst.Nombre, &inst.Tipo, &inst.Activo, &inst.FechaCreacion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *PostgresRepository) GetInstrumentByCode(ctx context.Context, codigo string) (*FinancialInstrument, error) {
	var inst FinancialInstrument
	err := r.pool.QueryRow(ctx, `
		SELECT id, codigo_instrumento, nombre_instrumento, tipo_instrumento, activo, fecha_creacion
		FROM instrumentos_financieros
		WHERE codigo_instrumento = $1 AND activo = TRUE
	`, codigo).Scan(&inst.ID, &inst.Codigo, &inst.Nombre, &inst.Tipo, &inst.Activo, &inst.FechaCreacion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *PostgresRepository) CreateInstrument(ctx context.Context, inst *FinancialInstrument) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO instrumentos_financieros (codigo_instrumento, nombre_instrumento, tipo_instrumento, activo)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, fecha_creacion
	`, inst.Codigo, inst.Nombre, inst.Tipo).Scan(&inst.ID, &inst.FechaCreacion)
	if err != nil {
		return classifyPgError(err)
	}
	inst.Activo = true
	return nil
}

func (r *PostgresRepository) UpdateInstrument(ctx context.Context, inst *FinancialInstrument) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE instrumentos_financieros
		SET nombre_instrumento = $2, tipo_instrumento = $3, activo = $4
		WHERE id = $1
	`, inst.ID, inst.Nombre, inst.Tipo, inst.Activo)
	if err != nil {
		return classifyPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) InstrumentCodeExists(ctx context.Context, codigo string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM instrumentos_financieros WHERE codigo_instrumento = $1)
	`, codigo).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) ListInstruments(ctx context.Context, search string) ([]*FinancialInstrument, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, codigo_instrumento, nombre_instrumento, tipo_instrumento, activo, fecha_creacion
		FROM instrumentos_financieros
		WHERE activo = TRUE
		  AND ($1 = '' OR codigo_instrumento ILIKE '%' || $1 || '%' OR nombre_instrumento ILIKE '%' || $1 || '%')
		ORDER BY codigo_instrumento
	`, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*FinancialInstrument
	for rows.Next() {
		var inst FinancialInstrument
		if err := rows.Scan(&inst.ID, &inst.Codigo, &inst.Nombre, &inst.Tipo, &inst.Activo, &inst.FechaCreacion); err != nil {
			return nil, err
		}
		out = append(out, &inst)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateRecord(ctx context.Context, rec *TaxClassificationRecord) error {
	montos, err := containerJSON(rec.Montos)
	if err != nil {
		return err
	}
	factores, err := containerJSON(rec.Factores)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO calificaciones (
			instrumento_id, monto, factor, metodo_ingreso, numero_dj, fecha_informe,
			secuencia, mercado, ano_ejercicio, tipo_sociedad, valor_historico,
			montos, factores, observaciones, activo, creado_por
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,TRUE,$15)
		RETURNING id, fecha_creacion, fecha_modificacion
	`,
		rec.InstrumentID, nullDec(rec.Monto), nullDec(rec.Factor), rec.MetodoIngreso,
		rec.NumeroDJ, rec.FechaInforme,
		rec.Secuencia, rec.Mercado, rec.AnoEjercicio, rec.TipoSociedad, nullDec(rec.ValorHistorico),
		montos, factores, rec.Observaciones, rec.CreadoPor,
	).Scan(&rec.ID, &rec.FechaCreacion, &rec.FechaModificacion)
	if err != nil {
		return classifyPgError(err)
	}
	rec.Activo = true
	return nil
}

func (r *PostgresRepository) GetRecord(ctx context.Context, id int64) (*TaxClassificationRecord, error) {
	var (
		rec              TaxClassificationRecord
		montos, factores []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT c.id, c.instrumento_id, i.codigo_instrumento, c.monto, c.factor, c.metodo_ingreso,
		       c.numero_dj, c.fecha_informe, c.secuencia, c.mercado, c.ano_ejercicio,
		       c.tipo_sociedad, c.valor_historico, c.montos, c.factores, c.observaciones,
		       c.activo, c.creado_por, c.fecha_creacion, c.fecha_modificacion
		FROM calificaciones c
		JOIN instrumentos_financieros i ON i.id = c.instrumento_id
		WHERE c.id = $1
	`, id).Scan(
		&rec.ID, &rec.InstrumentID, &rec.Codigo, &rec.Monto, &rec.Factor, &rec.MetodoIngreso,
		&rec.NumeroDJ, &rec.FechaInforme, &rec.Secuencia, &rec.Mercado, &rec.AnoEjercicio,
		&rec.TipoSociedad, &rec.ValorHistorico, &montos, &factores, &rec.Observaciones,
		&rec.Activo, &rec.CreadoPor, &rec.FechaCreacion, &rec.FechaModificacion,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rec.Montos, err = containerFromJSON(montos); err != nil {
		return nil, err
	}
	if rec.Factores, err = containerFromJSON(factores); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresRepository) UpdateRecord(ctx context.Context, rec *TaxClassificationRecord) error {
	montos, err := containerJSON(rec.Montos)
	if err != nil {
		return err
	}
	factores, err := containerJSON(rec.Factores)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE calificaciones SET
			monto = $2, factor = $3, metodo_ingreso = $4, numero_dj = $5, fecha_informe = $6,
			secuencia = $7, mercado = $8, ano_ejercicio = $9, tipo_sociedad = $10,
			valor_historico = $11, montos = $12, factores = $13, observaciones = $14,
			activo = $15, fecha_modificacion = now()
		WHERE id = $1
	`,
		rec.ID, nullDec(rec.Monto), nullDec(rec.Factor), rec.MetodoIngreso, rec.NumeroDJ,
		rec.FechaInforme, rec.Secuencia, rec.Mercado, rec.AnoEjercicio, rec.TipoSociedad,
		nullDec(rec.ValorHistorico), montos, factores, rec.Observaciones, rec.Activo,
	)
	if err != nil {
		return classifyPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeactivateRecord(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE calificaciones SET activo = FALSE, fecha_modificacion = now() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListRecords(ctx context.Context, filter RecordFilter) ([]*TaxClassificationRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.instrumento_id, i.codigo_instrumento, c.monto, c.factor, c.metodo_ingreso,
		       c.numero_dj, c.fecha_informe, c.secuencia, c.mercado, c.ano_ejercicio,
		       c.tipo_sociedad, c.valor_historico, c.montos, c.factores, c.observaciones,
		       c.activo, c.creado_por, c.fecha_creacion, c.fecha_modificacion
		FROM calificaciones c
		JOIN instrumentos_financieros i ON i.id = c.instrumento_id
		WHERE (c.activo = TRUE OR $1)
		  AND ($2 = '' OR i.codigo_instrumento ILIKE '%' || $2 || '%')
		  AND ($3 = '' OR c.numero_dj = $3)
		  AND ($4::date IS NULL OR c.fecha_informe >= $4)
		  AND ($5::date IS NULL OR c.fecha_informe <= $5)
		ORDER BY c.fecha_creacion DESC
		LIMIT $6 OFFSET $7
	`, filter.IncludeInactive, filter.Codigo, filter.NumeroDJ,
		nullDate(filter.FechaDesde), nullDate(filter.FechaHasta), limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*TaxClassificationRecord
	for rows.Next() {
		var (
			rec              TaxClassificationRecord
			montos, factores []byte
		)
		if err := rows.Scan(
			&rec.ID, &rec.InstrumentID, &rec.Codigo, &rec.Monto, &rec.Factor, &rec.MetodoIngreso,
			&rec.NumeroDJ, &rec.FechaInforme, &rec.Secuencia, &rec.Mercado, &rec.AnoEjercicio,
			&rec.TipoSociedad, &rec.ValorHistorico, &montos, &factores, &rec.Observaciones,
			&rec.Activo, &rec.CreadoPor, &rec.FechaCreacion, &rec.FechaModificacion,
		); err != nil {
			return nil, err
		}
		if rec.Montos, err = containerFromJSON(montos); err != nil {
			return nil, err
		}
		if rec.Factores, err = containerFromJSON(factores); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CountRecords(ctx context.Context, filter RecordFilter) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM calificaciones c
		JOIN instrumentos_financieros i ON i.id = c.instrumento_id
		WHERE (c.activo = TRUE OR $1)
		  AND ($2 = '' OR i.codigo_instrumento ILIKE '%' || $2 || '%')
		  AND ($3 = '' OR c.numero_dj = $3)
		  AND ($4::date IS NULL OR c.fecha_informe >= $4)
		  AND ($5::date IS NULL OR c.fecha_informe <= $5)
	`, filter.IncludeInactive, filter.Codigo, filter.NumeroDJ,
		nullDate(filter.FechaDesde), nullDate(filter.FechaHasta)).Scan(&total)
	return total, err
}

func (r *PostgresRepository) ActiveRecordExists(ctx context.Context, instrumentID int64, fechaInforme time.Time, numeroDJ string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM calificaciones
			WHERE instrumento_id = $1 AND fecha_informe = $2 AND numero_dj = $3 AND activo = TRUE
		)
	`, instrumentID, fechaInforme, numeroDJ).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) CreateBatch(ctx context.Context, batch *IngestionBatch) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO cargas_masivas (id, archivo_nombre, usuario, estado)
		VALUES ($1, $2, $3, $4)
		RETURNING fecha_carga
	`, batch.ID, batch.ArchivoNombre, batch.Usuario, batch.Estado).Scan(&batch.FechaCarga)
}

func (r *PostgresRepository) FinalizeBatch(ctx context.Context, batch *IngestionBatch) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cargas_masivas SET
			estado = $2, registros_procesados = $3, registros_exitosos = $4,
			registros_fallidos = $5, errores_detalle = $6
		WHERE id = $1
	`, batch.ID, batch.Estado, batch.RegistrosProcesados, batch.RegistrosExitosos,
		batch.RegistrosFallidos, batch.ErroresDetalle)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) GetBatch(ctx context.Context, id string) (*IngestionBatch, error) {
	var batch IngestionBatch
	err := r.pool.QueryRow(ctx, `
		SELECT id, archivo_nombre, usuario, fecha_carga, estado,
		       registros_procesados, registros_exitosos, registros_fallidos, errores_detalle
		FROM cargas_masivas WHERE id = $1
	`, id).Scan(
		&batch.ID, &batch.ArchivoNombre, &batch.Usuario, &batch.FechaCarga, &batch.Estado,
		&batch.RegistrosProcesados, &batch.RegistrosExitosos, &batch.RegistrosFallidos,
		&batch.ErroresDetalle,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *PostgresRepository) PurgeBatchesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cargas_masivas WHERE fecha_carga < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func containerJSON(container map[int]decimal.Decimal) ([]byte, error) {
	if len(container) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(container)
}

func containerFromJSON(raw []byte) (map[int]decimal.Decimal, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var container map[int]decimal.Decimal
	if err := json.Unmarshal(raw, &container); err != nil {
		return nil, err
	}
	if len(container) == 0 {
		return nil, nil
	}
	return container, nil
}

func nullDec(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal
}

func nullDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
