package calificaciones

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"NuamCalifSaas/api/auditoria"
	"NuamCalifSaas/api/calificaciones/factores"
	"NuamCalifSaas/api/constants"
	"NuamCalifSaas/api/utils"
)

// rowFromJSON flattens a JSON body into a column-keyed Row so direct
// creation runs through the exact pipeline ingestion uses (same
// computation, same validation, same duplicate check).
func rowFromJSON(body map[string]interface{}) Row {
	row := make(Row, len(body))
	for k, v := range body {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			row[strings.ToLower(k)] = val
		case float64:
			row[strings.ToLower(k)] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			row[strings.ToLower(k)] = fmt.Sprintf("%v", val)
		}
	}
	return row
}

func classStatus(class RowClass) int {
	switch class {
	case ClassMissingField, ClassInvalidValue:
		return http.StatusBadRequest
	case ClassValidation:
		return http.StatusUnprocessableEntity
	case ClassDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// CreateCalificacion creates one record from a JSON body of column values.
func CreateCalificacion(cfg factores.Config, repo Repository, audit *auditoria.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		userID, _ := body["user_id"].(string)
		actor, ok := resolveActor(userID)
		if !ok {
			http.Error(w, constants.ErrUserNotFound, http.StatusUnauthorized)
			return
		}
		delete(body, "user_id")

		processor := NewRowProcessor(cfg, repo)
		outcome := processor.Process(r.Context(), 1, rowFromJSON(body), actor)
		if outcome.State != RowPersisted {
			http.Error(w, outcome.Message, classStatus(outcome.Class))
			return
		}

		rec, err := repo.GetRecord(r.Context(), outcome.RecordID)
		if err != nil {
			http.Error(w, constants.ErrDB, http.StatusInternalServerError)
			return
		}
		audit.Record(r.Context(), actor, auditoria.AccionCreate, "calificaciones", rec.ID, clientIP(r),
			"Calificación creada: "+rec.Codigo)

		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(rec)
	}
}

// EditCalificacion updates the editable fields of one record. Validation is
// re-run before every persist; it is not optional.
func EditCalificacion(cfg factores.Config, repo Repository, audit *auditoria.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID        string             `json:"user_id"`
			ID            int64              `json:"id"`
			Monto         *string            `json:"monto"`
			Factor        *string            `json:"factor"`
			MetodoIngreso *string            `json:"metodo_ingreso"`
			NumeroDJ      *string            `json:"numero_dj"`
			FechaInforme  *string            `json:"fecha_informe"`
			Montos        map[string]string  `json:"montos"`
			Observaciones *string            `json:"observaciones"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == 0 {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		actor, ok := resolveActor(body.UserID)
		if !ok {
			http.Error(w, constants.ErrUserNotFound, http.StatusUnauthorized)
			return
		}

		rec, err := repo.GetRecord(r.Context(), body.ID)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, constants.ErrRecordNotFound, http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, constants.ErrDB, http.StatusInternalServerError)
			return
		}

		if body.MetodoIngreso != nil {
			rec.MetodoIngreso = strings.ToUpper(strings.TrimSpace(*body.MetodoIngreso))
		}
		if body.NumeroDJ != nil {
			rec.NumeroDJ = strings.TrimSpace(*body.NumeroDJ)
		}
		if body.Observaciones != nil {
			rec.Observaciones = *body.Observaciones
		}
		if body.FechaInforme != nil {
			fecha, err := parseDateValue(*body.FechaInforme)
			if err != nil {
				http.Error(w, fmt.Sprintf(constants.FmtInvalidValue, constants.ColReportDate, *body.FechaInforme), http.StatusBadRequest)
				return
			}
			rec.FechaInforme = fecha
		}
		if body.Monto != nil {
			d, err := parseDecimalValue(*body.Monto)
			if err != nil {
				http.Error(w, fmt.Sprintf(constants.FmtInvalidValue, constants.ColAmount, *body.Monto), http.StatusBadRequest)
				return
			}
			rec.Monto = decimal.NewNullDecimal(d)
		}
		if body.Factor != nil {
			d, err := parseDecimalValue(*body.Factor)
			if err != nil {
				http.Error(w, fmt.Sprintf(constants.FmtInvalidValue, constants.ColFactor, *body.Factor), http.StatusBadRequest)
				return
			}
			rec.Factor = decimal.NewNullDecimal(d)
		}
		if body.Montos != nil {
			montos := make(map[int]decimal.Decimal, len(body.Montos))
			for key, raw := range body.Montos {
				idx, err := strconv.Atoi(key)
				if err != nil {
					http.Error(w, fmt.Sprintf(constants.FmtInvalidValue, "montos", key), http.StatusBadRequest)
					return
				}
				d, err := parseDecimalValue(raw)
				if err != nil {
					http.Error(w, fmt.Sprintf(constants.FmtInvalidValue, constants.AmountColPrefix+key, raw), http.StatusBadRequest)
					return
				}
				montos[idx] = d
			}
			rec.Montos = montos
			rec.Factores = factores.ComputeFactors(cfg, montos)
			rec.Monto = decimal.NewNullDecimal(factores.TotalAmount(cfg, montos))
		}
		rec.Monto, rec.Factor = factores.DeriveLegacy(cfg, rec.MetodoIngreso, rec.Monto, rec.Factor)

		if msg := factores.FirstViolation(cfg, rec.Factores); msg != "" {
			http.Error(w, msg, http.StatusUnprocessableEntity)
			return
		}

		if err := repo.UpdateRecord(r.Context(), rec); err != nil {
			if errors.Is(err, ErrDuplicate) {
				http.Error(w, constants.ErrDuplicateRecord, http.StatusConflict)
				return
			}
			http.Error(w, constants.ErrRecordUpdateFailed, http.StatusInternalServerError)
			return
		}
		audit.Record(r.Context(), actor, auditoria.AccionUpdate, "calificaciones", rec.ID, clientIP(r),
			"Calificación editada: "+rec.Codigo)

		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(rec)
	}
}

// DeleteCalificacion soft-deletes a record: the row stays for audit lineage.
func DeleteCalificacion(repo Repository, audit *auditoria.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID string `json:"user_id"`
			ID     int64  `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == 0 {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		actor, ok := resolveActor(body.UserID)
		if !ok {
			http.Error(w, constants.ErrUserNotFound, http.StatusUnauthorized)
			return
		}
		if err := repo.DeactivateRecord(r.Context(), body.ID); err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, constants.ErrRecordNotFound, http.StatusNotFound)
				return
			}
			http.Error(w, constants.ErrDB, http.StatusInternalServerError)
			return
		}
		audit.Record(r.Context(), actor, auditoria.AccionDelete, "calificaciones", body.ID, clientIP(r),
			fmt.Sprintf("Calificación eliminada: %d", body.ID))

		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}
}

// ListCalificaciones returns active records, filterable by instrument code,
// declaration number and report-date range. Results are paginated via
// page/limit query params.
func ListCalificaciones(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pagination, err := utils.ExtractPagination(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		filter := RecordFilter{
			Codigo:   r.URL.Query().Get("codigo_instrumento"),
			NumeroDJ: r.URL.Query().Get("numero_dj"),
			Limit:    pagination.Limit,
			Offset:   pagination.Offset,
		}
		if raw := r.URL.Query().Get("desde"); raw != "" {
			if t, err := parseDateValue(raw); err == nil {
				filter.FechaDesde = t
			}
		}
		if raw := r.URL.Query().Get("hasta"); raw != "" {
			if t, err := parseDateValue(raw); err == nil {
				filter.FechaHasta = t
			}
		}
		records, err := repo.ListRecords(r.Context(), filter)
		if err != nil {
			http.Error(w, constants.ErrDB, http.StatusInternalServerError)
			return
		}
		total, err := repo.CountRecords(r.Context(), filter)
		if err != nil {
			http.Error(w, constants.ErrDB, http.StatusInternalServerError)
			return
		}
		pagination.SetPaginationStats(total)

		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":       records,
			"pagination": pagination,
		})
	}
}

// CreateInstrumento registers an instrument; with no code supplied one is
// generated from the display name.
func CreateInstrumento(repo Repository, audit *auditoria.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID string `json:"user_id"`
			Codigo string `json:"codigo_instrumento"`
			Nombre string `json:"nombre_instrumento"`
			Tipo   string `json:"tipo_instrumento"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		actor, ok := resolveActor(body.UserID)
		if !ok {
			http.Error(w, constants.ErrUserNotFound, http.StatusUnauthorized)
			return
		}

		resolver := NewInstrumentResolver(repo)
		codigo := strings.TrimSpace(body.Codigo)
		if codigo == "" {
			generated, err := resolver.GenerateCode(r.Context(), body.Nombre)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			codigo = generated
		}

		inst := &FinancialInstrument{Codigo: codigo, Nombre: body.Nombre, Tipo: body.Tipo}
		if inst.Tipo == "" {
			inst.Tipo = constants.DefaultInstrumentType
		}
		if err := repo.CreateInstrument(r.Context(), inst); err != nil {
			if errors.Is(err, ErrDuplicate) {
				http.Error(w, constants.ErrInstrumentCreateFailed, http.StatusConflict)
				return
			}
			http.Error(w, constants.ErrDB, http.StatusInternalServerError)
			return
		}
		audit.Record(r.Context(), actor, auditoria.AccionCreate, "instrumentos_financieros", inst.ID, clientIP(r),
			"Instrumento creado: "+inst.Codigo)

		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(inst)
	}
}

// ListInstrumentos returns active catalog entries, optionally filtered.
func ListInstrumentos(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instruments, err := repo.ListInstruments(r.Context(), r.URL.Query().Get("busqueda"))
		if err != nil {
			http.Error(w, constants.ErrDB, http.StatusInternalServerError)
			return
		}
		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(instruments)
	}
}

// EditInstrumento updates name, type or the active flag (soft-deactivate).
func EditInstrumento(repo Repository, audit *auditoria.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID string  `json:"user_id"`
			ID     int64   `json:"id"`
			Nombre *string `json:"nombre_instrumento"`
			Tipo   *string `json:"tipo_instrumento"`
			Activo *bool   `json:"activo"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == 0 {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		actor, ok := resolveActor(body.UserID)
		if !ok {
			http.Error(w, constants.ErrUserNotFound, http.StatusUnauthorized)
			return
		}

		inst, err := repo.GetInstrument(r.Context(), body.ID)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, constants.ErrInstrumentNotFound, http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, constants.ErrDB, http.StatusInternalServerError)
			return
		}
		if body.Nombre != nil {
			inst.Nombre = *body.Nombre
		}
		if body.Tipo != nil {
			inst.Tipo = *body.Tipo
		}
		if body.Activo != nil {
			inst.Activo = *body.Activo
		}
		if err := repo.UpdateInstrument(r.Context(), inst); err != nil {
			http.Error(w, constants.ErrInstrumentUpdateFailed, http.StatusInternalServerError)
			return
		}
		audit.Record(r.Context(), actor, auditoria.AccionUpdate, "instrumentos_financieros", inst.ID, clientIP(r),
			"Instrumento editado: "+inst.Codigo)

		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(inst)
	}
}
