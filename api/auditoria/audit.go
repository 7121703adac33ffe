package auditoria

import (
	"context"
	"database/sql"
	"log"
	"time"

	"NuamCalifSaas/api/constants"
)

// Actions recorded in the audit trail.
const (
	AccionCreate = "CREATE"
	AccionUpdate = "UPDATE"
	AccionDelete = "DELETE"
)

// Entry is one immutable audit row. Rows are only ever inserted.
type Entry struct {
	ID         int64     `json:"id"`
	Usuario    string    `json:"usuario"`
	Accion     string    `json:"accion"`
	Tabla      string    `json:"tabla_afectada"`
	RegistroID int64     `json:"registro_id"`
	IPAddress  string    `json:"ip_address"`
	Detalles   string    `json:"detalles"`
	FechaHora  time.Time `json:"fecha_hora"`
}

// Store writes and reads the audit trail. The actor is always explicit:
// background operations pass "" and are recorded under the SYSTEM sentinel,
// so a single operation is attributed exactly once.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts one audit row. Audit writes must not break the operation
// they describe, so failures are logged and swallowed.
func (s *Store) Record(ctx context.Context, actor, accion, tabla string, registroID int64, ip, detalles string) {
	if actor == "" {
		actor = constants.SystemActor
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO logs_auditoria (usuario, accion, tabla_afectada, registro_id, ip_address, detalles)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, actor, accion, tabla, registroID, ip, detalles)
	if err != nil {
		log.Printf("[Auditoria] insert failed (accion=%s tabla=%s id=%d): %v", accion, tabla, registroID, err)
	}
}

// History returns the newest entries for one table, most recent first.
func (s *Store) History(ctx context.Context, tabla string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, usuario, accion, tabla_afectada, registro_id, ip_address, detalles, fecha_hora
		FROM logs_auditoria
		WHERE $1 = '' OR tabla_afectada = $1
		ORDER BY fecha_hora DESC
		LIMIT $2
	`, tabla, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Usuario, &e.Accion, &e.Tabla, &e.RegistroID, &e.IPAddress, &e.Detalles, &e.FechaHora); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
