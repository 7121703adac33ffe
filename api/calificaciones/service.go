package calificaciones

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"NuamCalifSaas/api"
	"NuamCalifSaas/api/auditoria"
	"NuamCalifSaas/api/calificaciones/factores"
	"NuamCalifSaas/internal/serviceiface"
)

type CalifService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
	db     *sql.DB
}

func NewCalifService(cfg map[string]interface{}, pool *pgxpool.Pool, db *sql.DB) serviceiface.Service {
	return &CalifService{config: cfg, pool: pool, db: db}
}

func (s *CalifService) Name() string {
	return "calif"
}

func (s *CalifService) Start() error {
	go StartCalifService(s.engineConfig(), s.pool, s.db)
	return nil
}

func (s *CalifService) Stop() error {
	return nil
}

// engineConfig applies services.yaml overrides on top of the engine
// defaults. YAML integers may arrive as int or float64.
func (s *CalifService) engineConfig() factores.Config {
	cfg := factores.DefaultConfig()
	if s.config == nil {
		return cfg
	}
	toInt := func(v interface{}) (int, bool) {
		switch t := v.(type) {
		case int:
			return t, true
		case int64:
			return int(t), true
		case float64:
			return int(t), true
		}
		return 0, false
	}
	if v, ok := s.config["factor_first_index"]; ok {
		if n, ok := toInt(v); ok {
			cfg.FirstIndex = n
		}
	}
	if v, ok := s.config["factor_last_index"]; ok {
		if n, ok := toInt(v); ok {
			cfg.LastIndex = n
		}
	}
	if v, ok := s.config["critical_first_index"]; ok {
		if n, ok := toInt(v); ok {
			cfg.CriticalFirst = n
		}
	}
	if v, ok := s.config["critical_last_index"]; ok {
		if n, ok := toInt(v); ok {
			cfg.CriticalLast = n
		}
	}
	if v, ok := s.config["max_upload_rows"]; ok {
		if n, ok := toInt(v); ok {
			cfg.MaxUploadRows = n
		}
	}
	return cfg
}

// StartCalifService exposes the classification endpoints.
func StartCalifService(cfg factores.Config, pool *pgxpool.Pool, db *sql.DB) {
	repo := NewPostgresRepository(pool)
	audit := auditoria.NewStore(db)

	router := mux.NewRouter()
	router.HandleFunc("/calif/carga", GetCarga(repo)).Methods("GET")
	router.HandleFunc("/calif/calificaciones", ListCalificaciones(repo)).Methods("GET")
	router.HandleFunc("/calif/instrumentos", ListInstrumentos(repo)).Methods("GET")

	// Mutating endpoints require an active session
	router.Handle("/calif/carga-masiva", api.SessionMiddleware(UploadCalificaciones(cfg, repo, audit))).Methods("POST")
	router.Handle("/calif/calificaciones/create", api.SessionMiddleware(CreateCalificacion(cfg, repo, audit))).Methods("POST")
	router.Handle("/calif/calificaciones/edit", api.SessionMiddleware(EditCalificacion(cfg, repo, audit))).Methods("POST")
	router.Handle("/calif/calificaciones/delete", api.SessionMiddleware(DeleteCalificacion(repo, audit))).Methods("POST")
	router.Handle("/calif/instrumentos/create", api.SessionMiddleware(CreateInstrumento(repo, audit))).Methods("POST")
	router.Handle("/calif/instrumentos/edit", api.SessionMiddleware(EditInstrumento(repo, audit))).Methods("POST")

	log.Println("Calif Service started on :7143")
	if err := http.ListenAndServe(":7143", router); err != nil {
		log.Fatalf("Calif Service failed: %v", err)
	}
}
