package calificaciones

import (
	"encoding/json"
	"errors"
	"net/http"

	"NuamCalifSaas/api/auth"
	"NuamCalifSaas/api/auditoria"
	"NuamCalifSaas/api/calificaciones/factores"
	"NuamCalifSaas/api/constants"
)

// resolveActor maps a user_id to the session user name, the same way every
// upload endpoint in the platform resolves its initiating actor.
func resolveActor(userID string) (string, bool) {
	for _, s := range auth.GetActiveSessions() {
		if s.UserID == userID && s.IsLoggedIn {
			return s.Name, true
		}
	}
	return "", false
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	return r.RemoteAddr
}

// UploadCalificaciones handles the bulk classification upload. The response
// is always a batch summary with counts and per-row error detail; row
// failures never surface as HTTP errors.
func UploadCalificaciones(cfg factores.Config, repo Repository, audit *auditoria.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, constants.ErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseMultipartForm(constants.MaxUploadBytes); err != nil {
			http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
			return
		}
		userID := r.FormValue("user_id")
		if userID == "" {
			http.Error(w, constants.ErrUserIDRequired, http.StatusBadRequest)
			return
		}
		actor, ok := resolveActor(userID)
		if !ok {
			http.Error(w, constants.ErrUserNotFound, http.StatusUnauthorized)
			return
		}

		file, header, err := r.FormFile("archivo")
		if err != nil {
			http.Error(w, "No file uploaded", http.StatusBadRequest)
			return
		}
		defer file.Close()

		orchestrator := NewBatchOrchestrator(cfg, repo)
		batch, outcomes, err := orchestrator.IngestFile(r.Context(), file, header.Filename, actor)
		if err != nil {
			var rowErr *RowError
			if batch != nil && errors.As(err, &rowErr) && rowErr.Class == ClassStructural {
				// structural failure: the batch record tells the whole story
				w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(batch)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		audit.Record(r.Context(), actor, auditoria.AccionCreate, "cargas_masivas", 0, clientIP(r),
			"Carga masiva "+batch.ArchivoNombre+": "+batch.Estado)

		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"batch":    batch,
			"outcomes": outcomes,
		})
	}
}

// GetCarga returns one batch audit record by id.
func GetCarga(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "id required", http.StatusBadRequest)
			return
		}
		batch, err := repo.GetBatch(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "Batch not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, constants.ErrDB, http.StatusInternalServerError)
			return
		}
		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(batch)
	}
}
