package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"NuamCalifSaas/api/auth"
	"NuamCalifSaas/api/constants"
)

type contextKey string

const (
	SessionKey contextKey = "session"
	UserIDKey  contextKey = "user_id"
)

func GetSessionFromCtx(ctx context.Context) *auth.UserSession {
	if session, ok := ctx.Value(SessionKey).(*auth.UserSession); ok {
		return session
	}
	return nil
}

func GetUserIDFromCtx(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// SessionMiddleware extracts user_id from the request body (JSON or
// multipart), validates it against the active sessions and injects the
// session into the request context. The body is reset for downstream
// handlers.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var userID string
		ct := r.Header.Get(constants.ContentTypeText)
		if strings.HasPrefix(ct, constants.ContentTypeJSON) && (r.Method == "POST" || r.Method == "PUT") {
			var bodyMap map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&bodyMap)
			if uid, ok := bodyMap[constants.KeyUserID].(string); ok {
				userID = uid
			}
			// Re-marshal and reset body for downstream handlers
			bodyBytes, _ := json.Marshal(bodyMap)
			r.Body = io.NopCloser(strings.NewReader(string(bodyBytes)))
		} else if strings.HasPrefix(ct, constants.ContentTypeMultipart) && (r.Method == "POST" || r.Method == "PUT") {
			err := r.ParseMultipartForm(constants.MaxUploadBytes)
			if err == nil {
				userID = r.FormValue(constants.KeyUserID)
			}
		}

		if userID == "" {
			log.Println("[ERROR] Missing user_id in request")
			w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
			json.NewEncoder(w).Encode(map[string]interface{}{
				constants.ValueSuccess: false,
				constants.ValueError:   constants.ErrMissingUserID,
			})
			return
		}

		// Validate session
		var found *auth.UserSession
		for _, session := range auth.GetActiveSessions() {
			if session.UserID == userID {
				found = session
				break
			}
		}
		if found == nil {
			log.Println("[ERROR] Invalid session for user_id:", userID)
			w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
			json.NewEncoder(w).Encode(map[string]interface{}{
				constants.ValueSuccess: false,
				constants.ValueError:   constants.ErrInvalidSession,
			})
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, found)
		ctx = context.WithValue(ctx, UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
