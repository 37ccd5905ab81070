package keys

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brisa-labs/media-gateway/internal/usagelog"
)

// Handlers holds dependencies for the admin HTTP surface. Logs is optional;
// when nil the /logs endpoint reports that usage logging is disabled.
type Handlers struct {
	Keys *Manager
	Logs usagelog.Reader
}

// Routes returns a chi.Router with all admin endpoints mounted. Callers must
// wrap it with RequireAdmin.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/keys", h.listKeys)
	r.Post("/keys", h.createKey)
	r.Put("/keys/{key}", h.updateKey)
	r.Delete("/keys/{key}", h.deleteKey)
	r.Post("/keys/{key}/reset", h.resetKey)
	r.Get("/logs", h.listLogs)
	return r
}

func (h *Handlers) listKeys(w http.ResponseWriter, r *http.Request) {
	creds, err := h.Keys.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	stats, err := h.Keys.Stats(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"keys":    creds,
		"stats":   stats,
	})
}

func (h *Handlers) createKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Key           string `json:"key"`
		Owner         string `json:"owner"`
		Limit         int64  `json:"limit"`
		Role          string `json:"role"`
		ExpiresInDays *int   `json:"expiresInDays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, &Error{Kind: KindValidation, Message: "Corpo da requisição inválido"})
		return
	}

	cred, err := h.Keys.Create(r.Context(), CreateParams{
		Key:           body.Key,
		Owner:         body.Owner,
		Limit:         body.Limit,
		Role:          body.Role,
		ExpiresInDays: body.ExpiresInDays,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Key criada com sucesso",
		"key":     cred.Key,
		"data":    cred,
	})
}

func (h *Handlers) updateKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var body struct {
		Limit  *int64  `json:"limit"`
		Used   *int64  `json:"used"`
		Status *Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, &Error{Kind: KindValidation, Message: "Corpo da requisição inválido"})
		return
	}

	cred, err := h.Keys.Update(r.Context(), key, Patch{
		Limit:  body.Limit,
		Used:   body.Used,
		Status: body.Status,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Key atualizada",
		"key":     cred,
	})
}

func (h *Handlers) deleteKey(w http.ResponseWriter, r *http.Request) {
	if err := h.Keys.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Key removida",
	})
}

func (h *Handlers) resetKey(w http.ResponseWriter, r *http.Request) {
	cred, err := h.Keys.ResetUsage(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Uso resetado",
		"key":     cred,
	})
}

func (h *Handlers) listLogs(w http.ResponseWriter, r *http.Request) {
	if h.Logs == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]interface{}{
			"success": false,
			"error":   "Log de uso não está habilitado",
		})
		return
	}

	q := usagelog.Query{
		Limit: 50,
		Owner: r.URL.Query().Get("owner"),
		Route: r.URL.Query().Get("route"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			WriteError(w, &Error{Kind: KindValidation, Message: "limit deve ser um inteiro positivo"})
			return
		}
		if parsed > 200 {
			parsed = 200
		}
		q.Limit = parsed
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			WriteError(w, &Error{Kind: KindValidation, Message: "offset deve ser um inteiro não negativo"})
			return
		}
		q.Offset = parsed
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteError(w, &Error{Kind: KindValidation, Message: "since deve estar no formato RFC3339"})
			return
		}
		q.Since = &parsed
	}

	result, err := h.Logs.List(r.Context(), q)
	if err != nil {
		WriteError(w, storeErr("list usage log", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"logs":    result.Data,
		"total":   result.Total,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
