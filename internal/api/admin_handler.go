package api

import (
	"dbconsole/internal/core"
	"dbconsole/internal/logger"
	"dbconsole/internal/service"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-sql-driver/mysql"
)

// AdminHandler manages registered servers, API keys and the audit log.
type AdminHandler struct {
	serverRepo core.ServerRepository
	auditRepo  core.AuditRepository
	authSvc    *service.AuthService
	cryptoSvc  *service.EncryptionService
}

func NewAdminHandler(serverRepo core.ServerRepository, auditRepo core.AuditRepository, authSvc *service.AuthService, cryptoSvc *service.EncryptionService) *AdminHandler {
	return &AdminHandler{
		serverRepo: serverRepo,
		auditRepo:  auditRepo,
		authSvc:    authSvc,
		cryptoSvc:  cryptoSvc,
	}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/servers", h.ServersList)
	r.Post("/servers", h.CreateServer)
	r.Put("/servers/{id}", h.UpdateServer)
	r.Delete("/servers/{id}", h.DeleteServer)

	r.Get("/api-keys", h.ApiKeysList)
	r.Post("/api-keys", h.CreateApiKey)
	r.Delete("/api-keys/{id}", h.RevokeApiKey)

	r.Get("/logs", h.AuditLogs)
}

func (h *AdminHandler) ServersList(w http.ResponseWriter, r *http.Request) {
	servers, err := h.serverRepo.GetAll()
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    servers,
	})
}

// serverRequest leaves fields nil that an update should not touch.
type serverRequest struct {
	Name          *string `json:"name"`
	Driver        *string `json:"driver"`
	DSN           *string `json:"dsn"`
	BookmarkDB    *string `json:"bookmark_db"`
	BookmarkTable *string `json:"bookmark_table"`
	IsActive      *bool   `json:"is_active"`
}

func (req *serverRequest) apply(s *core.Server, cryptoSvc *service.EncryptionService) error {
	if req.Name != nil {
		s.Name = *req.Name
	}
	if req.Driver != nil {
		s.Driver = *req.Driver
	}
	if req.BookmarkDB != nil {
		s.BookmarkDB = *req.BookmarkDB
	}
	if req.BookmarkTable != nil {
		s.BookmarkTable = *req.BookmarkTable
	}
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}

	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Driver != "mysql" {
		return errors.New("only the mysql driver is supported")
	}

	// Only re-encrypt when a new DSN is supplied
	if req.DSN != nil {
		if _, err := mysql.ParseDSN(*req.DSN); err != nil {
			return err
		}
		enc, err := cryptoSvc.Encrypt(*req.DSN)
		if err != nil {
			return err
		}
		s.DSNEnc = enc
	}
	if s.DSNEnc == "" {
		return errors.New("dsn is required")
	}
	return nil
}

func (h *AdminHandler) CreateServer(w http.ResponseWriter, r *http.Request) {
	var req serverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := &core.Server{Driver: "mysql", IsActive: true}
	if err := req.apply(s, h.cryptoSvc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.serverRepo.Create(s); err != nil {
		writeError(w, http.StatusBadRequest, "failed to create server: "+err.Error())
		return
	}

	logger.Info.Printf("Server %s registered by %s", s.Name, userFrom(r.Context()).Username)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    s,
	})
}

func (h *AdminHandler) UpdateServer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s, err := h.serverRepo.GetByID(id)
	if err != nil {
		fail(w, err)
		return
	}

	var req serverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.apply(s, h.cryptoSvc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.serverRepo.Update(s); err != nil {
		fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    s,
	})
}

func (h *AdminHandler) DeleteServer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.serverRepo.Delete(id); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *AdminHandler) ApiKeysList(w http.ResponseWriter, r *http.Request) {
	keys, err := h.authSvc.ListApiKeys(userFrom(r.Context()).ID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    keys,
	})
}

// CreateApiKey returns the plain key. It is not retrievable afterwards.
func (h *AdminHandler) CreateApiKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plain, key, err := h.authSvc.GenerateApiKey(userFrom(r.Context()).ID, req.Description)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"key":     plain,
		"data":    key,
	})
}

func (h *AdminHandler) RevokeApiKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.authSvc.RevokeApiKey(userFrom(r.Context()).ID, id); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// AuditLogs returns the latest executions, 100 unless ?limit says otherwise.
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	logs, err := h.auditRepo.GetRecent(limit)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    logs,
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
