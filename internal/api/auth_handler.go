package api

import (
	"dbconsole/internal/logger"
	"dbconsole/internal/service"
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionName = "dbconsole-session"

type AuthHandler struct {
	authSvc *service.AuthService
	store   *sessions.CookieStore
}

// NewAuthHandler signs login cookies with sessionKey. secure marks them
// HTTPS-only.
func NewAuthHandler(authSvc *service.AuthService, sessionKey string, secure bool) *AuthHandler {
	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &AuthHandler{
		authSvc: authSvc,
		store:   store,
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SetupStatus reports whether the first user still has to be created.
func (h *AuthHandler) SetupStatus(w http.ResponseWriter, r *http.Request) {
	hasUsers, err := h.authSvc.HasUsers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"setup_required": !hasUsers,
	})
}

func (h *AuthHandler) DoSetup(w http.ResponseWriter, r *http.Request) {
	hasUsers, err := h.authSvc.HasUsers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hasUsers {
		writeError(w, http.StatusConflict, "setup already completed")
		return
	}

	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.authSvc.SetupAdmin(c.Username, c.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.Info.Printf("Console set up with admin user %s", c.Username)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true})
}

func (h *AuthHandler) DoLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authSvc.Authenticate(c.Username, c.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	// A tampered or stale cookie still yields a fresh session
	session, _ := h.store.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	if err := session.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    user,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.store.Get(r, sessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// RequireUser admits requests carrying a valid X-API-Key header or login
// cookie and stores the user in the request context.
func (h *AuthHandler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			user, err := h.authSvc.VerifyApiKey(apiKey)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
			return
		}

		session, _ := h.store.Get(r, sessionName)
		userID, ok := session.Values["user_id"].(int64)
		if !ok || userID == 0 {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}

		user, err := h.authSvc.UserByID(userID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}
