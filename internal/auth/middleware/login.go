package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-progress/internal/logger"
)

var validate = validator.New()

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, users *UserStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username" validate:"required,max=128"`
			Password string `json:"password" validate:"required,max=256"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "username and password are required", http.StatusBadRequest)
			return
		}

		u, err := users.FindByUsername(r.Context(), req.Username)
		if err != nil && !errors.Is(err, ErrNoUser) {
			log.Error("login lookup failed", "username", req.Username, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if err != nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		tok, err := a.IssueJWT(u.ID, u.Role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": tok,
			"user_id":      u.ID,
			"role":         u.Role,
		})
	}
}
