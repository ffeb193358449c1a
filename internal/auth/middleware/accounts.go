package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-progress/internal/logger"
)

const bcryptCost = 12

var roles = map[string]bool{"student": true, "teacher": true, "admin": true}

type changePasswordReq struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=256"`
}

// POST /users/change-password  { "old_password": "...", "new_password": "..." }
func ChangePasswordHandler(users *UserStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := UserFromContext(r.Context())
		if uid == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req changePasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "new password must be at least 8 characters", http.StatusBadRequest)
			return
		}

		u, err := users.FindByID(r.Context(), uid)
		if err != nil {
			if errors.Is(err, ErrNoUser) {
				http.Error(w, "user not found", http.StatusNotFound)
				return
			}
			log.Error("change password lookup", "user_id", uid, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)) != nil {
			http.Error(w, "incorrect old password", http.StatusForbidden)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if err := users.SetPasswordHash(r.Context(), uid, string(hash)); err != nil {
			log.Error("change password update", "user_id", uid, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type userIn struct {
	Username string `json:"username" validate:"required,max=128"`
	Role     string `json:"role"`               // defaults to "student"
	Password string `json:"password,omitempty"` // plaintext, hashed here
}

// POST /users/bulk  [ { "username": "...", "role": "student", "password": "..." }, ... ]
func BulkUpsertUsersHandler(users *UserStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []userIn
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, "expected JSON array", http.StatusBadRequest)
			return
		}

		out := make([]User, 0, len(rows))
		for _, row := range rows {
			row.Username = strings.TrimSpace(row.Username)
			if row.Role == "" {
				row.Role = "student"
			}
			if err := validate.Struct(row); err != nil || !roles[row.Role] {
				http.Error(w, "invalid user row: "+row.Username, http.StatusBadRequest)
				return
			}
			u := User{Username: row.Username, Role: row.Role}
			if row.Password != "" {
				h, err := bcrypt.GenerateFromPassword([]byte(row.Password), bcryptCost)
				if err != nil {
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				u.PasswordHash = string(h)
			}
			out = append(out, u)
		}

		ins, upd, err := users.Upsert(r.Context(), out)
		if err != nil {
			log.Error("bulk upsert users", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"inserted": ins, "updated": upd})
	}
}
