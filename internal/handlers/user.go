package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jason-s-yu/oldskool/internal/auth"
	"github.com/jason-s-yu/oldskool/internal/database"
	"github.com/jason-s-yu/oldskool/internal/models"
)

// EnsureEphemeralUser returns the caller's user id. A request without a valid token gets a
// fresh guest account and its cookie; the guest is only stored when the database is up.
func EnsureEphemeralUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	if userID, err := authenticatedUser(r); err == nil {
		return userID, nil
	}

	guest := models.User{
		Username:    "Guest",
		IsEphemeral: true,
	}
	if database.Enabled() {
		if err := database.CreateUser(r.Context(), &guest); err != nil {
			return uuid.Nil, fmt.Errorf("failed to create ephemeral user: %w", err)
		}
	} else {
		guest.ID = uuid.New()
	}

	token, err := auth.CreateJWT(guest.ID.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create ephemeral JWT: %w", err)
	}
	setAuthCookie(w, token)
	return guest.ID, nil
}

// usernameFor looks up a display name, falling back to a short guest tag.
func usernameFor(ctx context.Context, userID uuid.UUID) string {
	if database.Enabled() {
		if u, err := database.GetUserByID(ctx, userID); err == nil && u.Username != "" {
			if u.IsEphemeral && u.Username == "Guest" {
				return guestName(userID)
			}
			return u.Username
		}
	}
	return guestName(userID)
}

func guestName(userID uuid.UUID) string {
	return "Guest-" + userID.String()[:4]
}

func requireDB(w http.ResponseWriter) bool {
	if !database.Enabled() {
		http.Error(w, "accounts are unavailable", http.StatusServiceUnavailable)
		return false
	}
	return true
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func (req *credentialsRequest) validate() error {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	if len(req.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if req.Username == "" {
		req.Username = req.Email[:strings.Index(req.Email, "@")]
	}
	return nil
}

// ClaimEphemeralHandler upgrades the caller's guest account to a full account.
func ClaimEphemeralHandler(w http.ResponseWriter, r *http.Request) {
	if !requireDB(w) {
		return
	}
	userID, err := authenticatedUser(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	u, err := database.GetUserByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if !u.IsEphemeral {
		http.Error(w, "user is not ephemeral", http.StatusBadRequest)
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid claim payload", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u.Email = req.Email
	u.Password = req.Password
	u.Username = req.Username
	u.IsEphemeral = false

	if err := database.UpdateUserCredentials(r.Context(), u); err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "failed to finalize ephemeral user", http.StatusInternalServerError)
		return
	}
	u.Password = ""
	writeJSON(w, http.StatusOK, u)
}

// CreateUserHandler registers a new account.
func CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	if !requireDB(w) {
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user := models.User{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	}
	if err := database.CreateUser(r.Context(), &user); err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "email already exists", http.StatusConflict)
			return
		}
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusCreated, user)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginHandler exchanges email and password for a token, returned in the body and as the
// auth_token cookie.
//
// Request payload:
//
//	{
//	  "email": "someone@example.com",
//	  "password": "password"
//	}
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !requireDB(w) {
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	token, err := database.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	setAuthCookie(w, token)
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}
