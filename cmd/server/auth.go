package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Simplici0/cotizaciones/internal/access"
)

const sessionCookieName = "cotizaciones_session"

var errUnknownUser = errors.New("unknown user")

type actorKey struct{}

type authService struct {
	db            *sql.DB
	sessionSecret []byte
}

func newAuthService(db *sql.DB, sessionSecret string) *authService {
	return &authService{db: db, sessionSecret: []byte(sessionSecret)}
}

// validateCredentials returns the actor for email when password matches its hash.
func (a *authService) validateCredentials(ctx context.Context, email, password string) (access.Actor, bool, error) {
	actor, hash, err := a.lookupUser(ctx, email)
	if errors.Is(err, errUnknownUser) {
		return access.Actor{}, false, nil
	}
	if err != nil {
		return access.Actor{}, false, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return access.Actor{}, false, nil
		}
		return access.Actor{}, false, fmt.Errorf("compare password hash: %w", err)
	}
	return actor, true, nil
}

// loadActor reads the current state of a user so deactivation and role
// changes apply on the next request.
func (a *authService) loadActor(ctx context.Context, email string) (access.Actor, error) {
	actor, _, err := a.lookupUser(ctx, email)
	return actor, err
}

func (a *authService) lookupUser(ctx context.Context, email string) (access.Actor, string, error) {
	var (
		id          int64
		displayName string
		rawRole     string
		active      bool
		hash        string
	)
	email = strings.ToLower(strings.TrimSpace(email))
	err := a.db.QueryRowContext(ctx, `
		SELECT id, display_name, role, active, password_hash
		FROM users
		WHERE email = ?
	`, email).Scan(&id, &displayName, &rawRole, &active, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return access.Actor{}, "", errUnknownUser
	}
	if err != nil {
		return access.Actor{}, "", fmt.Errorf("query user %s: %w", email, err)
	}

	role, ok := access.ParseRole(rawRole)
	if !ok {
		return access.Actor{}, "", fmt.Errorf("user %s has unknown role %q", email, rawRole)
	}
	return access.NewActor(strconv.FormatInt(id, 10), email, displayName, role, active), hash, nil
}

func (a *authService) createSessionValue(email string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(email))
	mac := hmac.New(sha256.New, a.sessionSecret)
	_, _ = mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return payload + "." + signature
}

func (a *authService) verifySessionValue(value string) (string, bool) {
	payload, signature, ok := strings.Cut(value, ".")
	if !ok || strings.Contains(signature, ".") {
		return "", false
	}

	mac := hmac.New(sha256.New, a.sessionSecret)
	_, _ = mac.Write([]byte(payload))
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(provided, expected) {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil || len(decoded) == 0 {
		return "", false
	}

	return string(decoded), true
}

func (a *authService) setSessionCookie(w http.ResponseWriter, email string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.createSessionValue(email),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *authService) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// authMiddleware resolves the session cookie into an actor stored in the
// request context. Only /login is reachable without a session.
func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "sesión requerida")
			return
		}
		email, ok := s.auth.verifySessionValue(cookie.Value)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "sesión inválida")
			return
		}

		actor, err := s.auth.loadActor(r.Context(), email)
		if errors.Is(err, errUnknownUser) {
			s.auth.clearSessionCookie(w)
			writeMessage(w, http.StatusUnauthorized, "sesión inválida")
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

func withActor(ctx context.Context, actor access.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// actorFrom returns the request's actor. A request that bypassed the
// middleware gets an inactive zero actor, which every operation rejects.
func actorFrom(ctx context.Context) access.Actor {
	actor, _ := ctx.Value(actorKey{}).(access.Actor)
	return actor
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "solicitud inválida")
		return
	}

	actor, valid, err := s.auth.validateCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	if !valid {
		writeMessage(w, http.StatusUnauthorized, "Credenciales inválidas. Intenta de nuevo.")
		return
	}
	if !actor.Active {
		writeError(w, access.ErrInactiveUser)
		return
	}

	s.auth.setSessionCookie(w, actor.Email)
	writeJSON(w, http.StatusOK, actor)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	access.Actor
	Permissions []access.Permission `json:"permissions"`
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	writeJSON(w, http.StatusOK, meResponse{Actor: actor, Permissions: actor.Permissions()})
}
