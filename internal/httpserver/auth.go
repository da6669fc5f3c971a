package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const adminSubject = "admin"

// AuthConfig controls admin token issuance.
type AuthConfig struct {
	PasswordHash string // bcrypt hash; empty disables admin routes
	JWTSecret    string
	TokenTTL     time.Duration
}

func (a AuthConfig) enabled() bool { return a.PasswordHash != "" && a.JWTSecret != "" }

type loginReq struct {
	Password string `json:"password"`
}

// POST /admin/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.auth.enabled() {
		writeError(w, http.StatusServiceUnavailable, "admin_disabled")
		return
	}
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if !checkPassword(s.auth.PasswordHash, body.Password) {
		writeError(w, http.StatusUnauthorized, "invalid_password")
		return
	}
	tok, exp, err := s.signJWT()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "expiresAt": exp})
}

// signJWT creates an HS256 admin token valid for TokenTTL.
func (s *Server) signJWT() (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.auth.TokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   adminSubject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	ss, err := t.SignedString([]byte(s.auth.JWTSecret))
	return ss, exp, err
}

func (s *Server) parseJWT(tokenStr string) error {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.auth.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err
	}
	if !token.Valid || claims.Subject != adminSubject {
		return errors.New("invalid token")
	}
	return nil
}

// requireAdmin enforces a valid admin JWT.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.enabled() {
			writeError(w, http.StatusServiceUnavailable, "admin_disabled")
			return
		}
		tok := bearerToken(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err := s.parseJWT(tok); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

func requestID(r *http.Request) string { return chimw.GetReqID(r.Context()) }
