package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jw6ventures/lifecard/internal/logger"
	"github.com/jw6ventures/lifecard/internal/store"
)

const realm = `Basic realm="LifeCard CardDAV"`

var ErrInvalidCredentials = errors.New("invalid credentials")

// Service checks Basic Auth credentials against stored password hashes.
type Service struct {
	log   zerolog.Logger
	users store.UserRepository
}

func NewService(log logger.Logger, users store.UserRepository) *Service {
	return &Service{log: log.With().Str("module", "auth").Logger(), users: users}
}

// HashPassword returns the bcrypt hash stored for a new user.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate resolves email and password to a user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*store.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// RequireDAVAuth enforces Basic Auth for DAV endpoints and puts the user in
// the request context.
func (s *Service) RequireDAVAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok {
			challenge(w, "authentication required")
			return
		}

		user, err := s.Authenticate(r.Context(), email, password)
		if errors.Is(err, ErrInvalidCredentials) {
			s.log.Debug().Str("email", email).Msg("rejected credentials")
			challenge(w, "invalid credentials")
			return
		}
		if err != nil {
			s.log.Error().Err(err).Msg("credential lookup failed")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func challenge(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", realm)
	http.Error(w, message, http.StatusUnauthorized)
}
