package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/jw6ventures/lifecard/internal/logger"
	"github.com/jw6ventures/lifecard/internal/store"
	"github.com/jw6ventures/lifecard/internal/store/storetest"
)

func newTestService(t *testing.T) (*Service, store.User) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	mem := storetest.New()
	user := mem.AddUser("jane@example.com", string(hash))
	return NewService(logger.Mock(), mem.Store().Users), user
}

func TestRequireDAVAuthAcceptsValidCredentials(t *testing.T) {
	svc, user := newTestService(t)

	var seen *store.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest("PROPFIND", "/carddav/", nil)
	req.SetBasicAuth("Jane@Example.com", "s3cret")
	rr := httptest.NewRecorder()
	svc.RequireDAVAuth(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if seen == nil || seen.ID != user.ID {
		t.Fatalf("user not placed in context: %+v", seen)
	}
}

func TestRequireDAVAuthChallenges(t *testing.T) {
	svc, _ := newTestService(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	})

	cases := map[string]func(*http.Request){
		"no header":      func(*http.Request) {},
		"wrong password": func(r *http.Request) { r.SetBasicAuth("jane@example.com", "nope") },
		"unknown user":   func(r *http.Request) { r.SetBasicAuth("bob@example.com", "s3cret") },
		"empty password": func(r *http.Request) { r.SetBasicAuth("jane@example.com", "") },
	}
	for name, prepare := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/carddav/", nil)
			prepare(req)
			rr := httptest.NewRecorder()
			svc.RequireDAVAuth(next).ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if got := rr.Header().Get("WWW-Authenticate"); got != `Basic realm="LifeCard CardDAV"` {
				t.Fatalf("WWW-Authenticate = %q", got)
			}
		})
	}
}

type failingUsers struct{ store.UserRepository }

func (failingUsers) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	return nil, errors.New("db down")
}

func TestRequireDAVAuthStoreError(t *testing.T) {
	svc := NewService(logger.Mock(), failingUsers{})
	req := httptest.NewRequest(http.MethodGet, "/carddav/", nil)
	req.SetBasicAuth("jane@example.com", "s3cret")
	rr := httptest.NewRecorder()
	svc.RequireDAVAuth(http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")) != nil {
		t.Fatalf("hash does not verify")
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("empty password must be rejected")
	}
}

func TestUserFromContextMissing(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Fatalf("expected no user")
	}
	if _, ok := UserFromContext(WithUser(context.Background(), nil)); ok {
		t.Fatalf("nil user must not count")
	}
}
