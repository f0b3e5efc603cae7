package user

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marekholub/auth-api/internal/httputil"
	"github.com/marekholub/auth-api/internal/logging"
)

// fakeStore is an in-memory Store keeping insertion order for listing.
type fakeStore struct {
	ordered []*User
}

func (s *fakeStore) add(u *User) {
	s.ordered = append(s.ordered, u)
}

func (s *fakeStore) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	total := len(s.ordered)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return s.ordered[offset:end], total, nil
}

func (s *fakeStore) Delete(_ context.Context, userID uuid.UUID) error {
	for i, u := range s.ordered {
		if u.ID == userID {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func testLogger() *logging.Logger {
	return &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func newTestRouter(store *fakeStore, actor *User) *chi.Mux {
	handler := NewHandler(store, testLogger())

	// Stands in for the role guard, which resolves the acting admin.
	withActor := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if actor != nil {
				r = r.WithContext(NewContext(r.Context(), actor))
			}
			next.ServeHTTP(w, r)
		})
	}

	r := chi.NewRouter()
	r.Route("/users", func(r chi.Router) {
		r.Use(withActor)
		r.Get("/", handler.List)
		r.Delete("/{id}", handler.Delete)
	})
	return r
}

func seedUsers(store *fakeStore, count int) []*User {
	users := make([]*User, 0, count)
	for i := 0; i < count; i++ {
		u := &User{
			ID:         uuid.New(),
			Email:      uuid.NewString() + "@example.com",
			IsVerified: true,
			Role:       RoleUser,
			CreatedAt:  time.Now(),
		}
		store.add(u)
		users = append(users, u)
	}
	return users
}

func TestListUsers(t *testing.T) {
	store := &fakeStore{}
	admin := &User{ID: uuid.New(), Email: "admin@example.com", Role: RoleAdmin}
	store.add(admin)
	seedUsers(store, 24)

	router := newTestRouter(store, admin)

	doList := func(t *testing.T, path string) ListResponse {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp
	}

	t.Run("default page size", func(t *testing.T) {
		resp := doList(t, "/users")
		assert.Len(t, resp.Users, 10)
		assert.Equal(t, 25, resp.Total)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, 3, resp.TotalPages)
	})

	t.Run("last page is partial", func(t *testing.T) {
		resp := doList(t, "/users?page=3&limit=10")
		assert.Len(t, resp.Users, 5)
		assert.Equal(t, 3, resp.Page)
	})

	t.Run("page beyond range is empty", func(t *testing.T) {
		resp := doList(t, "/users?page=99")
		assert.Empty(t, resp.Users)
		assert.Equal(t, 25, resp.Total)
	})

	t.Run("limit is capped", func(t *testing.T) {
		resp := doList(t, "/users?limit=10000")
		assert.Len(t, resp.Users, 25)
	})

	t.Run("bad query values fall back to defaults", func(t *testing.T) {
		resp := doList(t, "/users?page=abc&limit=-5")
		assert.Len(t, resp.Users, 10)
		assert.Equal(t, 1, resp.Page)
	})

	t.Run("password hash never serialized", func(t *testing.T) {
		store := &fakeStore{}
		store.add(&User{ID: uuid.New(), Email: "u@example.com", PasswordHash: "secret-hash"})
		router := newTestRouter(store, admin)

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.NotContains(t, rec.Body.String(), "secret-hash")
	})
}

func TestDeleteUser(t *testing.T) {
	store := &fakeStore{}
	admin := &User{ID: uuid.New(), Email: "admin@example.com", Role: RoleAdmin}
	store.add(admin)
	victims := seedUsers(store, 2)

	router := newTestRouter(store, admin)

	doDelete := func(t *testing.T, id string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodDelete, "/users/"+id, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("success", func(t *testing.T) {
		rec := doDelete(t, victims[0].ID.String())
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.ErrorIs(t, store.Delete(context.Background(), victims[0].ID), ErrNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := doDelete(t, "not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, httputil.CodeInvalidUserID, resp.Code)
	})

	t.Run("self delete rejected", func(t *testing.T) {
		rec := doDelete(t, admin.ID.String())
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, httputil.CodeSelfDelete, resp.Code)

		// The admin record is untouched.
		_, total, err := store.List(context.Background(), 100, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := doDelete(t, uuid.NewString())
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var resp httputil.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, httputil.CodeUserNotFound, resp.Code)
	})
}
