package user

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marekholub/auth-api/internal/httputil"
	"github.com/marekholub/auth-api/internal/logging"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Store is the persistence surface the admin handlers need.
// *Repository satisfies it.
type Store interface {
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// Handler contains HTTP handlers for admin user management
type Handler struct {
	store  Store
	logger *logging.Logger
}

func NewHandler(store Store, logger *logging.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// ListResponse represents a page of users
type ListResponse struct {
	Users      []ListedUser `json:"users"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	TotalPages int          `json:"total_pages"`
}

// ListedUser is the admin-facing view of a user record
type ListedUser struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	IsVerified       bool      `json:"is_verified"`
	Role             Role      `json:"role"`
	ProfileImagePath *string   `json:"profile_image_path,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// List handles the paginated admin user listing
// @Summary      List users
// @Description  Return a page of user accounts. Admin only.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page number (1-based)"
// @Param        limit query int false "Page size"
// @Success      200 {object} ListResponse
// @Failure      401 {object} httputil.ErrorResponse "Missing or invalid token"
// @Failure      403 {object} httputil.ErrorResponse "Not an admin"
// @Router       /users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := (page - 1) * limit

	users, total, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		logger.Error("failed to list users", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to fetch users", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	listed := make([]ListedUser, 0, len(users))
	for _, u := range users {
		listed = append(listed, ListedUser{
			ID:               u.ID,
			Email:            u.Email,
			IsVerified:       u.IsVerified,
			Role:             u.Role,
			ProfileImagePath: u.ProfileImagePath,
			CreatedAt:        u.CreatedAt,
		})
	}

	totalPages := (total + limit - 1) / limit

	httputil.RespondJSON(w, ListResponse{
		Users:      listed,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}, http.StatusOK)
}

// Delete handles the admin user deletion
// @Summary      Delete a user
// @Description  Delete a user account by id. Admin only; an admin cannot delete their own account.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid id or self-delete"
// @Failure      403 {object} httputil.ErrorResponse "Not an admin"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /users/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid user id", httputil.CodeInvalidUserID, http.StatusBadRequest)
		return
	}

	// The role guard resolved the acting admin before this handler ran.
	actor, ok := FromContext(r.Context())
	if !ok {
		logger.Error("user delete reached without resolved actor")
		httputil.RespondErrorWithCode(w, "internal error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if actor.ID == targetID {
		logger.Warn("admin attempted self-delete", "user_id", actor.ID)
		httputil.RespondErrorWithCode(w, "you cannot delete yourself", httputil.CodeSelfDelete, http.StatusBadRequest)
		return
	}

	if err := h.store.Delete(r.Context(), targetID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete user", "target_id", targetID, "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user deleted", "target_id", targetID, "deleted_by", actor.ID)

	httputil.RespondJSON(w, map[string]string{"message": "user deleted successfully"}, http.StatusOK)
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
