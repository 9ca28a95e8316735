package permission

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/grpprotocol/pkg/response"
)

// Handler handles HTTP requests for permission grants
type Handler struct {
	service *Service
}

// NewHandler creates a new permission handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdmin adds the staff-only grant endpoints to r
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/users/{id}/permissions", h.List)
	r.Post("/users/{id}/permissions", h.Grant)
	r.Delete("/users/{id}/permissions/{permissionId}", h.Revoke)
}

// List handles GET /admin/users/{id}/permissions
// @Summary      List permission grants of a user
// @Tags         admin
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200 {object} response.APIResponse{data=[]Permission}
// @Router       /admin/users/{id}/permissions [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	permissions, err := h.service.List(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to list permissions")
		return
	}

	response.JSON(w, http.StatusOK, permissions)
}

// Grant handles POST /admin/users/{id}/permissions
// @Summary      Grant a permission
// @Description  Granting an existing permission again returns it with 200
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id path int true "User ID"
// @Param        request body GrantRequest true "Grant"
// @Success      200 {object} response.APIResponse{data=Permission}
// @Success      201 {object} response.APIResponse{data=Permission}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /admin/users/{id}/permissions [post]
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	p, created, err := h.service.Grant(r.Context(), userID, &req)
	if err != nil {
		response.FromError(w, err, "Failed to grant permission")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(w, status, p)
}

// Revoke handles DELETE /admin/users/{id}/permissions/{permissionId}
// @Summary      Revoke a permission
// @Tags         admin
// @Param        id path int true "User ID"
// @Param        permissionId path int true "Permission ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /admin/users/{id}/permissions/{permissionId} [delete]
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}
	permissionID, err := strconv.ParseInt(chi.URLParam(r, "permissionId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid permission ID")
		return
	}

	if err := h.service.Revoke(r.Context(), userID, permissionID); err != nil {
		response.FromError(w, err, "Failed to revoke permission")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Berechtigung entfernt."})
}
