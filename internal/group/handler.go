package group

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/grpprotocol/pkg/middleware"
	"github.com/fkhayef/grpprotocol/pkg/response"
)

const maxUploadSize = 10 << 20

// Handler handles HTTP requests for group operations
type Handler struct {
	service *Service
}

// NewHandler creates a new group handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for group endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Get("/{id}/pdf-template", h.GetTemplate)
	r.Put("/{id}/pdf-template", h.UploadTemplate)

	r.With(middleware.Require(middleware.Staff)).Post("/", h.Create)
	r.With(middleware.Require(middleware.Staff)).Delete("/{id}", h.Delete)

	return r
}

// RegisterAdmin adds the staff-only membership endpoints to r
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/users/{id}/groups", h.Memberships)
	r.Post("/users/{id}/groups", h.AddMember)
	r.Delete("/users/{id}/groups/{groupId}", h.RemoveMember)
}

func (h *Handler) toResponse(r *http.Request, g *Group) *GroupResponse {
	resp := g.ToResponse()
	resp.PDFTemplateURL = h.service.TemplateURL(r.Context(), g)
	return resp
}

// Create handles POST /groups
// @Summary      Create a new group
// @Description  Staff only
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body CreateGroupRequest true "Group creation request"
// @Success      201 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /groups [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	group, err := h.service.Create(r.Context(), &req)
	if err != nil {
		response.FromError(w, err, "Failed to create group")
		return
	}

	response.JSON(w, http.StatusCreated, h.toResponse(r, group))
}

// GetByID handles GET /groups/{id}
// @Summary      Get group by ID
// @Description  Get a group with all its members
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	group, members, err := h.service.GetByIDWithMembers(r.Context(), p, id)
	if err != nil {
		response.FromError(w, err, "Failed to get group")
		return
	}

	groupResp := h.toResponse(r, group)
	groupResp.Members = make([]*MemberResponse, len(members))
	for i, m := range members {
		groupResp.Members[i] = m.ToResponse()
	}

	response.JSON(w, http.StatusOK, groupResp)
}

// List handles GET /groups
// @Summary      List my groups
// @Description  Staff see all groups, everybody else the groups they belong to
// @Tags         groups
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]GroupResponse}
// @Router       /groups [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	groups, total, err := h.service.List(r.Context(), p, page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list groups")
		return
	}

	groupResponses := make([]*GroupResponse, len(groups))
	for i, group := range groups {
		groupResponses[i] = h.toResponse(r, group)
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, groupResponses, meta)
}

// Update handles PUT /groups/{id}
// @Summary      Update a group
// @Description  Partial update: omitted or null fields keep their value
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        request body UpdateGroupRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	var req UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	group, err := h.service.Update(r.Context(), p, id, &req)
	if err != nil {
		response.FromError(w, err, "Failed to update group")
		return
	}

	response.JSON(w, http.StatusOK, h.toResponse(r, group))
}

// Delete handles DELETE /groups/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		response.FromError(w, err, "Failed to delete group")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Group deleted successfully"})
}

// UploadTemplate handles PUT /groups/{id}/pdf-template
// @Summary      Upload letterhead
// @Description  Multipart upload (field "file") of a PDF used as background for page one of exports
// @Tags         groups
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        file formData file true "PDF template"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /groups/{id}/pdf-template [put]
func (h *Handler) UploadTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "Missing file upload")
		return
	}
	defer file.Close()

	group, err := h.service.UploadTemplate(r.Context(), p, id, header.Filename, file)
	if err != nil {
		response.FromError(w, err, "Failed to upload template")
		return
	}

	response.JSON(w, http.StatusOK, h.toResponse(r, group))
}

// GetTemplate handles GET /groups/{id}/pdf-template
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	data, err := h.service.Template(r.Context(), p, id)
	if err != nil {
		response.FromError(w, err, "Failed to get template")
		return
	}

	response.File(w, "application/pdf", "vorlage_"+strconv.FormatInt(id, 10)+".pdf", data)
}

// Memberships handles GET /admin/users/{id}/groups
func (h *Handler) Memberships(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	members, err := h.service.Memberships(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to get memberships")
		return
	}

	memberResponses := make([]*MemberResponse, len(members))
	for i, m := range members {
		memberResponses[i] = m.ToResponse()
	}

	response.JSON(w, http.StatusOK, memberResponses)
}

// AddMember handles POST /admin/users/{id}/groups
// @Summary      Add user to group
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id path int true "User ID"
// @Param        request body AddMemberRequest true "Group to join"
// @Success      201 {object} response.APIResponse{data=MemberResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /admin/users/{id}/groups [post]
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	member, err := h.service.AddMember(r.Context(), userID, req.GroupID)
	if err != nil {
		response.FromError(w, err, "Failed to add member")
		return
	}

	response.JSON(w, http.StatusCreated, member.ToResponse())
}

// RemoveMember handles DELETE /admin/users/{id}/groups/{groupId}
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	if err := h.service.RemoveMember(r.Context(), userID, groupID); err != nil {
		response.FromError(w, err, "Failed to remove member")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Member removed successfully"})
}
