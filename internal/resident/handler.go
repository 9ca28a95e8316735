package resident

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/grpprotocol/pkg/middleware"
	"github.com/fkhayef/grpprotocol/pkg/response"
)

const maxUploadSize = 10 << 20

// Handler handles HTTP requests for resident operations
type Handler struct {
	service *Service
}

// NewHandler creates a new resident handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for resident endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/picture", h.GetPicture)
	r.Put("/{id}/picture", h.UploadPicture)

	return r
}

func (h *Handler) toResponse(r *http.Request, res *Resident) *ResidentResponse {
	resp := res.ToResponse()
	resp.PictureURL = h.service.PictureURL(r.Context(), res)
	return resp
}

// Create handles POST /residents
// @Summary      Create a resident
// @Tags         residents
// @Accept       json
// @Produce      json
// @Param        request body CreateResidentRequest true "Resident"
// @Success      201 {object} response.APIResponse{data=ResidentResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /residents [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	var req CreateResidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	res, err := h.service.Create(r.Context(), p, &req)
	if err != nil {
		response.FromError(w, err, "Failed to create resident")
		return
	}

	response.JSON(w, http.StatusCreated, h.toResponse(r, res))
}

// List handles GET /residents
// @Summary      List residents
// @Tags         residents
// @Produce      json
// @Param        active query bool false "Only residents without moved_out"
// @Param        group_id query int false "Restrict to one group"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ResidentResponse}
// @Router       /residents [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	q := r.URL.Query()

	var f Filter
	f.ActiveOnly, _ = strconv.ParseBool(q.Get("active"))
	if v := q.Get("group_id"); v != "" {
		groupID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(w, "Invalid group ID")
			return
		}
		f.GroupID = &groupID
	}

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	residents, total, err := h.service.List(r.Context(), p, f, page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list residents")
		return
	}

	residentResponses := make([]*ResidentResponse, len(residents))
	for i, res := range residents {
		residentResponses[i] = h.toResponse(r, res)
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, residentResponses, meta)
}

// GetByID handles GET /residents/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid resident ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	res, err := h.service.GetByID(r.Context(), p, id)
	if err != nil {
		response.FromError(w, err, "Failed to get resident")
		return
	}

	response.JSON(w, http.StatusOK, h.toResponse(r, res))
}

// Update handles PUT /residents/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid resident ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	var req UpdateResidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	res, err := h.service.Update(r.Context(), p, id, &req)
	if err != nil {
		response.FromError(w, err, "Failed to update resident")
		return
	}

	response.JSON(w, http.StatusOK, h.toResponse(r, res))
}

// Delete handles DELETE /residents/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid resident ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	if err := h.service.Delete(r.Context(), p, id); err != nil {
		response.FromError(w, err, "Failed to delete resident")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Resident deleted successfully"})
}

// UploadPicture handles PUT /residents/{id}/picture
// @Summary      Upload resident picture
// @Description  Multipart upload (field "file"); .jpg, .jpeg, .png or .gif
// @Tags         residents
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path int true "Resident ID"
// @Param        file formData file true "Picture"
// @Success      200 {object} response.APIResponse{data=ResidentResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /residents/{id}/picture [put]
func (h *Handler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid resident ID")
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

	res, err := h.service.UploadPicture(r.Context(), p, id, header.Filename, file)
	if err != nil {
		response.FromError(w, err, "Failed to upload picture")
		return
	}

	response.JSON(w, http.StatusOK, h.toResponse(r, res))
}

// GetPicture handles GET /residents/{id}/picture
func (h *Handler) GetPicture(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid resident ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	data, contentType, err := h.service.Picture(r.Context(), p, id)
	if err != nil {
		response.FromError(w, err, "Failed to get picture")
		return
	}

	response.File(w, contentType, "bewohner_"+strconv.FormatInt(id, 10), data)
}
