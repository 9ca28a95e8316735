package protocol

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/grpprotocol/internal/export"
	"github.com/fkhayef/grpprotocol/pkg/middleware"
	"github.com/fkhayef/grpprotocol/pkg/response"
)

const maxUploadSize = 20 << 20

// Handler handles HTTP requests for protocol operations
type Handler struct {
	service *Service
}

// NewHandler creates a new protocol handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for protocol endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	r.Put("/{id}/items", h.UpsertItem)
	r.Delete("/{id}/items/{itemId}", h.DeleteItem)

	r.Get("/{id}/todos", h.ListTodos)
	r.Post("/{id}/todos", h.CreateTodo)
	r.Put("/{id}/todos/{todoId}", h.UpdateTodo)
	r.Delete("/{id}/todos/{todoId}", h.DeleteTodo)
	r.Get("/{id}/todos.xlsx", h.TodoWorkbook)

	r.Get("/{id}/presence", h.ListPresences)
	r.Put("/{id}/presence", h.UpdatePresence)

	r.Get("/{id}/mentions", h.Mentions)
	r.Get("/{id}/pdf", h.Preview)
	r.Post("/{id}/export", h.Export)
	r.Get("/{id}/exported-file", h.GetExportedFile)
	r.Put("/{id}/exported-file", h.UploadExportedFile)

	return r
}

func (h *Handler) toResponse(r *http.Request, p *Protocol) *ProtocolResponse {
	resp := p.ToResponse()
	resp.ExportedFileURL = h.service.ExportedFileURL(r.Context(), p)
	return resp
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

// Create handles POST /protocols
// @Summary      Create a protocol
// @Description  Creates a draft protocol and one presence row per current group member
// @Tags         protocols
// @Accept       json
// @Produce      json
// @Param        request body CreateProtocolRequest true "Protocol"
// @Success      201 {object} response.APIResponse{data=ProtocolResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /protocols [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	var req CreateProtocolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	protocol, err := h.service.Create(r.Context(), p, &req)
	if err != nil {
		response.FromError(w, err, "Failed to create protocol")
		return
	}

	response.JSON(w, http.StatusCreated, h.toResponse(r, protocol))
}

// List handles GET /protocols
// @Summary      List protocols
// @Description  Staff see all protocols, everybody else those of their groups
// @Tags         protocols
// @Produce      json
// @Param        group_id query int false "Filter by group"
// @Param        status query string false "Filter by status" Enums(draft, ready, exported)
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ProtocolResponse}
// @Router       /protocols [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	q := r.URL.Query()

	var f Filter
	if v := q.Get("group_id"); v != "" {
		groupID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(w, "Invalid group ID")
			return
		}
		f.GroupID = &groupID
	}
	if v := q.Get("status"); v != "" {
		status := Status(v)
		f.Status = &status
	}

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	protocols, total, err := h.service.List(r.Context(), p, f, page, perPage)
	if err != nil {
		response.FromError(w, err, "Failed to list protocols")
		return
	}

	protocolResponses := make([]*ProtocolResponse, len(protocols))
	for i, protocol := range protocols {
		protocolResponses[i] = h.toResponse(r, protocol)
	}

	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}

	response.JSONWithMeta(w, http.StatusOK, protocolResponses, meta)
}

// GetByID handles GET /protocols/{id}
// @Summary      Get protocol
// @Description  Returns the protocol with its items in position order
// @Tags         protocols
// @Produce      json
// @Param        id path int true "Protocol ID"
// @Success      200 {object} response.APIResponse{data=ProtocolResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /protocols/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	protocol, err := h.service.GetByID(r.Context(), p, id)
	if err != nil {
		response.FromError(w, err, "Failed to get protocol")
		return
	}

	response.JSON(w, http.StatusOK, h.toResponse(r, protocol))
}

// Update handles PUT /protocols/{id}
// @Summary      Update protocol
// @Description  Changes the date or switches between draft and ready
// @Tags         protocols
// @Accept       json
// @Produce      json
// @Param        id path int true "Protocol ID"
// @Param        request body UpdateProtocolRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=ProtocolResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      423 {object} response.APIResponse
// @Router       /protocols/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	var req UpdateProtocolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	protocol, err := h.service.Update(r.Context(), p, id, &req)
	if err != nil {
		response.FromError(w, err, "Failed to update protocol")
		return
	}

	response.JSON(w, http.StatusOK, h.toResponse(r, protocol))
}

// Delete handles DELETE /protocols/{id}
// @Summary      Delete protocol
// @Tags         protocols
// @Param        id path int true "Protocol ID"
// @Success      200 {object} response.APIResponse
// @Failure      423 {object} response.APIResponse
// @Router       /protocols/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	if err := h.service.Delete(r.Context(), p, id); err != nil {
		response.FromError(w, err, "Failed to delete protocol")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Protokoll gelöscht."})
}

// UpsertItem handles PUT /protocols/{id}/items
// @Summary      Create or update an item
// @Description  Updates the item with the given id if it belongs to the protocol, creates a new one otherwise
// @Tags         items
// @Accept       json
// @Produce      json
// @Param        id path int true "Protocol ID"
// @Param        request body UpsertItemRequest true "Item"
// @Success      200 {object} response.APIResponse{data=UpsertItemResponse}
// @Success      201 {object} response.APIResponse{data=UpsertItemResponse}
// @Failure      423 {object} response.APIResponse
// @Router       /protocols/{id}/items [put]
func (h *Handler) UpsertItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	var req UpsertItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	item, created, err := h.service.UpsertItem(r.Context(), p, id, &req)
	if err != nil {
		response.FromError(w, err, "Failed to save item")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(w, status, &UpsertItemResponse{Item: item.ToResponse(), Created: created})
}

// DeleteItem handles DELETE /protocols/{id}/items/{itemId}
// @Summary      Delete an item
// @Tags         items
// @Param        id path int true "Protocol ID"
// @Param        itemId path int true "Item ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      423 {object} response.APIResponse
// @Router       /protocols/{id}/items/{itemId} [delete]
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	itemID, ok := pathID(r, "itemId")
	if !ok {
		response.BadRequest(w, "Invalid item ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	if err := h.service.DeleteItem(r.Context(), p, id, itemID); err != nil {
		response.FromError(w, err, "Failed to delete item")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Protokollpunkt gelöscht."})
}

// ListTodos handles GET /protocols/{id}/todos
// @Summary      List to-dos
// @Tags         todos
// @Produce      json
// @Param        id path int true "Protocol ID"
// @Success      200 {object} response.APIResponse{data=[]Todo}
// @Router       /protocols/{id}/todos [get]
func (h *Handler) ListTodos(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	todos, err := h.service.Todos(r.Context(), p, id)
	if err != nil {
		response.FromError(w, err, "Failed to list todos")
		return
	}

	response.JSON(w, http.StatusOK, todos)
}

// CreateTodo handles POST /protocols/{id}/todos
// @Summary      Create a to-do
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        id path int true "Protocol ID"
// @Param        request body CreateTodoRequest true "To-do"
// @Success      201 {object} response.APIResponse{data=Todo}
// @Failure      423 {object} response.APIResponse
// @Router       /protocols/{id}/todos [post]
func (h *Handler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	var req CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	todo, err := h.service.CreateTodo(r.Context(), p, id, &req)
	if err != nil {
		response.FromError(w, err, "Failed to create todo")
		return
	}

	response.JSON(w, http.StatusCreated, todo)
}

// UpdateTodo handles PUT /protocols/{id}/todos/{todoId}
// @Summary      Update a to-do
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        id path int true "Protocol ID"
// @Param        todoId path int true "To-do ID"
// @Param        request body UpdateTodoRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=Todo}
// @Failure      423 {object} response.APIResponse
// @Router       /protocols/{id}/todos/{todoId} [put]
func (h *Handler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	todoID, ok := pathID(r, "todoId")
	if !ok {
		response.BadRequest(w, "Invalid todo ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	var req UpdateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	todo, err := h.service.UpdateTodo(r.Context(), p, id, todoID, &req)
	if err != nil {
		response.FromError(w, err, "Failed to update todo")
		return
	}

	response.JSON(w, http.StatusOK, todo)
}

// DeleteTodo handles DELETE /protocols/{id}/todos/{todoId}
// @Summary      Delete a to-do
// @Tags         todos
// @Param        id path int true "Protocol ID"
// @Param        todoId path int true "To-do ID"
// @Success      200 {object} response.APIResponse
// @Failure      423 {object} response.APIResponse
// @Router       /protocols/{id}/todos/{todoId} [delete]
func (h *Handler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	todoID, ok := pathID(r, "todoId")
	if !ok {
		response.BadRequest(w, "Invalid todo ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	if err := h.service.DeleteTodo(r.Context(), p, id, todoID); err != nil {
		response.FromError(w, err, "Failed to delete todo")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Aufgabe gelöscht."})
}

// TodoWorkbook handles GET /protocols/{id}/todos.xlsx
// @Summary      Download to-dos as spreadsheet
// @Tags         todos
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id path int true "Protocol ID"
// @Success      200 {file} binary
// @Router       /protocols/{id}/todos.xlsx [get]
func (h *Handler) TodoWorkbook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	data, filename, err := h.service.TodoWorkbook(r.Context(), p, id)
	if err != nil {
		response.FromError(w, err, "Failed to export todos")
		return
	}

	response.File(w, export.ContentTypeXLSX, filename, data)
}

// ListPresences handles GET /protocols/{id}/presence
// @Summary      List attendance
// @Tags         presence
// @Produce      json
// @Param        id path int true "Protocol ID"
// @Success      200 {object} response.APIResponse{data=[]PresenceResponse}
// @Router       /protocols/{id}/presence [get]
func (h *Handler) ListPresences(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	presences, err := h.service.Presences(r.Context(), p, id)
	if err != nil {
		response.FromError(w, err, "Failed to list presence")
		return
	}

	presenceResponses := make([]*PresenceResponse, len(presences))
	for i, pr := range presences {
		presenceResponses[i] = pr.ToResponse()
	}

	response.JSON(w, http.StatusOK, presenceResponses)
}

// UpdatePresence handles PUT /protocols/{id}/presence
// @Summary      Set attendance of one member
// @Tags         presence
// @Accept       json
// @Produce      json
// @Param        id path int true "Protocol ID"
// @Param        request body UpdatePresenceRequest true "Presence"
// @Success      200 {object} response.APIResponse{data=UpsertPresenceResponse}
// @Success      201 {object} response.APIResponse{data=UpsertPresenceResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      423 {object} response.APIResponse
// @Router       /protocols/{id}/presence [put]
func (h *Handler) UpdatePresence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	var req UpdatePresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	presence, created, err := h.service.UpdatePresence(r.Context(), p, id, &req)
	if err != nil {
		response.FromError(w, err, "Failed to update presence")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(w, status, &UpsertPresenceResponse{Presence: presence.ToResponse(), Created: created})
}

// Mentions handles GET /protocols/{id}/mentions
// @Summary      Mention suggestions
// @Description  Active residents of the protocol's group, tokens as First_Last
// @Tags         protocols
// @Produce      json
// @Param        id path int true "Protocol ID"
// @Success      200 {object} response.APIResponse{data=[]Suggestion}
// @Router       /protocols/{id}/mentions [get]
func (h *Handler) Mentions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	suggestions, err := h.service.Mentions(r.Context(), p, id)
	if err != nil {
		response.FromError(w, err, "Failed to list mentions")
		return
	}

	response.JSON(w, http.StatusOK, suggestions)
}

// Preview handles GET /protocols/{id}/pdf
// @Summary      Preview protocol PDF
// @Description  Renders the PDF without storing it or locking the protocol
// @Tags         export
// @Produce      application/pdf
// @Param        id path int true "Protocol ID"
// @Success      200 {file} binary
// @Router       /protocols/{id}/pdf [get]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	data, filename, err := h.service.Preview(r.Context(), p, id)
	if err != nil {
		response.FromError(w, err, "Failed to render protocol")
		return
	}

	response.File(w, export.ContentTypePDF, filename, data)
}

// Export handles POST /protocols/{id}/export
// @Summary      Export protocol
// @Description  Renders and stores the PDF, then locks the protocol
// @Tags         export
// @Produce      application/pdf
// @Param        id path int true "Protocol ID"
// @Success      200 {file} binary
// @Failure      500 {object} response.APIResponse
// @Router       /protocols/{id}/export [post]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	protocol, data, err := h.service.Export(r.Context(), p, id)
	if err != nil {
		response.FromError(w, err, "Failed to export protocol")
		return
	}

	response.File(w, export.ContentTypePDF, export.Filename(protocol.ProtocolDate), data)
}

// GetExportedFile handles GET /protocols/{id}/exported-file
// @Summary      Download exported PDF
// @Tags         export
// @Produce      application/pdf
// @Param        id path int true "Protocol ID"
// @Success      200 {file} binary
// @Failure      404 {object} response.APIResponse
// @Router       /protocols/{id}/exported-file [get]
func (h *Handler) GetExportedFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
		return
	}
	p, _ := middleware.GetPrincipal(r.Context())

	data, filename, err := h.service.ExportedFile(r.Context(), p, id)
	if err != nil {
		response.FromError(w, err, "Failed to get exported file")
		return
	}

	response.File(w, export.ContentTypePDF, filename, data)
}

// UploadExportedFile handles PUT /protocols/{id}/exported-file
// @Summary      Upload or replace the exported PDF
// @Description  Multipart field "file"; locks the protocol
// @Tags         export
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path int true "Protocol ID"
// @Param        file formData file true "PDF"
// @Success      200 {object} response.APIResponse{data=ProtocolResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /protocols/{id}/exported-file [put]
func (h *Handler) UploadExportedFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.BadRequest(w, "Invalid protocol ID")
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

	protocol, err := h.service.UploadExportedFile(r.Context(), p, id, header.Filename, file)
	if err != nil {
		response.FromError(w, err, "Failed to upload exported file")
		return
	}

	response.JSON(w, http.StatusOK, h.toResponse(r, protocol))
}
