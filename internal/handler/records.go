package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/surtidora/api/internal/audit"
	"github.com/surtidora/api/internal/enum"
	"github.com/surtidora/api/internal/lifecycle"
	"github.com/surtidora/api/internal/middleware"
)

// RecordService defines the lifecycle operations exposed to admins.
// Satisfied by *lifecycle.Service; one per record kind.
type RecordService interface {
	Get(id uuid.UUID) (lifecycle.Record, error)
	List(trash bool) []lifecycle.Record
	History(id uuid.UUID) []audit.Entry
	Create(ctx context.Context, actor lifecycle.Actor, req lifecycle.CreateRequest) (lifecycle.Record, error)
	Edit(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, changes map[string]any) (lifecycle.Record, error)
	ChangeStatus(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, status string) (lifecycle.Record, error)
	SoftDelete(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, reason string) (lifecycle.Record, error)
	Restore(ctx context.Context, actor lifecycle.Actor, id uuid.UUID) (lifecycle.Record, error)
	Assign(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, assignee string) (lifecycle.Record, error)
	SendMessage(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, message string) (audit.Entry, error)
}

// RecordHandler serves the admin panels for orders, deliveries and
// production. The {kind} URL segment selects the service.
type RecordHandler struct {
	services map[string]RecordService
}

// NewRecordHandler creates a new RecordHandler. services is keyed by kind
// name ("orders", "deliveries", "production").
func NewRecordHandler(services map[string]RecordService) *RecordHandler {
	return &RecordHandler{services: services}
}

// RegisterRoutes registers record endpoints on the given Chi router.
// Expected to be mounted at /admin behind the admin route class.
func (h *RecordHandler) RegisterRoutes(r chi.Router) {
	r.Route("/{kind}", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Edit)
		r.Delete("/{id}", h.SoftDelete)
		r.Patch("/{id}/status", h.ChangeStatus)
		r.Post("/{id}/restore", h.Restore)
		r.Post("/{id}/assign", h.Assign)
		r.Post("/{id}/messages", h.SendMessage)
		r.Get("/{id}/history", h.History)
	})
}

// --- Request types ---

type createRecordRequest struct {
	Status     string         `json:"status"`
	Fields     map[string]any `json:"fields"`
	AssignedTo string         `json:"assigned_to"`
	Deadline   *time.Time     `json:"deadline"`
}

type editRecordRequest struct {
	Fields map[string]any `json:"fields" validate:"required"`
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type deleteRecordRequest struct {
	Reason string `json:"reason"`
}

type assignRecordRequest struct {
	AssignedTo string `json:"assigned_to"`
}

type sendMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// --- Helpers ---

func (h *RecordHandler) service(w http.ResponseWriter, r *http.Request) (RecordService, bool) {
	svc, ok := h.services[chi.URLParam(r, "kind")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown record kind"})
		return nil, false
	}
	return svc, true
}

func recordIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid record ID"})
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom builds the acting user from the request context. Routes are
// guarded by the admin route class, so the profile decides the admin flag.
func actorFrom(r *http.Request) lifecycle.Actor {
	actor := lifecycle.Actor{Admin: middleware.ProfileFromContext(r.Context()) == enum.ProfileAdmin}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		actor.Email = claims.Email
	}
	return actor
}

// --- Handlers ---

// List handles GET /admin/{kind}?trash=true|false.
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	trash := r.URL.Query().Get("trash") == "true"
	writeJSON(w, http.StatusOK, svc.List(trash))
}

// Get handles GET /admin/{kind}/{id}.
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}

	rec, err := svc.Get(id)
	if err != nil {
		writeError(w, "get record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Create handles POST /admin/{kind}.
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	var req createRecordRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, "create record", err)
		return
	}

	rec, err := svc.Create(r.Context(), actorFrom(r), lifecycle.CreateRequest{
		Status:     req.Status,
		Fields:     req.Fields,
		AssignedTo: req.AssignedTo,
		Deadline:   req.Deadline,
	})
	if err != nil {
		writeError(w, "create record", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Edit handles PATCH /admin/{kind}/{id}. A null field value removes the field.
func (h *RecordHandler) Edit(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	var req editRecordRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, "edit record", err)
		return
	}

	rec, err := svc.Edit(r.Context(), actorFrom(r), id, req.Fields)
	if err != nil {
		writeError(w, "edit record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ChangeStatus handles PATCH /admin/{kind}/{id}/status.
func (h *RecordHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, "change status", err)
		return
	}

	rec, err := svc.ChangeStatus(r.Context(), actorFrom(r), id, req.Status)
	if err != nil {
		writeError(w, "change status", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// SoftDelete handles DELETE /admin/{kind}/{id} with body {"reason": "..."}.
func (h *RecordHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	var req deleteRecordRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, "delete record", err)
		return
	}

	rec, err := svc.SoftDelete(r.Context(), actorFrom(r), id, req.Reason)
	if err != nil {
		writeError(w, "delete record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Restore handles POST /admin/{kind}/{id}/restore.
func (h *RecordHandler) Restore(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}

	rec, err := svc.Restore(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, "restore record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Assign handles POST /admin/{kind}/{id}/assign. An empty assignee clears
// the assignment.
func (h *RecordHandler) Assign(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	var req assignRecordRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, "assign record", err)
		return
	}

	rec, err := svc.Assign(r.Context(), actorFrom(r), id, req.AssignedTo)
	if err != nil {
		writeError(w, "assign record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// SendMessage handles POST /admin/{kind}/{id}/messages.
func (h *RecordHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, "send message", err)
		return
	}

	entry, err := svc.SendMessage(r.Context(), actorFrom(r), id, req.Message)
	if err != nil {
		writeError(w, "send message", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// History handles GET /admin/{kind}/{id}/history, newest entry first.
func (h *RecordHandler) History(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, svc.History(id))
}
