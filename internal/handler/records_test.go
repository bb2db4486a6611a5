package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/surtidora/api/internal/apperr"
	"github.com/surtidora/api/internal/audit"
	"github.com/surtidora/api/internal/enum"
	"github.com/surtidora/api/internal/lifecycle"
)

// --- Mock record service ---

type mockRecordService struct {
	GetFn          func(id uuid.UUID) (lifecycle.Record, error)
	ListFn         func(trash bool) []lifecycle.Record
	HistoryFn      func(id uuid.UUID) []audit.Entry
	CreateFn       func(ctx context.Context, actor lifecycle.Actor, req lifecycle.CreateRequest) (lifecycle.Record, error)
	EditFn         func(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, changes map[string]any) (lifecycle.Record, error)
	ChangeStatusFn func(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, status string) (lifecycle.Record, error)
	SoftDeleteFn   func(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, reason string) (lifecycle.Record, error)
	RestoreFn      func(ctx context.Context, actor lifecycle.Actor, id uuid.UUID) (lifecycle.Record, error)
	AssignFn       func(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, assignee string) (lifecycle.Record, error)
	SendMessageFn  func(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, message string) (audit.Entry, error)
}

func (m *mockRecordService) Get(id uuid.UUID) (lifecycle.Record, error) {
	if m.GetFn != nil {
		return m.GetFn(id)
	}
	return lifecycle.Record{}, lifecycle.ErrRecordNotFound
}

func (m *mockRecordService) List(trash bool) []lifecycle.Record {
	if m.ListFn != nil {
		return m.ListFn(trash)
	}
	return []lifecycle.Record{}
}

func (m *mockRecordService) History(id uuid.UUID) []audit.Entry {
	if m.HistoryFn != nil {
		return m.HistoryFn(id)
	}
	return []audit.Entry{}
}

func (m *mockRecordService) Create(ctx context.Context, actor lifecycle.Actor, req lifecycle.CreateRequest) (lifecycle.Record, error) {
	return m.CreateFn(ctx, actor, req)
}

func (m *mockRecordService) Edit(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, changes map[string]any) (lifecycle.Record, error) {
	return m.EditFn(ctx, actor, id, changes)
}

func (m *mockRecordService) ChangeStatus(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, status string) (lifecycle.Record, error) {
	return m.ChangeStatusFn(ctx, actor, id, status)
}

func (m *mockRecordService) SoftDelete(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, reason string) (lifecycle.Record, error) {
	return m.SoftDeleteFn(ctx, actor, id, reason)
}

func (m *mockRecordService) Restore(ctx context.Context, actor lifecycle.Actor, id uuid.UUID) (lifecycle.Record, error) {
	return m.RestoreFn(ctx, actor, id)
}

func (m *mockRecordService) Assign(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, assignee string) (lifecycle.Record, error) {
	return m.AssignFn(ctx, actor, id, assignee)
}

func (m *mockRecordService) SendMessage(ctx context.Context, actor lifecycle.Actor, id uuid.UUID, message string) (audit.Entry, error) {
	return m.SendMessageFn(ctx, actor, id, message)
}

// --- Access tests ---

func TestRecords_NonAdminRedirectedHome(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		email    string
		redirect string
	}{
		{retailEmail, "/tienda"},
		{wholesaleEmail, "/mayorista"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/admin/orders", tt.email, nil)
			expectStatus(t, rr, http.StatusForbidden)
			if resp := decodeMap(t, rr); resp["redirect"] != tt.redirect {
				t.Errorf("redirect: got %v, want %s", resp["redirect"], tt.redirect)
			}
		})
	}
}

func TestRecords_UnknownKind(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/admin/invoices", adminEmail, nil)
	expectStatus(t, rr, http.StatusNotFound)
}

func TestRecords_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/admin/orders/not-a-uuid", adminEmail, nil)
	expectStatus(t, rr, http.StatusBadRequest)
}

// --- List / Get tests ---

func TestRecords_ListPassesTrashFlag(t *testing.T) {
	env := newTestEnv(t)

	var gotTrash bool
	env.records["deliveries"].ListFn = func(trash bool) []lifecycle.Record {
		gotTrash = trash
		return []lifecycle.Record{{ID: uuid.New(), Kind: enum.KindDelivery, Status: enum.DeliveryStatusPending, Deleted: true}}
	}

	rr := env.do(t, http.MethodGet, "/admin/deliveries?trash=true", adminEmail, nil)
	expectStatus(t, rr, http.StatusOK)

	if !gotTrash {
		t.Error("expected trash=true to reach the service")
	}
	list := decodeList(t, rr)
	if len(list) != 1 || list[0]["is_deleted"] != true {
		t.Errorf("unexpected list: %v", list)
	}
}

func TestRecords_GetNotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/admin/orders/"+uuid.New().String(), adminEmail, nil)
	expectStatus(t, rr, http.StatusNotFound)
}

// --- Mutation tests ---

func TestRecords_CreateUsesAdminActor(t *testing.T) {
	env := newTestEnv(t)

	var gotActor lifecycle.Actor
	var gotReq lifecycle.CreateRequest
	env.records["production"].CreateFn = func(_ context.Context, actor lifecycle.Actor, req lifecycle.CreateRequest) (lifecycle.Record, error) {
		gotActor, gotReq = actor, req
		return lifecycle.Record{ID: uuid.New(), Kind: enum.KindProduction, Status: enum.ProductionStatusPlanned, Fields: req.Fields}, nil
	}

	deadline := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	rr := env.do(t, http.MethodPost, "/admin/production", adminEmail, map[string]interface{}{
		"fields":   map[string]interface{}{"product": "Pan de molde", "quantity": 40},
		"deadline": deadline,
	})
	expectStatus(t, rr, http.StatusCreated)

	if gotActor.Email != adminEmail || !gotActor.Admin {
		t.Errorf("actor: got %+v", gotActor)
	}
	if gotReq.Deadline == nil || !gotReq.Deadline.Equal(deadline) {
		t.Errorf("deadline: got %v, want %v", gotReq.Deadline, deadline)
	}
	if resp := decodeMap(t, rr); resp["status"] != enum.ProductionStatusPlanned {
		t.Errorf("status: got %v", resp["status"])
	}
}

func TestRecords_EditRequiresFields(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPatch, "/admin/orders/"+uuid.New().String(), adminEmail, map[string]interface{}{})
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestRecords_EditPassesNullRemovals(t *testing.T) {
	env := newTestEnv(t)

	var gotChanges map[string]any
	env.records["orders"].EditFn = func(_ context.Context, _ lifecycle.Actor, id uuid.UUID, changes map[string]any) (lifecycle.Record, error) {
		gotChanges = changes
		return lifecycle.Record{ID: id, Kind: enum.KindOrder, Status: enum.OrderStatusPending}, nil
	}

	rr := env.do(t, http.MethodPatch, "/admin/orders/"+uuid.New().String(), adminEmail, `{"fields":{"notes":null,"address":"Jr. Lima 45"}}`)
	expectStatus(t, rr, http.StatusOK)

	if v, ok := gotChanges["notes"]; !ok || v != nil {
		t.Errorf("notes: got %v (present=%v), want explicit nil", v, ok)
	}
	if gotChanges["address"] != "Jr. Lima 45" {
		t.Errorf("address: got %v", gotChanges["address"])
	}
}

func TestRecords_ChangeStatusErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid status", lifecycle.ErrInvalidStatus, http.StatusBadRequest},
		{"unchanged", lifecycle.ErrStatusUnchanged, http.StatusBadRequest},
		{"not allowed", lifecycle.ErrTransitionNotAllowed, http.StatusConflict},
		{"not found", lifecycle.ErrRecordNotFound, http.StatusNotFound},
		{"storage down", apperr.Persistence("commit", errors.New("conn reset")), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.records["orders"].ChangeStatusFn = func(context.Context, lifecycle.Actor, uuid.UUID, string) (lifecycle.Record, error) {
				return lifecycle.Record{}, tt.err
			}

			rr := env.do(t, http.MethodPatch, "/admin/orders/"+uuid.New().String()+"/status", adminEmail, map[string]string{"status": "listo"})
			expectStatus(t, rr, tt.want)
		})
	}
}

func TestRecords_ChangeStatusRequiresStatus(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPatch, "/admin/orders/"+uuid.New().String()+"/status", adminEmail, map[string]string{})
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestRecords_SoftDeleteEmptyReason(t *testing.T) {
	env := newTestEnv(t)

	var gotReason = "unset"
	env.records["orders"].SoftDeleteFn = func(_ context.Context, _ lifecycle.Actor, _ uuid.UUID, reason string) (lifecycle.Record, error) {
		gotReason = reason
		return lifecycle.Record{}, lifecycle.ErrReasonRequired
	}

	// no body at all reaches the service with an empty reason
	rr := env.do(t, http.MethodDelete, "/admin/orders/"+uuid.New().String(), adminEmail, nil)
	expectStatus(t, rr, http.StatusBadRequest)

	if gotReason != "" {
		t.Errorf("reason: got %q, want empty", gotReason)
	}
}

func TestRecords_SoftDeleteAndRestore(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()

	env.records["orders"].SoftDeleteFn = func(_ context.Context, _ lifecycle.Actor, id uuid.UUID, reason string) (lifecycle.Record, error) {
		return lifecycle.Record{ID: id, Kind: enum.KindOrder, Status: enum.OrderStatusPending, Deleted: true, DeleteReason: reason}, nil
	}
	env.records["orders"].RestoreFn = func(_ context.Context, _ lifecycle.Actor, id uuid.UUID) (lifecycle.Record, error) {
		return lifecycle.Record{ID: id, Kind: enum.KindOrder, Status: enum.OrderStatusPending}, nil
	}

	rr := env.do(t, http.MethodDelete, "/admin/orders/"+id.String(), adminEmail, map[string]string{"reason": "pedido duplicado"})
	expectStatus(t, rr, http.StatusOK)
	resp := decodeMap(t, rr)
	if resp["is_deleted"] != true || resp["delete_reason"] != "pedido duplicado" {
		t.Errorf("unexpected delete response: %v", resp)
	}

	rr = env.do(t, http.MethodPost, "/admin/orders/"+id.String()+"/restore", adminEmail, nil)
	expectStatus(t, rr, http.StatusOK)
	if resp := decodeMap(t, rr); resp["is_deleted"] != false {
		t.Errorf("is_deleted after restore: got %v", resp["is_deleted"])
	}
}

func TestRecords_RestoreNotInTrash(t *testing.T) {
	env := newTestEnv(t)
	env.records["orders"].RestoreFn = func(context.Context, lifecycle.Actor, uuid.UUID) (lifecycle.Record, error) {
		return lifecycle.Record{}, lifecycle.ErrNotInTrash
	}

	rr := env.do(t, http.MethodPost, "/admin/orders/"+uuid.New().String()+"/restore", adminEmail, nil)
	expectStatus(t, rr, http.StatusNotFound)
}

func TestRecords_DeleteTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.records["orders"].SoftDeleteFn = func(context.Context, lifecycle.Actor, uuid.UUID, string) (lifecycle.Record, error) {
		return lifecycle.Record{}, lifecycle.ErrAlreadyDeleted
	}

	rr := env.do(t, http.MethodDelete, "/admin/orders/"+uuid.New().String(), adminEmail, map[string]string{"reason": "x"})
	expectStatus(t, rr, http.StatusConflict)
}

func TestRecords_Assign(t *testing.T) {
	env := newTestEnv(t)

	var gotAssignee = "unset"
	env.records["deliveries"].AssignFn = func(_ context.Context, _ lifecycle.Actor, id uuid.UUID, assignee string) (lifecycle.Record, error) {
		gotAssignee = assignee
		return lifecycle.Record{ID: id, Kind: enum.KindDelivery, Status: enum.DeliveryStatusAssigned, AssignedTo: assignee}, nil
	}

	rr := env.do(t, http.MethodPost, "/admin/deliveries/"+uuid.New().String()+"/assign", adminEmail, map[string]string{"assigned_to": "repartidor@surtidora.pe"})
	expectStatus(t, rr, http.StatusOK)
	if gotAssignee != "repartidor@surtidora.pe" {
		t.Errorf("assignee: got %q", gotAssignee)
	}
}

func TestRecords_SendMessage(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()

	env.records["orders"].SendMessageFn = func(_ context.Context, actor lifecycle.Actor, id uuid.UUID, message string) (audit.Entry, error) {
		return audit.NewEntry(id, enum.KindOrder, enum.ActionSendMessage, actor.Email, message, nil, nil), nil
	}

	rr := env.do(t, http.MethodPost, "/admin/orders/"+id.String()+"/messages", adminEmail, map[string]string{"message": "El cliente llamó"})
	expectStatus(t, rr, http.StatusCreated)

	resp := decodeMap(t, rr)
	if resp["action"] != enum.ActionSendMessage {
		t.Errorf("action: got %v", resp["action"])
	}
	if resp["performed_by"] != adminEmail {
		t.Errorf("performed_by: got %v", resp["performed_by"])
	}

	rr = env.do(t, http.MethodPost, "/admin/orders/"+id.String()+"/messages", adminEmail, map[string]string{"message": ""})
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestRecords_History(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.New()

	env.records["orders"].HistoryFn = func(got uuid.UUID) []audit.Entry {
		if got != id {
			return nil
		}
		return []audit.Entry{
			audit.NewEntry(id, enum.KindOrder, enum.ActionStatusChange, adminEmail, "pendiente -> en_preparacion", enum.OrderStatusPending, enum.OrderStatusPreparing),
			audit.NewEntry(id, enum.KindOrder, enum.ActionCreate, retailEmail, "created", nil, nil),
		}
	}

	rr := env.do(t, http.MethodGet, "/admin/orders/"+id.String()+"/history", adminEmail, nil)
	expectStatus(t, rr, http.StatusOK)

	list := decodeList(t, rr)
	if len(list) != 2 {
		t.Fatalf("history: got %d entries, want 2", len(list))
	}
	if list[0]["action"] != enum.ActionStatusChange {
		t.Errorf("first entry: got %v, want %s", list[0]["action"], enum.ActionStatusChange)
	}
}
