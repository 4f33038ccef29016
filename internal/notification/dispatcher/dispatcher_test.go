package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"crmops_backend/internal/notification/inapp"

	"github.com/google/uuid"
)

type fakeStore struct {
	created []inapp.CreateParams
	err     error
}

func (f *fakeStore) Create(_ context.Context, p inapp.CreateParams) (inapp.Notification, error) {
	if f.err != nil {
		return inapp.Notification{}, f.err
	}
	f.created = append(f.created, p)
	return inapp.Notification{ID: uuid.New(), TenantID: p.TenantID, UserID: p.UserID, Title: p.Title}, nil
}

func (f *fakeStore) CreateBatch(_ context.Context, items []inapp.CreateParams) ([]inapp.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]inapp.Notification, 0, len(items))
	for _, p := range items {
		f.created = append(f.created, p)
		out = append(out, inapp.Notification{ID: uuid.New(), TenantID: p.TenantID, UserID: p.UserID, Title: p.Title})
	}
	return out, nil
}

func TestNotifyLeadCreatedSkipsUnassigned(t *testing.T) {
	store := &fakeStore{}
	d := New(store, nil)

	d.NotifyLeadCreated(context.Background(), Lead{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Name:     "Acme Corp",
	}, nil)

	if len(store.created) != 0 {
		t.Fatalf("expected no notifications for unassigned lead, got %d", len(store.created))
	}
}

func TestNotifyLeadCreatedTargetsAssignee(t *testing.T) {
	store := &fakeStore{}
	d := New(store, nil)

	assignee := uuid.New()
	tenantID := uuid.New()
	d.NotifyLeadCreated(context.Background(), Lead{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Name:       "Acme Corp",
		AssignedTo: &assignee,
	}, nil)

	if len(store.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(store.created))
	}
	got := store.created[0]
	if got.UserID != assignee {
		t.Errorf("recipient = %s, want assignee %s", got.UserID, assignee)
	}
	if got.TenantID != tenantID {
		t.Errorf("tenant = %s, want %s", got.TenantID, tenantID)
	}
	if got.Title != "New Lead Assigned" {
		t.Errorf("title = %q, want %q", got.Title, "New Lead Assigned")
	}
	if got.Type != "lead" || got.Priority != "medium" {
		t.Errorf("defaults not applied: type=%q priority=%q", got.Type, got.Priority)
	}
	if len(got.Channels) != 1 || got.Channels[0] != "in_app" {
		t.Errorf("channels = %v, want [in_app]", got.Channels)
	}
}

func TestNotifyLeadStatusChangedDedupesRecipients(t *testing.T) {
	store := &fakeStore{}
	d := New(store, nil)

	actor := uuid.New()
	d.NotifyLeadStatusChanged(context.Background(), Lead{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		Name:       "Acme Corp",
		AssignedTo: &actor,
	}, "new", "contacted", &actor)

	if len(store.created) != 1 {
		t.Fatalf("assignee == actor should collapse to 1 notification, got %d", len(store.created))
	}
}

func TestNotifyLeadStatusChangedNoOpWhenUnchanged(t *testing.T) {
	store := &fakeStore{}
	d := New(store, nil)

	assignee := uuid.New()
	lead := Lead{ID: uuid.New(), TenantID: uuid.New(), AssignedTo: &assignee}

	d.NotifyLeadStatusChanged(context.Background(), lead, "contacted", "contacted", nil)
	d.NotifyLeadStatusChanged(context.Background(), lead, "contacted", "", nil)

	if len(store.created) != 0 {
		t.Fatalf("expected no notifications for unchanged status, got %d", len(store.created))
	}
}

func TestNotifyLeadStatusChangedFansOut(t *testing.T) {
	store := &fakeStore{}
	d := New(store, nil)

	assignee := uuid.New()
	actor := uuid.New()
	d.NotifyLeadStatusChanged(context.Background(), Lead{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		AssignedTo: &assignee,
	}, "new", "qualified", &actor)

	if len(store.created) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(store.created))
	}
	seen := map[uuid.UUID]bool{}
	for _, n := range store.created {
		seen[n.UserID] = true
	}
	if !seen[assignee] || !seen[actor] {
		t.Errorf("recipients missing: assignee=%v actor=%v", seen[assignee], seen[actor])
	}
}

func TestNotifyLeadActivityLoggedDedupesSelf(t *testing.T) {
	store := &fakeStore{}
	d := New(store, nil)

	assignee := uuid.New()
	d.NotifyLeadActivityLogged(context.Background(), Lead{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		AssignedTo: &assignee,
	}, Activity{ID: uuid.New(), Type: "note", Subject: "left voicemail"}, &assignee)

	if len(store.created) != 1 {
		t.Fatalf("expected exactly 1 notification when actor is the assignee, got %d", len(store.created))
	}
	if store.created[0].UserID != assignee {
		t.Errorf("recipient = %s, want assignee %s", store.created[0].UserID, assignee)
	}
	if store.created[0].Title != "New Lead Activity" {
		t.Errorf("title = %q, want New Lead Activity", store.created[0].Title)
	}
}

func TestNotifyLeadActivityLoggedFansOutToAssigneeAndActor(t *testing.T) {
	store := &fakeStore{}
	d := New(store, nil)

	assignee := uuid.New()
	actor := uuid.New()
	d.NotifyLeadActivityLogged(context.Background(), Lead{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		AssignedTo: &assignee,
	}, Activity{ID: uuid.New(), Type: "call", Subject: "intro call"}, &actor)

	if len(store.created) != 2 {
		t.Fatalf("expected notifications for assignee and actor, got %d", len(store.created))
	}
	got := map[uuid.UUID]bool{store.created[0].UserID: true, store.created[1].UserID: true}
	if !got[assignee] || !got[actor] {
		t.Errorf("recipients = %v, want assignee and actor", got)
	}
}

func TestNotifyLeadActivityLoggedNoRecipients(t *testing.T) {
	store := &fakeStore{}
	d := New(store, nil)

	d.NotifyLeadActivityLogged(context.Background(), Lead{
		ID:       uuid.New(),
		TenantID: uuid.New(),
	}, Activity{ID: uuid.New(), Type: "note", Subject: "imported"}, nil)

	if len(store.created) != 0 {
		t.Fatalf("expected no notifications without assignee or actor, got %d", len(store.created))
	}
}

func TestNotifyFollowUpDueUsesEmailChannel(t *testing.T) {
	store := &fakeStore{}
	d := New(store, nil)

	assignee := uuid.New()
	d.NotifyFollowUpDue(context.Background(), Lead{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		Name:       "Acme Corp",
		AssignedTo: &assignee,
	}, time.Now())

	if len(store.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(store.created))
	}
	got := store.created[0]
	if got.Priority != "high" {
		t.Errorf("priority = %q, want high", got.Priority)
	}
	if !hasChannel(got.Channels, "email") || !hasChannel(got.Channels, "in_app") {
		t.Errorf("channels = %v, want both in_app and email", got.Channels)
	}
}

func TestNotifyUsersSwallowsStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	d := New(store, nil)

	recipients := NewRecipientSet()
	recipients.AddID(uuid.New())

	// Must not panic or propagate; delivery is best-effort.
	d.NotifyUsers(context.Background(), uuid.New(), recipients, Payload{Title: "hello"})
}

func TestCreateNotificationDropsIncomplete(t *testing.T) {
	store := &fakeStore{}
	d := New(store, nil)

	d.CreateNotification(context.Background(), uuid.Nil, uuid.New(), Payload{Title: "x"})
	d.CreateNotification(context.Background(), uuid.New(), uuid.Nil, Payload{Title: "x"})
	d.CreateNotification(context.Background(), uuid.New(), uuid.New(), Payload{})

	if len(store.created) != 0 {
		t.Fatalf("incomplete notifications should be dropped, got %d", len(store.created))
	}
}
