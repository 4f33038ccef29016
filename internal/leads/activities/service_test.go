package activities

import (
	"context"
	"testing"
	"time"

	"crmops_backend/internal/leads/domain"
	"crmops_backend/internal/leads/repository"
	"crmops_backend/internal/notification/dispatcher"
	"crmops_backend/platform/apperr"
	"crmops_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	leads         map[uuid.UUID]repository.Lead
	activities    []repository.Activity
	updates       []repository.UpdateLeadParams
	lastContacted []time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{leads: map[uuid.UUID]repository.Lead{}}
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.TenantID != tenantID {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, tenantID uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.TenantID != tenantID {
		return repository.Lead{}, repository.ErrNotFound
	}
	f.updates = append(f.updates, params)
	if params.Status != nil {
		lead.Status = *params.Status
	}
	if params.NextFollowUpSet {
		lead.NextFollowUp = params.NextFollowUp
	}
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) SetLastContactedAt(_ context.Context, _ uuid.UUID, _ uuid.UUID, at time.Time) error {
	f.lastContacted = append(f.lastContacted, at)
	return nil
}

func (f *fakeStore) AddActivity(_ context.Context, params repository.CreateActivityParams) (repository.Activity, error) {
	activity := repository.Activity{
		ID:           uuid.New(),
		LeadID:       params.LeadID,
		TenantID:     params.TenantID,
		Type:         params.Type,
		Subject:      params.Subject,
		Notes:        params.Notes,
		CreatedBy:    params.CreatedBy,
		NextStep:     params.NextStep,
		FollowUpDate: params.FollowUpDate,
		Metadata:     params.Metadata,
		CreatedAt:    time.Now(),
	}
	f.activities = append(f.activities, activity)
	return activity, nil
}

func (f *fakeStore) ListActivities(_ context.Context, leadID uuid.UUID, tenantID uuid.UUID) ([]repository.Activity, error) {
	out := make([]repository.Activity, 0)
	for _, a := range f.activities {
		if a.LeadID == leadID && a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	activityCalls []dispatcher.Activity
	statusCalls   [][2]string
}

func (f *fakeNotifier) NotifyLeadActivityLogged(_ context.Context, _ dispatcher.Lead, activity dispatcher.Activity, _ *uuid.UUID) {
	f.activityCalls = append(f.activityCalls, activity)
}

func (f *fakeNotifier) NotifyLeadStatusChanged(_ context.Context, _ dispatcher.Lead, oldStatus, newStatus string, _ *uuid.UUID) {
	f.statusCalls = append(f.statusCalls, [2]string{oldStatus, newStatus})
}

type fakeScheduler struct {
	scheduled []time.Time
}

func (f *fakeScheduler) ScheduleFollowUp(_ context.Context, _ uuid.UUID, _ uuid.UUID, at time.Time) error {
	f.scheduled = append(f.scheduled, at)
	return nil
}

func seedLead(store *fakeStore, tenantID uuid.UUID) repository.Lead {
	assignee := uuid.New()
	lead := repository.Lead{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Name:       "Jane Prospect",
		Status:     domain.StatusNew,
		AssignedTo: &assignee,
		IsActive:   true,
	}
	store.leads[lead.ID] = lead
	return lead
}

func TestLogCreatesActivityAndNotifies(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier, nil, logger.New("development"))

	tenantID := uuid.New()
	lead := seedLead(store, tenantID)
	actor := uuid.New()

	activity, err := svc.Log(context.Background(), lead.ID, tenantID, &actor, LogInput{
		Type:    "note",
		Subject: "Intro call recap",
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	if activity.Type != domain.ActivityNote || activity.Subject != "Intro call recap" {
		t.Errorf("activity = %+v", activity)
	}
	if len(notifier.activityCalls) != 1 {
		t.Fatalf("activity notifications = %d, want 1", len(notifier.activityCalls))
	}
	if notifier.activityCalls[0].ID != activity.ID {
		t.Errorf("notified activity id = %s, want %s", notifier.activityCalls[0].ID, activity.ID)
	}
	if len(store.lastContacted) != 0 {
		t.Errorf("note must not stamp last contact, got %d", len(store.lastContacted))
	}
}

func TestLogValidatesInput(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeNotifier{}, nil, logger.New("development"))
	tenantID := uuid.New()
	lead := seedLead(store, tenantID)
	ctx := context.Background()

	if _, err := svc.Log(ctx, lead.ID, tenantID, nil, LogInput{Type: "fax", Subject: "x"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bad type: err = %v, want validation", err)
	}
	if _, err := svc.Log(ctx, lead.ID, tenantID, nil, LogInput{Type: "call"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("missing subject: err = %v, want validation", err)
	}
	if _, err := svc.Log(ctx, lead.ID, tenantID, nil, LogInput{Type: "call", Subject: "x", Status: "converted"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("converted override: err = %v, want validation", err)
	}
	if _, err := svc.Log(ctx, uuid.New(), tenantID, nil, LogInput{Type: "call", Subject: "x"}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("missing lead: err = %v, want not found", err)
	}
	if len(store.activities) != 0 {
		t.Errorf("no activity should persist, got %d", len(store.activities))
	}
}

func TestLogFollowUpDateMovesLead(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeNotifier{}, nil, logger.New("development"))
	scheduler := &fakeScheduler{}
	svc.SetFollowUpScheduler(scheduler)

	tenantID := uuid.New()
	lead := seedLead(store, tenantID)

	followUp := time.Now().Add(72 * time.Hour)
	_, err := svc.Log(context.Background(), lead.ID, tenantID, nil, LogInput{
		Type:         "task",
		Subject:      "Send proposal",
		FollowUpDate: &followUp,
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	got := store.leads[lead.ID]
	if got.NextFollowUp == nil || !got.NextFollowUp.Equal(followUp) {
		t.Errorf("nextFollowUp = %v, want %v", got.NextFollowUp, followUp)
	}
	if len(scheduler.scheduled) != 1 {
		t.Errorf("scheduled reminders = %d, want 1", len(scheduler.scheduled))
	}
}

func TestLogStatusOverrideNotifiesOnce(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier, nil, logger.New("development"))

	tenantID := uuid.New()
	lead := seedLead(store, tenantID)

	_, err := svc.Log(context.Background(), lead.ID, tenantID, nil, LogInput{
		Type:    "call",
		Subject: "Qualification call",
		Status:  "qualified",
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	if got := store.leads[lead.ID].Status; got != domain.StatusQualified {
		t.Errorf("status = %q, want qualified", got)
	}
	if len(notifier.statusCalls) != 1 {
		t.Fatalf("status notifications = %d, want 1", len(notifier.statusCalls))
	}
	if notifier.statusCalls[0] != [2]string{"new", "qualified"} {
		t.Errorf("status call = %v", notifier.statusCalls[0])
	}
}

func TestLogSameStatusOverrideIsSilent(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier, nil, logger.New("development"))

	tenantID := uuid.New()
	lead := seedLead(store, tenantID)

	_, err := svc.Log(context.Background(), lead.ID, tenantID, nil, LogInput{
		Type:    "email",
		Subject: "Ping",
		Status:  "new",
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	if len(notifier.statusCalls) != 0 {
		t.Errorf("status notifications = %d, want 0 for unchanged status", len(notifier.statusCalls))
	}
	if len(store.updates) != 0 {
		t.Errorf("lead updates = %d, want 0", len(store.updates))
	}
}

func TestLogContactActivityStampsLastContact(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeNotifier{}, nil, logger.New("development"))

	tenantID := uuid.New()
	lead := seedLead(store, tenantID)

	for _, activityType := range []string{"call", "email", "meeting"} {
		if _, err := svc.Log(context.Background(), lead.ID, tenantID, nil, LogInput{Type: activityType, Subject: "touch"}); err != nil {
			t.Fatalf("Log %s: %v", activityType, err)
		}
	}

	if len(store.lastContacted) != 3 {
		t.Errorf("lastContacted stamps = %d, want 3", len(store.lastContacted))
	}
}

func TestListRequiresExistingLead(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeNotifier{}, nil, logger.New("development"))

	_, err := svc.List(context.Background(), uuid.New(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
