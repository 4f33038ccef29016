package management

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
	leads       map[uuid.UUID]repository.Lead
	created     []repository.CreateLeadParams
	updated     []repository.UpdateLeadParams
	archivedIDs []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{leads: map[uuid.UUID]repository.Lead{}}
}

func (f *fakeStore) put(lead repository.Lead) {
	f.leads[lead.ID] = lead
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	f.created = append(f.created, params)
	lead := repository.Lead{
		ID:           uuid.New(),
		TenantID:     params.TenantID,
		Name:         params.Name,
		Company:      params.Company,
		Email:        params.Email,
		Phone:        params.Phone,
		Source:       params.Source,
		Status:       params.Status,
		Priority:     params.Priority,
		AssignedTo:   params.AssignedTo,
		NextFollowUp: params.NextFollowUp,
		Notes:        params.Notes,
		Tags:         params.Tags,
		Metadata:     params.Metadata,
		IsActive:     true,
	}
	f.put(lead)
	return lead, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.TenantID != tenantID {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) GetDetail(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (repository.LeadDetail, error) {
	lead, ok := f.leads[id]
	if !ok || lead.TenantID != tenantID {
		return repository.LeadDetail{}, repository.ErrNotFound
	}
	return repository.LeadDetail{Lead: lead}, nil
}

func (f *fakeStore) List(_ context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	out := make([]repository.Lead, 0)
	for _, lead := range f.leads {
		if lead.TenantID == params.TenantID {
			out = append(out, lead)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) Summary(_ context.Context, _ uuid.UUID, _ time.Duration, _ int) (repository.Summary, error) {
	return repository.Summary{}, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, tenantID uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.TenantID != tenantID {
		return repository.Lead{}, repository.ErrNotFound
	}
	f.updated = append(f.updated, params)
	if params.Name != nil {
		lead.Name = *params.Name
	}
	if params.Status != nil {
		lead.Status = *params.Status
	}
	if params.Priority != nil {
		lead.Priority = *params.Priority
	}
	if params.AssignedToSet {
		lead.AssignedTo = params.AssignedTo
	}
	if params.NextFollowUpSet {
		lead.NextFollowUp = params.NextFollowUp
	}
	f.put(lead)
	return lead, nil
}

func (f *fakeStore) Archive(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.TenantID != tenantID {
		return repository.Lead{}, repository.ErrNotFound
	}
	f.archivedIDs = append(f.archivedIDs, id)
	lead.IsActive = false
	lead.Status = domain.StatusLost
	f.put(lead)
	return lead, nil
}

func (f *fakeStore) SetLastContactedAt(_ context.Context, _ uuid.UUID, _ uuid.UUID, _ time.Time) error {
	return nil
}

type notifierCall struct {
	kind      string
	lead      dispatcher.Lead
	oldStatus string
	newStatus string
}

type fakeNotifier struct {
	calls []notifierCall
}

func (f *fakeNotifier) NotifyLeadCreated(_ context.Context, lead dispatcher.Lead, _ *uuid.UUID) {
	f.calls = append(f.calls, notifierCall{kind: "created", lead: lead})
}

func (f *fakeNotifier) NotifyLeadStatusChanged(_ context.Context, lead dispatcher.Lead, oldStatus, newStatus string, _ *uuid.UUID) {
	f.calls = append(f.calls, notifierCall{kind: "status_changed", lead: lead, oldStatus: oldStatus, newStatus: newStatus})
}

type fakeScheduler struct {
	scheduled []time.Time
}

func (f *fakeScheduler) ScheduleFollowUp(_ context.Context, _ uuid.UUID, _ uuid.UUID, at time.Time) error {
	f.scheduled = append(f.scheduled, at)
	return nil
}

func newTestService(store *fakeStore, notifier *fakeNotifier) *Service {
	return NewService(store, notifier, nil, logger.New("development"), "US")
}

func TestCreateAppliesDefaults(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})

	lead, err := svc.Create(context.Background(), uuid.New(), nil, CreateLeadInput{Name: "Jane Prospect"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if lead.Source != "unknown" {
		t.Errorf("source = %q, want unknown", lead.Source)
	}
	if lead.Status != domain.StatusNew {
		t.Errorf("status = %q, want new", lead.Status)
	}
	if lead.Priority != domain.PriorityMedium {
		t.Errorf("priority = %q, want medium", lead.Priority)
	}
	if lead.Tags == nil || lead.Metadata == nil {
		t.Errorf("tags/metadata should default to empty, got %v %v", lead.Tags, lead.Metadata)
	}
}

func TestCreateNormalizesPhone(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})

	lead, err := svc.Create(context.Background(), uuid.New(), nil, CreateLeadInput{
		Name:  "Jane Prospect",
		Phone: "(202) 555-0175",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if lead.Phone != "+12025550175" {
		t.Errorf("phone = %q, want +12025550175", lead.Phone)
	}

	garbled, err := svc.Create(context.Background(), uuid.New(), nil, CreateLeadInput{
		Name:  "No Number",
		Phone: "  ext. 42  ",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if garbled.Phone != "ext. 42" {
		t.Errorf("unparseable phone = %q, want trimmed input back", garbled.Phone)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeNotifier{})
	ctx := context.Background()
	tenantID := uuid.New()

	if _, err := svc.Create(ctx, tenantID, nil, CreateLeadInput{}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("empty lead: err = %v, want validation", err)
	}
	if _, err := svc.Create(ctx, tenantID, nil, CreateLeadInput{Name: "x", Status: "bogus"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bad status: err = %v, want validation", err)
	}
	if _, err := svc.Create(ctx, tenantID, nil, CreateLeadInput{Name: "x", Status: "converted"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("converted status: err = %v, want validation", err)
	}
	if _, err := svc.Create(ctx, tenantID, nil, CreateLeadInput{Name: "x", Priority: "urgent"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bad priority: err = %v, want validation", err)
	}
}

func TestCreateNotifiesAssignee(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)

	assignee := uuid.New()
	_, err := svc.Create(context.Background(), uuid.New(), nil, CreateLeadInput{
		Name:       "Jane Prospect",
		AssignedTo: &assignee,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(notifier.calls) != 1 || notifier.calls[0].kind != "created" {
		t.Fatalf("calls = %+v, want one created call", notifier.calls)
	}
	got := notifier.calls[0].lead
	if got.AssignedTo == nil || *got.AssignedTo != assignee {
		t.Errorf("notify context assignee = %v, want %s", got.AssignedTo, assignee)
	}
}

func TestCreateSchedulesFollowUp(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})
	scheduler := &fakeScheduler{}
	svc.SetFollowUpScheduler(scheduler)

	followUp := time.Now().Add(48 * time.Hour)
	_, err := svc.Create(context.Background(), uuid.New(), nil, CreateLeadInput{
		Name:         "Jane Prospect",
		NextFollowUp: &followUp,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(scheduler.scheduled) != 1 {
		t.Fatalf("scheduled = %d, want 1", len(scheduler.scheduled))
	}
	if !scheduler.scheduled[0].Equal(followUp) {
		t.Errorf("scheduled at %v, want %v", scheduler.scheduled[0], followUp)
	}
}

func TestUpdateStatusChangeNotifies(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)

	tenantID := uuid.New()
	lead := repository.Lead{ID: uuid.New(), TenantID: tenantID, Name: "Jane", Status: domain.StatusNew, IsActive: true}
	store.put(lead)

	newStatus := "contacted"
	updated, err := svc.Update(context.Background(), lead.ID, tenantID, nil, UpdateLeadInput{Status: &newStatus})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != domain.StatusContacted {
		t.Errorf("status = %q, want contacted", updated.Status)
	}

	if len(notifier.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(notifier.calls))
	}
	call := notifier.calls[0]
	if call.kind != "status_changed" || call.oldStatus != "new" || call.newStatus != "contacted" {
		t.Errorf("call = %+v, want status_changed new->contacted", call)
	}
}

func TestUpdateSameStatusIsSilent(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := newTestService(store, notifier)

	tenantID := uuid.New()
	lead := repository.Lead{ID: uuid.New(), TenantID: tenantID, Name: "Jane", Status: domain.StatusContacted, IsActive: true}
	store.put(lead)

	sameStatus := "contacted"
	if _, err := svc.Update(context.Background(), lead.ID, tenantID, nil, UpdateLeadInput{Status: &sameStatus}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(notifier.calls) != 0 {
		t.Errorf("expected no notifications for unchanged status, got %d", len(notifier.calls))
	}
}

func TestUpdateRejectsConvertedStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})

	tenantID := uuid.New()
	lead := repository.Lead{ID: uuid.New(), TenantID: tenantID, Name: "Jane", Status: domain.StatusQualified, IsActive: true}
	store.put(lead)

	converted := "converted"
	_, err := svc.Update(context.Background(), lead.ID, tenantID, nil, UpdateLeadInput{Status: &converted})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if len(store.updated) != 0 {
		t.Errorf("no update should reach the store, got %d", len(store.updated))
	}
}

func TestUpdateRejectsLeavingConverted(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})

	tenantID := uuid.New()
	customerID := uuid.New()
	lead := repository.Lead{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		Name:                "Jane",
		Status:              domain.StatusConverted,
		ConvertedCustomerID: &customerID,
	}
	store.put(lead)

	lost := "lost"
	_, err := svc.Update(context.Background(), lead.ID, tenantID, nil, UpdateLeadInput{Status: &lost})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if len(store.updated) != 0 {
		t.Errorf("no update should reach the store, got %d", len(store.updated))
	}
}

func TestUpdateMissingLead(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeNotifier{})

	name := "Jane"
	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), nil, UpdateLeadInput{Name: &name})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestArchiveForcesLostAndInactive(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})

	tenantID := uuid.New()
	customerID := uuid.New()
	lead := repository.Lead{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		Name:                "Jane",
		Status:              domain.StatusConverted,
		ConvertedCustomerID: &customerID,
		IsActive:            true,
	}
	store.put(lead)

	archived, err := svc.Archive(context.Background(), lead.ID, tenantID)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if archived.IsActive || archived.Status != domain.StatusLost {
		t.Errorf("archived = active=%v status=%q, want inactive/lost", archived.IsActive, archived.Status)
	}
	if archived.ConvertedCustomerID == nil || *archived.ConvertedCustomerID != customerID {
		t.Errorf("convertedCustomerId must survive archival, got %v", archived.ConvertedCustomerID)
	}
}

func TestListClampsPagination(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})

	if _, _, err := svc.List(context.Background(), uuid.New(), ListInput{Page: -3, Limit: 5000}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if _, _, err := svc.List(context.Background(), uuid.New(), ListInput{Status: "bogus"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bad status filter: err = %v, want validation", err)
	}
}
