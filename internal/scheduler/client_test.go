package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL    string
	tlsInsecure bool
	queue       string
	concurrency int
}

func (c testSchedulerConfig) GetRedisURL() string      { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return c.tlsInsecure }
func (c testSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return c.concurrency }

func TestNewClientRequiresRedisURL(t *testing.T) {
	_, err := NewClient(testSchedulerConfig{})
	if err == nil {
		t.Fatal("expected error for missing redis url")
	}
}

func TestScheduleFollowUpEnqueuesTask(t *testing.T) {
	srv := miniredis.RunT(t)

	cfg := testSchedulerConfig{redisURL: "redis://" + srv.Addr(), queue: "followups"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	leadID := uuid.New()
	tenantID := uuid.New()
	at := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)

	if err := client.ScheduleFollowUp(context.Background(), leadID, tenantID, at); err != nil {
		t.Fatalf("ScheduleFollowUp: %v", err)
	}

	inspector := asynq.NewInspector(client.opt)
	defer inspector.Close()

	tasks, err := inspector.ListScheduledTasks("followups")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskLeadFollowUpDue {
		t.Fatalf("unexpected task type %q", tasks[0].Type)
	}

	payload, err := ParseLeadFollowUpDuePayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.LeadID != leadID.String() {
		t.Fatalf("payload lead id = %q, want %q", payload.LeadID, leadID)
	}
	if payload.TenantID != tenantID.String() {
		t.Fatalf("payload tenant id = %q, want %q", payload.TenantID, tenantID)
	}
	if !payload.FollowUpAt.Equal(at) {
		t.Fatalf("payload follow-up at = %v, want %v", payload.FollowUpAt, at)
	}
}

func TestScheduleFollowUpReplacesPendingReminder(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + srv.Addr(), queue: "followups"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	leadID := uuid.New()
	tenantID := uuid.New()
	first := time.Now().Add(1 * time.Hour).UTC().Truncate(time.Second)
	second := time.Now().Add(3 * time.Hour).UTC().Truncate(time.Second)

	if err := client.ScheduleFollowUp(context.Background(), leadID, tenantID, first); err != nil {
		t.Fatalf("first ScheduleFollowUp: %v", err)
	}
	if err := client.ScheduleFollowUp(context.Background(), leadID, tenantID, second); err != nil {
		t.Fatalf("second ScheduleFollowUp: %v", err)
	}

	inspector := asynq.NewInspector(client.opt)
	defer inspector.Close()

	tasks, err := inspector.ListScheduledTasks("followups")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 scheduled task after reschedule, got %d", len(tasks))
	}

	payload, err := ParseLeadFollowUpDuePayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if !payload.FollowUpAt.Equal(second) {
		t.Fatalf("payload follow-up at = %v, want rescheduled %v", payload.FollowUpAt, second)
	}
}

func TestRedisClientOptTLSInsecure(t *testing.T) {
	opt, err := redisClientOpt("rediss://example.com:6380", true)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure TLS config")
	}

	opt, err = redisClientOpt("redis://example.com:6379", false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.TLSConfig != nil {
		t.Fatal("expected no TLS config for plain redis url")
	}
}
