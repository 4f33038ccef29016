// Package scheduler implements follow-up reminders on top of asynq: lead
// services enqueue a delayed task when a follow-up date is set, and the worker
// turns due tasks into LeadFollowUpDue events.
package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"crmops_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	opt    asynq.RedisClientOpt
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		opt:    opt,
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleFollowUp enqueues a reminder to fire at the follow-up time. The
// task id is derived from the lead id, so rescheduling a lead's follow-up
// replaces the pending reminder instead of stacking a second one.
func (c *Client) ScheduleFollowUp(ctx context.Context, leadID, tenantID uuid.UUID, at time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewLeadFollowUpDueTask(LeadFollowUpDuePayload{
		LeadID:     leadID.String(),
		TenantID:   tenantID.String(),
		FollowUpAt: at,
	})
	if err != nil {
		return err
	}

	taskID := "lead-follow-up:" + leadID.String()
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.Queue(c.queue),
		asynq.TaskID(taskID),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		inspector := asynq.NewInspector(c.opt)
		defer inspector.Close()
		if delErr := inspector.DeleteTask(c.queue, taskID); delErr != nil {
			return err
		}
		_, err = c.client.EnqueueContext(ctx, task,
			asynq.ProcessAt(at),
			asynq.Queue(c.queue),
			asynq.TaskID(taskID),
		)
	}
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
