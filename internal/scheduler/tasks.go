package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskLeadFollowUpDue = "leads.follow_up.due"

type LeadFollowUpDuePayload struct {
	LeadID     string    `json:"leadId"`
	TenantID   string    `json:"tenantId"`
	FollowUpAt time.Time `json:"followUpAt"`
}

func NewLeadFollowUpDueTask(payload LeadFollowUpDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadFollowUpDue, data), nil
}

func ParseLeadFollowUpDuePayload(task *asynq.Task) (LeadFollowUpDuePayload, error) {
	var payload LeadFollowUpDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadFollowUpDuePayload{}, err
	}
	return payload, nil
}
