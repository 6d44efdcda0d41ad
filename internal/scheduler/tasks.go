// Package scheduler runs the delayed work behind the notification
// pipeline: due sends, retries, escalation checks, snooze wakes and
// digests, all on asynq.
package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskNotificationDue = "notify.send.due"

const TaskEscalationCheck = "notify.escalation.check"

const TaskSnoozeExpired = "leads.snooze.expired"

const TaskDigestDue = "notify.digest.due"

type NotificationDuePayload struct {
	OutboxID  string `json:"outboxId"`
	AccountID string `json:"accountId"`
}

type EscalationCheckPayload struct {
	AccountID string    `json:"accountId"`
	LeadID    string    `json:"leadId"`
	SentAt    time.Time `json:"sentAt"`
}

type SnoozeExpiredPayload struct {
	LeadID    string `json:"leadId"`
	AccountID string `json:"accountId"`
}

type DigestDuePayload struct {
	AccountID string `json:"accountId"`
	Period    string `json:"period"`
}

func NewNotificationDueTask(payload NotificationDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDue, data), nil
}

func ParseNotificationDuePayload(task *asynq.Task) (NotificationDuePayload, error) {
	var payload NotificationDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationDuePayload{}, err
	}
	return payload, nil
}

func NewEscalationCheckTask(payload EscalationCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEscalationCheck, data), nil
}

func ParseEscalationCheckPayload(task *asynq.Task) (EscalationCheckPayload, error) {
	var payload EscalationCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EscalationCheckPayload{}, err
	}
	return payload, nil
}

func NewSnoozeExpiredTask(payload SnoozeExpiredPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnoozeExpired, data), nil
}

func ParseSnoozeExpiredPayload(task *asynq.Task) (SnoozeExpiredPayload, error) {
	var payload SnoozeExpiredPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SnoozeExpiredPayload{}, err
	}
	return payload, nil
}

func NewDigestDueTask(payload DigestDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDigestDue, data), nil
}

func ParseDigestDuePayload(task *asynq.Task) (DigestDuePayload, error) {
	var payload DigestDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DigestDuePayload{}, err
	}
	return payload, nil
}
