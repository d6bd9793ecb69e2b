package hub

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
)

// Message types exchanged over a hub connection.
const (
	TypeTaskUpdate = "task_update"
	TypeHeartbeat  = "heartbeat"
	TypeSubscribe  = "subscribe"
	TypeSubscribed = "subscribed"
	TypeError      = "error"
)

// TaskUpdate is the push sent to the client subscribed to a task.
// Result, Error and FinishedAt are omitted when nil.
type TaskUpdate struct {
	Type       string             `json:"type"`
	TaskID     uuid.UUID          `json:"task_id"`
	Status     domain.TaskStatus  `json:"status"`
	Result     *domain.TaskResult `json:"result,omitempty"`
	Error      *domain.TaskError  `json:"error,omitempty"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

// NewTaskUpdate builds the push for a task's current state.
func NewTaskUpdate(task *domain.GenerationTask) TaskUpdate {
	return TaskUpdate{
		Type:       TypeTaskUpdate,
		TaskID:     task.ID,
		Status:     task.Status,
		Result:     task.Result,
		Error:      task.Error,
		FinishedAt: task.FinishedAt,
	}
}

// Heartbeat is the keep-alive message in both directions.
type Heartbeat struct {
	Type string `json:"type"`
}

// Subscribed acknowledges a subscribe request.
type Subscribed struct {
	Type   string    `json:"type"`
	TaskID uuid.UUID `json:"task_id"`
}

// ErrorMessage tells a client its request was refused.
type ErrorMessage struct {
	Type    string    `json:"type"`
	TaskID  uuid.UUID `json:"task_id"`
	Message string    `json:"message"`
}

// clientMessage is a control message sent by a client.
type clientMessage struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id,omitempty"`
}
