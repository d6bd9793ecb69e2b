// Package events provides in-process task lifecycle notifications.
//
// Services emit a TaskEvent when they change the task queue (for example
// after enqueuing a task) without knowing who listens. The worker registers
// a handler for TaskEnqueued so it wakes immediately instead of waiting for
// its next poll.
package events
