// Package mocks holds test doubles shared by the service, api, task and
// cmd/server tests.
//
// Every mock exposes function fields (GenerateFn, ClaimFn, UploadFn, ...)
// that override a single method. Without an override the store mocks keep
// their own in-memory state and apply the same status transitions as the
// postgres stores, so a worker test can enqueue, claim and inspect tasks
// with no database:
//
//	tasks := mocks.NewMockTaskStore()
//	provider := &mocks.MockProvider{Err: generation.ErrTransientFailure}
//	// run the worker, then
//	got := tasks.Task(id) // got.Status == domain.TaskStatusFailed
package mocks
