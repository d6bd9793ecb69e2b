// Package task drives generation tasks from queued to a terminal state.
//
// A single Worker goroutine claims batches of queued tasks, resolves each
// task's prompt and reference images, calls the generation provider with a
// fixed retry budget, uploads the outputs and records the outcome. Tasks are
// processed one at a time. A companion sweep requeues tasks left in
// processing by a worker that died mid-flight.
package task
