// Package service contains the application-specific use cases that sit
// between the HTTP API and the stores.
//
// TaskService validates and enqueues generation tasks and wakes the worker
// through the event emitter. TemplateService manages detail templates and
// PromptService exposes the prompt configuration and assembly previews.
//
// Services receive their dependencies through constructor injection and
// translate store errors into the sentinel errors defined in errors.go, which
// the API layer maps to HTTP status codes.
package service
