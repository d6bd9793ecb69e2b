// Package api implements the HTTP and WebSocket surface of the service:
// task submission and queries, detail templates, prompt configuration,
// upload signing and the task status push channel.
package api
