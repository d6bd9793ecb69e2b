// Package domain holds the generation task state machine, the task payload
// variants, detail templates and the prompt configuration types. It has no
// knowledge of storage or transport.
package domain
