// Package generation defines the boundary between the task worker and an
// external image generation service. The worker depends only on the Provider
// interface; adapters such as the Gemini provider live under
// internal/platform.
package generation
