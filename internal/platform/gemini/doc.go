// Package gemini provides an implementation of the generation.Provider
// interface that uses Google's Gemini image models.
//
// This package is an infrastructure adapter: it translates a
// generation.Request into a Gemini GenerateContent call (prompt text plus
// inline reference images) and converts the returned inline image parts into
// generation.Image values. It does not retry; retry policy belongs to the
// task worker.
//
// Key components:
//
// 1. Provider:
//   - Implements generation.Provider
//   - Builds the multimodal request and parses image parts from the response
//   - Classifies failures as transient, blocked or invalid
//
// 2. ReferenceLoader:
//   - Fetches http(s) reference images with resty and reads local paths
//   - Detects the MIME type from the file extension
package gemini
