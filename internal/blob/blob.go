// Package blob defines the object storage boundary used for generated
// images and client uploads.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidObjectName is returned for empty or unsafe object names.
	ErrInvalidObjectName = errors.New("invalid object name")

	// ErrUploadFailed is returned when an object cannot be stored.
	ErrUploadFailed = errors.New("object upload failed")

	// ErrDeleteFailed is returned when an object cannot be removed.
	ErrDeleteFailed = errors.New("object delete failed")

	// ErrSignFailed is returned when a signed URL cannot be produced.
	ErrSignFailed = errors.New("object url signing failed")
)

// Store is an object store for binary content.
// Version: 1.0
type Store interface {
	// Upload stores data under objectName and returns its public URL.
	Upload(ctx context.Context, data []byte, objectName, contentType string) (string, error)

	// Delete removes objectName. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectName string) error

	// Sign returns a time-limited GET URL for objectName.
	Sign(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/heic": "heic",
	"image/heif": "heif",
}

// ExtensionFor returns the file extension for an image MIME type, "bin" if unknown.
func ExtensionFor(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	return "bin"
}

// ObjectName builds a unique object name of the form
// {folder}/{YYYY}/{MM}/{DD}/{uuid}.{ext}.
func ObjectName(folder string, now time.Time, ext string) string {
	name := uuid.New().String()
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + ext
	}
	return path.Join(strings.Trim(folder, "/"), now.UTC().Format("2006/01/02"), name)
}

// ValidateObjectName rejects names that are empty, absolute or escape
// their prefix.
func ValidateObjectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidObjectName)
	}
	if strings.HasPrefix(name, "/") || path.Clean(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidObjectName, name)
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidObjectName, name)
		}
	}
	return nil
}
