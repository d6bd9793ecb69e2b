package gemini

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/phrazzld/atelier-api/internal/generation"
)

const (
	defaultFetchTimeout = 30 * time.Second
	fallbackMIMEType    = "application/octet-stream"
)

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// MIMETypeFor returns the image MIME type implied by location's extension.
// Query strings are ignored. Unknown extensions map to application/octet-stream.
func MIMETypeFor(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(location))]; ok {
		return mt
	}
	return fallbackMIMEType
}

// ReferenceImage is a loaded reference image.
type ReferenceImage struct {
	Data     []byte
	MIMEType string
}

// ReferenceLoader loads reference images from URLs or local paths.
type ReferenceLoader struct {
	client *resty.Client
}

// NewReferenceLoader creates a loader whose HTTP fetches time out after timeout.
func NewReferenceLoader(timeout time.Duration) *ReferenceLoader {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "image/*")
	return &ReferenceLoader{client: client}
}

// Load reads one reference image.
//
// Parameters:
//   - ctx: Context for the fetch; cancellation aborts it
//   - location: An http(s) URL or a local file path
//
// Returns:
//   - The image bytes and MIME type
//   - An error wrapping generation.ErrReferenceImage on failure; server
//     errors also wrap generation.ErrTransientFailure
func (l *ReferenceLoader) Load(ctx context.Context, location string) (ReferenceImage, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return ReferenceImage{}, fmt.Errorf("%w: %w", generation.ErrReferenceImage, ErrUnsupportedReference)
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return l.fetch(ctx, location)
	case strings.Contains(location, "://"):
		return ReferenceImage{}, fmt.Errorf("%w: %w", generation.ErrReferenceImage, ErrUnsupportedReference)
	default:
		data, err := os.ReadFile(location)
		if err != nil {
			return ReferenceImage{}, fmt.Errorf("%w: %v", generation.ErrReferenceImage, err)
		}
		return ReferenceImage{Data: data, MIMEType: MIMETypeFor(location)}, nil
	}
}

func (l *ReferenceLoader) fetch(ctx context.Context, url string) (ReferenceImage, error) {
	resp, err := l.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return ReferenceImage{}, fmt.Errorf("%w: %w: %v",
			generation.ErrReferenceImage, generation.ErrTransientFailure, err)
	}
	if resp.IsError() {
		if resp.StatusCode() >= 500 || resp.StatusCode() == 429 {
			return ReferenceImage{}, fmt.Errorf("%w: %w: status %d",
				generation.ErrReferenceImage, generation.ErrTransientFailure, resp.StatusCode())
		}
		return ReferenceImage{}, fmt.Errorf("%w: status %d", generation.ErrReferenceImage, resp.StatusCode())
	}

	mimeType := MIMETypeFor(url)
	if mimeType == fallbackMIMEType {
		if ct := resp.Header().Get("Content-Type"); strings.HasPrefix(ct, "image/") {
			mimeType = strings.TrimSpace(strings.Split(ct, ";")[0])
		}
	}
	return ReferenceImage{Data: resp.Body(), MIMEType: mimeType}, nil
}
