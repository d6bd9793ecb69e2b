package api

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/atelier-api/internal/api/shared"
	"github.com/phrazzld/atelier-api/internal/blob"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
)

// MaxUploadBytes bounds a single uploaded file.
const MaxUploadBytes = 10 << 20

// MaxUploadBatchFiles bounds the parts of one batch upload.
const MaxUploadBatchFiles = 10

// uploadFolder prefixes client uploads, keeping them apart from generated images.
const uploadFolder = "uploads"

// UploadHandler stores client reference images and signs object URLs.
type UploadHandler struct {
	blobs   blob.Store
	signTTL time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewUploadHandler creates a new UploadHandler. signTTL is the default
// lifetime of presigned URLs.
func NewUploadHandler(blobs blob.Store, signTTL time.Duration, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for UploadHandler")
	}

	return &UploadHandler{
		blobs:   blobs,
		signTTL: signTTL,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "upload_handler")),
	}
}

// Upload handles POST /uploads requests.
// The multipart form must carry the content in a "file" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		log.Warn("missing upload file", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "A file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Failed to read upload", err)
		return
	}
	if !h.checkSize(w, r, len(data)) {
		return
	}

	resp, err := h.store(r, data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadGateway, "Failed to store upload", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, resp)
}

// UploadMultiple handles POST /uploads/multiple requests.
// Every "files" part is stored independently; parts that are empty, too
// large or fail to store are left out of the response.
func (h *UploadHandler) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBatchFiles*MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		log.Warn("invalid batch upload form", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "A files field is required")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "A files field is required")
		return
	}
	if len(headers) > MaxUploadBatchFiles {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Too many files in one upload")
		return
	}

	stored := make([]UploadResponse, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil || len(data) == 0 || len(data) > MaxUploadBytes {
			log.Warn("skipping unreadable upload part",
				slog.String("filename", fh.Filename),
				slog.Int("size", len(data)))
			continue
		}
		resp, err := h.store(r, data, fh.Filename, fh.Header.Get("Content-Type"))
		if err != nil {
			log.Warn("skipping upload part that failed to store",
				slog.String("filename", fh.Filename),
				slog.String("error", err.Error()))
			continue
		}
		stored = append(stored, resp)
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, UploadBatchResponse{Files: stored})
}

// UploadBase64 handles POST /uploads/base64 requests.
// The file may be plain base64 or a data URL.
func (h *UploadHandler) UploadBase64(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	limit := int64(base64.StdEncoding.EncodedLen(MaxUploadBytes) + 1<<20)
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	var req Base64UploadRequest
	if !decodeAndValidateLimit(w, r, &req, limit, log) {
		return
	}

	encoded, contentType := req.File, req.ContentType
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid base64 data")
			return
		}
		if contentType == "" {
			contentType = strings.TrimSuffix(meta, ";base64")
		}
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		log.Debug("invalid base64 upload", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid base64 data")
		return
	}
	if !h.checkSize(w, r, len(data)) {
		return
	}

	resp, err := h.store(r, data, req.Filename, contentType)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadGateway, "Failed to store upload", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, resp)
}

func (h *UploadHandler) checkSize(w http.ResponseWriter, r *http.Request, size int) bool {
	switch {
	case size == 0:
		shared.RespondWithError(w, r, http.StatusBadRequest, "Uploaded file is empty")
		return false
	case size > MaxUploadBytes:
		shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "Uploaded file is too large")
		return false
	}
	return true
}

// store writes data under a dated object name. A missing or generic content
// type is sniffed from the data.
func (h *UploadHandler) store(r *http.Request, data []byte, filename, contentType string) (UploadResponse, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	objectName := blob.ObjectName(uploadFolder, h.now(), blob.ExtensionFor(contentType))
	url, err := h.blobs.Upload(r.Context(), data, objectName, contentType)
	if err != nil {
		return UploadResponse{}, err
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("upload stored",
		slog.String("object_name", objectName),
		slog.Int("size", len(data)))
	return UploadResponse{
		URL:         url,
		Filename:    filename,
		ObjectName:  objectName,
		Size:        len(data),
		ContentType: contentType,
	}, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
}

// Delete handles DELETE /uploads requests
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req DeleteUploadRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}
	if err := blob.ValidateObjectName(req.ObjectName); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.blobs.Delete(r.Context(), req.ObjectName); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadGateway, "Failed to delete object", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sign handles POST /uploads/sign requests
func (h *UploadHandler) Sign(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req SignUploadRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}
	if err := blob.ValidateObjectName(req.ObjectName); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	ttl := h.signTTL
	if req.ExpiresSeconds > 0 {
		ttl = time.Duration(req.ExpiresSeconds) * time.Second
	}

	url, err := h.blobs.Sign(r.Context(), req.ObjectName, ttl)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, blob.ErrSignFailed) {
			status = http.StatusBadGateway
		}
		shared.RespondWithErrorAndLog(w, r, status, "Failed to sign object URL", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SignUploadResponse{
		URL:       url,
		ExpiresAt: h.now().Add(ttl).UTC(),
	})
}
