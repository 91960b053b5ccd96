package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/chemclass-api/internal/observability"
	"github.com/noah-isme/chemclass-api/pkg/storage"
)

// DefaultUploadMaxMB applies when no upload limit is configured.
const DefaultUploadMaxMB = 50

// FileStorage abstracts where material files are written. storage.Local implements it.
type FileStorage interface {
	Save(ctx context.Context, ext string, reader io.Reader) (storage.Object, error)
	Delete(ctx context.Context, name string) error
}

var allowedExtensions = map[string]struct{}{
	"jpeg": {}, "jpg": {}, "png": {}, "gif": {},
	"mp4": {}, "avi": {},
	"pdf": {}, "doc": {}, "docx": {},
	"ppt": {}, "pptx": {}, "xls": {}, "xlsx": {},
}

type storedFile struct {
	storage.Object
	MimeType string
}

// uploader validates one multipart file and writes it to storage.
type uploader struct {
	storage FileStorage
	maxSize int64
	logger  zerolog.Logger
}

func newUploader(store FileStorage, maxSizeMB int, logger zerolog.Logger) *uploader {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultUploadMaxMB
	}
	return &uploader{
		storage: store,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		logger:  logger,
	}
}

func (u *uploader) store(ctx context.Context, span trace.Span, file *multipart.FileHeader) (storedFile, error) {
	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	ext := fileExtension(file.Filename)
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.String("upload.extension", ext),
		attribute.Int64("upload.request_size", file.Size),
		attribute.Int64("upload.max_bytes", u.maxSize),
	)

	if _, ok := allowedExtensions[ext]; !ok {
		observability.UploadRejected().WithLabelValues("type").Inc()
		span.RecordError(ErrFileTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return storedFile{}, ErrFileTypeNotAllowed
	}
	if file.Size > u.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrFileTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return storedFile{}, ErrFileTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return storedFile{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, u.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return storedFile{}, err
	}
	if int64(buf.Len()) > u.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrFileTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return storedFile{}, ErrFileTooLarge
	}

	detected := mimetype.Detect(buf.Bytes()).String()
	if semi := strings.IndexByte(detected, ';'); semi >= 0 {
		detected = detected[:semi]
	}
	span.SetAttributes(attribute.String("upload.detected_mime", detected))

	object, err := u.storage.Save(ctx, ext, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return storedFile{}, err
	}

	observability.UploadRequests().WithLabelValues(detected).Inc()
	span.SetAttributes(attribute.String("upload.stored_name", object.Name))
	return storedFile{Object: object, MimeType: detected}, nil
}

// discard removes a stored file and only logs failures.
func (u *uploader) discard(ctx context.Context, name, reason string) {
	if name == "" {
		return
	}
	if err := u.storage.Delete(ctx, name); err != nil {
		u.logger.Warn().Err(err).Str("file", name).Str("reason", reason).Msg("failed to remove stored file")
	}
}

func fileExtension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSpace(name))), ".")
}
