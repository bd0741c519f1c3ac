package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const defaultCacheControl = "public, max-age=86400"

var (
	errNoStore           = errors.New("storage: object store is required")
	errInvalidBucket     = errors.New("storage: bucket name is required")
	errInvalidObject     = errors.New("storage: object name is required")
	errNilReader         = errors.New("storage: reader is required")
	errContentTypeEmpty  = errors.New("storage: content type is required")
	errContentTypeDenied = errors.New("storage: content type not allowed")
	errObjectTooLarge    = errors.New("storage: object exceeds permitted size")
)

// ObjectStore abstracts the bucket operations the uploader needs. The
// production implementation wraps a Cloud Storage client; tests substitute
// an in-memory store.
type ObjectStore interface {
	Write(ctx context.Context, object, contentType, cacheControl string, r io.Reader) (int64, error)
	Delete(ctx context.Context, object string) error
}

// UploadResult describes a stored object and its durable address.
type UploadResult struct {
	Object      string
	URL         string
	Size        int64
	ContentType string
	StoredAt    time.Time
}

// Uploader validates and stores asset objects, returning durable URLs.
type Uploader struct {
	store        ObjectStore
	bucket       string
	urlPrefix    string
	maxSize      int64
	allowedTypes []string
	now          func() time.Time
}

// UploaderOption customises Uploader behaviour.
type UploaderOption func(*Uploader)

// WithMaxSize caps the accepted object size in bytes. Zero disables the cap.
func WithMaxSize(limit int64) UploaderOption {
	return func(u *Uploader) {
		if limit > 0 {
			u.maxSize = limit
		}
	}
}

// WithAllowedContentTypes restricts accepted content types. Entries may use
// a trailing wildcard such as "image/*".
func WithAllowedContentTypes(types ...string) UploaderOption {
	return func(u *Uploader) {
		u.allowedTypes = append([]string(nil), types...)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) UploaderOption {
	return func(u *Uploader) {
		if clock != nil {
			u.now = clock
		}
	}
}

// NewUploader constructs an Uploader bound to a bucket.
func NewUploader(store ObjectStore, bucket, urlPrefix string, opts ...UploaderOption) (*Uploader, error) {
	if store == nil {
		return nil, errNoStore
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}

	uploader := &Uploader{
		store:     store,
		bucket:    bucket,
		urlPrefix: strings.TrimRight(strings.TrimSpace(urlPrefix), "/"),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(uploader)
		}
	}
	return uploader, nil
}

// Upload stores the object and returns its durable URL.
func (u *Uploader) Upload(ctx context.Context, object, contentType string, r io.Reader) (UploadResult, error) {
	if u == nil || u.store == nil {
		return UploadResult{}, errNoStore
	}
	if ctx == nil {
		return UploadResult{}, errors.New("storage: context is required")
	}
	object = strings.Trim(strings.TrimSpace(object), "/")
	if object == "" {
		return UploadResult{}, errInvalidObject
	}
	if r == nil {
		return UploadResult{}, errNilReader
	}

	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return UploadResult{}, errContentTypeEmpty
	}
	if len(u.allowedTypes) > 0 && !contentTypeAllowed(contentType, u.allowedTypes) {
		return UploadResult{}, errContentTypeDenied
	}

	reader := r
	if u.maxSize > 0 {
		// One extra byte so an oversized stream is detectable.
		reader = io.LimitReader(r, u.maxSize+1)
	}

	written, err := u.store.Write(ctx, object, contentType, defaultCacheControl, reader)
	if err != nil {
		return UploadResult{}, fmt.Errorf("storage: write object %s: %w", object, err)
	}
	if u.maxSize > 0 && written > u.maxSize {
		if delErr := u.store.Delete(ctx, object); delErr != nil {
			return UploadResult{}, fmt.Errorf("storage: remove oversized object %s: %w", object, delErr)
		}
		return UploadResult{}, errObjectTooLarge
	}

	return UploadResult{
		Object:      object,
		URL:         u.PublicURL(object),
		Size:        written,
		ContentType: contentType,
		StoredAt:    u.now().UTC(),
	}, nil
}

// Delete removes the object from the bucket.
func (u *Uploader) Delete(ctx context.Context, object string) error {
	if u == nil || u.store == nil {
		return errNoStore
	}
	object = strings.Trim(strings.TrimSpace(object), "/")
	if object == "" {
		return errInvalidObject
	}
	if err := u.store.Delete(ctx, object); err != nil {
		return fmt.Errorf("storage: delete object %s: %w", object, err)
	}
	return nil
}

// PublicURL returns the durable address for an object in the bucket.
func (u *Uploader) PublicURL(object string) string {
	object = strings.Trim(strings.TrimSpace(object), "/")
	if u.urlPrefix == "" {
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, object)
	}
	return fmt.Sprintf("%s/%s/%s", u.urlPrefix, u.bucket, object)
}

func contentTypeAllowed(contentType string, allowed []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(contentType))
	for _, candidate := range allowed {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		if candidate == "*" {
			return true
		}
		if strings.HasSuffix(candidate, "/*") {
			if strings.HasPrefix(normalized, strings.TrimSuffix(candidate, "*")) {
				return true
			}
			continue
		}
		if normalized == candidate {
			return true
		}
	}
	return false
}

// BucketStore adapts a Cloud Storage client to the ObjectStore interface.
type BucketStore struct {
	bucket *storage.BucketHandle
}

// NewBucketStore wraps the named bucket of the provided client.
func NewBucketStore(client *storage.Client, bucket string) (*BucketStore, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}
	return &BucketStore{bucket: client.Bucket(bucket)}, nil
}

// Write streams the object into the bucket.
func (s *BucketStore) Write(ctx context.Context, object, contentType, cacheControl string, r io.Reader) (int64, error) {
	w := s.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = cacheControl

	written, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return written, nil
}

// Delete removes the object from the bucket.
func (s *BucketStore) Delete(ctx context.Context, object string) error {
	err := s.bucket.Object(object).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}
