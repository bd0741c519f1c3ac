package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/havenhome/storefront-api/internal/domain"
	"github.com/havenhome/storefront-api/internal/platform/storage"
)

// Asset service sentinel errors.
var (
	ErrAssetStoreMissing  = errors.New("asset service: object uploader is not configured")
	ErrAssetNotLocal      = errors.New("asset service: only local references can be uploaded")
	ErrAssetPayloadEmpty  = errors.New("asset service: upload payload is required")
	ErrAssetNameRequired  = errors.New("asset service: filename is required")
	ErrUnknownAssetHandle = errors.New("asset service: unknown local handle")
)

// AssetUploader is the slice of the storage uploader the asset service needs.
type AssetUploader interface {
	Upload(ctx context.Context, object, contentType string, r io.Reader) (storage.UploadResult, error)
	Delete(ctx context.Context, object string) error
	// PublicURL returns the durable address an object is served from.
	PublicURL(object string) string
}

// AssetServiceDeps groups constructor parameters for the asset service.
type AssetServiceDeps struct {
	Uploader AssetUploader
	Clock    func() time.Time
	Logger   Logger
	// ObjectPrefix namespaces uploaded objects inside the bucket
	// ("content" by default).
	ObjectPrefix string
}

type pendingUpload struct {
	filename    string
	contentType string
	size        int64
	chosenAt    time.Time
}

type assetService struct {
	uploader AssetUploader
	clock    func() time.Time
	log      Logger
	prefix   string

	mu      sync.Mutex
	pending map[string]pendingUpload
}

const defaultObjectPrefix = "content"

// NewAssetService constructs the asset service with the supplied dependencies.
func NewAssetService(deps AssetServiceDeps) (AssetService, error) {
	if deps.Uploader == nil {
		return nil, ErrAssetStoreMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = func(context.Context, string, map[string]any) {}
	}
	prefix := strings.Trim(strings.TrimSpace(deps.ObjectPrefix), "/")
	if prefix == "" {
		prefix = defaultObjectPrefix
	}
	return &assetService{
		uploader: deps.Uploader,
		clock:    func() time.Time { return clock().UTC() },
		log:      log,
		prefix:   prefix,
		pending:  make(map[string]pendingUpload),
	}, nil
}

// ChooseFile registers a chosen file under a fresh local handle. The handle
// is session-scoped; restarting the service forgets it.
func (s *assetService) ChooseFile(ctx context.Context, filename, contentType string, size int64) (domain.AssetReference, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return domain.AssetReference{}, ErrAssetNameRequired
	}

	handle := uuid.NewString()
	s.mu.Lock()
	s.pending[handle] = pendingUpload{
		filename:    filename,
		contentType: strings.TrimSpace(contentType),
		size:        size,
		chosenAt:    s.clock(),
	}
	s.mu.Unlock()

	s.log(ctx, "asset.chosen", map[string]any{
		"handle":   handle,
		"filename": filename,
		"size":     size,
	})
	return domain.LocalAsset(handle), nil
}

// CommitUpload pushes the bytes behind a local reference to the asset store
// and returns the durable remote reference. The local handle is consumed.
func (s *assetService) CommitUpload(ctx context.Context, ref domain.AssetReference, payload AssetPayload) (domain.AssetReference, error) {
	if !ref.IsLocal() {
		return domain.AssetReference{}, ErrAssetNotLocal
	}
	if payload.Body == nil {
		return domain.AssetReference{}, ErrAssetPayloadEmpty
	}

	handle := ref.Handle()
	s.mu.Lock()
	chosen, ok := s.pending[handle]
	s.mu.Unlock()
	if !ok {
		return domain.AssetReference{}, fmt.Errorf("%w: %s", ErrUnknownAssetHandle, handle)
	}

	filename := strings.TrimSpace(payload.Filename)
	if filename == "" {
		filename = chosen.filename
	}
	contentType := strings.TrimSpace(payload.ContentType)
	if contentType == "" {
		contentType = chosen.contentType
	}

	object := s.objectName(handle, filename)
	result, err := s.uploader.Upload(ctx, object, contentType, payload.Body)
	if err != nil {
		return domain.AssetReference{}, fmt.Errorf("asset service: upload %s: %w", object, err)
	}

	s.mu.Lock()
	delete(s.pending, handle)
	s.mu.Unlock()

	s.log(ctx, "asset.uploaded", map[string]any{
		"object": result.Object,
		"url":    result.URL,
		"size":   result.Size,
	})
	return domain.RemoteAsset(result.URL), nil
}

// DeleteAsset resets the field to the placeholder reference. Remote objects
// under our bucket are removed best-effort; foreign URLs are left alone.
func (s *assetService) DeleteAsset(ctx context.Context, ref domain.AssetReference) (domain.AssetReference, error) {
	if ref.IsLocal() {
		s.mu.Lock()
		delete(s.pending, ref.Handle())
		s.mu.Unlock()
		return domain.PlaceholderAsset(), nil
	}

	url, err := ref.PersistableURL()
	if err != nil {
		return domain.AssetReference{}, err
	}
	if object := s.ownedObject(url); object != "" {
		if err := s.uploader.Delete(ctx, object); err != nil {
			s.log(ctx, "asset.delete_failed", map[string]any{
				"object": object,
				"error":  err.Error(),
			})
		}
	}
	return domain.PlaceholderAsset(), nil
}

// objectName builds a collision-free object path: prefix/handle/filename.
func (s *assetService) objectName(handle, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return path.Join(s.prefix, handle, base)
}

// ownedObject extracts the object path from a URL this service minted, or ""
// for foreign URLs. The match is anchored to the uploader's public address
// for our prefix, so a lookalike path segment on another host or bucket
// never claims the object.
func (s *assetService) ownedObject(url string) string {
	base := s.uploader.PublicURL(s.prefix)
	if base == "" || !strings.HasPrefix(url, base+"/") {
		return ""
	}
	return path.Join(s.prefix, url[len(base)+1:])
}
