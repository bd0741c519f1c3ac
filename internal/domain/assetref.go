package domain

import (
	"errors"
	"fmt"
	"strings"
)

// AssetKind distinguishes ephemeral local previews from durable URLs.
type AssetKind int

const (
	// AssetLocal marks a locally chosen file that has not been uploaded.
	// Valid only for the current session; must never be persisted.
	AssetLocal AssetKind = iota
	// AssetRemote marks a durable URL returned by the asset store.
	AssetRemote
)

// ErrEphemeralReference signals an attempt to persist a local-only asset
// reference. Callers must upload first and persist the returned URL.
var ErrEphemeralReference = errors.New("asset: ephemeral reference cannot be persisted")

// AssetReference is the tagged union of a local preview handle and a
// durable asset store URL. The zero value is the placeholder image.
type AssetReference struct {
	kind   AssetKind
	handle string
	url    string
}

// LocalAsset wraps an ephemeral preview handle.
func LocalAsset(handle string) AssetReference {
	return AssetReference{kind: AssetLocal, handle: strings.TrimSpace(handle)}
}

// RemoteAsset wraps a durable URL returned by the asset store.
func RemoteAsset(url string) AssetReference {
	return AssetReference{kind: AssetRemote, url: strings.TrimSpace(url)}
}

// PlaceholderAsset returns the sentinel reference used after deletion.
func PlaceholderAsset() AssetReference {
	return AssetReference{kind: AssetRemote, url: PlaceholderImage}
}

// Kind reports whether the reference is local or remote.
func (r AssetReference) Kind() AssetKind {
	if r.kind == AssetLocal && r.handle == "" && r.url == "" {
		return AssetRemote
	}
	return r.kind
}

// IsLocal reports whether the reference is an ephemeral preview.
func (r AssetReference) IsLocal() bool { return r.Kind() == AssetLocal }

// Handle returns the local preview handle, empty for remote references.
func (r AssetReference) Handle() string { return r.handle }

// DisplayURL returns a value usable for rendering regardless of kind.
func (r AssetReference) DisplayURL() string {
	if r.Kind() == AssetLocal {
		return r.handle
	}
	if r.url == "" {
		return PlaceholderImage
	}
	return r.url
}

// PersistableURL returns the durable URL, or ErrEphemeralReference when the
// reference is still local. This is the only path persistence code may use.
func (r AssetReference) PersistableURL() (string, error) {
	if r.Kind() == AssetLocal {
		return "", fmt.Errorf("%w: %s", ErrEphemeralReference, r.handle)
	}
	if r.url == "" {
		return PlaceholderImage, nil
	}
	return r.url, nil
}

// String implements fmt.Stringer for log output.
func (r AssetReference) String() string {
	if r.Kind() == AssetLocal {
		return "local:" + r.handle
	}
	return r.DisplayURL()
}
