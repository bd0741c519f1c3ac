package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stubAccessor struct {
	values map[string][]byte
	err    error
	calls  int
	closed bool
}

func (s *stubAccessor) AccessSecret(_ context.Context, name string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.values[name]; ok {
		return v, nil
	}
	return nil, status.Error(codes.NotFound, "secret not found")
}

func (s *stubAccessor) Close() error {
	s.closed = true
	return nil
}

func newTestFetcher(t *testing.T, opts ...Option) *Fetcher {
	t.Helper()
	opts = append([]Option{WithFallbackFile("")}, opts...)
	f, err := NewFetcher(context.Background(), opts...)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}
	return f
}

func TestResolveSecretFromManager(t *testing.T) {
	accessor := &stubAccessor{values: map[string][]byte{
		"projects/hh-dev/secrets/storage-signer/versions/latest": []byte("signer-key"),
	}}
	f := newTestFetcher(t, WithClient(accessor), WithDefaultProject("hh-dev"))

	value, err := f.ResolveSecret(context.Background(), "secret://storage-signer")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if value != "signer-key" {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestResolveSecretUsesCache(t *testing.T) {
	accessor := &stubAccessor{values: map[string][]byte{
		"projects/hh-dev/secrets/storage-signer/versions/latest": []byte("signer-key"),
	}}
	f := newTestFetcher(t, WithClient(accessor), WithDefaultProject("hh-dev"))

	for i := 0; i < 3; i++ {
		if _, err := f.ResolveSecret(context.Background(), "secret://storage-signer"); err != nil {
			t.Fatalf("ResolveSecret returned error: %v", err)
		}
	}
	if accessor.calls != 1 {
		t.Fatalf("expected a single remote fetch, got %d", accessor.calls)
	}
}

func TestResolveSecretVersionAndProjectOverrides(t *testing.T) {
	accessor := &stubAccessor{values: map[string][]byte{
		"projects/hh-other/secrets/storage-signer/versions/7": []byte("pinned"),
	}}
	f := newTestFetcher(t, WithClient(accessor), WithDefaultProject("hh-dev"))

	value, err := f.ResolveSecret(context.Background(), "secret://storage-signer?version=7&project=hh-other")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if value != "pinned" {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestResolveSecretFallsBackOnPermissionDenied(t *testing.T) {
	dir := t.TempDir()
	fallbackPath := filepath.Join(dir, ".secrets.local")
	content := "secret://storage-signer=local-key\n"
	if err := os.WriteFile(fallbackPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing fallback file: %v", err)
	}

	accessor := &stubAccessor{err: status.Error(codes.PermissionDenied, "denied")}
	f := newTestFetcher(t, WithClient(accessor), WithDefaultProject("hh-dev"), WithFallbackFile(fallbackPath))

	value, err := f.ResolveSecret(context.Background(), "secret://storage-signer")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if value != "local-key" {
		t.Fatalf("unexpected fallback value %q", value)
	}
}

func TestResolveSecretPropagatesHardErrors(t *testing.T) {
	accessor := &stubAccessor{err: status.Error(codes.NotFound, "missing")}
	f := newTestFetcher(t, WithClient(accessor), WithDefaultProject("hh-dev"))

	if _, err := f.ResolveSecret(context.Background(), "secret://storage-signer"); err == nil {
		t.Fatal("expected error for not-found secret")
	}
}

func TestResolveSecretRejectsBadReferences(t *testing.T) {
	f := newTestFetcher(t, WithClient(&stubAccessor{}))

	cases := []string{"", "https://example.com/secret", "secret://"}
	for _, ref := range cases {
		if _, err := f.ResolveSecret(context.Background(), ref); err == nil {
			t.Errorf("expected error for reference %q", ref)
		}
	}
}

func TestInvalidateClearsCache(t *testing.T) {
	accessor := &stubAccessor{values: map[string][]byte{
		"projects/hh-dev/secrets/storage-signer/versions/latest": []byte("signer-key"),
	}}
	f := newTestFetcher(t, WithClient(accessor), WithDefaultProject("hh-dev"))

	if _, err := f.ResolveSecret(context.Background(), "secret://storage-signer"); err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	f.Invalidate("secret://storage-signer")
	if _, err := f.ResolveSecret(context.Background(), "secret://storage-signer"); err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if accessor.calls != 2 {
		t.Fatalf("expected refetch after invalidation, got %d calls", accessor.calls)
	}
}

func TestCloseOnlyClosesOwnedClient(t *testing.T) {
	accessor := &stubAccessor{}
	f := newTestFetcher(t, WithClient(accessor))
	if err := f.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if accessor.closed {
		t.Fatal("injected client should not be closed by the fetcher")
	}

	var fallbackOnly Fetcher
	if err := fallbackOnly.Close(); err != nil {
		t.Fatalf("Close on fallback-only fetcher returned error: %v", err)
	}
}

func TestFallbackSupportsLegacyScheme(t *testing.T) {
	dir := t.TempDir()
	fallbackPath := filepath.Join(dir, ".secrets.local")
	content := "sm://storage-signer=legacy-key\n"
	if err := os.WriteFile(fallbackPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing fallback file: %v", err)
	}

	accessor := &stubAccessor{err: status.Error(codes.Unavailable, "offline")}
	f := newTestFetcher(t, WithClient(accessor), WithDefaultProject("hh-dev"), WithFallbackFile(fallbackPath))

	value, err := f.ResolveSecret(context.Background(), "secret://storage-signer")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if value != "legacy-key" {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestResolveSecretErrorsWithoutFallback(t *testing.T) {
	accessor := &stubAccessor{err: status.Error(codes.Unavailable, "offline")}
	f := newTestFetcher(t, WithClient(accessor), WithDefaultProject("hh-dev"))

	if _, err := f.ResolveSecret(context.Background(), "secret://storage-signer"); err == nil {
		t.Fatal("expected error when no client and no fallback available")
	}
}
