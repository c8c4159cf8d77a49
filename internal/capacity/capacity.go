// Package capacity enforces the device-dependent cap on total stored
// blob bytes.
package capacity

import (
	"context"
	"fmt"
	"runtime"

	"github.com/polyplayapp/polyplay/internal/blobstore"
)

// Storage caps per device profile.
const (
	ConstrainedCap   = 250 << 20 // 250 MiB on constrained/mobile devices
	UnconstrainedCap = 2 << 30   // 2 GiB on desktops
)

// StorageCapError reports a write that would exceed the storage cap.
// It is recoverable: the user can free space and retry.
type StorageCapError struct {
	Cap       int64
	Used      int64
	Projected int64
}

func (e *StorageCapError) Error() string {
	return fmt.Sprintf("storage cap exceeded: projected %d bytes over cap %d (used %d)",
		e.Projected, e.Cap, e.Used)
}

// Probe reports whether the device runs a constrained (mobile) profile.
type Probe interface {
	IsConstrained() bool
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func() bool

func (f ProbeFunc) IsConstrained() bool { return f() }

// DefaultProbe selects the profile from the runtime platform.
func DefaultProbe() Probe {
	return ProbeFunc(func() bool {
		return runtime.GOOS == "android" || runtime.GOOS == "ios"
	})
}

// Guard computes used bytes from the blob store and rejects writes that
// would exceed the cap. The check has no side effects; it is not atomic
// with any subsequent blob write, so callers must serialize mutations.
type Guard struct {
	blobs    blobstore.BlobStore
	probe    Probe
	override int64
}

// NewGuard creates a capacity guard. A non-zero override replaces the
// profile-derived cap.
func NewGuard(blobs blobstore.BlobStore, probe Probe, override int64) *Guard {
	return &Guard{blobs: blobs, probe: probe, override: override}
}

// Cap returns the effective storage cap in bytes.
func (g *Guard) Cap() int64 {
	if g.override > 0 {
		return g.override
	}
	if g.probe.IsConstrained() {
		return ConstrainedCap
	}
	return UnconstrainedCap
}

// Used sums the size of every stored blob.
func (g *Guard) Used(ctx context.Context) (int64, error) {
	stats, err := g.blobs.ListStats(ctx)
	if err != nil {
		return 0, fmt.Errorf("list blob stats: %w", err)
	}
	var used int64
	for _, st := range stats {
		used += st.Bytes
	}
	return used, nil
}

// EnsureCapacity fails with a *StorageCapError exactly when
// used + additional > cap; otherwise it succeeds with no side effect.
func (g *Guard) EnsureCapacity(ctx context.Context, additional int64) error {
	used, err := g.Used(ctx)
	if err != nil {
		return err
	}
	cap := g.Cap()
	if used+additional > cap {
		return &StorageCapError{Cap: cap, Used: used, Projected: used + additional}
	}
	return nil
}
