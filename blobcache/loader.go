// Package blobcache caches large immutable payloads fetched from URLs — file
// downloads, media, decoded images. Downloads for the same URL are coalesced
// into one transfer, the raw blob is kept on disk, and the decoded in-memory
// objects live in a capacity-bounded LRU. Blobs are assumed immutable at
// their locator, so there is no TTL: invalidation is manual.
package blobcache

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	logging "github.com/ipfs/go-log/v2"

	"github.com/crontab/multiplexer/lru"
	"github.com/crontab/multiplexer/mux"
)

var log = logging.Logger("blobcache")

// ErrEmptyLocator is returned when a request is made with an empty locator.
var ErrEmptyLocator = errors.New("blobcache: empty locator")

// DefaultObjectCapacity bounds the decoded-object LRU when the config leaves
// it zero.
const DefaultObjectCapacity = 50

// Transform converts a downloaded blob on disk into its in-memory form, e.g.
// decoding an image. A failure marks the blob corrupt: it is deleted and the
// request fails.
type Transform[B any] func(path string) (B, error)

// Config configures a Loader. ID, Dir and Transform are required.
type Config[B any] struct {
	// ID identifies the loader in a registry. Required.
	ID string
	// Dir is where downloaded blobs are kept. Required.
	Dir string
	// Transform decodes a blob file into its in-memory form. Required.
	Transform Transform[B]
	// ObjectCapacity bounds the decoded-object LRU. Defaults to
	// DefaultObjectCapacity.
	ObjectCapacity int
	// Client performs downloads. Defaults to a retryablehttp client with
	// logging disabled.
	Client *retryablehttp.Client
	// Registry, when set, has the loader registered under ID.
	Registry *mux.Registry
}

// Loader is a blob cache keyed by locator (URL or local path). Requests for
// the same locator share one download and one decode; decoded objects are
// served from an LRU, raw blobs from disk.
type Loader[B any] struct {
	cfg      Config[B]
	registry *mux.Registry

	mu      sync.Mutex
	objects *lru.Cache[string, B]
	pending map[string][]mux.Completion[B]
}

var _ mux.Cacher = (*Loader[int])(nil)

// New returns a Loader built from cfg.
func New[B any](cfg Config[B]) (*Loader[B], error) {
	if cfg.ID == "" {
		return nil, mux.ErrNoID
	}
	if cfg.Dir == "" {
		return nil, errors.New("blobcache: dir is required")
	}
	if cfg.Transform == nil {
		return nil, errors.New("blobcache: transform is required")
	}
	if cfg.ObjectCapacity <= 0 {
		cfg.ObjectCapacity = DefaultObjectCapacity
	}
	if cfg.Client == nil {
		client := retryablehttp.NewClient()
		client.Logger = nil
		cfg.Client = client
	}
	l := &Loader[B]{
		cfg:      cfg,
		registry: cfg.Registry,
		objects:  lru.New[string, B](cfg.ObjectCapacity),
		pending:  make(map[string][]mux.Completion[B]),
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(l)
	}
	return l, nil
}

// ID returns the loader identifier.
func (l *Loader[B]) ID() string {
	return l.cfg.ID
}

// localPath returns the filesystem path for a non-remote locator, or "" if
// the locator requires a download.
func localPath(locator string) string {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" {
		return locator
	}
	if u.Scheme == "file" {
		return u.Path
	}
	if len(u.Scheme) == 1 {
		// Windows drive letter, not a URL scheme.
		return locator
	}
	return ""
}

// blobPath returns where the downloaded blob for locator lives on disk.
func (l *Loader[B]) blobPath(locator string) string {
	return filepath.Join(l.cfg.Dir, fmt.Sprintf("b%016x.blob", xxhash.Sum64String(locator)))
}

// Request delivers the decoded object for locator through complete. A cached
// object is delivered before Request returns. Otherwise the request joins the
// single in-flight load for its locator: blob on disk (downloaded if needed),
// then transformed, then cached. A local locator skips the download and is
// transformed in place.
func (l *Loader[B]) Request(ctx context.Context, locator string, complete mux.Completion[B]) {
	if locator == "" {
		var zero B
		complete(zero, ErrEmptyLocator)
		return
	}
	l.mu.Lock()
	if obj, ok := l.objects.Touch(locator); ok {
		l.mu.Unlock()
		complete(obj, nil)
		return
	}
	l.pending[locator] = append(l.pending[locator], complete)
	if len(l.pending[locator]) > 1 {
		// A load for this locator is already in flight.
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	go l.load(ctx, locator)
}

// Fetch is the synchronous form of Request.
func (l *Loader[B]) Fetch(ctx context.Context, locator string) (B, error) {
	type outcome struct {
		obj B
		err error
	}
	done := make(chan outcome, 1)
	l.Request(ctx, locator, func(obj B, err error) {
		done <- outcome{obj, err}
	})
	select {
	case out := <-done:
		return out.obj, out.err
	case <-ctx.Done():
		var zero B
		return zero, ctx.Err()
	}
}

func (l *Loader[B]) load(ctx context.Context, locator string) {
	path := localPath(locator)
	remote := path == ""
	if remote {
		path = l.blobPath(locator)
		if _, err := os.Stat(path); err != nil {
			if err := l.download(ctx, locator, path); err != nil {
				l.resolve(locator, nil, err)
				return
			}
		}
	}

	obj, err := l.cfg.Transform(path)
	if err != nil {
		if remote {
			// Corrupt artifact: remove it so the next request redownloads.
			os.Remove(path)
		}
		l.resolve(locator, nil, errors.Wrapf(err, "blobcache: transforming %s", locator))
		return
	}
	l.resolve(locator, &obj, nil)
}

// resolve caches the object (on success) and drains the locator's waiter
// queue in arrival order. The queue is snapshotted before any completion
// runs, so a completion may immediately re-request the same locator.
func (l *Loader[B]) resolve(locator string, obj *B, cause error) {
	l.mu.Lock()
	if obj != nil {
		l.objects.Set(locator, *obj)
	}
	pending := l.pending[locator]
	delete(l.pending, locator)
	l.mu.Unlock()

	for _, complete := range pending {
		if obj != nil {
			complete(*obj, nil)
		} else {
			var zero B
			complete(zero, cause)
		}
	}
}

func (l *Loader[B]) download(ctx context.Context, locator, dst string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return errors.Wrapf(err, "blobcache: building request for %s", locator)
	}
	resp, err := l.cfg.Client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "blobcache: fetching %s", locator)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("blobcache: unexpected status %d fetching %s", resp.StatusCode, locator)
	}

	if err := os.MkdirAll(l.cfg.Dir, 0o755); err != nil {
		return errors.Wrap(err, "blobcache: creating blob dir")
	}
	// Unique temp name: loads for different locators share this directory.
	tmp := filepath.Join(l.cfg.Dir, uuid.NewString()+".part")
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "blobcache: creating temp file")
	}
	_, err = f.ReadFrom(resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "blobcache: downloading %s", locator)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "blobcache: publishing blob for %s", locator)
	}
	return nil
}

// ClearLocator removes locator's decoded object and its blob file.
func (l *Loader[B]) ClearLocator(locator string) {
	l.mu.Lock()
	l.objects.Remove(locator)
	l.mu.Unlock()
	if localPath(locator) == "" {
		if err := os.Remove(l.blobPath(locator)); err != nil && !os.IsNotExist(err) {
			log.Errorw("failed to remove blob", "locator", locator, "err", err)
		}
	}
}

// ClearMemory drops all decoded objects, keeping blobs on disk.
func (l *Loader[B]) ClearMemory() {
	l.mu.Lock()
	l.objects.Clear()
	l.mu.Unlock()
}

// Clear drops all decoded objects and deletes every blob on disk.
func (l *Loader[B]) Clear(_ context.Context) {
	l.ClearMemory()
	if err := os.RemoveAll(l.cfg.Dir); err != nil {
		log.Errorw("failed to remove blob dir", "dir", l.cfg.Dir, "err", err)
	}
}

// Flush is a no-op: blobs are persisted at download time.
func (l *Loader[B]) Flush(_ context.Context) {}

// Unregister removes the loader from the registry it was constructed with.
func (l *Loader[B]) Unregister() {
	if l.registry != nil {
		l.registry.Unregister(l.cfg.ID)
	}
}
