package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("store")

// Ext is the extension of entity files written by the file store.
const Ext = ".mp"

// maxNameLen bounds encoded file names; longer keys fall back to a hash name.
// Kept well under common filesystem limits (255 bytes).
const maxNameLen = 180

type fileStore struct {
	root string
}

var _ Store = (*fileStore)(nil)

// NewFile returns a Store that keeps one file per entity at
// root/<domain>/<encoded key>.mp. Keys are percent-encoded so any string is a
// valid file name; keys too long for a file name are replaced by their xxhash
// digest. Writes are atomic: data lands in a temp file in the same directory
// and is renamed into place, so concurrent readers never observe a partial
// file.
func NewFile(root string) Store {
	return &fileStore{root: root}
}

// EncodeKey returns the file name (without extension) used for key.
// Exported so external tooling can locate entity files.
func EncodeKey(key string) string {
	encoded := url.PathEscape(key)
	// PathEscape leaves a few characters alone that are unsafe in file names.
	encoded = strings.ReplaceAll(encoded, ":", "%3A")
	if len(encoded) > maxNameLen {
		return fmt.Sprintf("x%016x", xxhash.Sum64String(key))
	}
	return encoded
}

func (s *fileStore) path(domain, key string) string {
	return filepath.Join(s.root, domain, EncodeKey(key)+Ext)
}

func (s *fileStore) Load(_ context.Context, domain, key string) ([]byte, bool, error) {
	if err := checkPair(domain, key); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(s.path(domain, key))
	if err != nil {
		if !os.IsNotExist(err) {
			// Unreadable entries are misses; the value will be refetched.
			log.Debugw("unreadable entry treated as miss", "domain", domain, "key", key, "err", err)
		}
		return nil, false, nil
	}
	return data, true, nil
}

func (s *fileStore) Save(_ context.Context, domain, key string, data []byte) error {
	if err := checkPair(domain, key); err != nil {
		return err
	}
	dir := filepath.Join(s.root, domain)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "store: creating domain dir %q", domain)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "store: creating temp file")
	}
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "store: writing entry %s/%s", domain, key)
	}
	if err = os.Rename(tmp.Name(), s.path(domain, key)); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "store: publishing entry %s/%s", domain, key)
	}
	return nil
}

func (s *fileStore) Delete(_ context.Context, domain, key string) error {
	if err := checkPair(domain, key); err != nil {
		return err
	}
	if err := os.Remove(s.path(domain, key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "store: deleting entry %s/%s", domain, key)
	}
	return nil
}

func (s *fileStore) DeleteDomain(_ context.Context, domain string) error {
	if err := checkDomain(domain); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.root, domain)); err != nil {
		return errors.Wrapf(err, "store: deleting domain %q", domain)
	}
	return nil
}
