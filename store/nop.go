package store

import "context"

type nopStore struct{}

var _ Store = nopStore{}

// Nop returns a Store that never finds anything and ignores writes.
// Useful for callers that want memory-only caching.
func Nop() Store {
	return nopStore{}
}

func (nopStore) Load(_ context.Context, domain, key string) ([]byte, bool, error) {
	if err := checkPair(domain, key); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

func (nopStore) Save(_ context.Context, domain, key string, _ []byte) error {
	return checkPair(domain, key)
}

func (nopStore) Delete(_ context.Context, domain, key string) error {
	return checkPair(domain, key)
}

func (nopStore) DeleteDomain(_ context.Context, domain string) error {
	return checkDomain(domain)
}
