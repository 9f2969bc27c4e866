package charge

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"

	"golang.org/x/sync/singleflight"
)

const defaultCatalogKey = "builtin:acid_base_pairs"

// CatalogCache shares immutable catalogs between callers that build them
// from the same source. Concurrent requests for one key run a single
// construction. Nothing is cached unless a caller goes through a cache.
type CatalogCache struct {
	mu       sync.RWMutex
	catalogs map[string]*AcidBaseCatalog
	group    singleflight.Group
}

func NewCatalogCache() *CatalogCache {
	return &CatalogCache{catalogs: make(map[string]*AcidBaseCatalog)}
}

func (c *CatalogCache) get(key string, build func() (*AcidBaseCatalog, error)) (*AcidBaseCatalog, error) {
	c.mu.RLock()
	cat, ok := c.catalogs[key]
	c.mu.RUnlock()
	if ok {
		return cat, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		cat, ok := c.catalogs[key]
		c.mu.RUnlock()
		if ok {
			return cat, nil
		}
		cat, err := build()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.catalogs[key] = cat
		c.mu.Unlock()
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*AcidBaseCatalog), nil
}

// FromFile returns the catalog loaded from path, keyed by the path.
func (c *CatalogCache) FromFile(path string) (*AcidBaseCatalog, error) {
	return c.get("file:"+path, func() (*AcidBaseCatalog, error) {
		return LoadAcidBaseCatalogFile(path)
	})
}

// FromEntries returns the catalog built from entries, keyed by their
// content.
func (c *CatalogCache) FromEntries(entries []AcidBaseEntry) (*AcidBaseCatalog, error) {
	h := sha256.New()
	for _, e := range entries {
		io.WriteString(h, e.Name)
		h.Write([]byte{0})
		io.WriteString(h, e.Acid)
		h.Write([]byte{0})
		io.WriteString(h, e.Base)
		h.Write([]byte{'\n'})
	}
	key := "entries:" + hex.EncodeToString(h.Sum(nil))
	return c.get(key, func() (*AcidBaseCatalog, error) {
		return NewAcidBaseCatalog(entries)
	})
}

// FromReader returns the catalog stored under key, reading the TSV stream
// only when the key is new.
func (c *CatalogCache) FromReader(key string, r io.Reader) (*AcidBaseCatalog, error) {
	return c.get("reader:"+key, func() (*AcidBaseCatalog, error) {
		return LoadAcidBaseCatalog(r)
	})
}

// Default returns the built-in catalog.
func (c *CatalogCache) Default() (*AcidBaseCatalog, error) {
	return c.get(defaultCatalogKey, DefaultAcidBaseCatalog)
}

// Len returns the number of cached catalogs.
func (c *CatalogCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.catalogs)
}

// Purge drops every cached catalog.
func (c *CatalogCache) Purge() {
	c.mu.Lock()
	c.catalogs = make(map[string]*AcidBaseCatalog)
	c.mu.Unlock()
}
