package trips

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/traveltogether/planner/internal/kv"
)

// StorageKey is the durable record the serialized collection lives under.
const StorageKey = "trips"

// DefaultCacheTTL bounds how stale a projection read may be. The list and
// calendar views re-read the collection on every repaint; the cache spares
// the medium a read-and-parse each time. Writes flush it immediately.
const DefaultCacheTTL = 5 * time.Second

const cacheKey = "collection"

// Store is the durable trip collection. All writes are read-modify-write
// under the store mutex, so a concurrent reader sees either the old or the
// new collection, never a truncated one.
type Store struct {
	kv    kv.Store
	cache *gocache.Cache
	now   func() time.Time

	mu sync.Mutex // serializes writers
}

// StoreOpts holds parameters for creating a Store.
type StoreOpts struct {
	KV       kv.Store
	CacheTTL time.Duration    // defaults to DefaultCacheTTL
	Now      func() time.Time // defaults to time.Now; override in tests
}

// NewStore creates a Store over the given durable medium.
func NewStore(opts StoreOpts) (*Store, error) {
	if opts.KV == nil {
		return nil, fmt.Errorf("trips: kv store is required")
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		kv:    opts.KV,
		cache: gocache.New(ttl, 2*ttl),
		now:   now,
	}, nil
}

// LoadAll returns the stored collection with every status normalized. An
// absent, empty, or malformed durable payload yields the seed defaults;
// a parse failure is never surfaced. Seeding happens at read time only;
// nothing is written back.
func (s *Store) LoadAll() ([]TripRecord, error) {
	if v, ok := s.cache.Get(cacheKey); ok {
		return cloneAll(v.([]TripRecord)), nil
	}
	recs, err := s.load()
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(cacheKey, cloneAll(recs))
	return recs, nil
}

// load reads and normalizes the collection without consulting the cache.
func (s *Store) load() ([]TripRecord, error) {
	payload, found, err := s.kv.Get(StorageKey)
	if err != nil {
		return nil, fmt.Errorf("trips: load: %w", err)
	}
	if !found {
		return Seeds(), nil
	}
	recs, ok := decode(payload)
	if !ok || len(recs) == 0 {
		return Seeds(), nil
	}
	for i := range recs {
		recs[i].normalize()
	}
	return recs, nil
}

// Append adds rec to the collection and persists the whole collection. The
// current collection is read through the same seeding path as LoadAll, so
// appending to a never-written store keeps the defaults a reader already
// saw. A zero ID is assigned from the clock, bumped past any collision.
func (s *Store) Append(rec TripRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		return err
	}

	rec.normalize()
	if rec.ID == 0 {
		rec.ID = s.now().UnixMilli()
	}
	for hasID(recs, rec.ID) {
		rec.ID++
	}

	return s.write(append(recs, rec))
}

// Replace overwrites the entire collection.
func (s *Store) Replace(recs []TripRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := cloneAll(recs)
	for i := range normalized {
		normalized[i].normalize()
	}
	return s.write(normalized)
}

// write serializes and persists recs, then drops the read cache. Callers
// hold s.mu.
func (s *Store) write(recs []TripRecord) error {
	payload, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("trips: encode: %w", err)
	}
	if err := s.kv.Set(StorageKey, string(payload)); err != nil {
		return fmt.Errorf("trips: persist: %w", err)
	}
	s.cache.Delete(cacheKey)
	return nil
}

func hasID(recs []TripRecord, id int64) bool {
	for _, r := range recs {
		if r.ID == id {
			return true
		}
	}
	return false
}
