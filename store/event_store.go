package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"event-booker/models"
)

// DefaultEventsKey is the well-known key holding the whole event collection
// as one serialized JSON array.
const DefaultEventsKey = "events"

// Change operations reported to subscribers.
const (
	OpAppend = "append"
	OpClear  = "clear"
)

// ChangeEvent notifies subscribers that the persisted event collection was
// mutated. EventID is set for appends, zero for clears.
type ChangeEvent struct {
	Op      string    `json:"op"`
	EventID int64     `json:"event_id,omitempty"`
	At      time.Time `json:"at"`
}

// Broadcaster fans a change notification out beyond the process, e.g. to
// browser clients holding a cached copy of the collection. Implementations
// must not block the caller for long; publish failures are logged, never
// surfaced to the writer.
type Broadcaster interface {
	EventsChanged(ctx context.Context, change ChangeEvent)
}

// EventStore is the persistence boundary for the event collection.
type EventStore interface {
	List(ctx context.Context) ([]models.RawRecord, error)
	Append(ctx context.Context, input models.EventInput) (models.EventRecord, error)
	Clear(ctx context.Context) error

	// Subscribe registers an in-process observer of collection changes.
	// The returned func unsubscribes; after it returns the channel is closed.
	Subscribe() (<-chan ChangeEvent, func())
}

// RedisStore keeps the entire collection under a single Redis key, mirroring
// a browser localStorage entry: read the blob, mutate, write it back. Writes
// are serialized through a mutex; reads always decode a fresh snapshot so no
// caller ever observes in-place mutation.
type RedisStore struct {
	Redis *redis.Client

	key         string
	broadcaster Broadcaster
	now         func() time.Time

	mu   sync.Mutex // serializes read-modify-write cycles
	subs struct {
		sync.Mutex
		m      map[int]chan ChangeEvent
		nextID int
	}
}

// Option configures a RedisStore.
type Option func(*RedisStore)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *RedisStore) { s.key = key }
}

// WithBroadcaster attaches an outward change-notification fan-out.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *RedisStore) { s.broadcaster = b }
}

// WithNow overrides the clock used for ID assignment.
func WithNow(now func() time.Time) Option {
	return func(s *RedisStore) { s.now = now }
}

func NewRedisStore(redisClient *redis.Client, opts ...Option) *RedisStore {
	s := &RedisStore{
		Redis: redisClient,
		key:   DefaultEventsKey,
		now:   time.Now,
	}
	s.subs.m = make(map[int]chan ChangeEvent)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the stored collection as raw records. An absent key yields an
// empty collection; so does a corrupt blob (logged, never fatal).
func (s *RedisStore) List(ctx context.Context) ([]models.RawRecord, error) {
	data, err := s.Redis.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return []models.RawRecord{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}

	var raws []models.RawRecord
	if err := json.Unmarshal(data, &raws); err != nil {
		log.Printf("store: corrupt blob under %q, treating as empty: %v", s.key, err)
		return []models.RawRecord{}, nil
	}
	if raws == nil {
		raws = []models.RawRecord{}
	}
	return raws, nil
}

// Append assigns a unique ID to the input, adds it to the collection without
// touching previously stored records, persists the blob and notifies
// subscribers. The ID scheme is the creation timestamp in milliseconds,
// bumped past the current maximum on collision.
func (s *RedisStore) Append(ctx context.Context, input models.EventInput) (models.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raws, err := s.List(ctx)
	if err != nil {
		return models.EventRecord{}, err
	}

	id := s.nextID(raws)

	raw, err := rawFromInput(input, id)
	if err != nil {
		return models.EventRecord{}, fmt.Errorf("store: encode input: %w", err)
	}
	raws = append(raws, raw)

	blob, err := json.Marshal(raws)
	if err != nil {
		return models.EventRecord{}, fmt.Errorf("store: encode blob: %w", err)
	}
	if err := s.Redis.Set(ctx, s.key, blob, 0).Err(); err != nil {
		return models.EventRecord{}, fmt.Errorf("store: append: %w", err)
	}

	rec := recordFromInput(input, id)
	s.notify(ChangeEvent{Op: OpAppend, EventID: id, At: s.now()})
	return rec, nil
}

// Clear drops the whole collection and notifies subscribers.
func (s *RedisStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	s.notify(ChangeEvent{Op: OpClear, At: s.now()})
	return nil
}

// Subscribe registers an observer. Notification channels are buffered and
// sends never block: a subscriber that has fallen behind simply coalesces
// into its pending notification, the way a view coalesces re-fetches.
func (s *RedisStore) Subscribe() (<-chan ChangeEvent, func()) {
	s.subs.Lock()
	defer s.subs.Unlock()

	id := s.subs.nextID
	s.subs.nextID++

	ch := make(chan ChangeEvent, 8)
	s.subs.m[id] = ch

	unsubscribe := func() {
		s.subs.Lock()
		defer s.subs.Unlock()
		if c, ok := s.subs.m[id]; ok {
			delete(s.subs.m, id)
			close(c)
		}
	}
	return ch, unsubscribe
}

func (s *RedisStore) notify(change ChangeEvent) {
	s.subs.Lock()
	for _, ch := range s.subs.m {
		select {
		case ch <- change:
		default:
		}
	}
	s.subs.Unlock()

	if s.broadcaster != nil {
		go s.broadcaster.EventsChanged(context.Background(), change)
	}
}

func (s *RedisStore) nextID(raws []models.RawRecord) int64 {
	next := s.now().UnixMilli()
	var maxID int64
	for _, raw := range raws {
		switch v := raw["id"].(type) {
		case float64:
			if int64(v) > maxID {
				maxID = int64(v)
			}
		case int64:
			if v > maxID {
				maxID = v
			}
		}
	}
	if next <= maxID {
		next = maxID + 1
	}
	return next
}

// rawFromInput converts the typed input into the stored raw shape via its
// JSON encoding, then stamps the assigned ID.
func rawFromInput(input models.EventInput, id int64) (models.RawRecord, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	var raw models.RawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	raw["id"] = id
	return raw, nil
}

func recordFromInput(input models.EventInput, id int64) models.EventRecord {
	rec := models.EventRecord{
		ID:          id,
		Title:       input.Title,
		Price:       input.Price,
		Date:        models.ParseStoredDate(input.Date),
		Time:        input.Time,
		Duration:    input.Duration,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		Location:    input.Location,
	}
	if input.MaxAttendees > 0 {
		max := input.MaxAttendees
		rec.MaxAttendees = &max
	}
	cur := input.CurrentAttendees
	rec.CurrentAttendees = &cur
	return rec
}
