package repository

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/theoremus-urban-solutions/siri-hub/storage"
)

// Strategy holds the per-kind behaviour the generic repository is
// parameterized by. Only DeriveKey and Expiry are mandatory.
type Strategy[T any] struct {
	// Prefilter rejects items before key derivation. A non-nil error
	// skips the item (counted, never a batch failure).
	Prefilter func(item T) error

	// DeriveKey maps an item to its storage key. Must be a pure function
	// of the item's fields.
	DeriveKey func(datasetID string, item T) (storage.Key, error)

	// Prepare rewrites an item before dedup and storage, for producer
	// quirks that must be corrected on the way in. Nil keeps the item
	// as submitted.
	Prepare func(item T, now time.Time) T

	// Normalize returns a copy with volatile fields cleared for digest
	// computation. Nil means digest the item as-is.
	Normalize func(item T) T

	// AcceptOrder reports whether candidate may replace existing when
	// their digests differ. Nil means always accept.
	AcceptOrder func(existing, candidate T) bool

	// Merge combines an incoming item with the stored one before
	// writing. Nil means the incoming item replaces the stored one.
	Merge func(existing, candidate T) T

	// Expiry computes the item's time-to-live. A non-positive result
	// means the item is already expired and must not be stored.
	Expiry func(item T, now time.Time) time.Duration

	// Admit filters keys for delta deliveries, given the consumer's
	// preview interval. Nil admits everything.
	Admit func(key storage.Key, previewInterval time.Duration, now time.Time) bool

	// Less orders full deliveries. Nil leaves map iteration order.
	Less func(a, b T) bool

	// OnStored and OnDeleted maintain kind-owned side state.
	OnStored  func(key storage.Key, item T, ttl time.Duration)
	OnDeleted func(key storage.Key)
}

// Maps bundles the backing maps one repository operates on, so any
// storage backend can be injected.
type Maps[T any] struct {
	Entities   storage.Map[storage.Key, T]
	Checksums  storage.Map[storage.Key, string]
	Changes    storage.Map[string, []storage.Key]
	LastPoll   storage.Map[string, time.Time]
	Requestors storage.Map[string, RequestorStats]
}

// NewMemoryMaps builds a full in-process map set.
func NewMemoryMaps[T any]() Maps[T] {
	return Maps[T]{
		Entities:   storage.NewMemoryMap[storage.Key, T](),
		Checksums:  storage.NewMemoryMap[storage.Key, string](),
		Changes:    storage.NewMemoryMap[string, []storage.Key](),
		LastPoll:   storage.NewMemoryMap[string, time.Time](),
		Requestors: storage.NewMemoryMap[string, RequestorStats](),
	}
}

// Options carries the tuning knobs shared by all kinds.
type Options struct {
	GracePeriod         time.Duration
	TrackingPeriod      time.Duration
	AdHocTrackingPeriod time.Duration
	CommitInterval      time.Duration
	Logger              *logrus.Logger
	Clock               func() time.Time
}

// Stats are the aggregate counts of one ingestion batch.
type Stats struct {
	Total     int `json:"total"`
	Accepted  int `json:"accepted"`
	Unchanged int `json:"unchanged"`
	Outdated  int `json:"outdated"`
	Skipped   int `json:"skipped"`
}

// DeliveryRequest parameterizes a paginated delta read.
type DeliveryRequest struct {
	ConsumerID         string
	DatasetID          string
	ClientTrackingName string
	ExcludedDatasetIDs []string
	PageSize           int
	PreviewInterval    time.Duration
}

// Delivery is the result of a delta read. ConsumerID echoes the id the
// consumer should poll with next, synthesized for ad-hoc requests.
type Delivery[T any] struct {
	Items      []T
	MoreData   bool
	ConsumerID string
}

// Repository is the incremental object store for one SIRI data kind.
type Repository[T any] struct {
	kind       string
	strategy   Strategy[T]
	entities   storage.Map[storage.Key, T]
	checksums  storage.Map[storage.Key, string]
	tracker    *Tracker
	requestors *RequestorRegistry
	opts       Options
	log        *logrus.Logger
	now        func() time.Time
}

// New builds a repository for one kind over the given maps.
func New[T any](kind string, strategy Strategy[T], maps Maps[T], opts Options) *Repository[T] {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Repository[T]{
		kind:       kind,
		strategy:   strategy,
		entities:   maps.Entities,
		checksums:  maps.Checksums,
		tracker:    NewTracker(maps.Changes, maps.LastPoll, opts.TrackingPeriod, opts.CommitInterval, opts.Logger),
		requestors: NewRequestorRegistry(maps.Requestors),
		opts:       opts,
		log:        opts.Logger,
		now:        opts.Clock,
	}
}

// Kind returns the data kind this repository stores.
func (r *Repository[T]) Kind() string { return r.kind }

// Tracker exposes the change tracker so the process lifecycle can run
// its flush loop.
func (r *Repository[T]) Tracker() *Tracker { return r.tracker }

// Requestors exposes the poll statistics registry.
func (r *Repository[T]) Requestors() *RequestorRegistry { return r.requestors }

// AddAll ingests a batch for one dataset. Malformed items are skipped
// and counted, never a batch failure; only backing-store errors abort
// the batch. Returns the accepted items and the aggregate counts.
func (r *Repository[T]) AddAll(datasetID string, items []T) ([]T, Stats, error) {
	now := r.now()
	stats := Stats{Total: len(items)}
	accepted := make([]T, 0, len(items))
	changed := make([]storage.Key, 0, len(items))

	for _, item := range items {
		if r.strategy.Prefilter != nil {
			if err := r.strategy.Prefilter(item); err != nil {
				stats.Skipped++
				r.log.WithError(err).WithField("kind", r.kind).Debug("skipping item")
				continue
			}
		}
		key, err := r.strategy.DeriveKey(datasetID, item)
		if err != nil {
			stats.Skipped++
			r.log.WithError(err).WithField("kind", r.kind).Debug("skipping item without identity")
			continue
		}
		if r.strategy.Prepare != nil {
			item = r.strategy.Prepare(item, now)
		}

		normalized := item
		if r.strategy.Normalize != nil {
			normalized = r.strategy.Normalize(item)
		}
		dig, digestOK := digest(normalized)
		if digestOK {
			prev, found, err := r.checksums.Get(key)
			if err != nil {
				return accepted, stats, fmt.Errorf("reading checksum for %s: %w", key, err)
			}
			if found && prev == dig {
				stats.Unchanged++
				continue
			}
		}

		existing, found, err := r.entities.Get(key)
		if err != nil {
			return accepted, stats, fmt.Errorf("reading entity for %s: %w", key, err)
		}
		if found && r.strategy.AcceptOrder != nil && !r.strategy.AcceptOrder(existing, item) {
			stats.Outdated++
			r.log.WithFields(logrus.Fields{"kind": r.kind, "key": key.String()}).Info("newer data already processed")
			continue
		}
		if found && r.strategy.Merge != nil {
			item = r.strategy.Merge(existing, item)
		}

		ttl := r.strategy.Expiry(item, now)
		if ttl <= 0 {
			stats.Outdated++
			if found {
				if err := r.deleteEntity(key); err != nil {
					return accepted, stats, err
				}
				changed = append(changed, key)
			}
			continue
		}

		if err := r.entities.Set(key, item, ttl); err != nil {
			return accepted, stats, fmt.Errorf("storing entity for %s: %w", key, err)
		}
		if digestOK {
			if err := r.checksums.Set(key, dig, ttl); err != nil {
				return accepted, stats, fmt.Errorf("storing checksum for %s: %w", key, err)
			}
		}
		if r.strategy.OnStored != nil {
			r.strategy.OnStored(key, item, ttl)
		}
		accepted = append(accepted, item)
		changed = append(changed, key)
		stats.Accepted++
	}

	r.tracker.RecordChanges(changed)
	r.log.WithFields(logrus.Fields{
		"kind":      r.kind,
		"dataset":   datasetID,
		"total":     stats.Total,
		"accepted":  stats.Accepted,
		"unchanged": stats.Unchanged,
		"outdated":  stats.Outdated,
		"skipped":   stats.Skipped,
	}).Info("processed batch")
	return accepted, stats, nil
}

// Add ingests a single item, returning it if it was accepted.
func (r *Repository[T]) Add(datasetID string, item T) (*T, error) {
	accepted, _, err := r.AddAll(datasetID, []T{item})
	if err != nil {
		return nil, err
	}
	if len(accepted) == 0 {
		return nil, nil
	}
	return &accepted[0], nil
}

// GetAll returns a full snapshot across every dataset.
func (r *Repository[T]) GetAll() ([]T, error) {
	return r.GetAllByDataset("")
}

// GetAllByDataset returns a full snapshot of one dataset. An empty
// datasetID means all datasets.
func (r *Repository[T]) GetAllByDataset(datasetID string) ([]T, error) {
	keys, err := r.datasetKeys(datasetID, nil)
	if err != nil {
		return nil, err
	}
	return r.fetch(keys)
}

// GetAllUpdates is the unpaginated delta read. An empty consumerID
// returns a full snapshot without touching any tracking state.
func (r *Repository[T]) GetAllUpdates(consumerID, datasetID string) ([]T, error) {
	if consumerID == "" {
		return r.GetAllByDataset(datasetID)
	}
	page, _, err := r.poll(consumerID, datasetID, nil, 0, nil)
	if err != nil {
		return nil, err
	}
	return r.fetch(page)
}

// CreateServiceDelivery is the paginated delta read with kind-specific
// admission filtering.
func (r *Repository[T]) CreateServiceDelivery(req DeliveryRequest) (Delivery[T], error) {
	now := r.now()
	consumerID := req.ConsumerID
	adHoc := consumerID == ""
	statsTTL := r.opts.TrackingPeriod
	if adHoc {
		consumerID = uuid.NewString()
		statsTTL = r.opts.AdHocTrackingPeriod
	}
	if err := r.requestors.Record(consumerID, req.DatasetID, req.ClientTrackingName, now, statsTTL); err != nil {
		return Delivery[T]{}, err
	}

	var admit func(storage.Key) bool
	if r.strategy.Admit != nil && req.PreviewInterval > 0 {
		preview := req.PreviewInterval
		admit = func(k storage.Key) bool { return r.strategy.Admit(k, preview, now) }
	}

	var (
		page     []storage.Key
		moreData bool
		err      error
	)
	if adHoc {
		page, moreData, err = r.pollAdHoc(req.DatasetID, req.ExcludedDatasetIDs, req.PageSize, admit)
	} else {
		page, moreData, err = r.poll(consumerID, req.DatasetID, req.ExcludedDatasetIDs, req.PageSize, admit)
	}
	if err != nil {
		return Delivery[T]{}, err
	}

	items, err := r.fetch(page)
	if err != nil {
		return Delivery[T]{}, err
	}
	return Delivery[T]{Items: items, MoreData: moreData, ConsumerID: consumerID}, nil
}

// poll runs the tracked-consumer delta read: first poll is a full
// snapshot that seeds the change set, subsequent polls drain it. The
// returned keys are removed from the change set; a pageSize of zero
// means unlimited.
func (r *Repository[T]) poll(consumerID, datasetID string, excluded []string, pageSize int, admit func(storage.Key) bool) ([]storage.Key, bool, error) {
	now := r.now()
	tracked, err := r.tracker.IsTracked(consumerID)
	if err != nil {
		return nil, false, fmt.Errorf("checking tracking state for %s: %w", consumerID, err)
	}

	var pending []storage.Key
	if tracked {
		pending, err = r.tracker.Changes(consumerID)
		if err != nil {
			return nil, false, fmt.Errorf("reading change set for %s: %w", consumerID, err)
		}
	} else {
		// First poll: the full current key set becomes both the snapshot
		// and the baseline to drain from.
		pending, err = r.entities.Keys()
		if err != nil {
			return nil, false, fmt.Errorf("listing keys: %w", err)
		}
	}

	candidates := filterKeysByDataset(pending, datasetID, excluded)
	page, moreData := paginate(candidates, pageSize, admit)

	remaining := subtractKeys(pending, page)
	if err := r.tracker.SetChanges(consumerID, remaining, now); err != nil {
		return nil, false, err
	}
	return page, moreData, nil
}

// pollAdHoc serves a one-shot consumer from the full key set without
// writing any tracking state back.
func (r *Repository[T]) pollAdHoc(datasetID string, excluded []string, pageSize int, admit func(storage.Key) bool) ([]storage.Key, bool, error) {
	keys, err := r.entities.Keys()
	if err != nil {
		return nil, false, fmt.Errorf("listing keys: %w", err)
	}
	candidates := filterKeysByDataset(keys, datasetID, excluded)
	page, moreData := paginate(candidates, pageSize, admit)
	return page, moreData, nil
}

// paginate applies the admission filter and page size. moreData is true
// when the candidate set held more than the filtered-out plus returned
// keys.
func paginate(candidates []storage.Key, pageSize int, admit func(storage.Key) bool) ([]storage.Key, bool) {
	admitted := candidates
	filteredOut := 0
	if admit != nil {
		admitted = make([]storage.Key, 0, len(candidates))
		for _, k := range candidates {
			if admit(k) {
				admitted = append(admitted, k)
			} else {
				filteredOut++
			}
		}
	}
	page := admitted
	if pageSize > 0 && len(admitted) > pageSize {
		page = admitted[:pageSize]
	}
	moreData := (filteredOut + len(page)) < len(candidates)
	return page, moreData
}

// filterKeysByDataset applies the tenant filter. An exclusion list takes
// priority over a dataset selection.
func filterKeysByDataset(keys []storage.Key, datasetID string, excluded []string) []storage.Key {
	if len(excluded) > 0 {
		out := make([]storage.Key, 0, len(keys))
		for _, k := range keys {
			if !containsString(excluded, k.Codespace) {
				out = append(out, k)
			}
		}
		return out
	}
	if datasetID == "" {
		return keys
	}
	out := make([]storage.Key, 0, len(keys))
	for _, k := range keys {
		if k.Codespace == datasetID {
			out = append(out, k)
		}
	}
	return out
}

func subtractKeys(keys, returned []storage.Key) []storage.Key {
	if len(returned) == 0 {
		return keys
	}
	drop := make(map[storage.Key]struct{}, len(returned))
	for _, k := range returned {
		drop[k] = struct{}{}
	}
	out := make([]storage.Key, 0, len(keys))
	for _, k := range keys {
		if _, gone := drop[k]; !gone {
			out = append(out, k)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// fetch loads the entities for keys, silently dropping stale references,
// and applies the kind's snapshot ordering.
func (r *Repository[T]) fetch(keys []storage.Key) ([]T, error) {
	entities, err := r.entities.GetAll(keys)
	if err != nil {
		return nil, fmt.Errorf("loading entities: %w", err)
	}
	items := make([]T, 0, len(entities))
	for _, k := range keys {
		if v, ok := entities[k]; ok {
			items = append(items, v)
		}
	}
	if r.strategy.Less != nil {
		sort.SliceStable(items, func(i, j int) bool { return r.strategy.Less(items[i], items[j]) })
	}
	return items, nil
}

func (r *Repository[T]) datasetKeys(datasetID string, excluded []string) ([]storage.Key, error) {
	keys, err := r.entities.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	return filterKeysByDataset(keys, datasetID, excluded), nil
}

// Size returns the total entity count.
func (r *Repository[T]) Size() (int, error) {
	return r.entities.Size()
}

// DatasetSizes returns the entity count per dataset.
func (r *Repository[T]) DatasetSizes() (map[string]int, error) {
	keys, err := r.entities.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	sizes := make(map[string]int)
	for _, k := range keys {
		sizes[k.Codespace]++
	}
	return sizes, nil
}

// DatasetSize returns the entity count of one dataset.
func (r *Repository[T]) DatasetSize(datasetID string) (int, error) {
	keys, err := r.datasetKeys(datasetID, nil)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// LocalDatasetSizes returns the counts held by this node. With the
// bundled single-node backends this equals DatasetSizes; a clustered
// backend narrows it to locally-owned entries.
func (r *Repository[T]) LocalDatasetSizes() (map[string]int, error) {
	return r.DatasetSizes()
}

// ClearAllByDatasetID removes every entity of one dataset.
func (r *Repository[T]) ClearAllByDatasetID(datasetID string) (int, error) {
	keys, err := r.datasetKeys(datasetID, nil)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := r.deleteEntity(k); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

// ClearAll removes every entity of every dataset.
func (r *Repository[T]) ClearAll() error {
	keys, err := r.entities.Keys()
	if err != nil {
		return fmt.Errorf("listing keys: %w", err)
	}
	if r.strategy.OnDeleted != nil {
		for _, k := range keys {
			r.strategy.OnDeleted(k)
		}
	}
	if err := r.entities.Clear(); err != nil {
		return fmt.Errorf("clearing entities: %w", err)
	}
	if err := r.checksums.Clear(); err != nil {
		return fmt.Errorf("clearing checksums: %w", err)
	}
	return nil
}

// RemoveExpired recomputes every entity's expiry and deletes the ones
// that have turned non-positive since they were stored. Complements the
// backing store's own TTL for kinds whose validity can be shortened
// retroactively.
func (r *Repository[T]) RemoveExpired() (int, error) {
	now := r.now()
	keys, err := r.entities.Keys()
	if err != nil {
		return 0, fmt.Errorf("listing keys: %w", err)
	}
	entities, err := r.entities.GetAll(keys)
	if err != nil {
		return 0, fmt.Errorf("loading entities: %w", err)
	}
	removed := 0
	for k, v := range entities {
		if r.strategy.Expiry(v, now) <= 0 {
			if err := r.deleteEntity(k); err != nil {
				return removed, err
			}
			removed++
		}
	}
	if removed > 0 {
		r.log.WithFields(logrus.Fields{"kind": r.kind, "removed": removed}).Info("removed expired entities")
	}
	return removed, nil
}

func (r *Repository[T]) deleteEntity(key storage.Key) error {
	if _, err := r.entities.Delete(key); err != nil {
		return fmt.Errorf("deleting entity for %s: %w", key, err)
	}
	if _, err := r.checksums.Delete(key); err != nil {
		return fmt.Errorf("deleting checksum for %s: %w", key, err)
	}
	if r.strategy.OnDeleted != nil {
		r.strategy.OnDeleted(key)
	}
	return nil
}
