package repository

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
)

func testOptions() Options {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return Options{
		GracePeriod:         5 * time.Minute,
		TrackingPeriod:      30 * time.Minute,
		AdHocTrackingPeriod: 3 * time.Minute,
		CommitInterval:      50 * time.Millisecond,
		Logger:              log,
	}
}

func newTestVehicleRepo() *VehicleRepository {
	return NewVehicleRepository(NewMemoryMaps[siri.VehicleActivity](), testOptions())
}

func activity(vehicleRef string, recordedAt time.Time) siri.VehicleActivity {
	return siri.VehicleActivity{
		RecordedAtTime: siri.TimePtr(recordedAt),
		MonitoredVehicleJourney: siri.MonitoredVehicleJourney{
			LineRef:         "TST:Line:1",
			DirectionRef:    "0",
			VehicleRef:      vehicleRef,
			VehicleLocation: &siri.VehicleLocation{Longitude: 10.75, Latitude: 59.91},
		},
	}
}

func TestIngestIdempotence(t *testing.T) {
	repo := newTestVehicleRepo()
	now := time.Now()

	accepted, stats, err := repo.AddAll("TST", []siri.VehicleActivity{activity("veh-1", now)})
	require.NoError(t, err)
	assert.Len(t, accepted, 1)
	assert.Equal(t, 1, stats.Accepted)

	// Same content with a fresh recorded-at timestamp is a pure no-op.
	again := activity("veh-1", now.Add(time.Minute))
	accepted, stats, err = repo.AddAll("TST", []siri.VehicleActivity{again})
	require.NoError(t, err)
	assert.Empty(t, accepted)
	assert.Equal(t, 1, stats.Unchanged)

	size, err := repo.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestLastWriteWinsByRecency(t *testing.T) {
	repo := newTestVehicleRepo()
	now := time.Now()

	current := activity("veh-1", now)
	current.MonitoredVehicleJourney.Bearing = ptr(90.0)
	_, stats, err := repo.AddAll("TST", []siri.VehicleActivity{current})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Accepted)

	// Older recorded-at with different content is discarded.
	stale := activity("veh-1", now.Add(-time.Minute))
	stale.MonitoredVehicleJourney.Bearing = ptr(180.0)
	_, stats, err = repo.AddAll("TST", []siri.VehicleActivity{stale})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Outdated)

	all, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 90.0, *all[0].MonitoredVehicleJourney.Bearing)

	// Newer recorded-at replaces.
	newer := activity("veh-1", now.Add(time.Minute))
	newer.MonitoredVehicleJourney.Bearing = ptr(270.0)
	_, stats, err = repo.AddAll("TST", []siri.VehicleActivity{newer})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Accepted)

	all, err = repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 270.0, *all[0].MonitoredVehicleJourney.Bearing)
}

func TestDatasetIsolation(t *testing.T) {
	repo := newTestVehicleRepo()
	now := time.Now()

	_, _, err := repo.AddAll("AAA", []siri.VehicleActivity{activity("veh-1", now)})
	require.NoError(t, err)
	_, _, err = repo.AddAll("BBB", []siri.VehicleActivity{activity("veh-1", now)})
	require.NoError(t, err)

	size, err := repo.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, size, "same vehicle under two datasets is two entities")

	forA, err := repo.GetAllByDataset("AAA")
	require.NoError(t, err)
	assert.Len(t, forA, 1)

	sizes, err := repo.DatasetSizes()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"AAA": 1, "BBB": 1}, sizes)

	removed, err := repo.ClearAllByDatasetID("AAA")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	forA, err = repo.GetAllByDataset("AAA")
	require.NoError(t, err)
	assert.Empty(t, forA)
	forB, err := repo.GetAllByDataset("BBB")
	require.NoError(t, err)
	assert.Len(t, forB, 1)
}

func TestDeltaConsumption(t *testing.T) {
	repo := newTestVehicleRepo()
	now := time.Now()

	_, _, err := repo.AddAll("TST", []siri.VehicleActivity{
		activity("veh-1", now),
		activity("veh-2", now),
	})
	require.NoError(t, err)

	// First poll returns the full current set.
	first, err := repo.GetAllUpdates("consumer-1", "")
	require.NoError(t, err)
	assert.Len(t, first, 2)

	// Immediate second poll with no intervening ingestion is empty.
	second, err := repo.GetAllUpdates("consumer-1", "")
	require.NoError(t, err)
	assert.Empty(t, second)

	// New data reaches the consumer after the buffered commit.
	_, _, err = repo.AddAll("TST", []siri.VehicleActivity{activity("veh-3", now)})
	require.NoError(t, err)
	require.NoError(t, repo.Tracker().Commit())

	third, err := repo.GetAllUpdates("consumer-1", "")
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, "veh-3", third[0].MonitoredVehicleJourney.VehicleRef)
}

func TestPaginationDrainsWithoutDuplicates(t *testing.T) {
	repo := newTestVehicleRepo()
	now := time.Now()

	batch := make([]siri.VehicleActivity, 0, 7)
	for _, ref := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		batch = append(batch, activity("veh-"+ref, now))
	}
	_, _, err := repo.AddAll("TST", batch)
	require.NoError(t, err)

	seen := map[string]bool{}
	pages := 0
	moreData := true
	for moreData {
		d, err := repo.CreateServiceDelivery(DeliveryRequest{
			ConsumerID: "consumer-1",
			PageSize:   3,
		})
		require.NoError(t, err)
		for _, item := range d.Items {
			ref := item.MonitoredVehicleJourney.VehicleRef
			assert.False(t, seen[ref], "duplicate %s across pages", ref)
			seen[ref] = true
		}
		moreData = d.MoreData
		pages++
		require.LessOrEqual(t, pages, 4, "pagination must terminate")
	}
	assert.Len(t, seen, 7)

	// Drained: next poll is empty.
	d, err := repo.CreateServiceDelivery(DeliveryRequest{ConsumerID: "consumer-1", PageSize: 3})
	require.NoError(t, err)
	assert.Empty(t, d.Items)
	assert.False(t, d.MoreData)
}

func TestFirstPageSizeAndMoreData(t *testing.T) {
	repo := newTestVehicleRepo()
	now := time.Now()
	_, _, err := repo.AddAll("TST", []siri.VehicleActivity{
		activity("veh-1", now), activity("veh-2", now), activity("veh-3", now),
	})
	require.NoError(t, err)

	d, err := repo.CreateServiceDelivery(DeliveryRequest{ConsumerID: "c", PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, d.Items, 2)
	assert.True(t, d.MoreData)
}

func TestAdHocConsumerGetsSnapshotWithoutTracking(t *testing.T) {
	repo := newTestVehicleRepo()
	now := time.Now()
	_, _, err := repo.AddAll("TST", []siri.VehicleActivity{activity("veh-1", now)})
	require.NoError(t, err)

	d, err := repo.CreateServiceDelivery(DeliveryRequest{})
	require.NoError(t, err)
	assert.Len(t, d.Items, 1)
	assert.NotEmpty(t, d.ConsumerID, "ad-hoc consumer id is synthesized")

	// The synthesized id left no change-tracking state behind.
	tracked, err := repo.Tracker().IsTracked(d.ConsumerID)
	require.NoError(t, err)
	assert.False(t, tracked)
}

func TestExpiredOnArrivalNeverObservable(t *testing.T) {
	opts := testOptions()
	opts.GracePeriod = 0
	repo := NewVehicleRepository(NewMemoryMaps[siri.VehicleActivity](), opts)

	expired := activity("veh-1", time.Now().Add(-2*time.Hour))
	expired.ValidUntilTime = siri.TimePtr(time.Now().Add(-time.Hour))

	_, stats, err := repo.AddAll("TST", []siri.VehicleActivity{expired})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Outdated)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNegativeExpiryDeletesExisting(t *testing.T) {
	opts := testOptions()
	opts.GracePeriod = 0
	repo := NewVehicleRepository(NewMemoryMaps[siri.VehicleActivity](), opts)
	now := time.Now()

	live := activity("veh-1", now)
	live.ValidUntilTime = siri.TimePtr(now.Add(time.Hour))
	_, stats, err := repo.AddAll("TST", []siri.VehicleActivity{live})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Accepted)

	// Retroactive withdrawal: newer update whose validity is already over.
	withdrawn := activity("veh-1", now.Add(time.Minute))
	withdrawn.ValidUntilTime = siri.TimePtr(now.Add(-time.Minute))
	_, stats, err = repo.AddAll("TST", []siri.VehicleActivity{withdrawn})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Outdated)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all, "the live entity must be actively deleted")
}

func TestMalformedItemsSkippedNotFatal(t *testing.T) {
	repo := newTestVehicleRepo()
	now := time.Now()

	noLocation := activity("veh-1", now)
	noLocation.MonitoredVehicleJourney.VehicleLocation = nil
	zeroLocation := activity("veh-2", now)
	zeroLocation.MonitoredVehicleJourney.VehicleLocation = &siri.VehicleLocation{}
	noVehicle := activity("", now)

	accepted, stats, err := repo.AddAll("TST", []siri.VehicleActivity{
		noLocation, zeroLocation, noVehicle, activity("veh-4", now),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 1, stats.Accepted)
	require.Len(t, accepted, 1)
	assert.Equal(t, "veh-4", accepted[0].MonitoredVehicleJourney.VehicleRef)
}

func TestRemoveExpired(t *testing.T) {
	opts := testOptions()
	opts.GracePeriod = 0
	clock := time.Now()
	opts.Clock = func() time.Time { return clock }
	repo := NewVehicleRepository(NewMemoryMaps[siri.VehicleActivity](), opts)

	short := activity("veh-1", clock)
	short.ValidUntilTime = siri.TimePtr(clock.Add(time.Minute))
	long := activity("veh-2", clock)
	long.ValidUntilTime = siri.TimePtr(clock.Add(time.Hour))
	_, _, err := repo.AddAll("TST", []siri.VehicleActivity{short, long})
	require.NoError(t, err)

	clock = clock.Add(10 * time.Minute)
	removed, err := repo.RemoveExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestRequestorStatsRingBuffer(t *testing.T) {
	repo := newTestVehicleRepo()
	now := time.Now()
	_, _, err := repo.AddAll("TST", []siri.VehicleActivity{activity("veh-1", now)})
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		_, err := repo.CreateServiceDelivery(DeliveryRequest{
			ConsumerID:         "consumer-1",
			ClientTrackingName: "test-client",
		})
		require.NoError(t, err)
	}

	stats, err := repo.Requestors().Snapshot()
	require.NoError(t, err)
	require.Contains(t, stats, "consumer-1")
	assert.Equal(t, "test-client", stats["consumer-1"].ClientName)
	assert.Len(t, stats["consumer-1"].PollTimes, 5, "poll history is capped")
}

func ptr[T any](v T) *T { return &v }
