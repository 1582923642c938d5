package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
)

func estimatedCall(order int, aimed time.Time) siri.EstimatedCall {
	return siri.EstimatedCall{
		StopPointRef:          "TST:Quay:" + string(rune('A'+order-1)),
		Order:                 order,
		AimedArrivalTime:      siri.TimePtr(aimed),
		ExpectedArrivalTime:   siri.TimePtr(aimed.Add(time.Minute)),
		AimedDepartureTime:    siri.TimePtr(aimed.Add(30 * time.Second)),
		ExpectedDepartureTime: siri.TimePtr(aimed.Add(90 * time.Second)),
	}
}

func journeyWithEstimatedCalls(n int, start time.Time) siri.EstimatedVehicleJourney {
	calls := make([]siri.EstimatedCall, 0, n)
	for i := 1; i <= n; i++ {
		calls = append(calls, estimatedCall(i, start.Add(time.Duration(i)*5*time.Minute)))
	}
	return siri.EstimatedVehicleJourney{
		RecordedAtTime:          siri.TimePtr(start),
		LineRef:                 "TST:Line:1",
		DirectionRef:            "0",
		FramedVehicleJourneyRef: &siri.FramedVehicleJourneyRef{DataFrameRef: "2026-08-28", DatedVehicleJourneyRef: "TST:SJ:1"},
		EstimatedCalls:          calls,
	}
}

func TestMergeCompleteSequenceReplaces(t *testing.T) {
	start := time.Now().Add(time.Hour)
	existing := journeyWithEstimatedCalls(5, start)
	incoming := journeyWithEstimatedCalls(3, start)
	incoming.IsCompleteStopSequence = true

	merged := mergeJourney(existing, incoming)
	assert.Len(t, merged.EstimatedCalls, 3)
	assert.Empty(t, merged.RecordedCalls)
}

func TestMergePartialRecordsCalls(t *testing.T) {
	start := time.Now().Add(time.Hour)
	existing := journeyWithEstimatedCalls(5, start)

	// The first two calls have now happened.
	incoming := journeyWithEstimatedCalls(0, start)
	incoming.RecordedCalls = []siri.RecordedCall{
		existing.EstimatedCalls[0].ToRecordedCall(),
		existing.EstimatedCalls[1].ToRecordedCall(),
	}

	merged := mergeJourney(existing, incoming)
	require.Len(t, merged.RecordedCalls, 2)
	require.Len(t, merged.EstimatedCalls, 3)
	assert.Equal(t, 1, merged.RecordedCalls[0].Order)
	assert.Equal(t, 2, merged.RecordedCalls[1].Order)
	assert.Equal(t, 3, merged.EstimatedCalls[0].Order)

	// Untouched calls carry over unchanged.
	assert.Equal(t, existing.EstimatedCalls[2], merged.EstimatedCalls[0])
	assert.Equal(t, existing.EstimatedCalls[4], merged.EstimatedCalls[2])

	// Expected times became actual times.
	assert.Equal(t, existing.EstimatedCalls[0].ExpectedArrivalTime, merged.RecordedCalls[0].ActualArrivalTime)
	assert.Equal(t, existing.EstimatedCalls[0].ExpectedDepartureTime, merged.RecordedCalls[0].ActualDepartureTime)
}

func TestMergePatchesEstimatedTimes(t *testing.T) {
	start := time.Now().Add(time.Hour)
	existing := journeyWithEstimatedCalls(5, start)

	patched := existing.EstimatedCalls[3]
	patched.ExpectedArrivalTime = siri.TimePtr(start.Add(2 * time.Hour))
	incoming := journeyWithEstimatedCalls(0, start)
	incoming.EstimatedCalls = []siri.EstimatedCall{patched}

	merged := mergeJourney(existing, incoming)
	require.Len(t, merged.EstimatedCalls, 5)
	assert.Equal(t, patched.ExpectedArrivalTime, merged.EstimatedCalls[3].ExpectedArrivalTime)
	assert.Equal(t, existing.EstimatedCalls[0], merged.EstimatedCalls[0])
}

func TestMergeNeverRevertsRecordedToEstimated(t *testing.T) {
	start := time.Now().Add(time.Hour)
	existing := journeyWithEstimatedCalls(3, start)
	recorded := existing.EstimatedCalls[0].ToRecordedCall()
	existing.RecordedCalls = []siri.RecordedCall{recorded}
	existing.EstimatedCalls = existing.EstimatedCalls[1:]

	// A late producer resends order 1 as estimated.
	incoming := journeyWithEstimatedCalls(0, start)
	incoming.EstimatedCalls = []siri.EstimatedCall{estimatedCall(1, start)}

	merged := mergeJourney(existing, incoming)
	require.Len(t, merged.RecordedCalls, 1)
	assert.Equal(t, recorded, merged.RecordedCalls[0])
	assert.Len(t, merged.EstimatedCalls, 2)
}

func TestMergePromotesStrandedEstimatedCalls(t *testing.T) {
	start := time.Now().Add(time.Hour)
	existing := journeyWithEstimatedCalls(5, start)

	// Recorded calls arrive for orders 2 and 4 only; order 3 must be
	// promoted so the recorded range stays contiguous. Order 1 stays
	// estimated, order 5 stays estimated.
	incoming := journeyWithEstimatedCalls(0, start)
	incoming.RecordedCalls = []siri.RecordedCall{
		existing.EstimatedCalls[1].ToRecordedCall(),
		existing.EstimatedCalls[3].ToRecordedCall(),
	}

	merged := mergeJourney(existing, incoming)
	require.Len(t, merged.RecordedCalls, 3)
	assert.Equal(t, []int{2, 3, 4}, []int{
		merged.RecordedCalls[0].Order,
		merged.RecordedCalls[1].Order,
		merged.RecordedCalls[2].Order,
	})
	require.Len(t, merged.EstimatedCalls, 2)
	assert.Equal(t, 1, merged.EstimatedCalls[0].Order)
	assert.Equal(t, 5, merged.EstimatedCalls[1].Order)

	// The promoted call took its expected times as actuals.
	promoted := merged.RecordedCalls[1]
	assert.Equal(t, existing.EstimatedCalls[2].ExpectedArrivalTime, promoted.ActualArrivalTime)
}

func TestToRecordedCallMapsExpectedToActual(t *testing.T) {
	aimed := time.Now()
	ec := estimatedCall(7, aimed)
	rc := ec.ToRecordedCall()

	assert.Equal(t, ec.StopPointRef, rc.StopPointRef)
	assert.Equal(t, 7, rc.Order)
	assert.Equal(t, ec.AimedArrivalTime, rc.AimedArrivalTime)
	assert.Equal(t, ec.AimedDepartureTime, rc.AimedDepartureTime)
	assert.Equal(t, ec.ExpectedArrivalTime, rc.ActualArrivalTime)
	assert.Equal(t, ec.ExpectedDepartureTime, rc.ActualDepartureTime)
}
