package repository

import (
	"sort"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
)

// mergeJourney folds an incoming partial update into the stored journey.
// A complete stop sequence replaces the stored one outright; otherwise
// the incoming calls patch the stored sequence by stop order:
//   - incoming recorded calls replace the call at their order and
//     classify it recorded,
//   - incoming estimated calls replace the call at their order unless it
//     is already recorded (no revert from recorded to estimated),
//   - untouched orders carry over unchanged,
//   - estimated calls left between recorded ones are promoted so the
//     result keeps a contiguous recorded prefix.
func mergeJourney(existing, incoming siri.EstimatedVehicleJourney) siri.EstimatedVehicleJourney {
	if incoming.IsCompleteStopSequence {
		return incoming
	}

	recorded := make(map[int]siri.RecordedCall)
	estimated := make(map[int]siri.EstimatedCall)
	for _, c := range existing.RecordedCalls {
		recorded[c.Order] = c
	}
	for _, c := range existing.EstimatedCalls {
		if _, isRecorded := recorded[c.Order]; !isRecorded {
			estimated[c.Order] = c
		}
	}

	for _, c := range incoming.RecordedCalls {
		recorded[c.Order] = c
		delete(estimated, c.Order)
	}
	for _, c := range incoming.EstimatedCalls {
		if _, isRecorded := recorded[c.Order]; isRecorded {
			continue
		}
		estimated[c.Order] = c
	}

	// Keep the recorded range contiguous: an estimated call stranded
	// between two recorded orders has in fact happened. Orders below the
	// lowest recorded order stay estimated.
	if len(recorded) > 0 {
		lowest, highest := -1, -1
		for order := range recorded {
			if lowest == -1 || order < lowest {
				lowest = order
			}
			if order > highest {
				highest = order
			}
		}
		for order, c := range estimated {
			if order > lowest && order < highest {
				recorded[order] = c.ToRecordedCall()
				delete(estimated, order)
			}
		}
	}

	merged := incoming
	merged.RecordedCalls = sortedRecorded(recorded)
	merged.EstimatedCalls = sortedEstimated(estimated)
	return merged
}

func sortedRecorded(calls map[int]siri.RecordedCall) []siri.RecordedCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]siri.RecordedCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func sortedEstimated(calls map[int]siri.EstimatedCall) []siri.EstimatedCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]siri.EstimatedCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
