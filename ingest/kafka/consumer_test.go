package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/siri-hub/repository"
	"github.com/theoremus-urban-solutions/siri-hub/siri"
)

func TestBindDecodesEnvelopeItems(t *testing.T) {
	c := &Consumer{handlers: map[string]handleFunc{}}

	var gotCodespace string
	var gotItems []siri.VehicleActivity
	bind(c, "siri-vm", func(codespace string, items []siri.VehicleActivity) (repository.Stats, error) {
		gotCodespace = codespace
		gotItems = items
		return repository.Stats{Total: len(items), Accepted: len(items)}, nil
	})
	require.Equal(t, []string{"siri-vm"}, c.topics)

	raw := json.RawMessage(`[{"MonitoredVehicleJourney":{"VehicleRef":"veh-1"}}]`)
	stats, err := c.handlers["siri-vm"]("TST", raw)
	require.NoError(t, err)
	assert.Equal(t, "TST", gotCodespace)
	require.Len(t, gotItems, 1)
	assert.Equal(t, "veh-1", gotItems[0].MonitoredVehicleJourney.VehicleRef)
	assert.Equal(t, 1, stats.Accepted)
}

func TestBindSkipsEmptyTopic(t *testing.T) {
	c := &Consumer{handlers: map[string]handleFunc{}}
	bind(c, "", func(string, []siri.VehicleActivity) (repository.Stats, error) {
		t.Fatal("handler for empty topic must never run")
		return repository.Stats{}, nil
	})
	assert.Empty(t, c.topics)
	assert.Empty(t, c.handlers)
}

func TestHandlerRejectsMalformedBatch(t *testing.T) {
	c := &Consumer{handlers: map[string]handleFunc{}}
	bind(c, "siri-sx", func(string, []siri.PtSituationElement) (repository.Stats, error) {
		t.Fatal("handler must not run for malformed batches")
		return repository.Stats{}, nil
	})

	_, err := c.handlers["siri-sx"]("TST", json.RawMessage(`{"not":"an array"}`))
	assert.Error(t, err)
}

func TestEnvelopeDecoding(t *testing.T) {
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(`{"codespace":"TST","items":[{"SituationNumber":"TST:Situation:1"}]}`), &env))
	assert.Equal(t, "TST", env.Codespace)

	var items []siri.PtSituationElement
	require.NoError(t, json.Unmarshal(env.Items, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "TST:Situation:1", items[0].SituationNumber)
}
