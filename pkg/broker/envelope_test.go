package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeMarshalUnmarshalRoundTrip(t *testing.T) {
	original := Envelope{
		EventID:        "evt-1",
		EventType:      EventHoldCreated,
		OccurredAt:     time.Now().UTC().Truncate(time.Second),
		AggregateType:  "hold",
		AggregateID:    "hold-1",
		IdempotencyKey: "idem-1",
		Payload:        []byte(`{"quantity":2}`),
	}

	data, err := original.Marshal()
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, original.EventID, decoded.EventID)
	assert.Equal(t, original.EventType, decoded.EventType)
	assert.True(t, original.OccurredAt.Equal(decoded.OccurredAt))
	assert.Equal(t, original.AggregateID, decoded.AggregateID)
	assert.JSONEq(t, string(original.Payload), string(decoded.Payload))
}

func TestUnmarshalRejectsInvalidJSON(t *testing.T) {
	_, err := Unmarshal([]byte("not-json"))
	assert.Error(t, err)
}
