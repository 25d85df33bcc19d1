package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicsMatch(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"flightlab/v1/state", "flightlab/v1/state", true},
		{"flightlab/v1/status/+", "flightlab/v1/status/sim-1", true},
		{"flightlab/v1/status/+", "flightlab/v1/status/sim-1/extra", false},
		{"flightlab/v1/#", "flightlab/v1/status/sim-1", true},
		{"flightlab/v1/state", "flightlab/v1/status", false},
		{"flightlab/+/state", "flightlab/state", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, topicsMatch(tt.filter, tt.topic), "%s vs %s", tt.filter, tt.topic)
	}
}

func TestTopicFilterStripsSharedPrefix(t *testing.T) {
	assert.Equal(t, "flightlab/v1/status/+", topicFilter("$share/master/flightlab/v1/status/+"))
	assert.Equal(t, "flightlab/v1/state", topicFilter("flightlab/v1/state"))
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&ClientConfig{})
	assert.Error(t, err)

	_, err = NewClient(&ClientConfig{BrokerURL: "tcp://127.0.0.1:1883", WillQoS: 3})
	assert.Error(t, err)

	c, err := NewClient(&ClientConfig{
		BrokerURL:   "tcp://127.0.0.1:1883",
		WillTopic:   "flightlab/v1/online/master",
		WillPayload: []byte("false"),
		WillRetain:  true,
	})
	require.NoError(t, err)
	pc := c.(*pahoClient)
	assert.EqualValues(t, 60, pc.cfg.KeepAlive)
	assert.Error(t, c.AwaitConnection(t.Context()), "await before start")

	will := pc.willMessage()
	require.NotNil(t, will)
	assert.Equal(t, "flightlab/v1/online/master", will.Topic)
	assert.True(t, will.Retain)

	assert.Error(t, c.Publish(t.Context(), "x", 0, false, nil), "publish before start")
}
