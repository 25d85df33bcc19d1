package options

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("0.0.0.0:9000"))
	assert.NoError(t, ValidateAddress(":8080"))
	assert.Error(t, ValidateAddress("9000"))
	assert.Error(t, ValidateAddress("127.0.0.1:port"))
	assert.Error(t, ValidateAddress("127.0.0.1:70000"))
}

func TestMqttOptionsDisabledByDefault(t *testing.T) {
	o := NewMqttOptions()
	assert.False(t, o.Enabled())
	assert.Empty(t, o.Validate())

	o.Broker = "broker-without-scheme"
	assert.NotEmpty(t, o.Validate())

	o.Broker = "tcp://127.0.0.1:1883"
	assert.Empty(t, o.Validate())
}

func TestControlOptionsFlags(t *testing.T) {
	o := NewControlOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--control.reconnect-interval=2s", "--control.addr=10.0.0.1:9000"}))
	assert.Equal(t, 2*time.Second, o.ReconnectInterval)
	assert.Equal(t, "10.0.0.1:9000", o.Addr)
	assert.Empty(t, o.Validate())

	o.ReconnectInterval = 0
	assert.Len(t, o.Validate(), 1)
}

func TestS3Options(t *testing.T) {
	o := NewS3Options()
	assert.Empty(t, o.Validate())
	_, err := o.NewClient()
	assert.Error(t, err)

	o.Endpoint = "minio.local:9000"
	o.AccessKeyID = "key"
	assert.Len(t, o.Validate(), 1)
}
