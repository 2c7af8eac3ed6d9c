package hub

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
link: ws://radio.local:8080/air
mqtt: mqtt://broker:1883/house/
ack-timeout: 350ms
retries: 5
event-codec: proto
sync-clock: false
nodes:
  - name: kitchen
    type: temp
    id: 1
  - name: porch
    type: switch
    id: 2
`

func writeConfig(t *testing.T, content string) string {
	dir, err := ioutil.TempDir("", "hub-config")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	fn := filepath.Join(dir, "hub.yaml")
	require.NoError(t, ioutil.WriteFile(fn, []byte(content), 0644))
	return fn
}

func TestConfigLoadFile(t *testing.T) {
	conf := defaultConfig
	require.NoError(t, conf.LoadFile(writeConfig(t, testConfigYAML)))
	require.Equal(t, "ws://radio.local:8080/air", conf.Link)
	require.Equal(t, "mqtt://broker:1883/house/", conf.MQTTURL)
	require.Equal(t, 350*time.Millisecond, conf.AckTimeout)
	require.Equal(t, 5, conf.Retries)
	require.Equal(t, CodecProto, conf.EventCodec)
	require.False(t, conf.SyncClock)
	// untouched values keep defaults
	require.Equal(t, defaultConfig.MaxFrameLen, conf.MaxFrameLen)
	require.Equal(t, defaultConfig.PollInterval, conf.PollInterval)
	require.Equal(t, []NodeConfig{
		{Name: "kitchen", Type: "temp", ID: 1},
		{Name: "porch", Type: "switch", ID: 2},
	}, conf.Nodes)
	require.NoError(t, conf.Validate())
}

func TestConfigLoadFileErrors(t *testing.T) {
	conf := defaultConfig
	require.Error(t, conf.LoadFile(filepath.Join(os.TempDir(), "does-not-exist.yaml")))
	require.Error(t, conf.LoadFile(writeConfig(t, "retries: [1, 2]")))
}

func TestConfigApplyEnv(t *testing.T) {
	for name, val := range map[string]string{
		"HA_LINK":          "serial:///dev/ttyUSB1",
		"HA_MQTT_URL":      "mqtt://other:1883/",
		"HA_MAX_FRAME_LEN": "32",
		"HA_ACK_TIMEOUT":   "1s",
	} {
		require.NoError(t, os.Setenv(name, val))
		defer os.Unsetenv(name)
	}
	conf := defaultConfig
	conf.ApplyEnv()
	require.Equal(t, "serial:///dev/ttyUSB1", conf.Link)
	require.Equal(t, "mqtt://other:1883/", conf.MQTTURL)
	require.Equal(t, 32, conf.MaxFrameLen)
	require.Equal(t, time.Second, conf.AckTimeout)
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"frame too long", func(c *Config) { c.MaxFrameLen = 300 }},
		{"frame empty", func(c *Config) { c.MaxFrameLen = 0 }},
		{"negative retries", func(c *Config) { c.Retries = -1 }},
		{"codec", func(c *Config) { c.EventCodec = "xml" }},
		{"nodes", func(c *Config) { c.Nodes = []NodeConfig{{Name: "x", Type: "toaster"}} }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := defaultConfig
			tc.modify(&conf)
			require.Error(t, conf.Validate())
		})
	}
	conf := defaultConfig
	require.NoError(t, conf.Validate())
}
