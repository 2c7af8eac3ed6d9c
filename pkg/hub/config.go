package hub

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/homeauto.go/pkg/env"
	"github.com/robotalks/homeauto.go/pkg/ha"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram"
)

// Config provides options of the hub.
type Config struct {
	// Link is the radio link URL, see package dial.
	Link string `yaml:"link"`
	// MQTTURL is the broker events are published to, empty disables MQTT.
	// e.g. mqtt://host:port/topic-prefix
	MQTTURL      string        `yaml:"mqtt"`
	MaxFrameLen  int           `yaml:"max-frame-len"`
	AckTimeout   time.Duration `yaml:"ack-timeout"`
	Retries      int           `yaml:"retries"`
	EventCodec   string        `yaml:"event-codec"`
	SyncClock    bool          `yaml:"sync-clock"`
	PollInterval time.Duration `yaml:"poll-interval"`
	Nodes        []NodeConfig  `yaml:"nodes"`
}

// NodeConfig names a node.
type NodeConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	ID   uint8  `yaml:"id"`
}

var defaultConfig = Config{
	Link:         "loop:",
	MQTTURL:      "mqtt://localhost:1883/home/",
	MaxFrameLen:  ha.DefaultMaxFrameLen,
	AckTimeout:   datagram.DefaultTimeout,
	Retries:      datagram.DefaultRetries,
	EventCodec:   CodecJSON,
	SyncClock:    true,
	PollInterval: 20 * time.Millisecond,
}

var (
	configFile = os.Getenv("HA_CONFIG")
	flagConf   = defaultConfig
)

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "YAML config file, env HA_CONFIG.")
	flag.StringVar(&flagConf.Link, "link", flagConf.Link, "Radio link URL, env HA_LINK.")
	flag.StringVar(&flagConf.MQTTURL, "mqtt", flagConf.MQTTURL, "MQTT broker URL, env HA_MQTT_URL.")
	flag.IntVar(&flagConf.MaxFrameLen, "max-frame-len", flagConf.MaxFrameLen, "Max frame length.")
	flag.DurationVar(&flagConf.AckTimeout, "ack-timeout", flagConf.AckTimeout, "Acknowledgment timeout.")
	flag.IntVar(&flagConf.Retries, "retries", flagConf.Retries, "Retransmissions of reliable frames.")
	flag.StringVar(&flagConf.EventCodec, "event-codec", flagConf.EventCodec, "Event encoding: json or proto.")
	flag.BoolVar(&flagConf.SyncClock, "sync-clock", flagConf.SyncClock, "Answer time requests from nodes.")
	flag.DurationVar(&flagConf.PollInterval, "poll-interval", flagConf.PollInterval, "Receive polling interval.")
}

// NewConfig creates a Config from defaults, the config file, environment
// variables and command line flags, in increasing precedence.
func NewConfig() (*Config, error) {
	conf := defaultConfig
	if configFile != "" {
		if err := conf.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	conf.ApplyEnv()
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "link":
			conf.Link = flagConf.Link
		case "mqtt":
			conf.MQTTURL = flagConf.MQTTURL
		case "max-frame-len":
			conf.MaxFrameLen = flagConf.MaxFrameLen
		case "ack-timeout":
			conf.AckTimeout = flagConf.AckTimeout
		case "retries":
			conf.Retries = flagConf.Retries
		case "event-codec":
			conf.EventCodec = flagConf.EventCodec
		case "sync-clock":
			conf.SyncClock = flagConf.SyncClock
		case "poll-interval":
			conf.PollInterval = flagConf.PollInterval
		}
	})
	return &conf, conf.Validate()
}

// LoadFile overrides c with the YAML file.
func (c *Config) LoadFile(fn string) error {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", fn, err)
	}
	return nil
}

// ApplyEnv overrides c with environment variables.
func (c *Config) ApplyEnv() {
	env.String(&c.Link, "HA_LINK")
	env.String(&c.MQTTURL, "HA_MQTT_URL")
	env.Int(&c.MaxFrameLen, "HA_MAX_FRAME_LEN")
	env.Duration(&c.AckTimeout, "HA_ACK_TIMEOUT")
}

// Validate checks the values.
func (c *Config) Validate() error {
	if _, err := ha.NewCodec(c.MaxFrameLen); err != nil {
		return err
	}
	if c.Retries < 0 {
		return &ha.ConfigError{Field: "retries", Value: c.Retries}
	}
	if _, err := NewEventCodec(c.EventCodec); err != nil {
		return err
	}
	_, err := NewInventory(c.Nodes)
	return err
}
