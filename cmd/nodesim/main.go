package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/homeauto.go/pkg/framework"
	"github.com/robotalks/homeauto.go/pkg/env"
	"github.com/robotalks/homeauto.go/pkg/ha"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram/dial"
	"github.com/robotalks/homeauto.go/pkg/node"
)

var (
	linkURL    = "ws://localhost:8080/air"
	deviceType = "switch"
	deviceID   = 1
	value      = 2000
	jitter     = 50
	conf       = node.Config{ReportInterval: 30 * time.Second, SyncTime: true}
)

func init() {
	env.String(&linkURL, "HA_LINK")
	env.String(&deviceType, "HA_NODE_TYPE")
	env.Int(&deviceID, "HA_NODE_ID")
	flag.StringVar(&linkURL, "link", linkURL, "Link URL, env HA_LINK.")
	flag.StringVar(&deviceType, "type", deviceType, "Device type, env HA_NODE_TYPE.")
	flag.IntVar(&deviceID, "id", deviceID, "Device instance ID (0-15), env HA_NODE_ID.")
	flag.IntVar(&value, "value", value, "Initial sensor value.")
	flag.IntVar(&jitter, "jitter", jitter, "Max change of sensor value between readings.")
	flag.DurationVar(&conf.ReportInterval, "report", conf.ReportInterval, "Sensor report interval, 0 disables.")
	flag.BoolVar(&conf.SyncTime, "sync-time", conf.SyncTime, "Request time from the hub on start.")
}

// walk is a random walk sensor.
type walk struct {
	lock  sync.Mutex
	value int
}

func (w *walk) read(op ha.Opcode) (uint16, error) {
	w.lock.Lock()
	defer w.lock.Unlock()
	if jitter > 0 {
		w.value += rand.Intn(2*jitter+1) - jitter
	}
	if w.value < 0 {
		w.value = 0
	} else if w.value > ha.MaxValue {
		w.value = ha.MaxValue
	}
	return uint16(w.value), nil
}

func main() {
	flag.Parse()
	rand.Seed(time.Now().UnixNano())

	typ, err := ha.ParseDeviceType(deviceType)
	if err != nil {
		log.Fatalln(err)
	}
	if deviceID < 0 || deviceID > 15 {
		log.Fatalln(&ha.ConfigError{Field: "instance id", Value: deviceID, Limit: 16})
	}
	addr, err := ha.LocalAddress(typ, uint8(deviceID))
	if err != nil {
		log.Fatalln(err)
	}
	link, err := dial.Open(linkURL)
	if err != nil {
		log.Fatalln(err)
	}
	defer link.Close()

	n := node.New(link.Session(addr))
	if typ.IsSensor() {
		n.Sensor = (&walk{value: value}).read
	}
	glog.Infof("node %s on %s", addr, linkURL)

	err = fx.NewRunner().HandleSignals().Go(
		fx.NamedRun("link", link),
		fx.NamedRun("node", fx.RunFunc(func(ctx context.Context) error {
			return n.Run(ctx, conf, link.Driver.Wake())
		})),
	).Wait()
	if err != nil {
		log.Fatalln(err)
	}
}
