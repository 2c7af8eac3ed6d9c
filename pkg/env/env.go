// Package env provides process environment helpers shared by binaries.
package env

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const appID = "homeauto"

// MachineID returns an application specific ID of this machine.
// The hostname is used when the machine has no ID.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err == nil {
		return id
	}
	glog.Warningf("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return appID
}

// ClientID derives a client identifier for brokers. It is unique per call,
// so processes with the same role on one machine don't take over each
// other's broker session.
func ClientID(role string) string {
	id := MachineID()
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s-%s-%06x", appID, role, id, rand.Uint32()&0xffffff)
}

// String overrides *val with the environment variable if set.
func String(val *string, name string) {
	if s := os.Getenv(name); s != "" {
		*val = s
	}
}

// Int overrides *val with the environment variable if set and valid.
func Int(val *int, name string) {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			*val = n
		} else {
			glog.Warningf("ignore %s=%q: %v", name, s, err)
		}
	}
}

// Duration overrides *val with the environment variable if set and valid.
func Duration(val *time.Duration, name string) {
	if s := os.Getenv(name); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			*val = d
		} else {
			glog.Warningf("ignore %s=%q: %v", name, s, err)
		}
	}
}
