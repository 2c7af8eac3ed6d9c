// Package dial opens a radio link by URL.
//
//	loop:[NAME]                                  in-process medium
//	serial:///dev/ttyUSB0?baud=115200&parity=none radio bridge on a UART
//	ws://host:port/air                           websocket relay
//	mqtt://host:1883/prefix/?channel=air         medium emulated on MQTT
package dial

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/robotalks/homeauto.go/pkg/framework"
	"github.com/robotalks/homeauto.go/pkg/ha"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram/loopback"
	mqttdrv "github.com/robotalks/homeauto.go/pkg/ha/datagram/mqtt"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram/uart"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram/ws"
	"github.com/robotalks/homeauto.go/pkg/ha/session"
	"github.com/robotalks/homeauto.go/pkg/mqtt"
)

// ConnectTimeout bounds connecting to an MQTT broker.
var ConnectTimeout = 10 * time.Second

// Driver is a datagram.Driver signaling packet arrival.
type Driver interface {
	datagram.Driver
	Wake() <-chan struct{}
}

// Link is an opened radio link.
type Link struct {
	URL    string
	Driver Driver
	// Runnable receives packets in background, nil if not needed.
	Runnable framework.Runnable
	// Closer releases the link, nil if not needed.
	Closer io.Closer
	// Medium is set for loop links.
	Medium *loopback.Medium
}

// UnsupportedSchemeError is returned for unknown URL schemes.
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported link scheme %q", e.Scheme)
}

var (
	mediaLock sync.Mutex
	media     = make(map[string]*loopback.Medium)
)

// Medium returns the named in-process medium, creating it when absent.
func Medium(name string) *loopback.Medium {
	mediaLock.Lock()
	defer mediaLock.Unlock()
	m, ok := media[name]
	if !ok {
		m = loopback.NewMedium()
		media[name] = m
	}
	return m
}

// Open opens the link specified by rawURL.
func Open(rawURL string) (*Link, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	l := &Link{URL: rawURL}
	switch u.Scheme {
	case "loop":
		name := u.Opaque
		if name == "" {
			name = u.Host + u.Path
		}
		l.Medium = Medium(name)
		port := l.Medium.Attach()
		l.Driver, l.Closer = port, port
	case "serial":
		conf, err := ParseSerialConfig(u)
		if err != nil {
			return nil, err
		}
		d, err := uart.Open(conf)
		if err != nil {
			return nil, err
		}
		l.Driver, l.Runnable = d, d
	case "ws", "wss":
		origin := u.Query().Get("origin")
		if origin == "" {
			origin = "http://" + u.Host + "/"
		}
		d, err := ws.Dial(rawURL, origin)
		if err != nil {
			return nil, err
		}
		l.Driver, l.Runnable, l.Closer = d, d, d.Conn
	case "mqtt", "tcp", "ssl":
		channel := u.Query().Get("channel")
		q, err := mqtt.NewQueueFromURL(rawURL, "link")
		if err != nil {
			return nil, err
		}
		if err := connectQueue(q, u.Host, ConnectTimeout); err != nil {
			return nil, err
		}
		d := mqttdrv.New(q, channel)
		l.Driver, l.Runnable, l.Closer = d, d, q
	default:
		return nil, &UnsupportedSchemeError{Scheme: u.Scheme}
	}
	return l, nil
}

// connectQueue connects q to the broker and closes it when that fails.
func connectQueue(q *mqtt.Queue, host string, timeout time.Duration) error {
	token := q.Connect()
	var err error
	if !token.WaitTimeout(timeout) {
		err = context.DeadlineExceeded
	} else {
		err = token.Error()
	}
	if err != nil {
		q.Close()
		return fmt.Errorf("connect %s: %w", host, err)
	}
	return nil
}

// ParseSerialConfig extracts the serial port settings from the URL.
func ParseSerialConfig(u *url.URL) (uart.Config, error) {
	conf := uart.DefaultConfig
	conf.Port = u.Path
	if conf.Port == "" {
		conf.Port = u.Opaque
	}
	if conf.Port == "" {
		return conf, fmt.Errorf("serial port missing in %q", u.String())
	}
	q := u.Query()
	for name, val := range map[string]*int{
		"baud":     &conf.Baud,
		"databits": &conf.DataBits,
		"stopbits": &conf.StopBits,
	} {
		if s := q.Get(name); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return conf, fmt.Errorf("invalid %s %q", name, s)
			}
			*val = n
		}
	}
	if s := q.Get("parity"); s != "" {
		conf.Parity = s
	}
	if s := q.Get("timeout"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return conf, fmt.Errorf("invalid timeout %q: %w", s, err)
		}
		conf.ReadTimeout = d
	}
	if _, err := conf.Mode(); err != nil {
		return conf, err
	}
	return conf, nil
}

// Manager creates a datagram manager for addr on the link.
func (l *Link) Manager(addr ha.Address) *datagram.Manager {
	return datagram.NewManager(l.Driver, addr)
}

// Session creates a session for addr on the link.
func (l *Link) Session(addr ha.Address) *session.Session {
	return session.New(l.Manager(addr), addr)
}

// Run implements framework.Runnable.
func (l *Link) Run(ctx context.Context) error {
	if l.Runnable != nil {
		return l.Runnable.Run(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

// Close implements io.Closer.
func (l *Link) Close() error {
	if l.Closer != nil {
		return l.Closer.Close()
	}
	return nil
}
