package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"
	"net/http"

	"github.com/golang/glog"

	fx "github.com/robotalks/homeauto.go/pkg/framework"
	"github.com/robotalks/homeauto.go/pkg/env"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram/loopback"
	"github.com/robotalks/homeauto.go/pkg/ha/datagram/ws"
	"github.com/robotalks/homeauto.go/pkg/hub"
)

var (
	relayAddr string
	relayPath = "/air"
)

func init() {
	hub.SetupFlags()
	env.String(&relayAddr, "HA_RELAY")
	flag.StringVar(&relayAddr, "relay", relayAddr, "Serve websocket relay of a loop: link on the address, env HA_RELAY.")
	flag.StringVar(&relayPath, "relay-path", relayPath, "Websocket relay path.")
}

type relayServer struct {
	medium *loopback.Medium
}

func (s *relayServer) Name() string {
	return "relay"
}

func (s *relayServer) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(relayPath, ws.Relay(s.medium))
	srv := &http.Server{Addr: relayAddr, Handler: mux}
	glog.Infof("relay serving ws://%s%s", relayAddr, relayPath)
	return fx.RunWithContextCancel(ctx, func() { srv.Close() }, srv.ListenAndServe)
}

func main() {
	flag.Parse()

	conf, err := hub.NewConfig()
	if err != nil {
		log.Fatalln(err)
	}
	h := conf.MustNewHub()
	loop := fx.NewLoop().Add(h)
	loop.Interval = conf.PollInterval
	if relayAddr != "" {
		if h.Link.Medium == nil {
			log.Fatalln("-relay requires a loop: link")
		}
		loop.AddRunnable(&relayServer{medium: h.Link.Medium})
	}
	loop.RunOrFail()
}
