package main

import (
	"flag"
	"log"
	"strings"

	"github.com/robotalks/homeauto.go/pkg/env"
	"github.com/robotalks/homeauto.go/pkg/hub"
	"github.com/robotalks/homeauto.go/pkg/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/home/"
)

func init() {
	env.String(&mqttURL, "HA_MQTT_URL")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL, "monitor")
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("nodes/#", func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/set") {
			log.Printf("%s: %s", topic, strings.TrimSpace(string(payload)))
			return
		}
		ev, err := hub.DecodeEvent(payload)
		if err != nil {
			log.Printf("%s: bad event: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, ev)
	})
	<-(chan struct{})(nil)
}
