package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/robotalks/handlink/pkg/ui/mqtt"
	"github.com/robotalks/handlink/pkg/ui/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/handlink/"
)

func init() {
	if val := os.Getenv("HANDLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	opts, prefix, err := mqtt.ClientOptionsFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q := mqtt.NewQueue(opts, prefix)
	if err = q.Connect(); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	_, err = q.Subscribe("#", mqtt.Handler(func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, "/status"):
			status, err := msgs.DecodeLinkStatus(payload)
			if err != nil {
				log.Printf("%s: bad status: %v", topic, err)
				return
			}
			log.Printf("%s: [LinkStatus] %s (at %s)", topic, status,
				time.Unix(0, status.Timestamp*int64(time.Millisecond)).Format(time.RFC3339))
		case strings.HasSuffix(topic, "/command"):
			cmd, err := msgs.DecodeCommand(payload)
			if err != nil {
				log.Printf("%s: bad command: %v", topic, err)
				return
			}
			log.Printf("%s: [Command] %s", topic, cmd)
		default:
			log.Printf("%s: %d bytes", topic, len(payload))
		}
	}))
	if err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}
