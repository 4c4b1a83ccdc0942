// Package env sets up the environment of a hand link daemon.
package env

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	fx "github.com/robotalks/handlink/pkg/framework"
	"github.com/robotalks/handlink/pkg/link"
	"github.com/robotalks/handlink/pkg/ui"
	"github.com/robotalks/handlink/pkg/ui/mqtt"
	"github.com/robotalks/handlink/pkg/ui/websocket"
)

const appID = "handlink"

// HostID identifies this host in topics and client IDs. It's derived from
// the machine ID and falls back to the hostname.
func HostID() string {
	id, err := machineid.ProtectedID(appID)
	if err == nil && len(id) >= 12 {
		return id[:12]
	}
	glog.Warningf("machine id unavailable: %v", err)
	if name, err := os.Hostname(); err == nil && name != "" {
		return strings.ReplaceAll(name, "/", "_")
	}
	return "unknown"
}

// Config provides common options to setup a daemon env.
type Config struct {
	// Host is the ID used in MQTT topics.
	Host string
	// MQTTBrokerURL specifies the MQTT broker to use, empty to disable.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// WebsocketAddr is the listen address of the websocket hub, empty to
	// disable.
	WebsocketAddr string
	// LinkConfigFile is an optional YAML file for link settings.
	LinkConfigFile string
	// CommandRate limits remote commands per second, 0 for unlimited.
	CommandRate  float64
	CommandBurst int
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/handlink/",
	CommandRate:   20,
	CommandBurst:  5,
}

func init() {
	if val := os.Getenv("HANDLINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("HANDLINK_HOST"); val != "" {
		defaultConfig.Host = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Host, "host", defaultConfig.Host, "Host ID used in MQTT topics, default is derived from machine ID.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable.")
	flag.StringVar(&defaultConfig.WebsocketAddr, "ws", defaultConfig.WebsocketAddr, "Websocket listen address, e.g. :8080.")
	flag.StringVar(&defaultConfig.LinkConfigFile, "config", defaultConfig.LinkConfigFile, "Link config file in YAML.")
	flag.Float64Var(&defaultConfig.CommandRate, "command-rate", defaultConfig.CommandRate, "Remote commands allowed per second, 0 for unlimited.")
	flag.IntVar(&defaultConfig.CommandBurst, "command-burst", defaultConfig.CommandBurst, "Burst of remote commands.")
	link.SetupFlags()
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is the assembled daemon.
type Env struct {
	Config  *Config
	Link    *link.Link
	Monitor *link.Monitor
	UI      *ui.Mux

	runnables []fx.Runnable
}

// LinkConfig loads link settings from the config file or flags.
func (c *Config) LinkConfig() (*link.Config, error) {
	if c.LinkConfigFile != "" {
		return link.LoadConfig(c.LinkConfigFile)
	}
	return link.NewConfig(), nil
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	linkConf, err := c.LinkConfig()
	if err != nil {
		return nil, err
	}
	l, err := linkConf.NewLink()
	if err != nil {
		return nil, err
	}
	host := c.Host
	if host == "" {
		host = HostID()
	}
	env := &Env{Config: c, Link: l, UI: &ui.Mux{}}
	env.UI.Add(ui.NewLogger())
	commands := ui.NewLimitedSender(l, c.CommandRate, c.CommandBurst)
	if c.MQTTBrokerURL != "" {
		opts, prefix, err := mqtt.ClientOptionsFromURL(c.MQTTBrokerURL)
		if err != nil {
			return nil, fmt.Errorf("invalid MQTT broker URL: %w", err)
		}
		if opts.ClientID == "" {
			opts.SetClientID(appID + "-" + host)
		}
		if err = mqtt.SetStatusWill(opts, prefix, host); err != nil {
			return nil, err
		}
		pub := mqtt.NewPublisher(mqtt.NewQueue(opts, prefix), host, l, commands)
		env.UI.Add(pub)
		env.runnables = append(env.runnables, fx.NamedRun("mqtt", pub))
	}
	if c.WebsocketAddr != "" {
		hub := websocket.NewHub(l, commands)
		env.UI.Add(hub)
		env.runnables = append(env.runnables, fx.NamedRun("websocket", &websocket.Server{Addr: c.WebsocketAddr, Hub: hub}))
	}
	env.Monitor = link.NewMonitor(l, env.UI)
	env.runnables = append(env.runnables, fx.NamedRun("monitor", env.Monitor))
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// Runnables returns the components to run.
func (e *Env) Runnables() []fx.Runnable {
	return e.runnables
}

// RunOrFail runs all components until interrupted.
func (e *Env) RunOrFail() {
	err := fx.NewRunner().HandleSignals().Go(e.runnables...).Wait()
	if err != nil {
		log.Fatalln(err)
	}
}
