package mqtt

import (
	"context"
	"io"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	fx "github.com/robotalks/handlink/pkg/framework"
	"github.com/robotalks/handlink/pkg/ui"
	"github.com/robotalks/handlink/pkg/ui/msgs"
)

// Broker is the messaging used by Publisher. *Queue implements it.
type Broker interface {
	Publish(topic string, payload []byte, retain bool) error
	Subscribe(topic string, handler Handler) (io.Closer, error)
}

// PortSource reports the selected port. *link.Link implements it.
type PortSource interface {
	Port() string
}

// StatusTopic is where a host publishes its retained LinkStatus.
func StatusTopic(host string) string {
	return host + "/status"
}

// CommandTopic is where a host receives Command messages.
func CommandTopic(host string) string {
	return host + "/command"
}

// SetStatusWill makes the broker publish an offline status for host when
// the client disconnects unexpectedly.
func SetStatusWill(opts *paho.ClientOptions, topicPrefix, host string) error {
	payload, err := msgs.Encode(&msgs.LinkStatus{Host: host})
	if err != nil {
		return err
	}
	opts.SetBinaryWill(topicPrefix+StatusTopic(host), payload, 1, true)
	return nil
}

// ReconnectInterval is the delay between initial connect attempts.
const ReconnectInterval = 5 * time.Second

// Publisher publishes link state changes and feeds received commands to
// the peripheral.
type Publisher struct {
	ui.Tracker

	Broker   Broker
	Host     string
	Ports    PortSource
	Commands ui.Commander

	pending chan ui.State
	now     func() time.Time
}

// NewPublisher creates a Publisher. ports and commands may be nil.
func NewPublisher(broker Broker, host string, ports PortSource, commands ui.Commander) *Publisher {
	p := &Publisher{
		Broker:   broker,
		Host:     host,
		Ports:    ports,
		Commands: commands,
		pending:  make(chan ui.State, 1),
		now:      time.Now,
	}
	p.OnChange = p.enqueue
	return p
}

// Run implements framework.Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	if c, ok := p.Broker.(interface{ Connect() error }); ok {
		for {
			err := c.Connect()
			if err == nil {
				break
			}
			glog.Warningf("mqtt connect: %v, retry in %s", err, ReconnectInterval)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(ReconnectInterval):
			}
		}
	}
	var sub io.Closer
	closer, _ := p.Broker.(io.Closer)
	defer func() {
		if err := fx.CloseAll(sub, closer); err != nil {
			glog.Warningf("mqtt close: %v", err)
		}
	}()
	if p.Commands != nil {
		var err error
		if sub, err = p.Broker.Subscribe(CommandTopic(p.Host), p.handleCommand); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			p.publish(ui.State{})
			return ctx.Err()
		case state := <-p.pending:
			p.publish(state)
		}
	}
}

// enqueue keeps only the latest state so callbacks never block.
func (p *Publisher) enqueue(state ui.State) {
	for {
		select {
		case p.pending <- state:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

func (p *Publisher) publish(state ui.State) {
	status := &msgs.LinkStatus{
		Host:      p.Host,
		Connected: state.Connected,
		HandReady: state.HandReady,
		Timestamp: p.now().UnixNano() / int64(time.Millisecond),
	}
	if p.Ports != nil {
		status.Port = p.Ports.Port()
	}
	payload, err := msgs.Encode(status)
	if err == nil {
		err = p.Broker.Publish(StatusTopic(p.Host), payload, true)
	}
	if err != nil {
		glog.Warningf("publish status: %v", err)
	}
}

func (p *Publisher) handleCommand(topic string, payload []byte) {
	cmd, err := msgs.DecodeCommand(payload)
	if err != nil {
		glog.Warningf("%s: bad command: %v", topic, err)
		return
	}
	glog.V(1).Infof("%s: %s", topic, cmd)
	if err := p.Commands.Send(cmd.Command, cmd.Purpose, cmd.Time); err != nil {
		glog.Warningf("%s: send %s: %v", topic, cmd, err)
	}
}
