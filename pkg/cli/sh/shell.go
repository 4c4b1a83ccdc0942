package sh

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/handlink/pkg/link"
	"github.com/robotalks/handlink/pkg/link/comm"
	"github.com/robotalks/handlink/pkg/link/device"
	"github.com/robotalks/handlink/pkg/ui"
)

// Shell provides ishell backed interactive shell over a Link.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell   *ishell.Shell
	Link    *link.Link
	Lister  link.PortLister
	Monitor *link.Monitor
}

// StatusInfo is the output of the status command.
type StatusInfo struct {
	Port    string `json:"port"`
	State   string `json:"state"`
	Status  string `json:"status"`
	Monitor bool   `json:"monitor"`
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	configFile string

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&ProbeCmd,
		&StatusCmd,
		&SendCmd,
		&ReadCmd,
		&CloseCmd,
		&MonitorCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&configFile, "config", configFile, "Link config file in YAML.")
}

// New creates a new shell.
func New(l *link.Link, lister link.PortLister) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Link:   l,
		Lister: lister,
	}
	s.Monitor = link.NewMonitor(l, ui.Funcs{
		Connected: func(connected bool) {
			if connected {
				s.Shell.Printf("connected to %s\n", l.Port())
			}
			s.updatePrompt()
		},
	})
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Print prints v as JSON when OutputJSON is set, otherwise text.
func (s *Shell) Print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// StatusInfo collects the current link status.
func (s *Shell) StatusInfo() StatusInfo {
	return StatusInfo{
		Port:    s.Link.Port(),
		State:   s.Link.State().String(),
		Status:  s.Link.Status().String(),
		Monitor: s.Monitor.Connected(),
	}
}

func (s *Shell) updatePrompt() {
	if port := s.Link.Port(); port != "" && s.Link.IsOpen() {
		s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", port))
		return
	}
	s.Shell.SetPrompt(unconnectedPrompt)
}

// ParseSendArgs parses COMMAND [PURPOSE [TIME]].
func ParseSendArgs(args []string) (comm.Record, error) {
	var rec comm.Record
	if len(args) == 0 || len(args) > 3 {
		return rec, errors.New("usage: send COMMAND [PURPOSE [TIME]]")
	}
	rec.Command = args[0]
	if len(args) > 1 {
		rec.Purpose = args[1]
	}
	if len(args) > 2 {
		t, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return rec, fmt.Errorf("invalid time %q: %w", args[2], err)
		}
		rec.Time = t
	}
	return rec, nil
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Close stops the monitor and closes the link.
func (s *Shell) Close() error {
	if err := s.Monitor.Stop(); err != nil {
		return err
	}
	return s.Link.Close()
}

var (
	// PortsCmd lists candidate ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "list candidate peripheral ports",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ids, err := s.Lister.ListCandidatePorts()
			if err != nil {
				c.Err(err)
				return
			}
			if ids == nil {
				ids = []string{}
			}
			text := "No peripheral found"
			if len(ids) > 0 {
				text = ""
				for n, id := range ids {
					if n > 0 {
						text += "\n"
					}
					text += id
				}
			}
			s.Print(c, ids, text)
		},
	}

	// ProbeCmd probes and connects the peripheral.
	ProbeCmd = ishell.Cmd{
		Name:    "probe",
		Aliases: []string{"connect", "c"},
		Help:    "find the peripheral and connect",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if !s.Link.Probe() {
				c.Err(link.ErrLinkUnavailable)
				s.updatePrompt()
				return
			}
			s.updatePrompt()
			if !s.Link.IsOpen() {
				c.Err(fmt.Errorf("found %s but not connected", s.Link.Port()))
				return
			}
			info := s.StatusInfo()
			s.Print(c, info, "connected to "+info.Port)
		},
	}

	// StatusCmd prints link status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "print link status",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			info := s.StatusInfo()
			port := info.Port
			if port == "" {
				port = "-"
			}
			s.Print(c, info, fmt.Sprintf("%s %s (%s)", port, info.Status, info.State))
		},
	}

	// SendCmd sends a record.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"w"},
		Help:    "COMMAND [PURPOSE [TIME]]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			rec, err := ParseSendArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			s.Link.UpdateStream(rec.Command, rec.Purpose, rec.Time)
			if err := s.Link.SendStream(); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, rec, "OK")
		},
	}

	// ReadCmd reads a status line.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "[WAIT] read peripheral status, waiting up to WAIT (e.g. 2s)",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var wait time.Duration
			if len(c.Args) > 0 {
				d, err := time.ParseDuration(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				wait = d
			}
			deadline := time.Now().Add(wait)
			for {
				status, err := s.Link.ReadStatus()
				if err == nil {
					s.Print(c, map[string]string{comm.StatusKey: status}, status)
					return
				}
				if !errors.Is(err, comm.ErrNoLine) || time.Now().After(deadline) {
					c.Err(err)
					return
				}
			}
		},
	}

	// CloseCmd closes the link.
	CloseCmd = ishell.Cmd{
		Name:    "close",
		Aliases: []string{"d"},
		Help:    "close the connection",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if err := s.Link.Close(); err != nil {
				c.Err(err)
			}
			s.updatePrompt()
		},
	}

	// MonitorCmd starts or stops background health monitoring.
	MonitorCmd = ishell.Cmd{
		Name:    "monitor",
		Aliases: []string{"m"},
		Help:    "start|stop background health monitoring",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) != 1 {
				c.Err(errors.New("usage: monitor start|stop"))
				return
			}
			switch c.Args[0] {
			case "start":
				s.Monitor.Start()
			case "stop":
				if err := s.Monitor.Stop(); err != nil {
					c.Err(err)
				}
				s.updatePrompt()
			default:
				c.Err(fmt.Errorf("unknown monitor action %q", c.Args[0]))
			}
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf := link.NewConfig()
	if configFile != "" {
		var err error
		if conf, err = link.LoadConfig(configFile); err != nil {
			log.Fatalln(err)
		}
	}
	if err := conf.Validate(); err != nil {
		log.Fatalln(err)
	}
	lister, err := conf.NewPortLister()
	if err != nil {
		log.Fatalln(err)
	}
	s := New(link.New(*conf, lister, device.SerialOpener{}), lister)
	defer s.Close()
	s.Run(flag.Args()...)
}
