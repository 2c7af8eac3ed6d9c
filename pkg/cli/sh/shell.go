// Package sh provides an interactive shell acting as a master on a link.
package sh

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/homeauto.go/pkg/env"
	"github.com/robotalks/homeauto.go/pkg/ha"
	"github.com/robotalks/homeauto.go/pkg/hub"
)

// Config provides options of the shell.
type Config struct {
	// Link is the link URL to connect on start, see package dial.
	Link string
	// Address is the local address, the hub by default.
	Address string
	// ConfigFile is the hub config with the node inventory.
	ConfigFile   string
	ReplyTimeout time.Duration
}

var defaultConfig = Config{
	Address:      ha.HubAddress.String(),
	ReplyTimeout: time.Second,
}

func init() {
	env.String(&defaultConfig.Link, "HA_LINK")
	env.String(&defaultConfig.ConfigFile, "HA_CONFIG")
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Link, "link", defaultConfig.Link, "Link URL to connect, env HA_LINK.")
	flag.StringVar(&defaultConfig.Address, "addr", defaultConfig.Address, "Local address.")
	flag.StringVar(&defaultConfig.ConfigFile, "config", defaultConfig.ConfigFile, "Hub config with nodes, env HA_CONFIG.")
	flag.DurationVar(&defaultConfig.ReplyTimeout, "reply-timeout", defaultConfig.ReplyTimeout, "Time to wait for replies.")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Inventory loads the node inventory from the config file.
func (c *Config) Inventory() (*hub.Inventory, error) {
	var conf hub.Config
	if c.ConfigFile != "" {
		if err := conf.LoadFile(c.ConfigFile); err != nil {
			return nil, err
		}
	}
	return hub.NewInventory(conf.Nodes)
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell     *ishell.Shell
	Config    *Config
	Inventory *hub.Inventory
	Conn      *Conn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

// DefaultListenDuration is used when listen is given no duration.
const DefaultListenDuration = 10 * time.Second

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// ErrNotConnected is reported by commands requiring a link.
	ErrNotConnected = errors.New("not connected")

	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&NodesCmd,
		&ListenCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
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

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(ErrNotConnected)
			return
		}
		fn(c)
	}
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect opens the link.
func (s *Shell) Connect(linkURL string) error {
	if s.Inventory == nil {
		inv, err := s.Config.Inventory()
		if err != nil {
			return err
		}
		s.Inventory = inv
	}
	local, err := ha.ParseAddress(s.Config.Address)
	if err != nil {
		return err
	}
	conn, err := Dial(linkURL, local, s.Inventory)
	if err != nil {
		return err
	}
	conn.ReplyTimeout = s.Config.ReplyTimeout
	s.Disconnect()
	s.Conn = conn
	s.Shell.SetPrompt(fmt.Sprintf("%s@%s > ", local, linkURL))
	return nil
}

// Disconnect closes current link.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// PrintEvent prints the event in text or JSON.
func (s *Shell) PrintEvent(c *ishell.Context, ev *hub.Event) {
	if s.OutputJSON {
		out, err := hub.JSONCodec{}.Marshal(ev)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(ev.String())
}

// DoRequest sends the request text to the node in the first argument and
// prints the reply.
func DoRequest(c *ishell.Context, text string) error {
	if len(c.Args) < 1 {
		err := errors.New("NODE required")
		c.Err(err)
		return err
	}
	s := ShellFrom(c)
	ev, err := s.Conn.Request(c.Args[0], text)
	if err != nil {
		c.Err(err)
		return err
	}
	s.PrintEvent(c, ev)
	return nil
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Link != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Link)
		}
		if err := s.Connect(s.Config.Link); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Link, err)
		}
	}
	defer s.Disconnect()

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

var (
	// ConnectCmd opens a link.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "LINK_URL",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			linkURL := s.Config.Link
			if len(c.Args) > 0 {
				linkURL = c.Args[0]
			}
			if linkURL == "" {
				c.Err(errors.New("LINK_URL required"))
				return
			}
			if err := s.Connect(linkURL); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes current link.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// NodesCmd lists configured nodes.
	NodesCmd = ishell.Cmd{
		Name:    "nodes",
		Aliases: []string{"l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			inv := s.Inventory
			if inv == nil {
				var err error
				if inv, err = s.Config.Inventory(); err != nil {
					c.Err(err)
					return
				}
			}
			lines := FormatNodes(inv)
			if len(lines) == 0 {
				c.Println("No nodes configured")
				return
			}
			for _, line := range lines {
				c.Println(line)
			}
		},
	}

	// ListenCmd prints received frames.
	ListenCmd = ishell.Cmd{
		Name:    "listen",
		Aliases: []string{"mon"},
		Help:    "[DURATION]",
		Func: MustBeConnected(func(c *ishell.Context) {
			s := ShellFrom(c)
			d := DefaultListenDuration
			if len(c.Args) > 0 {
				var err error
				if d, err = time.ParseDuration(c.Args[0]); err != nil {
					c.Err(fmt.Errorf("invalid DURATION: %v", err))
					return
				}
			}
			ctx, cancel := context.WithTimeout(context.Background(), d)
			defer cancel()
			s.Conn.Listen(ctx, func(ev *hub.Event) { s.PrintEvent(c, ev) })
		}),
	}
)

// FormatNodes renders the inventory sorted by address.
func FormatNodes(inv *hub.Inventory) []string {
	type entry struct {
		name string
		addr ha.Address
	}
	var entries []entry
	inv.Each(func(name string, addr ha.Address) {
		entries = append(entries, entry{name: name, addr: addr})
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].addr < entries[j].addr })
	lines := make([]string, len(entries))
	for n, e := range entries {
		lines[n] = fmt.Sprintf("%s\t0x%02x\t%s", e.addr, uint8(e.addr), e.name)
	}
	return lines
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
