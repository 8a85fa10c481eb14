// Package scenario describes a run in YAML: the nodes, their bindings, and
// the sends, acks and receptions scheduled at each tick.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/arqsim/access"
	"github.com/sarchlab/arqsim/arp"
	"github.com/sarchlab/arqsim/flowcontrol"
	"github.com/sarchlab/arqsim/forwarding"
)

// ErrUnknownNode is returned when a step refers to a node that the scenario
// does not declare.
var ErrUnknownNode = errors.New("unknown node")

// The environment variables that override the scenario.
const (
	EnvSeed  = "ARQSIM_SEED"
	EnvTicks = "ARQSIM_TICKS"
)

// Scenario is the description of a run.
type Scenario struct {
	Seed  uint64     `yaml:"seed"`
	Ticks uint64     `yaml:"ticks"`
	Nodes []Node     `yaml:"nodes"`
	ARP   []ARPEntry `yaml:"arp"`
	Steps []Step     `yaml:"steps"`
}

// Node describes a bridge or a switch.
type Node struct {
	Name    string         `yaml:"name"`
	Kind    string         `yaml:"kind"`
	Address string         `yaml:"address"`
	Access  Access         `yaml:"access"`
	Flow    Flow           `yaml:"flow"`
	Shaper  *Shaper        `yaml:"shaper"`
	VLANs   map[string]int `yaml:"vlans"`
	Routes  []Route        `yaml:"routes"`
}

// Access configures the access controller of a node.
type Access struct {
	Protocol           string   `yaml:"protocol"`
	SuccessProbability *float64 `yaml:"success_probability"`
	SlotDuration       uint64   `yaml:"slot_duration"`
	Seed               *uint64  `yaml:"seed"`
}

// Flow configures the flow controllers of a node.
type Flow struct {
	Protocol   string `yaml:"protocol"`
	WindowSize int    `yaml:"window_size"`
	InitialSeq uint64 `yaml:"initial_seq"`
	Timeout    uint64 `yaml:"timeout"`
}

// Shaper configures the rate gate of a node.
type Shaper struct {
	Kind     string `yaml:"kind"`
	Capacity int    `yaml:"capacity"`
	Rate     int    `yaml:"rate"`
}

// Route is a static binding.
type Route struct {
	Destination string `yaml:"destination"`
	Port        int    `yaml:"port"`
	NextHop     string `yaml:"next_hop"`
}

// ARPEntry maps a network address to a hardware address.
type ARPEntry struct {
	IP  string `yaml:"ip"`
	MAC string `yaml:"mac"`
}

// The actions a step can take.
const (
	ActionSend    = "send"
	ActionAck     = "ack"
	ActionReceive = "receive"
)

// Step is an action applied on a node at a tick.
type Step struct {
	Tick        uint64 `yaml:"tick"`
	Node        string `yaml:"node"`
	Action      string `yaml:"action"`
	Destination string `yaml:"destination"`
	IP          string `yaml:"ip"`
	Payload     string `yaml:"payload"`
	Count       int    `yaml:"count"`
	Seq         uint64 `yaml:"seq"`
	Source      string `yaml:"source"`
	Port        int    `yaml:"port"`
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	s := &Scenario{}

	err := yaml.Unmarshal(data, s)
	if err != nil {
		return nil, fmt.Errorf("cannot parse scenario: %w", err)
	}

	err = s.Validate()
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Load reads a scenario from a file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// LoadEnv reads the variables of the env files. Variables set in the process
// environment win over the files. Missing files are skipped.
func LoadEnv(files ...string) (map[string]string, error) {
	env := make(map[string]string)

	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}

		vars, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", f, err)
		}

		for k, v := range vars {
			env[k] = v
		}
	}

	for _, k := range []string{EnvSeed, EnvTicks} {
		if v, ok := os.LookupEnv(k); ok {
			env[k] = v
		}
	}

	return env, nil
}

// ApplyEnv overrides the seed and the number of ticks.
func (s *Scenario) ApplyEnv(env map[string]string) error {
	if v, ok := env[EnvSeed]; ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSeed, err)
		}

		s.Seed = seed
	}

	if v, ok := env[EnvTicks]; ok {
		ticks, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTicks, err)
		}

		s.Ticks = ticks
	}

	return nil
}

// Validate checks that the scenario can be built.
func (s *Scenario) Validate() error {
	names := make(map[string]bool)

	for _, n := range s.Nodes {
		if names[n.Name] {
			return fmt.Errorf("node %s declared twice", n.Name)
		}
		names[n.Name] = true

		if err := n.validate(); err != nil {
			return fmt.Errorf("node %s: %w", n.Name, err)
		}
	}

	scratch := arp.NewCache()
	for _, e := range s.ARP {
		if err := scratch.Add(e.IP, e.MAC); err != nil {
			return err
		}
	}

	for i, st := range s.Steps {
		if !names[st.Node] {
			return fmt.Errorf("step %d: %w: %s", i, ErrUnknownNode, st.Node)
		}

		if err := st.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}

	return nil
}

func (n Node) validate() error {
	if n.Name == "" {
		return errors.New("name is required")
	}

	if _, err := forwarding.ParseKind(n.kindOrDefault()); err != nil {
		return err
	}

	if err := forwarding.ValidateAddress(n.Address); err != nil {
		return err
	}

	if err := n.Access.validate(); err != nil {
		return err
	}

	if err := n.Flow.validate(); err != nil {
		return err
	}

	if n.Shaper != nil {
		if err := n.Shaper.validate(); err != nil {
			return err
		}
	}

	for _, r := range n.Routes {
		if err := forwarding.ValidateAddress(r.Destination); err != nil {
			return err
		}
	}

	return nil
}

func (n Node) kindOrDefault() string {
	if n.Kind == "" {
		return forwarding.Bridge.String()
	}

	return n.Kind
}

func (a Access) validate() error {
	if a.Protocol != "" {
		if _, err := access.ParseProtocol(a.Protocol); err != nil {
			return err
		}
	}

	if p := a.SuccessProbability; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("success probability %f not in [0, 1]", *p)
	}

	return nil
}

func (f Flow) validate() error {
	if f.Protocol != "" {
		if _, err := flowcontrol.ParseProtocol(f.Protocol); err != nil {
			return err
		}
	}

	if f.WindowSize < 0 {
		return fmt.Errorf("window size %d is negative", f.WindowSize)
	}

	if f.Protocol == flowcontrol.StopAndWaitProtocol.String() &&
		f.WindowSize > 1 {
		return fmt.Errorf("stop-and-wait window size must be 1, got %d",
			f.WindowSize)
	}

	return nil
}

// The kinds of shapers.
const (
	TokenBucket = "token_bucket"
	LeakyBucket = "leaky_bucket"
)

func (s Shaper) validate() error {
	if s.Kind != TokenBucket && s.Kind != LeakyBucket {
		return fmt.Errorf("unknown shaper kind %q", s.Kind)
	}

	if s.Capacity <= 0 || s.Rate <= 0 {
		return errors.New("shaper capacity and rate must be positive")
	}

	return nil
}

func (st Step) validate() error {
	switch st.Action {
	case ActionSend:
		if (st.Destination == "") == (st.IP == "") {
			return errors.New("send needs exactly one of destination and ip")
		}
	case ActionAck:
		if st.Destination == "" {
			return errors.New("ack needs a destination")
		}
	case ActionReceive:
		if err := forwarding.ValidateAddress(st.Source); err != nil {
			return fmt.Errorf("receive source: %w", err)
		}
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}

	return nil
}
