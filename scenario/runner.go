package scenario

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sarchlab/arqsim/access"
	"github.com/sarchlab/arqsim/eventlog"
	"github.com/sarchlab/arqsim/flowcontrol"
	"github.com/sarchlab/arqsim/forwarding"
	"github.com/sarchlab/arqsim/shaping"
	"github.com/sarchlab/arqsim/sim"
	"github.com/sarchlab/arqsim/simulation"
)

// Build creates the nodes of the scenario in a new simulation.
func Build(s *Scenario, b simulation.Builder) (*simulation.Simulation, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	simu := b.Build()

	for _, e := range s.ARP {
		if err := simu.GetResolver().Add(e.IP, e.MAC); err != nil {
			return nil, err
		}
	}

	for i, n := range s.Nodes {
		node := buildNode(simu.GetClock(), n, s.Seed+uint64(i))

		for _, r := range n.Routes {
			err := node.Bind(r.Destination, forwarding.Route{
				Port:    r.Port,
				NextHop: r.NextHop,
			})
			if err != nil {
				return nil, fmt.Errorf("node %s: %w", n.Name, err)
			}
		}

		simu.RegisterNode(node)
	}

	return simu, nil
}

func buildNode(clock *sim.Clock, n Node, seed uint64) *forwarding.Node {
	kind, _ := forwarding.ParseKind(n.kindOrDefault())

	b := forwarding.MakeBuilder().
		WithTimeTeller(clock).
		WithKind(kind).
		WithAddress(n.Address).
		WithAccessController(buildAccess(n.Access, seed)).
		WithFlowBuilder(flowBuilder(n.Flow))

	if n.Shaper != nil {
		b = b.WithShaper(buildShaper(*n.Shaper))
	}

	if len(n.VLANs) > 0 {
		filter := forwarding.NewVLANFilter()
		for addr, vlan := range n.VLANs {
			filter.Assign(addr, vlan)
		}

		b = b.WithVLANFilter(filter)
	}

	return b.Build(n.Name)
}

func buildAccess(a Access, seed uint64) access.Controller {
	b := access.MakeBuilder().WithSeed(seed)

	if a.Seed != nil {
		b = b.WithSeed(*a.Seed)
	}

	if a.Protocol != "" {
		p, _ := access.ParseProtocol(a.Protocol)
		b = b.WithProtocol(p)
	}

	if a.SuccessProbability != nil {
		b = b.WithSuccessProbability(*a.SuccessProbability)
	}

	if a.SlotDuration > 0 {
		b = b.WithSlotDuration(sim.VTick(a.SlotDuration))
	}

	return b.Build()
}

func flowBuilder(f Flow) flowcontrol.Builder {
	b := flowcontrol.MakeBuilder().WithInitialSeq(f.InitialSeq)

	if f.Protocol != "" {
		p, _ := flowcontrol.ParseProtocol(f.Protocol)
		b = b.WithProtocol(p)
	}

	if f.WindowSize > 0 {
		b = b.WithWindowSize(f.WindowSize)
	}

	if f.Timeout > 0 {
		b = b.WithTimeout(sim.VTick(f.Timeout))
	}

	return b
}

func buildShaper(s Shaper) shaping.Shaper {
	if s.Kind == LeakyBucket {
		return shaping.NewLeakyBucket(s.Capacity, s.Rate)
	}

	return shaping.NewTokenBucket(s.Capacity, s.Rate)
}

// Run applies the steps of the scenario tick by tick and returns the summary
// of the events. Steps are keyed on the simulation clock and the steps of a
// tick are applied before the clock advances. If the clock is moved from
// outside, for example through the monitor, steps that are due but skipped
// are applied at the current tick. The run stops when the clock reaches the
// tick count. Rejected sends and anomalous acks are part of the log, not
// errors.
func Run(s *Scenario, simu *simulation.Simulation) (eventlog.Summary, error) {
	steps := make([]Step, len(s.Steps))
	copy(steps, s.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Tick < steps[j].Tick
	})

	var bar progressBar = noProgress{}
	if m := simu.GetMonitor(); m != nil {
		pb := m.CreateProgressBar("Ticks", s.Ticks)
		defer m.CompleteProgressBar(pb)
		bar = pb
	}

	done := uint64(0)
	for {
		var err error

		simu.Lock()
		now := uint64(simu.Now())
		for now < s.Ticks && len(steps) > 0 && steps[0].Tick <= now &&
			err == nil {
			err = apply(simu, steps[0])
			steps = steps[1:]
		}
		simu.Unlock()

		if err != nil {
			return eventlog.Summary{}, fmt.Errorf("tick %d: %w", now, err)
		}

		if now >= s.Ticks {
			break
		}

		bar.IncrementFinished(now - done)
		done = now

		simu.Tick()
	}

	bar.IncrementFinished(s.Ticks - done)

	return eventlog.Summarize(simu.GetEventLog()), nil
}

type progressBar interface {
	IncrementFinished(amount uint64)
}

type noProgress struct{}

func (noProgress) IncrementFinished(uint64) {}

func apply(simu *simulation.Simulation, st Step) error {
	node, found := simu.GetNodeByName(st.Node)
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownNode, st.Node)
	}

	switch st.Action {
	case ActionSend:
		return send(simu, node, st)
	case ActionAck:
		err := node.DeliverAck(st.Destination, st.Seq)
		if errors.Is(err, flowcontrol.ErrInvalidSequence) {
			return nil
		}

		return err
	case ActionReceive:
		return node.Receive(forwarding.Frame{
			Src: st.Source,
			Dst: node.Address(),
		}, st.Port)
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
}

func send(simu *simulation.Simulation, node *forwarding.Node, st Step) error {
	dst := st.Destination
	if st.IP != "" {
		mac, err := simu.GetResolver().Resolve(st.IP)
		if err != nil {
			return err
		}

		dst = mac
	}

	count := st.Count
	if count <= 0 {
		count = 1
	}

	for i := 0; i < count; i++ {
		_, err := node.Send(dst, []byte(st.Payload))
		if errors.Is(err, forwarding.ErrInvalidAddress) {
			return nil
		}

		if err != nil {
			return err
		}
	}

	return nil
}
