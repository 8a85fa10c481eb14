// Package forwarding provides the bridges and switches that admit packets
// through a forwarding table, an access controller and a flow controller.
package forwarding

import (
	"fmt"
	"slices"

	"github.com/sarchlab/arqsim/access"
	"github.com/sarchlab/arqsim/eventlog"
	"github.com/sarchlab/arqsim/flowcontrol"
	"github.com/sarchlab/arqsim/shaping"
	"github.com/sarchlab/arqsim/sim"
)

// Kind tells how a node fills its forwarding table.
type Kind int

// The kinds of nodes.
const (
	// Bridge only uses static bindings.
	Bridge Kind = iota

	// Switch also learns the source address of received frames.
	Switch
)

func (k Kind) String() string {
	switch k {
	case Bridge:
		return "bridge"
	case Switch:
		return "switch"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts the name of a kind to a Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "bridge":
		return Bridge, nil
	case "switch":
		return Switch, nil
	default:
		return 0, fmt.Errorf("unknown node kind %q", name)
	}
}

// A FlowFactory creates the flow controller of a new destination.
type FlowFactory func() flowcontrol.Controller

// flow is the sending state towards one destination.
type flow struct {
	ctrl flowcontrol.Controller

	// pending holds the packets sent but not acknowledged, by seq.
	pending map[uint64]*Packet

	// backlog holds the timed out seqs that still wait to be retransmitted.
	backlog []uint64
}

// Node is a bridge or a switch. Every transmission goes through the
// forwarding table, the optional VLAN filter and shaper, the access
// controller and the flow controller of the destination, in this order.
type Node struct {
	sim.HookableBase

	name       string
	kind       Kind
	address    string
	timeTeller sim.TimeTeller
	table      *Table
	filter     *VLANFilter
	shaper     shaping.Shaper
	access     access.Controller
	newFlow    FlowFactory

	flows     map[string]*flow
	flowOrder []string
}

// Name returns the name of the node.
func (n *Node) Name() string {
	return n.name
}

// Kind returns whether the node is a bridge or a switch.
func (n *Node) Kind() Kind {
	return n.kind
}

// Address returns the hardware address of the node.
func (n *Node) Address() string {
	return n.address
}

// Table returns the forwarding table of the node.
func (n *Node) Table() *Table {
	return n.table
}

// Flow returns the flow controller used towards the destination, if any
// packet has been sent there.
func (n *Node) Flow(dst string) (flowcontrol.Controller, bool) {
	f, found := n.flows[dst]
	if !found {
		return nil, false
	}

	return f.ctrl, true
}

// Destinations returns the destinations that have a flow, in the order the
// flows are created.
func (n *Node) Destinations() []string {
	return slices.Clone(n.flowOrder)
}

// PendingPackets returns the unacknowledged packets towards the destination,
// sorted by seq.
func (n *Node) PendingPackets(dst string) []*Packet {
	f, found := n.flows[dst]
	if !found {
		return nil
	}

	seqs := make([]uint64, 0, len(f.pending))
	for seq := range f.pending {
		seqs = append(seqs, seq)
	}
	slices.Sort(seqs)

	packets := make([]*Packet, 0, len(seqs))
	for _, seq := range seqs {
		packets = append(packets, f.pending[seq])
	}

	return packets
}

// Bind statically binds the destination to a route, replacing any existing
// binding.
func (n *Node) Bind(dst string, r Route) error {
	if err := ValidateAddress(dst); err != nil {
		return err
	}

	n.table.Bind(dst, r)

	return nil
}

// Receive handles a frame arriving at the ingress port. A switch learns the
// source address of the frame unless the address is already bound. A bridge
// never learns.
func (n *Node) Receive(frame Frame, ingressPort int) error {
	if err := ValidateAddress(frame.Src); err != nil {
		return err
	}

	if n.kind == Switch {
		n.table.Learn(frame.Src, Route{Port: ingressPort})
	}

	return nil
}

// Send tries to transmit the payload to the destination. Drops are reported
// in the outcome. An error is only returned if the destination address is
// malformed.
func (n *Node) Send(dst string, payload []byte) (Outcome, error) {
	if err := ValidateAddress(dst); err != nil {
		n.publish(eventlog.Event{
			Destination: dst,
			Outcome:     eventlog.Rejected,
			Reason:      eventlog.InvalidAddress,
		})

		return Outcome{
			Kind:   eventlog.Rejected,
			Reason: eventlog.InvalidAddress,
		}, err
	}

	if reason, ok := n.admit(dst); !ok {
		return n.drop(dst, reason), nil
	}

	f := n.flowTo(dst)
	seq := f.ctrl.Next()

	if _, retained := f.pending[seq]; retained {
		return n.drop(dst, eventlog.WindowFull), nil
	}

	if !f.ctrl.CanSend(seq) {
		return n.drop(dst, eventlog.WindowFull), nil
	}

	f.pending[seq] = &Packet{
		ID:      sim.GetIDGenerator().Generate(),
		Seq:     seq,
		Src:     n.address,
		Dst:     dst,
		Payload: payload,
	}

	n.publish(eventlog.Event{
		Destination: dst,
		Seq:         seq,
		HasSeq:      true,
		Outcome:     eventlog.Sent,
	})

	return Outcome{Kind: eventlog.Sent, Seq: seq}, nil
}

func (n *Node) admit(dst string) (eventlog.Reason, bool) {
	if _, found := n.table.Lookup(dst); !found {
		return eventlog.NoRoute, false
	}

	if n.filter != nil && !n.filter.Allow(n.address, dst) {
		return eventlog.Filtered, false
	}

	if n.shaper != nil && !n.shaper.Allow() {
		return eventlog.RateLimited, false
	}

	if !n.access.MayTransmit(n.timeTeller.Now()) {
		return eventlog.MediumBusy, false
	}

	return eventlog.NoReason, true
}

func (n *Node) drop(dst string, reason eventlog.Reason) Outcome {
	n.publish(eventlog.Event{
		Destination: dst,
		Outcome:     eventlog.Dropped,
		Reason:      reason,
	})

	return Outcome{Kind: eventlog.Dropped, Reason: reason}
}

// DeliverAck applies an acknowledgment received from the destination.
// Anomalous acks leave the flow unchanged and are logged.
func (n *Node) DeliverAck(dst string, ack uint64) error {
	f, found := n.flows[dst]
	if !found {
		n.publishAnomaly(dst, ack)
		return fmt.Errorf("%w: no flow to %s",
			flowcontrol.ErrInvalidSequence, dst)
	}

	if err := f.ctrl.OnAck(ack); err != nil {
		n.publishAnomaly(dst, ack)
		return fmt.Errorf("ack from %s: %w", dst, err)
	}

	n.release(f, ack)

	return nil
}

func (n *Node) publishAnomaly(dst string, ack uint64) {
	n.publish(eventlog.Event{
		Destination: dst,
		Seq:         ack,
		HasSeq:      true,
		Outcome:     eventlog.Rejected,
		Reason:      eventlog.InvalidSequence,
	})
}

// release forgets the packets that no longer need to be retransmitted.
func (n *Node) release(f *flow, ack uint64) {
	delete(f.pending, ack)

	base := f.ctrl.Base()
	for seq := range f.pending {
		if seq < base {
			delete(f.pending, seq)
		}
	}

	f.backlog = slices.DeleteFunc(f.backlog, func(seq uint64) bool {
		_, retained := f.pending[seq]
		return !retained
	})
}

// Tick refills the shaper and retransmits the packets whose timer expired.
func (n *Node) Tick() bool {
	madeProgress := false

	if n.shaper != nil {
		madeProgress = n.shaper.Tick() || madeProgress
	}

	for _, dst := range n.flowOrder {
		madeProgress = n.retransmit(dst, n.flows[dst]) || madeProgress
	}

	return madeProgress
}

func (n *Node) retransmit(dst string, f *flow) bool {
	madeProgress := n.expireTimers(f)

	for len(f.backlog) > 0 {
		seq := f.backlog[0]

		reason, ok := n.admitRetransmission(f, seq)
		if !ok {
			n.publish(eventlog.Event{
				Destination:    dst,
				Seq:            seq,
				HasSeq:         true,
				Outcome:        eventlog.Dropped,
				Reason:         reason,
				Retransmission: true,
			})

			return madeProgress
		}

		f.backlog = f.backlog[1:]
		madeProgress = true

		n.publish(eventlog.Event{
			Destination:    dst,
			Seq:            seq,
			HasSeq:         true,
			Outcome:        eventlog.Sent,
			Retransmission: true,
		})
	}

	return madeProgress
}

func (n *Node) expireTimers(f *flow) bool {
	deadline, armed := f.ctrl.NextDeadline()
	if !armed || deadline > n.timeTeller.Now() {
		return false
	}

	seqs, err := f.ctrl.OnTimeout()
	if err != nil {
		return false
	}

	for _, seq := range seqs {
		if _, retained := f.pending[seq]; !retained {
			continue
		}

		if !slices.Contains(f.backlog, seq) {
			f.backlog = append(f.backlog, seq)
		}
	}

	slices.Sort(f.backlog)

	return true
}

func (n *Node) admitRetransmission(
	f *flow,
	seq uint64,
) (eventlog.Reason, bool) {
	if !n.access.MayTransmit(n.timeTeller.Now()) {
		return eventlog.MediumBusy, false
	}

	if !f.ctrl.CanSend(seq) {
		return eventlog.WindowFull, false
	}

	return eventlog.NoReason, true
}

func (n *Node) flowTo(dst string) *flow {
	f, found := n.flows[dst]
	if found {
		return f
	}

	f = &flow{
		ctrl:    n.newFlow(),
		pending: make(map[uint64]*Packet),
	}
	n.flows[dst] = f
	n.flowOrder = append(n.flowOrder, dst)

	return f
}

func (n *Node) publish(e eventlog.Event) {
	e.Tick = n.timeTeller.Now()
	e.Source = n.address

	if n.NumHooks() == 0 {
		return
	}

	n.InvokeHook(sim.HookCtx{
		Domain: n,
		Pos:    eventlog.HookPosOf(e),
		Item:   e,
	})
}
