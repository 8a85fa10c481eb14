package forwarding

import (
	"github.com/sarchlab/arqsim/access"
	"github.com/sarchlab/arqsim/flowcontrol"
	"github.com/sarchlab/arqsim/shaping"
	"github.com/sarchlab/arqsim/sim"
)

// Builder can help building nodes.
type Builder struct {
	timeTeller  sim.TimeTeller
	kind        Kind
	address     string
	table       *Table
	filter      *VLANFilter
	shaper      shaping.Shaper
	access      access.Controller
	flowBuilder flowcontrol.Builder
	flowFactory FlowFactory
}

// MakeBuilder creates a builder that builds Go-Back-N bridges.
func MakeBuilder() Builder {
	return Builder{
		kind:        Bridge,
		flowBuilder: flowcontrol.MakeBuilder(),
	}
}

// WithTimeTeller sets the clock that the node reads.
func (b Builder) WithTimeTeller(t sim.TimeTeller) Builder {
	b.timeTeller = t
	return b
}

// WithKind sets whether the node is a bridge or a switch.
func (b Builder) WithKind(k Kind) Builder {
	b.kind = k
	return b
}

// WithAddress sets the hardware address of the node.
func (b Builder) WithAddress(addr string) Builder {
	b.address = addr
	return b
}

// WithTable sets the forwarding table of the node. A new empty table is used
// if not set.
func (b Builder) WithTable(t *Table) Builder {
	b.table = t
	return b
}

// WithVLANFilter sets the filter that the node applies after route lookup.
func (b Builder) WithVLANFilter(f *VLANFilter) Builder {
	b.filter = f
	return b
}

// WithShaper sets the rate gate that the node applies before the access
// controller.
func (b Builder) WithShaper(s shaping.Shaper) Builder {
	b.shaper = s
	return b
}

// WithAccessController sets the medium access controller.
func (b Builder) WithAccessController(a access.Controller) Builder {
	b.access = a
	return b
}

// WithFlowBuilder sets the builder of the per-destination flow controllers.
// The time teller of the node is used to arm timers.
func (b Builder) WithFlowBuilder(fb flowcontrol.Builder) Builder {
	b.flowBuilder = fb
	return b
}

// WithFlowFactory overrides the flow builder with a function.
func (b Builder) WithFlowFactory(f FlowFactory) Builder {
	b.flowFactory = f
	return b
}

// Build creates a new node.
func (b Builder) Build(name string) *Node {
	sim.NameMustBeValid(name)
	b.timeTellerMustBeGiven()
	b.addressMustBeValid()
	b.accessControllerMustBeGiven()

	n := &Node{
		name:       name,
		kind:       b.kind,
		address:    b.address,
		timeTeller: b.timeTeller,
		table:      b.table,
		filter:     b.filter,
		shaper:     b.shaper,
		access:     b.access,
		newFlow:    b.flowFactory,
		flows:      make(map[string]*flow),
	}

	if n.table == nil {
		n.table = NewTable()
	}

	if n.newFlow == nil {
		fb := b.flowBuilder.WithTimeTeller(b.timeTeller)
		n.newFlow = fb.Build
	}

	return n
}

func (b Builder) timeTellerMustBeGiven() {
	if b.timeTeller == nil {
		panic("node requires a time teller to operate")
	}
}

func (b Builder) addressMustBeValid() {
	if err := ValidateAddress(b.address); err != nil {
		panic(err)
	}
}

func (b Builder) accessControllerMustBeGiven() {
	if b.access == nil {
		panic("node requires an access controller to operate")
	}
}
