// Package simulation provides the harness that owns the clock, the nodes and
// the event log of a run.
package simulation

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/sarchlab/arqsim/arp"
	"github.com/sarchlab/arqsim/datarecording"
	"github.com/sarchlab/arqsim/eventlog"
	"github.com/sarchlab/arqsim/forwarding"
	"github.com/sarchlab/arqsim/monitoring"
	"github.com/sarchlab/arqsim/sim"
)

// A Simulation provides the service requires to define a simulation.
type Simulation struct {
	lock sync.Mutex

	id       string
	clock    *sim.Clock
	eventLog *eventlog.MemoryLog
	resolver *arp.Cache

	dataRecorder datarecording.DataRecorder
	execRecorder *datarecording.ExecRecorder
	dbHook       *eventlog.DBRecorder
	logHook      *eventlog.LogHook
	monitor      *monitoring.Monitor

	nodes         []*forwarding.Node
	nodeNameIndex map[string]int
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Lock acquires the lock that protects the simulation state from the monitor.
func (s *Simulation) Lock() {
	s.lock.Lock()
}

// Unlock releases the lock acquired by Lock.
func (s *Simulation) Unlock() {
	s.lock.Unlock()
}

// GetClock returns the clock that drives the simulation.
func (s *Simulation) GetClock() *sim.Clock {
	return s.clock
}

// Now returns the current tick.
func (s *Simulation) Now() sim.VTick {
	return s.clock.Now()
}

// GetEventLog returns the log that all the node events go to.
func (s *Simulation) GetEventLog() *eventlog.MemoryLog {
	return s.eventLog
}

// GetResolver returns the address resolution cache.
func (s *Simulation) GetResolver() *arp.Cache {
	return s.resolver
}

// GetDataRecorder returns the data recorder used in the simulation. It is nil
// if recording is disabled.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetExecRecorder returns the recorder of the run metadata. It is nil if
// recording is disabled.
func (s *Simulation) GetExecRecorder() *datarecording.ExecRecorder {
	return s.execRecorder
}

// GetMonitor returns the monitor used in the simulation. It is nil if
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// RegisterNode registers a node with the simulation. The node is ticked by
// the clock and its events go to the event log.
func (s *Simulation) RegisterNode(n *forwarding.Node) {
	name := n.Name()
	if _, found := s.nodeNameIndex[name]; found {
		panic("node " + name + " already registered")
	}

	s.nodes = append(s.nodes, n)
	s.nodeNameIndex[name] = len(s.nodes) - 1

	s.clock.RegisterTicker(n)
	n.AcceptHook(eventlog.NewRecorder(s.eventLog))

	if s.dbHook != nil {
		n.AcceptHook(s.dbHook)
	}

	if s.logHook != nil {
		n.AcceptHook(s.logHook)
	}

	if s.monitor != nil {
		s.monitor.RegisterNode(n)
	}
}

// GetNodeByName returns the node with the given name.
func (s *Simulation) GetNodeByName(name string) (*forwarding.Node, bool) {
	i, found := s.nodeNameIndex[name]
	if !found {
		return nil, false
	}

	return s.nodes[i], true
}

// Nodes returns all the registered nodes in registration order.
func (s *Simulation) Nodes() []*forwarding.Node {
	nodes := make([]*forwarding.Node, len(s.nodes))
	copy(nodes, s.nodes)

	return nodes
}

// Tick advances the clock by one tick.
func (s *Simulation) Tick() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.clock.Tick()
}

// Terminate records the run summary and closes the data recorder.
func (s *Simulation) Terminate() {
	if s.dataRecorder == nil {
		return
	}

	s.execRecorder.Add("Simulation ID", s.id)
	s.execRecorder.Add("End Tick", strconv.FormatUint(uint64(s.Now()), 10))
	s.execRecorder.Add("Events", strconv.Itoa(s.eventLog.Len()))
	s.execRecorder.End()

	err := s.dataRecorder.Close()
	if err != nil {
		panic(fmt.Sprintf("cannot close data recorder: %s", err))
	}
}
