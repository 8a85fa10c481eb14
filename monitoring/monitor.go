// Package monitoring turns a running simulation into a web server, so that
// nodes, events and the host process can be inspected while it runs.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/arqsim/eventlog"
	"github.com/sarchlab/arqsim/forwarding"
	"github.com/sarchlab/arqsim/sim"
)

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	clock       *sim.Clock
	lock        sync.Locker
	nodes       []*forwarding.Node
	eventLog    eventlog.Log
	portNumber  int
	openBrowser bool

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{lock: &sync.Mutex{}}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithOpenBrowser makes the monitor open its address in a browser once the
// server starts.
func (m *Monitor) WithOpenBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// RegisterClock registers the clock that drives the simulation.
func (m *Monitor) RegisterClock(c *sim.Clock) {
	m.clock = c
}

// RegisterLocker sets the lock that must be held while the monitor touches
// the simulation. The simulation driver holds the same lock while it runs.
func (m *Monitor) RegisterLocker(l sync.Locker) {
	m.lock = l
}

// RegisterNode registers a node to be monitored.
func (m *Monitor) RegisterNode(n *forwarding.Node) {
	m.nodes = append(m.nodes, n)
}

// RegisterEventLog registers the log that the events are served from.
func (m *Monitor) RegisterEventLog(l eventlog.Log) {
	m.eventLog = l
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the monitoring API.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/tick", m.tick).Methods(http.MethodPost)
	r.HandleFunc("/api/list_nodes", m.listNodes)
	r.HandleFunc("/api/node/{name}", m.listNodeDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/events", m.listEvents)
	r.HandleFunc("/api/drops", m.countDrops)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server and returns its address.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	handler := m.Handler()
	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	if m.openBrowser {
		err = browser.OpenURL(url + "/api/list_nodes")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %s\n", err)
		}
	}

	return url
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	now := m.clock.Now()
	m.lock.Unlock()

	fmt.Fprintf(w, "{\"now\":%d}", now)
}

func (m *Monitor) tick(w http.ResponseWriter, r *http.Request) {
	n := 1

	if s := r.URL.Query().Get("n"); s != "" {
		var err error

		n, err = strconv.Atoi(s)
		if err != nil || n <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Error: invalid tick count %q", s)

			return
		}
	}

	m.lock.Lock()
	for i := 0; i < n; i++ {
		m.clock.Tick()
	}
	now := m.clock.Now()
	m.lock.Unlock()

	fmt.Fprintf(w, "{\"now\":%d}", now)
}

func (m *Monitor) listNodes(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.nodes))
	for _, n := range m.nodes {
		names = append(names, n.Name())
	}

	bytes, err := json.Marshal(names)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type flowView struct {
	Destination string
	Base        uint64
	Next        uint64
	WindowSize  int
	Pending     int
}

type nodeView struct {
	Name    string
	Kind    string
	Address string
	Table   []forwarding.Binding
	Flows   []flowView
}

func (m *Monitor) viewOf(n *forwarding.Node) *nodeView {
	v := &nodeView{
		Name:    n.Name(),
		Kind:    n.Kind().String(),
		Address: n.Address(),
		Table:   n.Table().Bindings(),
	}

	for _, dst := range n.Destinations() {
		f, _ := n.Flow(dst)
		v.Flows = append(v.Flows, flowView{
			Destination: dst,
			Base:        f.Base(),
			Next:        f.Next(),
			WindowSize:  f.WindowSize(),
			Pending:     len(n.PendingPackets(dst)),
		})
	}

	return v
}

func (m *Monitor) listNodeDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	node := m.findNodeOr404(w, name)
	if node == nil {
		return
	}

	m.lock.Lock()
	view := m.viewOf(node)
	m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(view)
	serializer.SetMaxDepth(2)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	NodeName  string `json:"node_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	node := m.findNodeOr404(w, req.NodeName)
	if node == nil {
		return
	}

	m.lock.Lock()
	view := m.viewOf(node)
	m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(view)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

type eventRsp struct {
	Tick           uint64 `json:"tick"`
	Source         string `json:"source"`
	Destination    string `json:"destination"`
	Seq            uint64 `json:"seq"`
	HasSeq         bool   `json:"has_seq"`
	Outcome        string `json:"outcome"`
	Reason         string `json:"reason,omitempty"`
	Retransmission bool   `json:"retransmission"`
}

func (m *Monitor) listEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := m.eventsParseParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	m.lock.Lock()
	events := m.eventLog.Events()
	m.lock.Unlock()

	events = selectEvents(events, limit, offset)

	rsp := make([]eventRsp, 0, len(events))
	for _, e := range events {
		rsp = append(rsp, eventRsp{
			Tick:           uint64(e.Tick),
			Source:         e.Source,
			Destination:    e.Destination,
			Seq:            e.Seq,
			HasSeq:         e.HasSeq,
			Outcome:        e.Outcome.String(),
			Reason:         e.Reason.String(),
			Retransmission: e.Retransmission,
		})
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (*Monitor) eventsParseParams(
	r *http.Request,
) (limit, offset int, err error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		limitStr = "0"
	}

	limit, err = strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return 0, 0, fmt.Errorf("invalid limit %q", limitStr)
	}

	offsetStr := r.URL.Query().Get("offset")
	if offsetStr == "" {
		offsetStr = "0"
	}

	offset, err = strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("invalid offset %q", offsetStr)
	}

	return limit, offset, nil
}

func selectEvents(events []eventlog.Event, limit, offset int) []eventlog.Event {
	if offset >= len(events) {
		return nil
	}

	events = events[offset:]

	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}

	return events
}

func (m *Monitor) countDrops(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	counts := eventlog.CountByReason(m.eventLog)
	m.lock.Unlock()

	rsp := make(map[string]int, len(counts))
	for reason, count := range counts {
		rsp[reason.String()] = count
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) findNodeOr404(
	w http.ResponseWriter,
	name string,
) *forwarding.Node {
	for _, n := range m.nodes {
		if n.Name() == name {
			return n
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Node not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bytes, err := json.Marshal(m.progressBars)
	m.progressBarsLock.Unlock()
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
