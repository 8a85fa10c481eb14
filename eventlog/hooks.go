package eventlog

import (
	"log"

	"github.com/sarchlab/arqsim/datarecording"
	"github.com/sarchlab/arqsim/sim"
)

// A Recorder is a hook that appends the events published by nodes to a Log.
type Recorder struct {
	log Log
}

// NewRecorder creates a Recorder that writes into l.
func NewRecorder(l Log) *Recorder {
	return &Recorder{log: l}
}

// Func appends the event carried by the hook context.
func (r *Recorder) Func(ctx sim.HookCtx) {
	e, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	r.log.Append(e)
}

// LogHook prints every event with a logger.
type LogHook struct {
	sim.LogHookBase
}

// NewLogHook creates a LogHook which will write into the logger.
func NewLogHook(logger *log.Logger) *LogHook {
	h := new(LogHook)
	h.Logger = logger

	return h
}

// Func prints the event.
func (h *LogHook) Func(ctx sim.HookCtx) {
	e, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	domain := ""
	if named, ok := ctx.Domain.(sim.Named); ok {
		domain = named.Name()
	}

	h.Logger.Printf("%s: %s", domain, e)
}

// TableName is the name of the table that events are recorded into.
const TableName = "events"

// Row is how an event is stored in a data recorder.
type Row struct {
	Tick           uint64
	Node           string
	Source         string
	Destination    string
	Seq            uint64
	HasSeq         bool
	Outcome        string
	Reason         string
	Retransmission bool
}

// DBRecorder is a hook that stores events in a data recorder.
type DBRecorder struct {
	recorder datarecording.DataRecorder
}

// NewDBRecorder creates the events table and returns a hook that fills it.
func NewDBRecorder(recorder datarecording.DataRecorder) *DBRecorder {
	recorder.CreateTable(TableName, Row{})

	return &DBRecorder{recorder: recorder}
}

// Func inserts the event carried by the hook context.
func (r *DBRecorder) Func(ctx sim.HookCtx) {
	e, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	node := ""
	if named, ok := ctx.Domain.(sim.Named); ok {
		node = named.Name()
	}

	r.recorder.InsertData(TableName, Row{
		Tick:           uint64(e.Tick),
		Node:           node,
		Source:         e.Source,
		Destination:    e.Destination,
		Seq:            e.Seq,
		HasSeq:         e.HasSeq,
		Outcome:        e.Outcome.String(),
		Reason:         e.Reason.String(),
		Retransmission: e.Retransmission,
	})
}
