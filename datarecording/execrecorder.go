package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecTableName is the table that records how a run was launched.
const ExecTableName = "exec_info"

type execInfo struct {
	Property string
	Value    string
}

// ExecRecorder records the metadata of a run: when it started and ended, the
// command line, and any property the caller adds.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []execInfo
}

// NewExecRecorder creates the exec_info table in the recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	e := &ExecRecorder{recorder: recorder}
	recorder.CreateTable(ExecTableName, execInfo{})

	return e
}

// Start records the start time and the command line.
func (e *ExecRecorder) Start() {
	e.Add("Start Time", time.Now().Format(time.RFC3339Nano))
	e.Add("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err == nil {
		e.Add("Working Directory", cwd)
	}
}

// Add records a property.
func (e *ExecRecorder) Add(property, value string) {
	e.entries = append(e.entries, execInfo{property, value})
}

// End writes all the properties together with the end time.
func (e *ExecRecorder) End() {
	e.Add("End Time", time.Now().Format(time.RFC3339Nano))

	for _, entry := range e.entries {
		e.recorder.InsertData(ExecTableName, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}
