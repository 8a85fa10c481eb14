package simulation

import (
	"log"

	"github.com/rs/xid"

	"github.com/sarchlab/arqsim/arp"
	"github.com/sarchlab/arqsim/datarecording"
	"github.com/sarchlab/arqsim/eventlog"
	"github.com/sarchlab/arqsim/monitoring"
	"github.com/sarchlab/arqsim/sim"
)

// Builder can be used to build a simulation.
type Builder struct {
	recordingOn    bool
	outputFileName string
	dataRecorder   datarecording.DataRecorder
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
	logger         *log.Logger
}

// MakeBuilder creates a new builder. Recording and monitoring are off by
// default.
func MakeBuilder() Builder {
	return Builder{}
}

// WithRecording makes the simulation store its events in a SQLite database.
func (b Builder) WithRecording() Builder {
	b.recordingOn = true
	return b
}

// WithDataRecorder makes the simulation record into the given recorder
// instead of a new SQLite file.
func (b Builder) WithDataRecorder(r datarecording.DataRecorder) Builder {
	b.recordingOn = true
	b.dataRecorder = r

	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithMonitoring makes the simulation serve the monitoring API.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithOpenBrowser opens the monitoring address in a browser.
func (b Builder) WithOpenBrowser() Builder {
	b.openBrowser = true
	return b
}

// WithLogger prints every node event with the logger.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && (b.monitorPort != 0 || b.openBrowser) {
		panic("monitor options cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file cannot be set when recording is disabled")
	}

	if b.dataRecorder != nil && b.outputFileName != "" {
		panic("output file cannot be set with a custom data recorder")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:            xid.New().String(),
		clock:         sim.NewClock(),
		eventLog:      eventlog.NewMemoryLog(),
		resolver:      arp.NewCache(),
		nodeNameIndex: make(map[string]int),
	}

	if b.recordingOn {
		s.dataRecorder = b.dataRecorder
		if s.dataRecorder == nil {
			outputPath := b.outputFileName
			if outputPath == "" {
				outputPath = "arqsim_" + s.id
			}

			s.dataRecorder = datarecording.New(outputPath)
		}

		s.execRecorder = datarecording.NewExecRecorder(s.dataRecorder)
		s.execRecorder.Start()
		s.dbHook = eventlog.NewDBRecorder(s.dataRecorder)
	}

	if b.logger != nil {
		s.logHook = eventlog.NewLogHook(b.logger)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}

		if b.openBrowser {
			s.monitor.WithOpenBrowser()
		}

		s.monitor.RegisterClock(s.clock)
		s.monitor.RegisterLocker(s)
		s.monitor.RegisterEventLog(s.eventLog)
		s.monitor.StartServer()
	}

	return s
}
