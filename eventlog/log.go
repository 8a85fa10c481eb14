package eventlog

// A Log is an append-only sequence of events.
type Log interface {
	Append(e Event)
	Events() []Event
	Len() int
}

// MemoryLog keeps all the events in memory.
type MemoryLog struct {
	events []Event
}

// NewMemoryLog creates an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append adds an event at the end of the log.
func (l *MemoryLog) Append(e Event) {
	l.events = append(l.events, e)
}

// Events returns a copy of the events in order.
func (l *MemoryLog) Events() []Event {
	events := make([]Event, len(l.events))
	copy(events, l.events)

	return events
}

// Len returns the number of events.
func (l *MemoryLog) Len() int {
	return len(l.events)
}

// Filter returns the events that satisfy the predicate.
func Filter(l Log, pred func(Event) bool) []Event {
	var events []Event

	for _, e := range l.Events() {
		if pred(e) {
			events = append(events, e)
		}
	}

	return events
}

// CountByReason counts the drop and rejection events by reason.
func CountByReason(l Log) map[Reason]int {
	counts := make(map[Reason]int)

	for _, e := range l.Events() {
		if e.Outcome != Sent {
			counts[e.Reason]++
		}
	}

	return counts
}

// Summary counts the events of a log by outcome.
type Summary struct {
	Sent            int
	Retransmissions int
	Dropped         int
	Rejected        int
	ByReason        map[Reason]int
}

// Summarize counts the events in the log.
func Summarize(l Log) Summary {
	s := Summary{ByReason: CountByReason(l)}

	for _, e := range l.Events() {
		switch e.Outcome {
		case Sent:
			s.Sent++
			if e.Retransmission {
				s.Retransmissions++
			}
		case Dropped:
			s.Dropped++
		case Rejected:
			s.Rejected++
		}
	}

	return s
}
