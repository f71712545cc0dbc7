package core

// DebugWriter emits one line of diagnostic text, e.g. over a UART.
type DebugWriter func(string)

// Event is one entry of the post-mortem trace. The meaning of Value1 and
// Value2 depends on Type.
type Event struct {
	Type    uint8
	Channel uint8
	Seq     uint32
	Value1  uint32
	Value2  uint32
}

const (
	EvtPowerOn        = 1 // v1=pclk2, v2=divisor
	EvtPowerOff       = 2
	EvtSampleTime     = 3 // v1=cycles
	EvtSequence       = 4 // v1=position, v2=length
	EvtSamplerStart   = 5 // v1=buffer len, v2=sequence length
	EvtSamplerStop    = 6 // v1=generation
	EvtSamplerRestart = 7 // v1=generation
	EvtSnapshotRetry  = 8 // v1=generation before, v2=after
	EvtDMAError       = 9 // v1=error count, v2=stream flags
)

const EventRingSize = 32

var eventNames = [...]string{
	EvtPowerOn:        "POWER_ON",
	EvtPowerOff:       "POWER_OFF",
	EvtSampleTime:     "SAMPLE_TIME",
	EvtSequence:       "SEQUENCE",
	EvtSamplerStart:   "SAMPLER_START",
	EvtSamplerStop:    "SAMPLER_STOP",
	EvtSamplerRestart: "SAMPLER_RESTART!",
	EvtSnapshotRetry:  "SNAPSHOT_RETRY",
	EvtDMAError:       "DMA_ERROR!",
}

// eventLog keeps the newest EventRingSize events. It never allocates, so
// RecordEvent is safe from interrupt handlers.
type eventLog struct {
	slots [EventRingSize]Event
	next  uint8
	seq   uint32
}

func (l *eventLog) add(e Event) {
	l.seq++
	e.Seq = l.seq
	l.slots[l.next] = e
	l.next = (l.next + 1) % EventRingSize
}

func (l *eventLog) appendTo(out []Event) []Event {
	for i := uint8(0); i < EventRingSize; i++ {
		if e := l.slots[(l.next+i)%EventRingSize]; e.Type != 0 {
			out = append(out, e)
		}
	}
	return out
}

var (
	debugOut     DebugWriter = func(string) {}
	debugEnabled bool
	events       eventLog
)

func SetDebugWriter(w DebugWriter) {
	debugOut = w
}

func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes msg when debug output is enabled.
func DebugPrintln(msg string) {
	if debugEnabled && debugOut != nil {
		debugOut(msg)
	}
}

// RecordEvent appends to the event ring, overwriting the oldest entry.
func RecordEvent(eventType, channel uint8, value1, value2 uint32) {
	cs := enterCritical()
	events.add(Event{Type: eventType, Channel: channel, Value1: value1, Value2: value2})
	exitCritical(cs)
}

// Events returns the recorded events, oldest first.
func Events() []Event {
	out := make([]Event, 0, EventRingSize)
	cs := enterCritical()
	out = events.appendTo(out)
	exitCritical(cs)
	return out
}

func eventName(t uint8) string {
	if int(t) < len(eventNames) && eventNames[t] != "" {
		return eventNames[t]
	}
	return "UNKNOWN"
}

// DumpEventRing prints every recorded event, regardless of the debug
// enable flag. Targets call it before halting.
func DumpEventRing() {
	if debugOut == nil {
		return
	}
	debugOut("[ADC] === Event Ring Dump ===")
	for _, e := range Events() {
		debugOut("[ADC] " + utoa(e.Seq) + " " + eventName(e.Type) +
			" ch=" + utoa(uint32(e.Channel)) +
			" v1=" + utoa(e.Value1) +
			" v2=" + utoa(e.Value2))
	}
	debugOut("[ADC] === End Dump ===")
}

func ClearEventRing() {
	cs := enterCritical()
	events = eventLog{}
	exitCritical(cs)
}
