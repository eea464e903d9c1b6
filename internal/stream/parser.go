package stream

import (
	"bytes"
	"log"
)

// defaultEventName is used for events without an event: line
const defaultEventName = "message"

// Parser splits an SSE byte stream into events. It accepts chunks split at
// any byte offset: complete lines are consumed, a trailing partial line is
// kept for the next Feed, and an event is only returned once its blank line
// terminator has been seen.
type Parser struct {
	// Logf receives notices about skipped input. Defaults to log.Printf.
	Logf func(format string, args ...any)

	buf     []byte
	name    string
	data    [][]byte
	hasData bool
}

// Feed consumes a chunk and returns every event completed by it
func (p *Parser) Feed(chunk []byte) []Event {
	p.buf = append(p.buf, chunk...)

	var events []Event
	for {
		idx := bytes.IndexByte(p.buf, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimSuffix(p.buf[:idx], []byte("\r"))
		p.buf = p.buf[idx+1:]

		if ev, ok := p.processLine(line); ok {
			events = append(events, ev)
		}
	}

	// Keep the partial line without holding on to consumed input
	if len(p.buf) == 0 {
		p.buf = nil
	} else {
		p.buf = append([]byte(nil), p.buf...)
	}
	return events
}

// Pending reports whether unterminated input is buffered
func (p *Parser) Pending() bool {
	return len(p.buf) > 0 || p.hasData || p.name != ""
}

func (p *Parser) processLine(line []byte) (Event, bool) {
	if len(line) == 0 {
		return p.dispatch()
	}
	if line[0] == ':' {
		// Comment, used for keepalives
		return Event{}, false
	}

	field, value := line, []byte(nil)
	if idx := bytes.IndexByte(line, ':'); idx >= 0 {
		field = line[:idx]
		value = bytes.TrimPrefix(line[idx+1:], []byte(" "))
	}

	switch string(field) {
	case "event":
		p.name = string(value)
	case "data":
		p.data = append(p.data, append([]byte(nil), value...))
		p.hasData = true
	case "id", "retry":
		// Not used by this protocol
	default:
		p.logf("[stream] skipping unknown field %q", field)
	}
	return Event{}, false
}

func (p *Parser) dispatch() (Event, bool) {
	name, data, hasData := p.name, p.data, p.hasData
	p.name, p.data, p.hasData = "", nil, false

	if !hasData {
		if name != "" {
			p.logf("[stream] skipping event %q without data", name)
		}
		return Event{}, false
	}
	if name == "" {
		name = defaultEventName
	}
	return Event{Name: name, Data: bytes.Join(data, []byte("\n"))}, true
}

func (p *Parser) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}
