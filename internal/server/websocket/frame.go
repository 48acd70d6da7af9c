// Package websocket carries the realtime protocol: a STOMP-style frame
// dialect over gorilla websocket text messages. A frame is the command
// line, header lines, a blank line, the body, and a NUL terminator.
package websocket

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// Frame commands.
const (
	CmdConnect     = "CONNECT"
	CmdConnected   = "CONNECTED"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdSend        = "SEND"
	CmdMessage     = "MESSAGE"
	CmdError       = "ERROR"
)

var ErrMalformedFrame = errors.New("malformed frame")

// Frame is one protocol frame.
type Frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

// NewFrame builds a frame with the given headers as key/value pairs.
func NewFrame(command string, body []byte, headers ...string) Frame {
	f := Frame{Command: command, Headers: make(map[string]string), Body: body}
	for i := 0; i+1 < len(headers); i += 2 {
		f.Headers[headers[i]] = headers[i+1]
	}
	return f
}

// Marshal renders the frame to its wire form.
func (f Frame) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')
	for k, v := range f.Headers {
		buf.WriteString(k)
		buf.WriteByte(':')
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// ParseFrame decodes one wire frame. Header values keep everything after
// the first colon; duplicate header names keep the first value.
func ParseFrame(data []byte) (Frame, error) {
	data = bytes.TrimSuffix(data, []byte{0})

	head, body, found := bytes.Cut(data, []byte("\n\n"))
	if !found {
		return Frame{}, fmt.Errorf("%w: missing header terminator", ErrMalformedFrame)
	}

	lines := strings.Split(string(head), "\n")
	if lines[0] == "" {
		return Frame{}, fmt.Errorf("%w: empty command", ErrMalformedFrame)
	}

	f := Frame{Command: lines[0], Headers: make(map[string]string), Body: body}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return Frame{}, fmt.Errorf("%w: header %q", ErrMalformedFrame, line)
		}
		if _, dup := f.Headers[name]; !dup {
			f.Headers[name] = value
		}
	}
	return f, nil
}
