package hub

import (
	"fmt"
	"strings"
	"time"

	"github.com/robotalks/homeauto.go/pkg/ha"
)

// Request is a command to a node, published to nodes/NAME/set.
type Request struct {
	Node    string
	Address ha.Address
	Command ha.Command
	Payload []byte
}

var switchRequests = map[string]ha.Opcode{
	"off":    ha.OpSwitchOff,
	"on":     ha.OpSwitchOn,
	"toggle": ha.OpSwitchToggle,
	"status": ha.OpSwitchStatus,
}

var timestampRequests = map[string]ha.Opcode{
	"set-time":   ha.OpSetTime,
	"alarm1-set": ha.OpAlarm1Set,
	"alarm2-set": ha.OpAlarm2Set,
}

// ParseTime accepts RFC3339 and "YYYY-MM-DD hh:mm" in local time.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Local(), nil
	}
	return time.ParseInLocation(timestampLayout, s, time.Local)
}

// ParseRequest parses the request text sent to node at addr:
//
//	on | off | toggle | status
//	read [OPCODE]
//	get-time | set-time [TIME]
//	alarm1-get | alarm2-get | alarm1-set TIME | alarm2-set TIME
//
// set-time defaults to now.
func ParseRequest(node string, addr ha.Address, text string, now time.Time) (*Request, error) {
	text = strings.TrimSpace(text)
	verb, arg := text, ""
	if pos := strings.IndexAny(text, " \t"); pos > 0 {
		verb, arg = text[:pos], strings.TrimSpace(text[pos+1:])
	}
	req := &Request{Node: node, Address: addr}
	var op ha.Opcode
	switch verb {
	case "on", "off", "toggle", "status":
		op = switchRequests[verb]
	case "read":
		if arg != "" {
			parsed, err := ha.ParseOpcode(arg)
			if err != nil {
				return nil, err
			}
			op = parsed
			break
		}
		measurement, ok := addr.Type().Measurement()
		if !ok {
			return nil, fmt.Errorf("%s: nothing to read from %s", node, addr.Type())
		}
		op = measurement
	case "get-time":
		op = ha.OpGetTime
	case "alarm1-get":
		op = ha.OpAlarm1Get
	case "alarm2-get":
		op = ha.OpAlarm2Get
	case "set-time", "alarm1-set", "alarm2-set":
		op = timestampRequests[verb]
		t := now
		if arg != "" {
			parsed, err := ParseTime(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", verb, err)
			}
			t = parsed
		} else if verb != "set-time" {
			return nil, fmt.Errorf("%s: time required", verb)
		}
		payload, err := ha.EncodeTimestamp(ha.TimestampOf(t))
		if err != nil {
			return nil, err
		}
		req.Payload = payload
	default:
		return nil, fmt.Errorf("unknown request %q", verb)
	}
	req.Command = ha.MustCommand(len(req.Payload) > 0, ha.HubToNode, op)
	return req, nil
}
