package hub

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/homeauto.go/pkg/ha"
)

// Event codec names.
const (
	CodecJSON  = "json"
	CodecProto = "proto"
)

const timestampLayout = "2006-01-02 15:04"

// Event is published for every frame the hub receives and for failed
// commands.
type Event struct {
	Node    string
	Address ha.Address
	Command ha.Command
	Time    time.Time
	Payload []byte
	// Value is the decoded measurement, if any.
	Value *uint16
	// Timestamp is the decoded time or alarm, if any.
	Timestamp *ha.Timestamp
	Error     string
}

// NewEvent creates an Event from a received message, decoding payloads of
// measurements and timestamps.
func NewEvent(msg ha.Message, node string, at time.Time) *Event {
	ev := &Event{
		Node:    node,
		Address: msg.From,
		Command: msg.Command,
		Time:    at,
		Payload: msg.Payload,
	}
	if !msg.Command.HasData() {
		return ev
	}
	switch msg.Command.Opcode() {
	case ha.OpTemperature, ha.OpHumidity, ha.OpMotionStatus, ha.OpWaterLevel:
		if val, err := msg.Value(); err != nil {
			ev.Error = err.Error()
		} else {
			ev.Value = &val
		}
	case ha.OpGetTime, ha.OpSetTime, ha.OpAlarm1Set, ha.OpAlarm1Get, ha.OpAlarm2Set, ha.OpAlarm2Get:
		if ts, err := msg.Timestamp(); err != nil {
			ev.Error = err.Error()
		} else {
			ev.Timestamp = &ts
		}
	}
	return ev
}

// Topic returns the topic relative to the MQTT prefix.
func (e *Event) Topic() string {
	return "nodes/" + e.Node + "/" + e.Command.Opcode().String()
}

// String implements fmt.Stringer.
func (e *Event) String() string {
	s := fmt.Sprintf("%s(%s) %s", e.Node, e.Address, e.Command)
	if e.Value != nil {
		s += fmt.Sprintf(" value=%d", *e.Value)
	}
	if e.Timestamp != nil {
		s += " timestamp=" + e.Timestamp.String()
	}
	if e.Value == nil && e.Timestamp == nil && len(e.Payload) > 0 {
		s += fmt.Sprintf(" payload=% x", e.Payload)
	}
	if e.Error != "" {
		s += " error=" + e.Error
	}
	return s
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func numberValue(n float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: n}}
}

// Struct converts the Event to a protobuf Struct.
func (e *Event) Struct() *structpb.Struct {
	fields := map[string]*structpb.Value{
		"node":      stringValue(e.Node),
		"address":   numberValue(float64(e.Address)),
		"command":   numberValue(float64(e.Command)),
		"opcode":    stringValue(e.Command.Opcode().String()),
		"direction": stringValue(e.Command.Direction().String()),
		"time":      stringValue(e.Time.Format(time.RFC3339Nano)),
	}
	if len(e.Payload) > 0 {
		fields["payload"] = stringValue(hex.EncodeToString(e.Payload))
	}
	if e.Value != nil {
		fields["value"] = numberValue(float64(*e.Value))
	}
	if e.Timestamp != nil {
		fields["timestamp"] = stringValue(e.Timestamp.String())
	}
	if e.Error != "" {
		fields["error"] = stringValue(e.Error)
	}
	return &structpb.Struct{Fields: fields}
}

// EventFromStruct converts a protobuf Struct back to an Event.
func EventFromStruct(st *structpb.Struct) (*Event, error) {
	ev := &Event{}
	fields := st.GetFields()
	ev.Node = fields["node"].GetStringValue()
	ev.Address = ha.Address(fields["address"].GetNumberValue())
	ev.Command = ha.Command(fields["command"].GetNumberValue())
	ev.Error = fields["error"].GetStringValue()
	if s := fields["time"].GetStringValue(); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("time: %w", err)
		}
		ev.Time = t
	}
	if s := fields["payload"].GetStringValue(); s != "" {
		p, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
		ev.Payload = p
	}
	if v, ok := fields["value"]; ok {
		val := uint16(v.GetNumberValue())
		ev.Value = &val
	}
	if s := fields["timestamp"].GetStringValue(); s != "" {
		t, err := time.Parse(timestampLayout, s)
		if err != nil {
			return nil, fmt.Errorf("timestamp: %w", err)
		}
		ts := ha.TimestampOf(t)
		ev.Timestamp = &ts
	}
	return ev, nil
}

// EventCodec encodes events for publishing.
type EventCodec interface {
	Name() string
	Marshal(*Event) ([]byte, error)
	Unmarshal([]byte) (*Event, error)
}

// NewEventCodec returns the codec by name.
func NewEventCodec(name string) (EventCodec, error) {
	switch name {
	case CodecJSON, "":
		return JSONCodec{}, nil
	case CodecProto:
		return ProtoCodec{}, nil
	}
	return nil, fmt.Errorf("unknown event codec %q", name)
}

// JSONCodec renders events as JSON objects.
type JSONCodec struct{}

// Name implements EventCodec.
func (JSONCodec) Name() string { return CodecJSON }

// Marshal implements EventCodec.
func (JSONCodec) Marshal(e *Event) ([]byte, error) {
	var buf bytes.Buffer
	if err := (&jsonpb.Marshaler{}).Marshal(&buf, e.Struct()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal implements EventCodec.
func (JSONCodec) Unmarshal(data []byte) (*Event, error) {
	var st structpb.Struct
	if err := jsonpb.Unmarshal(bytes.NewReader(data), &st); err != nil {
		return nil, err
	}
	return EventFromStruct(&st)
}

// ProtoCodec encodes events as serialized protobuf Structs.
type ProtoCodec struct{}

// Name implements EventCodec.
func (ProtoCodec) Name() string { return CodecProto }

// Marshal implements EventCodec.
func (ProtoCodec) Marshal(e *Event) ([]byte, error) {
	return proto.Marshal(e.Struct())
}

// Unmarshal implements EventCodec.
func (ProtoCodec) Unmarshal(data []byte) (*Event, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return EventFromStruct(&st)
}

// DecodeEvent detects the codec and decodes an event.
func DecodeEvent(data []byte) (*Event, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return JSONCodec{}.Unmarshal(data)
	}
	return ProtoCodec{}.Unmarshal(data)
}
