// Package msgs defines the protobuf messages exchanged with remote user
// interfaces.
package msgs

import (
	"github.com/golang/protobuf/proto"
)

// LinkStatus reports the link health of a host.
type LinkStatus struct {
	Host      string `protobuf:"bytes,1,opt,name=host,proto3" json:"host,omitempty"`
	Port      string `protobuf:"bytes,2,opt,name=port,proto3" json:"port,omitempty"`
	Connected bool   `protobuf:"varint,3,opt,name=connected,proto3" json:"connected,omitempty"`
	HandReady bool   `protobuf:"varint,4,opt,name=hand_ready,proto3" json:"hand_ready,omitempty"`
	// Timestamp is in Unix milliseconds.
	Timestamp int64 `protobuf:"varint,5,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *LinkStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LinkStatus) Reset() { *m = LinkStatus{} }

// String implements proto.Message.
func (m *LinkStatus) String() string { return proto.CompactTextString(m) }

// Command asks the host to send a record to the peripheral.
type Command struct {
	Command string  `protobuf:"bytes,1,opt,name=command,proto3" json:"command,omitempty"`
	Purpose string  `protobuf:"bytes,2,opt,name=purpose,proto3" json:"purpose,omitempty"`
	Time    float64 `protobuf:"fixed64,3,opt,name=time,proto3" json:"time,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Command) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Command) Reset() { *m = Command{} }

// String implements proto.Message.
func (m *Command) String() string { return proto.CompactTextString(m) }

// Encode serializes a message.
func Encode(msg proto.Message) ([]byte, error) {
	return proto.Marshal(msg)
}

// DecodeLinkStatus parses a LinkStatus.
func DecodeLinkStatus(data []byte) (*LinkStatus, error) {
	m := &LinkStatus{}
	if err := proto.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeCommand parses a Command.
func DecodeCommand(data []byte) (*Command, error) {
	m := &Command{}
	if err := proto.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}
