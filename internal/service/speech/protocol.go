package speech

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Volcengine 流式识别二进制帧：4 字节头部，可选序号，可选错误码，payload 长度与 payload。
// 所有整数均为大端序。

const protocolVersion = 0b0001

// MessageType 帧类型（头部第 2 字节高 4 位）
type MessageType uint8

const (
	FullClientRequest  MessageType = 0b0001
	AudioOnlyRequest   MessageType = 0b0010
	FullServerResponse MessageType = 0b1001
	ServerAck          MessageType = 0b1011
	ErrorMessage       MessageType = 0b1111
)

// MessageFlags 序号标志（头部第 2 字节低 4 位）
type MessageFlags uint8

const (
	NoSequence       MessageFlags = 0b0000
	PositiveSequence MessageFlags = 0b0001
	LastNoSequence   MessageFlags = 0b0010
	NegativeSequence MessageFlags = 0b0011
)

// SerializationMethod payload 序列化方式
type SerializationMethod uint8

const (
	NoSerialization   SerializationMethod = 0b0000
	JSONSerialization SerializationMethod = 0b0001
)

// CompressionMethod payload 压缩方式
type CompressionMethod uint8

const (
	NoCompression   CompressionMethod = 0b0000
	GzipCompression CompressionMethod = 0b0001
)

var errShortFrame = errors.New("frame too short")

// Frame 是一条已解码的协议消息，Payload 保持压缩状态。
type Frame struct {
	Type          MessageType
	Flags         MessageFlags
	Serialization SerializationMethod
	Compression   CompressionMethod
	Sequence      int32
	ErrorCode     uint32
	Payload       []byte
}

func (f *Frame) hasSequence() bool {
	return f.Flags == PositiveSequence || f.Flags == NegativeSequence
}

// IsLast 表示服务端或客户端的最后一包。
func (f *Frame) IsLast() bool {
	return f.Flags == LastNoSequence || f.Flags == NegativeSequence
}

// Encode 序列化帧。
func (f *Frame) Encode() []byte {
	size := 4 + 4 + len(f.Payload)
	if f.hasSequence() {
		size += 4
	}
	if f.Type == ErrorMessage {
		size += 4
	}

	buf := make([]byte, 0, size)
	buf = append(buf,
		protocolVersion<<4|0b0001,
		uint8(f.Type)<<4|uint8(f.Flags),
		uint8(f.Serialization)<<4|uint8(f.Compression),
		0x00,
	)
	if f.hasSequence() {
		buf = binary.BigEndian.AppendUint32(buf, uint32(f.Sequence))
	}
	if f.Type == ErrorMessage {
		buf = binary.BigEndian.AppendUint32(buf, f.ErrorCode)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.Payload)))
	return append(buf, f.Payload...)
}

// DecodeFrame 解析一条完整帧，头部扩展字节会被跳过。
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < 4 {
		return nil, errShortFrame
	}
	if version := data[0] >> 4; version != protocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", version)
	}

	headerSize := int(data[0]&0x0F) * 4
	if headerSize < 4 || len(data) < headerSize {
		return nil, fmt.Errorf("invalid header size %d", headerSize)
	}

	f := &Frame{
		Type:          MessageType(data[1] >> 4),
		Flags:         MessageFlags(data[1] & 0x0F),
		Serialization: SerializationMethod(data[2] >> 4),
		Compression:   CompressionMethod(data[2] & 0x0F),
	}
	rest := data[headerSize:]

	readUint32 := func(field string) (uint32, error) {
		if len(rest) < 4 {
			return 0, fmt.Errorf("%w: missing %s", errShortFrame, field)
		}
		v := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		return v, nil
	}

	if f.hasSequence() {
		seq, err := readUint32("sequence")
		if err != nil {
			return nil, err
		}
		f.Sequence = int32(seq)
	}
	if f.Type == ErrorMessage {
		code, err := readUint32("error code")
		if err != nil {
			return nil, err
		}
		f.ErrorCode = code
	}

	size, err := readUint32("payload size")
	if err != nil {
		return nil, err
	}
	if uint32(len(rest)) < size {
		return nil, fmt.Errorf("%w: payload expected %d bytes, got %d", errShortFrame, size, len(rest))
	}
	f.Payload = rest[:size]
	return f, nil
}

// newFullClientRequest 构造携带识别参数的首包。
func newFullClientRequest(payload []byte) (*Frame, error) {
	compressed, err := compress(payload, GzipCompression)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Type:          FullClientRequest,
		Flags:         NoSequence,
		Serialization: JSONSerialization,
		Compression:   GzipCompression,
		Payload:       compressed,
	}, nil
}

// newAudioRequest 构造音频包，最后一包使用负序号。
func newAudioRequest(chunk []byte, sequence int32, last bool) (*Frame, error) {
	compressed, err := compress(chunk, GzipCompression)
	if err != nil {
		return nil, err
	}
	f := &Frame{
		Type:          AudioOnlyRequest,
		Flags:         PositiveSequence,
		Serialization: NoSerialization,
		Compression:   GzipCompression,
		Sequence:      sequence,
		Payload:       compressed,
	}
	if last {
		f.Flags = NegativeSequence
		f.Sequence = -sequence
	}
	return f, nil
}
