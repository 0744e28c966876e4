package message

import (
	"fmt"
	"time"
)

// Direction 表示消息方向
type Direction string

const (
	DirectionFirst  Direction = "FIRST"  // 收到的消息
	DirectionSecond Direction = "SECOND" // 发出的消息
)

// MessageID 标识一条消息
type MessageID struct {
	SessionAlias string    `yaml:"sessionAlias,omitempty"`
	Direction    Direction `yaml:"direction,omitempty"`
	Sequence     int64     `yaml:"sequence,omitempty"`
}

func (id MessageID) String() string {
	return fmt.Sprintf("%s:%s:%d", id.SessionAlias, id.Direction, id.Sequence)
}

// Metadata 是消息的元数据
type Metadata struct {
	ID          MessageID         `yaml:"id"`
	Timestamp   time.Time         `yaml:"timestamp,omitempty"`
	MessageType string            `yaml:"messageType,omitempty"`
	Protocol    string            `yaml:"protocol,omitempty"`
	Properties  map[string]string `yaml:"properties,omitempty"`
}

// ParsedMessage 是已经解析成树的消息
type ParsedMessage struct {
	Metadata Metadata
	Body     *Record
}

// RawMessage 是原始字节消息
type RawMessage struct {
	Metadata Metadata
	Body     []byte
}

// AnyMessage 只会设置其中一个字段
type AnyMessage struct {
	Parsed *ParsedMessage
	Raw    *RawMessage
}

func (m AnyMessage) IsParsed() bool { return m.Parsed != nil }

func (m AnyMessage) IsRaw() bool { return m.Raw != nil }

// ID 返回消息标识
func (m AnyMessage) ID() MessageID {
	switch {
	case m.Parsed != nil:
		return m.Parsed.Metadata.ID
	case m.Raw != nil:
		return m.Raw.Metadata.ID
	default:
		return MessageID{}
	}
}

// Group 是一组一起处理的消息
type Group struct {
	Messages []AnyMessage
}

// CopyProperties 复制属性表
func CopyProperties(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
