package processor

import (
	"fmt"

	"github.com/glesirok/jsoncodec/pkg/codec"
	"github.com/glesirok/jsoncodec/pkg/message"
	"github.com/glesirok/jsoncodec/pkg/schema"
)

// groupFile 是消息组文件的 YAML 结构
type groupFile struct {
	Messages []fileMessage `yaml:"messages"`
}

// fileMessage 有 body 时是原始消息，否则是结构化消息
type fileMessage struct {
	Metadata message.Metadata `yaml:"metadata"`
	Fields   map[string]any   `yaml:"fields,omitempty"`
	Body     string           `yaml:"body,omitempty"`
}

func (m fileMessage) isRaw() bool { return m.Body != "" }

// toGroup 把文件内容转换为消息组
func toGroup(f *groupFile, dict *schema.Dictionary) (message.Group, error) {
	group := message.Group{Messages: make([]message.AnyMessage, 0, len(f.Messages))}

	for i, m := range f.Messages {
		if m.isRaw() {
			group.Messages = append(group.Messages, message.AnyMessage{Raw: &message.RawMessage{
				Metadata: m.Metadata,
				Body:     []byte(m.Body),
			}})
			continue
		}

		// 未知类型交给编解码器报错，其他协议的消息原样保留
		structure, _ := dict.Message(m.Metadata.MessageType)
		body, err := codec.FromFields(m.Fields, structure)
		if err != nil {
			return message.Group{}, fmt.Errorf("message %d: %w", i, err)
		}
		group.Messages = append(group.Messages, message.AnyMessage{Parsed: &message.ParsedMessage{
			Metadata: m.Metadata,
			Body:     body,
		}})
	}

	return group, nil
}

// fromGroup 把消息组转换回文件内容
func fromGroup(group message.Group) *groupFile {
	f := &groupFile{Messages: make([]fileMessage, 0, len(group.Messages))}

	for _, m := range group.Messages {
		switch {
		case m.IsRaw():
			f.Messages = append(f.Messages, fileMessage{
				Metadata: m.Raw.Metadata,
				Body:     string(m.Raw.Body),
			})
		case m.IsParsed():
			fm := fileMessage{Metadata: m.Parsed.Metadata}
			if m.Parsed.Body != nil {
				fm.Fields = codec.ToFields(m.Parsed.Body)
			}
			f.Messages = append(f.Messages, fm)
		}
	}

	return f
}
