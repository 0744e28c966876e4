package schema

// FieldType 表示简单字段的值类型
type FieldType string

const (
	TypeAny     FieldType = ""        // 不限定类型
	TypeString  FieldType = "string"  // 字符串
	TypeNumber  FieldType = "number"  // 数字
	TypeBoolean FieldType = "boolean" // 布尔
)

// 请求/响应关联使用的消息属性
const (
	AttrMethod   = "Method"
	AttrURI      = "URI"
	AttrResponse = "Response"
)

// Dictionary 表示一份消息字典
type Dictionary struct {
	Name     string     `yaml:"name"`
	Messages []*Message `yaml:"messages"`

	byName map[string]*Message
}

// Message 描述一种消息的结构：有序的字段列表
type Message struct {
	Name       string            `yaml:"name"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Fields     []*Field          `yaml:"fields"`
}

// Field 描述消息中的一个字段
type Field struct {
	Name          string    `yaml:"name"`
	Wire          string    `yaml:"wireName,omitempty"` // 序列化时使用的名字
	Type          FieldType `yaml:"type,omitempty"`
	Collection    bool      `yaml:"collection,omitempty"`
	ReferenceName string    `yaml:"reference,omitempty"` // 嵌套消息类型
	Default       *string   `yaml:"default,omitempty"`

	// Reference 在校验时解析
	Reference *Message `yaml:"-"`
}

// Message 按名字查找消息结构
func (d *Dictionary) Message(name string) (*Message, bool) {
	if d.byName != nil {
		m, ok := d.byName[name]
		return m, ok
	}
	for _, m := range d.Messages {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Field 按内部名字查找字段
func (m *Message) Field(name string) (*Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// FieldByWireName 按序列化名字查找字段，第一个匹配的生效
func (m *Message) FieldByWireName(wire string) (*Field, bool) {
	for _, f := range m.Fields {
		if f.WireName() == wire {
			return f, true
		}
	}
	return nil, false
}

// Attribute 返回消息属性
func (m *Message) Attribute(name string) (string, bool) {
	v, ok := m.Attributes[name]
	return v, ok
}

// WireName 返回序列化名字，未声明时使用字段名
func (f *Field) WireName() string {
	if f.Wire != "" {
		return f.Wire
	}
	return f.Name
}

func (f *Field) IsCollection() bool { return f.Collection }

// IsComplex 声明了引用的字段为嵌套消息
func (f *Field) IsComplex() bool { return f.ReferenceName != "" }
