package codec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/glesirok/jsoncodec/pkg/message"
	"github.com/glesirok/jsoncodec/pkg/schema"
)

// bodyCodec 负责 JSON 正文与消息树之间的转换
type bodyCodec struct {
	rejectUnexpected bool
	simpleAsStrings  bool
}

func newBodyCodec(s Settings) *bodyCodec {
	return &bodyCodec{
		rejectUnexpected: s.RejectUnexpectedFields,
		simpleAsStrings:  s.TreatSimpleValuesAsStrings,
	}
}

// decode 把 JSON 正文解析为 structure 描述的消息
func (b *bodyCodec) decode(data []byte, structure *schema.Message) (*message.Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON body")
	}

	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return nil, fmt.Errorf("JSON body of %s must be an object", structure.Name)
	}

	return b.decodeRecord(res, structure)
}

func (b *bodyCodec) decodeRecord(obj gjson.Result, structure *schema.Message) (*message.Record, error) {
	rec := message.NewRecord(structure)

	var err error
	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		f, ok := structure.FieldByWireName(name)
		if !ok {
			if b.rejectUnexpected {
				err = fmt.Errorf("unexpected field %s in message %s", name, structure.Name)
				return false
			}
			return true
		}

		var v any
		if v, err = b.decodeField(f, value); err != nil {
			err = fmt.Errorf("%s.%s: %w", structure.Name, f.Name, err)
			return false
		}
		rec.Set(f.Name, v)
		return true
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

func (b *bodyCodec) decodeField(f *schema.Field, value gjson.Result) (any, error) {
	if value.Type == gjson.Null {
		return nil, nil
	}
	if !f.IsCollection() {
		return b.decodeElement(f, value)
	}

	if !value.IsArray() {
		return nil, fmt.Errorf("expected an array but got %s", jsonKind(value))
	}

	list := message.NewList(f)
	var err error
	value.ForEach(func(_, item gjson.Result) bool {
		var v any
		if v, err = b.decodeElement(f, item); err != nil {
			err = fmt.Errorf("element %d: %w", list.Len(), err)
			return false
		}
		list.Append(v)
		return true
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

func (b *bodyCodec) decodeElement(f *schema.Field, value gjson.Result) (any, error) {
	if value.Type == gjson.Null {
		return nil, nil
	}

	if f.IsComplex() {
		if !value.IsObject() {
			return nil, fmt.Errorf("expected an object but got %s", jsonKind(value))
		}
		return b.decodeRecord(value, f.Reference)
	}

	switch value.Type {
	case gjson.String:
		return coerce(f, value.Str, b.simpleAsStrings)
	case gjson.Number:
		return coerce(f, message.Number(value.Raw), b.simpleAsStrings)
	case gjson.True, gjson.False:
		return coerce(f, value.Bool(), b.simpleAsStrings)
	default:
		return nil, fmt.Errorf("expected a simple value but got %s", jsonKind(value))
	}
}

// encode 按结构声明顺序输出 JSON 正文，skip 指定的字段不写入
func (b *bodyCodec) encode(rec *message.Record, structure *schema.Message, skip string) ([]byte, error) {
	out := []byte("{}")

	for _, name := range rec.FieldNames() {
		if _, ok := structure.Field(name); !ok && b.rejectUnexpected {
			return nil, fmt.Errorf("unexpected field %s in message %s", name, structure.Name)
		}
	}

	for _, f := range structure.Fields {
		if f.Name == skip {
			continue
		}

		v, ok := rec.Get(f.Name)
		if !ok {
			if f.Default == nil {
				continue
			}
			dv, err := defaultValue(f)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", structure.Name, f.Name, err)
			}
			v = dv
		}

		raw, err := b.encodeField(f, v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", structure.Name, f.Name, err)
		}

		if out, err = sjson.SetRawBytes(out, escapeKey(f.WireName()), raw); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", structure.Name, f.Name, err)
		}
	}

	return out, nil
}

func (b *bodyCodec) encodeField(f *schema.Field, v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	if !f.IsCollection() {
		return b.encodeElement(f, v)
	}

	list, ok := v.(*message.List)
	if !ok {
		return nil, fmt.Errorf("collection expected but got %s", describe(v))
	}

	var sb strings.Builder
	sb.WriteByte('[')
	for i, item := range list.Items() {
		raw, err := b.encodeElement(f, item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.Write(raw)
	}
	sb.WriteByte(']')

	return []byte(sb.String()), nil
}

func (b *bodyCodec) encodeElement(f *schema.Field, v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	if f.IsComplex() {
		rec, ok := v.(*message.Record)
		if !ok {
			return nil, fmt.Errorf("message expected but got %s", describe(v))
		}
		return b.encode(rec, f.Reference, "")
	}

	cv, err := coerce(f, v, b.simpleAsStrings)
	if err != nil {
		return nil, err
	}

	switch val := cv.(type) {
	case string:
		return json.Marshal(val)
	case message.Number:
		if !message.IsJSONNumber(val.String()) {
			return nil, fmt.Errorf("invalid number %q", val.String())
		}
		if b.simpleAsStrings {
			return json.Marshal(val.String())
		}
		return []byte(val), nil
	case bool:
		if b.simpleAsStrings {
			return json.Marshal(strconv.FormatBool(val))
		}
		return []byte(strconv.FormatBool(val)), nil
	default:
		return nil, fmt.Errorf("unsupported value %s", describe(cv))
	}
}

// escapeKey 转义 sjson 路径中的特殊字符，使字段名只占一层
func escapeKey(key string) string {
	var sb strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', ':':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func jsonKind(v gjson.Result) string {
	switch {
	case v.IsObject():
		return "an object"
	case v.IsArray():
		return "an array"
	}
	switch v.Type {
	case gjson.String:
		return "a string"
	case gjson.Number:
		return "a number"
	case gjson.True, gjson.False:
		return "a boolean"
	default:
		return "null"
	}
}
