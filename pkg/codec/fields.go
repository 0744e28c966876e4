package codec

import (
	"fmt"

	"github.com/glesirok/jsoncodec/pkg/message"
	"github.com/glesirok/jsoncodec/pkg/schema"
)

// FromFields 把 YAML 读出的字段表转换为消息树
// 结构未声明的字段原样保留，由编码配置决定是否拒绝
func FromFields(fields map[string]any, structure *schema.Message) (*message.Record, error) {
	rec := message.NewRecord(structure)

	for name, raw := range fields {
		var f *schema.Field
		if structure != nil {
			f, _ = structure.Field(name)
		}

		v, err := fromField(f, raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", rec.Name(), name, err)
		}
		rec.Set(name, v)
	}

	return rec, nil
}

func fromField(f *schema.Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	if f == nil {
		return fromUndeclared(raw)
	}

	if f.IsCollection() {
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("collection expected but got %T", raw)
		}
		list := message.NewList(f)
		for i, item := range items {
			v, err := fromElement(f, item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			list.Append(v)
		}
		return list, nil
	}

	return fromElement(f, raw)
}

func fromElement(f *schema.Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	if f.IsComplex() {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("message expected but got %T", raw)
		}
		return FromFields(m, f.Reference)
	}

	v, err := fromNative(raw)
	if err != nil {
		return nil, err
	}
	return coerce(f, v, true)
}

func fromUndeclared(raw any) (any, error) {
	switch val := raw.(type) {
	case map[string]any:
		return FromFields(val, nil)
	case []any:
		list := message.NewList(nil)
		for _, item := range val {
			v, err := fromUndeclared(item)
			if err != nil {
				return nil, err
			}
			list.Append(v)
		}
		return list, nil
	default:
		return fromNative(raw)
	}
}

// ToFields 把消息树转换为可以写回 YAML 的字段表
func ToFields(rec *message.Record) map[string]any {
	out := make(map[string]any, rec.Len())
	for _, name := range rec.FieldNames() {
		v, _ := rec.Get(name)
		out[name] = toField(v)
	}
	return out
}

func toField(v any) any {
	switch val := v.(type) {
	case *message.Record:
		return ToFields(val)
	case *message.List:
		items := make([]any, 0, val.Len())
		for _, item := range val.Items() {
			items = append(items, toField(item))
		}
		return items
	default:
		return v
	}
}
