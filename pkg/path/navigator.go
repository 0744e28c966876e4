package path

import (
	"fmt"

	"github.com/glesirok/jsoncodec/pkg/message"
	"github.com/glesirok/jsoncodec/pkg/schema"
)

// Navigator 负责在消息树中按路径读取和写入值
// 不持有任何节点，写入时直接修改传入的树
type Navigator struct{}

func NewNavigator() *Navigator {
	return &Navigator{}
}

// scope 是当前节点对应的结构描述
// Record 使用 message，List 使用 field（元素描述）
type scope struct {
	message *schema.Message
	field   *schema.Field
}

// scopeOf 进入字段值之后的结构描述
func scopeOf(f *schema.Field) scope {
	return scope{message: f.Reference, field: f}
}

// Lookup 按路径读取值
// 字段不存在时返回 (nil, false, nil)，不算错误
func (n *Navigator) Lookup(root *message.Record, p Path, structure *schema.Message) (any, bool, error) {
	var current any = root
	sc := scope{message: structure}

	for !p.Matches() {
		field, value, err := n.resolve(current, p, sc, false)
		if err != nil {
			return nil, false, err
		}
		if value == nil {
			// 有些结构本来就不存在
			return nil, false, nil
		}
		current = value
		sc = scopeOf(field)
		p = p.Tail()
	}

	return current, true, nil
}

// Get 按路径读取值并转换为 T
func Get[T message.Value](n *Navigator, root *message.Record, p Path, structure *schema.Message) (T, bool, error) {
	var zero T

	v, ok, err := n.Lookup(root, p, structure)
	if err != nil || !ok {
		return zero, false, err
	}

	t, err := message.Cast[T](v)
	if err != nil {
		// 错误定位到最后一段
		last := p
		for last.Len() > 1 {
			last = last.Tail()
		}
		return zero, false, newError(ErrTypeMismatch, last, "",
			fmt.Sprintf("value at %s is %T, expected %T", p.Full(), v, zero))
	}
	return t, true, nil
}

// Set 按路径写入值，缺失的中间节点会被创建并立即写回父节点
// 目标已有非空值且 replaceIfExist 为 false 时不做任何事
// 缺失的复杂字段或集合字段在检查前就会被创建为空节点，replaceIfExist 为 false 时保留这个空节点
// 失败时已经创建的中间节点不会回滚
func (n *Navigator) Set(root *message.Record, p Path, structure *schema.Message, value any, replaceIfExist bool) error {
	if !message.IsValue(value) {
		return newError(ErrTypeMismatch, p, "", fmt.Sprintf("unsupported value type %T", value))
	}
	if p.Matches() {
		return newError(ErrInvalidPathShape, p, root.Name(), "cannot assign a value to the root message")
	}

	var current any = root
	sc := scope{message: structure}

	for {
		next := p.Tail()
		finalNode := next.Matches()

		field, existing, err := n.resolve(current, p, sc, true)
		if err != nil {
			return err
		}

		// 路径的最后一段
		if finalNode {
			if existing != nil && !replaceIfExist {
				return nil
			}
			return n.assign(current, p, field, value)
		}

		current = existing
		sc = scopeOf(field)
		p = next
	}
}

// resolve 根据节点类型解析当前片段，返回字段描述和对应的值
func (n *Navigator) resolve(current any, p Path, sc scope, createMissing bool) (*schema.Field, any, error) {
	switch node := current.(type) {
	case *message.Record:
		return n.resolveField(node, p, sc.message, createMissing)
	case *message.List:
		return n.resolveElement(node, p, sc.field, createMissing)
	default:
		name := ""
		if sc.field != nil {
			name = sc.field.Name
		}
		return nil, nil, newError(ErrInvalidPathShape, p, name,
			fmt.Sprintf("cannot extract path from %s in field %s", typeName(current), name))
	}
}

// resolveField 在消息中按序列化名字查找字段
func (n *Navigator) resolveField(rec *message.Record, p Path, structure *schema.Message, createMissing bool) (*schema.Field, any, error) {
	token := p.Head()
	if token.IsIndex() {
		return nil, nil, newError(ErrInvalidPathShape, p, rec.Name(),
			fmt.Sprintf("path must match the field but matches the element at index %d", token.Index()))
	}

	if structure == nil {
		structure = rec.Structure()
	}
	if structure == nil {
		return nil, nil, newError(ErrInvalidPathShape, p, "",
			fmt.Sprintf("message for field %s has no structure", token.Name()))
	}

	field, ok := structure.FieldByWireName(token.Name())
	if !ok {
		return nil, nil, newError(ErrUnknownField, p, structure.Name,
			fmt.Sprintf("cannot find a field %s in the message %s", token.Name(), structure.Name))
	}

	value, _ := rec.Get(field.Name)
	if value == nil && createMissing {
		switch {
		case field.IsCollection():
			value = message.NewList(field)
		case field.IsComplex():
			value = message.NewRecord(field.Reference)
		}
		if value != nil {
			rec.Set(field.Name, value)
		}
	}

	return field, value, nil
}

// resolveElement 在列表中按索引取元素，createMissing 时补齐到索引位置
func (n *Navigator) resolveElement(list *message.List, p Path, field *schema.Field, createMissing bool) (*schema.Field, any, error) {
	if field == nil {
		field = list.Field()
	}

	token := p.Head()
	if !token.IsIndex() {
		return nil, nil, newError(ErrInvalidPathShape, p, list.Name(),
			fmt.Sprintf("path must match the element in collection but matches %s field", token.Name()))
	}

	index := token.Index()
	if createMissing {
		for index >= list.Len() {
			if field != nil && field.IsComplex() {
				list.Append(message.NewRecord(field.Reference))
			} else {
				list.Append(nil)
			}
		}
	}

	if index >= list.Len() {
		e := newError(ErrIndexOutOfBounds, p, list.Name(),
			fmt.Sprintf("cannot get element at index %d in collection %s with size %d", index, list.Name(), list.Len()))
		e.Index = index
		e.Size = list.Len()
		return nil, nil, e
	}

	return field, list.At(index), nil
}

// assign 写入最后一段
func (n *Navigator) assign(current any, p Path, field *schema.Field, value any) error {
	switch node := current.(type) {
	case *message.Record:
		node.Set(field.Name, value)
		return nil
	case *message.List:
		node.SetAt(p.Head().Index(), value)
		return nil
	default:
		return newError(ErrInvalidPathShape, p, field.Name,
			fmt.Sprintf("unsupported match for type %s", typeName(current)))
	}
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
