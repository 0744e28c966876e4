package message

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/glesirok/jsoncodec/pkg/schema"
)

// ErrTypeMismatch 值无法转换为请求的类型
var ErrTypeMismatch = errors.New("type mismatch")

// Node 是树中的容器节点，只有 *Record 和 *List 两种实现
type Node interface {
	node()
}

// Value 约束树中允许出现的非空值类型
type Value interface {
	string | Number | bool | *Record | *List
}

// Number 以 JSON 文本形式保存的数字
type Number string

// ParseNumber 校验并创建数字，只接受 JSON 数字语法
func ParseNumber(s string) (Number, error) {
	if !IsJSONNumber(s) {
		return "", fmt.Errorf("invalid number %q", s)
	}
	return Number(s), nil
}

// IsJSONNumber 判断 s 是否是一个完整的 JSON 数字，NaN 和 Inf 不是
func IsJSONNumber(s string) bool {
	if !gjson.Valid(s) {
		return false
	}
	res := gjson.Parse(s)
	return res.Type == gjson.Number && res.Raw == s
}

func (n Number) String() string { return string(n) }

func (n Number) Float64() (float64, error) { return strconv.ParseFloat(string(n), 64) }

func (n Number) Int64() (int64, error) { return strconv.ParseInt(string(n), 10, 64) }

// MarshalYAML 保持数字原文输出
func (n Number) MarshalYAML() (interface{}, error) {
	tag := "!!int"
	if strings.ContainsAny(string(n), ".eE") {
		tag = "!!float"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: string(n)}, nil
}

// Record 是带结构描述的字段容器
type Record struct {
	structure *schema.Message
	fields    map[string]any
}

// NewRecord 创建空的消息
func NewRecord(structure *schema.Message) *Record {
	return &Record{
		structure: structure,
		fields:    make(map[string]any),
	}
}

func (*Record) node() {}

// Name 返回消息类型名
func (r *Record) Name() string {
	if r.structure == nil {
		return ""
	}
	return r.structure.Name
}

func (r *Record) Structure() *schema.Message { return r.structure }

// Get 返回字段值，第二个返回值表示字段是否存在（值可以是 nil）
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

func (r *Record) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

func (r *Record) Set(name string, value any) {
	r.fields[name] = value
}

func (r *Record) Delete(name string) {
	delete(r.fields, name)
}

func (r *Record) Len() int { return len(r.fields) }

// FieldNames 先按结构声明顺序，再按字母顺序列出未声明的字段
func (r *Record) FieldNames() []string {
	names := make([]string, 0, len(r.fields))
	declared := make(map[string]struct{})

	if r.structure != nil {
		for _, f := range r.structure.Fields {
			declared[f.Name] = struct{}{}
			if _, ok := r.fields[f.Name]; ok {
				names = append(names, f.Name)
			}
		}
	}

	var extra []string
	for name := range r.fields {
		if _, ok := declared[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	return append(names, extra...)
}

// Clone 深拷贝消息
func (r *Record) Clone() *Record {
	c := &Record{
		structure: r.structure,
		fields:    make(map[string]any, len(r.fields)),
	}
	for name, v := range r.fields {
		c.fields[name] = cloneValue(v)
	}
	return c
}

// List 是有序的值序列，element 描述元素
type List struct {
	element *schema.Field
	items   []any
}

// NewList 创建列表，items 会被复制
func NewList(element *schema.Field, items ...any) *List {
	return &List{
		element: element,
		items:   append([]any(nil), items...),
	}
}

func (*List) node() {}

func (l *List) Field() *schema.Field { return l.element }

// Name 返回集合字段名
func (l *List) Name() string {
	if l.element == nil {
		return ""
	}
	return l.element.Name
}

func (l *List) Len() int { return len(l.items) }

func (l *List) At(i int) any { return l.items[i] }

func (l *List) SetAt(i int, value any) { l.items[i] = value }

func (l *List) Append(value any) { l.items = append(l.items, value) }

// Items 返回元素的副本
func (l *List) Items() []any { return append([]any(nil), l.items...) }

// Clone 深拷贝列表
func (l *List) Clone() *List {
	c := &List{element: l.element, items: make([]any, len(l.items))}
	for i, v := range l.items {
		c.items[i] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case *Record:
		return val.Clone()
	case *List:
		return val.Clone()
	default:
		return v
	}
}

// IsValue 判断 v 是否可以放进树里
func IsValue(v any) bool {
	switch v.(type) {
	case nil, string, Number, bool, *Record, *List:
		return true
	default:
		return false
	}
}

// Cast 把树中的值转换为 T
func Cast[T Value](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: cannot cast %T to %T", ErrTypeMismatch, v, zero)
	}
	return t, nil
}
