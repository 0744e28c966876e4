package schema

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tidwall/gjson"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// LoadFromFile 从文件加载字典
func LoadFromFile(filePath string) (*Dictionary, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parse(data)
}

// Load 从 reader 加载字典，支持 YAML 和 JSON
func Load(r io.Reader) (*Dictionary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Dictionary, error) {
	// 去掉 UTF-8 BOM
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	var dict Dictionary
	if err := yaml.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := Validate(&dict); err != nil {
		return nil, fmt.Errorf("dictionary %s: %w", dict.Name, err)
	}

	return &dict, nil
}

// Validate 校验字典并解析字段引用
// 返回所有发现的问题，而不是第一个
func Validate(dict *Dictionary) error {
	var errs error

	byName := make(map[string]*Message, len(dict.Messages))
	for i, m := range dict.Messages {
		if m == nil || m.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("message %d: name is required", i))
			continue
		}
		if _, ok := byName[m.Name]; ok {
			errs = multierr.Append(errs, fmt.Errorf("message %s: duplicate name", m.Name))
			continue
		}
		byName[m.Name] = m
	}

	for _, m := range dict.Messages {
		if m == nil || m.Name == "" {
			continue
		}
		errs = multierr.Append(errs, validateFields(m, byName))
	}

	if errs != nil {
		return errs
	}

	dict.byName = byName
	return nil
}

// validateFields 校验一个消息的字段
func validateFields(m *Message, byName map[string]*Message) error {
	var errs error
	seen := make(map[string]struct{}, len(m.Fields))

	for i, f := range m.Fields {
		if f == nil || f.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("message %s: field %d: name is required", m.Name, i))
			continue
		}
		if _, ok := seen[f.Name]; ok {
			errs = multierr.Append(errs, fmt.Errorf("message %s: duplicate field %s", m.Name, f.Name))
			continue
		}
		seen[f.Name] = struct{}{}

		if f.IsComplex() {
			ref, ok := byName[f.ReferenceName]
			if !ok {
				errs = multierr.Append(errs, fmt.Errorf("message %s: field %s: unknown reference %s", m.Name, f.Name, f.ReferenceName))
			}
			f.Reference = ref
			if f.Default != nil {
				errs = multierr.Append(errs, fmt.Errorf("message %s: field %s: default is not allowed for complex fields", m.Name, f.Name))
			}
			continue
		}

		switch f.Type {
		case TypeAny, TypeString, TypeNumber, TypeBoolean:
		default:
			errs = multierr.Append(errs, fmt.Errorf("message %s: field %s: unknown type %q", m.Name, f.Name, f.Type))
			continue
		}

		if f.Default == nil {
			continue
		}
		if f.IsCollection() {
			errs = multierr.Append(errs, fmt.Errorf("message %s: field %s: default is not allowed for collections", m.Name, f.Name))
			continue
		}
		if err := checkDefault(f); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("message %s: field %s: %w", m.Name, f.Name, err))
		}
	}

	return errs
}

// checkDefault 检查默认值是否符合字段类型
func checkDefault(f *Field) error {
	switch f.Type {
	case TypeNumber:
		if res := gjson.Parse(*f.Default); !gjson.Valid(*f.Default) || res.Type != gjson.Number || res.Raw != *f.Default {
			return fmt.Errorf("default %q is not a number", *f.Default)
		}
	case TypeBoolean:
		if _, err := strconv.ParseBool(*f.Default); err != nil {
			return fmt.Errorf("default %q is not a boolean", *f.Default)
		}
	}
	return nil
}
