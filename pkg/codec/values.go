package codec

import (
	"fmt"
	"math"
	"strconv"

	"github.com/glesirok/jsoncodec/pkg/message"
	"github.com/glesirok/jsoncodec/pkg/schema"
)

// coerce 把简单值转换为字段声明的类型
// lenient 为 false 时只接受同类值
func coerce(f *schema.Field, v any, lenient bool) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch f.Type {
	case schema.TypeString:
		switch val := v.(type) {
		case string:
			return val, nil
		case message.Number:
			if lenient {
				return val.String(), nil
			}
		case bool:
			if lenient {
				return strconv.FormatBool(val), nil
			}
		}

	case schema.TypeNumber:
		switch val := v.(type) {
		case message.Number:
			return val, nil
		case string:
			if lenient {
				return message.ParseNumber(val)
			}
		}

	case schema.TypeBoolean:
		switch val := v.(type) {
		case bool:
			return val, nil
		case string:
			if lenient {
				b, err := strconv.ParseBool(val)
				if err != nil {
					return nil, fmt.Errorf("invalid boolean %q", val)
				}
				return b, nil
			}
		}

	default:
		switch v.(type) {
		case string, message.Number, bool:
			return v, nil
		}
	}

	return nil, fmt.Errorf("field %s of type %s cannot hold %s", f.Name, typeOf(f), describe(v))
}

// defaultValue 把字段默认值转换为树中的值
func defaultValue(f *schema.Field) (any, error) {
	if f.Default == nil {
		return nil, nil
	}
	if f.Type == schema.TypeAny {
		return *f.Default, nil
	}
	return coerce(f, *f.Default, true)
}

// fromNative 把 YAML 解析出的原生值转换为树中的简单值
func fromNative(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool:
		return val, nil
	case message.Number:
		return message.ParseNumber(val.String())
	case int:
		return message.Number(strconv.Itoa(val)), nil
	case int64:
		return message.Number(strconv.FormatInt(val, 10)), nil
	case uint64:
		return message.Number(strconv.FormatUint(val, 10)), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("number %v cannot be written as JSON", val)
		}
		return message.Number(strconv.FormatFloat(val, 'f', -1, 64)), nil
	default:
		return nil, fmt.Errorf("simple value expected but got %T", v)
	}
}

func typeOf(f *schema.Field) string {
	if f.Type == schema.TypeAny {
		return "any"
	}
	return string(f.Type)
}

// describe 描述值的种类，用于错误信息
func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case message.Number:
		return "a number"
	case bool:
		return "a boolean"
	case *message.Record:
		return "a message"
	case *message.List:
		return "a collection"
	default:
		return fmt.Sprintf("%T", v)
	}
}
