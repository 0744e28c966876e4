package codec

import (
	"errors"
	"fmt"

	"github.com/glesirok/jsoncodec/pkg/path"
)

// MessageTypeDetection 定义解码时确定消息类型的方式
type MessageTypeDetection string

const (
	ByHTTPMethodAndURI MessageTypeDetection = "BY_HTTP_METHOD_AND_URI"
	ByInnerField       MessageTypeDetection = "BY_INNER_FIELD"
	Constant           MessageTypeDetection = "CONSTANT"
)

// Settings 是编解码器的配置
type Settings struct {
	MessageTypeDetection       MessageTypeDetection `mapstructure:"messageTypeDetection" yaml:"messageTypeDetection"`
	MessageTypeField           string               `mapstructure:"messageTypeField" yaml:"messageTypeField,omitempty"`        // JSON pointer
	ConstantMessageType        string               `mapstructure:"constantMessageType" yaml:"constantMessageType,omitempty"`  // CONSTANT 模式使用
	RejectUnexpectedFields     bool                 `mapstructure:"rejectUnexpectedFields" yaml:"rejectUnexpectedFields"`
	TreatSimpleValuesAsStrings bool                 `mapstructure:"treatSimpleValuesAsStrings" yaml:"treatSimpleValuesAsStrings"`
}

// DefaultSettings 返回默认配置
func DefaultSettings() Settings {
	return Settings{
		MessageTypeDetection:   ByHTTPMethodAndURI,
		RejectUnexpectedFields: true,
	}
}

// Validate 校验配置
func (s Settings) Validate() error {
	switch s.MessageTypeDetection {
	case ByHTTPMethodAndURI:
	case ByInnerField:
		if s.MessageTypeField == "" {
			return fmt.Errorf("messageTypeDetection is %s but messageTypeField is blank", ByInnerField)
		}
		p, err := path.Parse(s.MessageTypeField)
		if err != nil {
			return fmt.Errorf("messageTypeField: %w", err)
		}
		if p.Matches() {
			return errors.New("messageTypeField must point to a field")
		}
	case Constant:
		if s.ConstantMessageType == "" {
			return fmt.Errorf("messageTypeDetection is %s but constantMessageType is blank", Constant)
		}
	default:
		return fmt.Errorf("unknown messageTypeDetection: %q", s.MessageTypeDetection)
	}
	return nil
}
