package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/glesirok/jsoncodec/pkg/codec"
)

// EnvPrefix 是环境变量前缀，例如 JSONCODEC_CODEC_MESSAGETYPEDETECTION
const EnvPrefix = "JSONCODEC"

// Config 是 jsoncodec 的配置
type Config struct {
	Dictionary string         `mapstructure:"dictionary"`
	Codec      codec.Settings `mapstructure:"codec"`
	Log        LogConfig      `mapstructure:"log"`
}

// LogConfig 是日志配置
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load 读取配置文件，file 为空时在当前目录查找 jsoncodec.yaml
func Load(file string) (*Config, error) {
	v := viper.New()

	defaults := codec.DefaultSettings()
	v.SetDefault("dictionary", "")
	v.SetDefault("codec.messageTypeDetection", string(defaults.MessageTypeDetection))
	v.SetDefault("codec.messageTypeField", defaults.MessageTypeField)
	v.SetDefault("codec.constantMessageType", defaults.ConstantMessageType)
	v.SetDefault("codec.rejectUnexpectedFields", defaults.RejectUnexpectedFields)
	v.SetDefault("codec.treatSimpleValuesAsStrings", defaults.TreatSimpleValuesAsStrings)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("jsoncodec")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// 没有配置文件时使用默认值
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := c.Codec.Validate(); err != nil {
		return fmt.Errorf("codec: %w", err)
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// NewLogger 按配置创建日志
func (l LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if l.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = level

	return cfg.Build()
}
