package codec

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/glesirok/jsoncodec/pkg/schema"
)

var (
	ErrAlreadyInitialized = errors.New("factory is already initialized")
	ErrNotInitialized     = errors.New("factory is not initialized")
)

// Factory 加载一次字典，之后按配置创建 Codec
type Factory struct {
	mu         sync.RWMutex
	dictionary *schema.Dictionary
	opts       []Option
}

// NewFactory 创建工厂，opts 会传给每个创建的 Codec
func NewFactory(opts ...Option) *Factory {
	return &Factory{opts: opts}
}

// Init 从 r 读取字典，只能调用一次
func (f *Factory) Init(r io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dictionary != nil {
		return ErrAlreadyInitialized
	}

	dict, err := schema.Load(r)
	if err != nil {
		return fmt.Errorf("load dictionary: %w", err)
	}
	f.dictionary = dict
	return nil
}

// Dictionary 返回已加载的字典
func (f *Factory) Dictionary() *schema.Dictionary {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dictionary
}

// Create 用给定配置创建 Codec
func (f *Factory) Create(settings Settings) (*Codec, error) {
	dict := f.Dictionary()
	if dict == nil {
		return nil, ErrNotInitialized
	}
	return New(dict, settings, f.opts...)
}
