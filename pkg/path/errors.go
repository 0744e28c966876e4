package path

import (
	"errors"

	"github.com/glesirok/jsoncodec/pkg/message"
)

// 导航失败的类别，用 errors.Is 判断
var (
	ErrUnknownField     = errors.New("unknown field")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrTypeMismatch     = message.ErrTypeMismatch
	ErrInvalidPathShape = errors.New("invalid path shape")
)

// Error 描述一次导航失败及其位置
type Error struct {
	Kind      error  // 失败类别
	Path      string // 完整路径
	Position  int    // 出错片段的位置
	Token     string // 出错片段
	Structure string // 所在消息或集合的名字
	Index     int    // 列表越界时的索引
	Size      int    // 列表越界时的长度

	msg string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.Kind }

// newError 从当前路径位置构造错误
func newError(kind error, p Path, structure, msg string) *Error {
	e := &Error{
		Kind:      kind,
		Path:      p.Full(),
		Position:  p.Position(),
		Structure: structure,
		msg:       msg,
	}
	if !p.Matches() {
		e.Token = p.Head().Name()
	}
	return e
}
