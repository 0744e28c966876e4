package path

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPath 路径字符串不合法
var ErrMalformedPath = errors.New("malformed path")

// 索引最多 10 位
const maxIndexDigits = 10

// Parse 解析 JSON Pointer 风格的路径
// 支持语法：
//   - ""                  根路径
//   - /Simple             字段
//   - /Collection/0       列表元素
//   - /Complex/Simple     嵌套字段
func Parse(pointer string) (Path, error) {
	if pointer == "" {
		return Path{}, nil
	}

	if !strings.HasPrefix(pointer, "/") {
		return Path{}, fmt.Errorf("%w: %q must start with '/'", ErrMalformedPath, pointer)
	}

	parts := strings.Split(pointer[1:], "/")
	tokens := make([]Token, 0, len(parts))
	for _, part := range parts {
		tokens = append(tokens, parseToken(part))
	}

	return Path{tokens: tokens}, nil
}

// MustParse 解析失败时 panic，用于常量路径
func MustParse(pointer string) Path {
	p, err := Parse(pointer)
	if err != nil {
		panic(err)
	}
	return p
}

// FromTokens 用原始片段构造路径
func FromTokens(parts ...string) Path {
	tokens := make([]Token, 0, len(parts))
	for _, part := range parts {
		tokens = append(tokens, parseToken(part))
	}
	return Path{tokens: tokens}
}

// parseToken 解析单个片段
func parseToken(part string) Token {
	return Token{raw: part, index: parseIndex(part)}
}

// parseIndex 非负十进制整数才是索引，不允许前导零
func parseIndex(s string) int {
	if s == "" || len(s) > maxIndexDigits {
		return -1
	}
	if len(s) > 1 && s[0] == '0' {
		return -1
	}

	n := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return -1
		}
		n = n*10 + int(ch-'0')
	}

	// 索引限制在 int32 范围内
	if n > 1<<31-1 {
		return -1
	}
	return n
}
