package path

import (
	"strings"
)

// Token 表示路径中的一个片段
type Token struct {
	raw   string
	index int // 不是索引时为 -1
}

// IsIndex 片段是否可以匹配列表元素
func (t Token) IsIndex() bool { return t.index >= 0 }

// Index 返回索引，非索引片段返回 -1
func (t Token) Index() int { return t.index }

// Name 返回字段名（即原始文本）
func (t Token) Name() string { return t.raw }

func (t Token) String() string { return t.raw }

// Path 表示解析后的 JSON Pointer 风格路径，值类型，不可变
type Path struct {
	tokens []Token
	pos    int // 头部片段在完整路径中的位置
}

// Matches 路径已经走完
func (p Path) Matches() bool { return p.pos >= len(p.tokens) }

// Head 返回当前片段，调用前需确认 !Matches()
func (p Path) Head() Token { return p.tokens[p.pos] }

// Tail 去掉第一个片段
func (p Path) Tail() Path {
	if p.Matches() {
		return p
	}
	return Path{tokens: p.tokens, pos: p.pos + 1}
}

// Len 返回剩余片段数
func (p Path) Len() int { return len(p.tokens) - p.pos }

// Position 返回头部片段在完整路径中的位置
func (p Path) Position() int { return p.pos }

// Tokens 返回剩余片段
func (p Path) Tokens() []Token {
	return append([]Token(nil), p.tokens[p.pos:]...)
}

// String 返回剩余路径的 pointer 形式
func (p Path) String() string {
	var b strings.Builder
	for _, t := range p.tokens[p.pos:] {
		b.WriteByte('/')
		b.WriteString(t.raw)
	}
	return b.String()
}

// Full 返回完整路径
func (p Path) Full() string {
	return Path{tokens: p.tokens}.String()
}

// GJSON 把路径转换为 gjson 语法，用于直接在原始 JSON 上取值
func (p Path) GJSON() string {
	parts := make([]string, 0, p.Len())
	for _, t := range p.tokens[p.pos:] {
		parts = append(parts, escapeGJSON(t.raw))
	}
	return strings.Join(parts, ".")
}

// escapeGJSON 转义 gjson 路径中的特殊字符
func escapeGJSON(s string) string {
	if !strings.ContainsAny(s, `.*?|#@\!:{}[],"`) {
		return s
	}
	var b strings.Builder
	for _, ch := range s {
		switch ch {
		case '.', '*', '?', '|', '#', '@', '\\', '!', ':', '{', '}', '[', ']', ',', '"':
			b.WriteByte('\\')
		}
		b.WriteRune(ch)
	}
	return b.String()
}
