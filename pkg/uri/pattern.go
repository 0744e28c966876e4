package uri

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

var (
	ErrMalformedTemplate = errors.New("malformed uri template")
	ErrMissingParameter  = errors.New("missing uri parameter")
)

const (
	paramSeparator     = "&"
	nameValueSeparator = "="
	paramPlaceholder   = "__PARAM__"
	anyValuePattern    = `([^/&?]+)`
	nameGroup          = "name"
)

// paramMatcher 匹配 {name} 占位符
var paramMatcher = regexp2.MustCompile(`\{(?<`+nameGroup+`>\w+)\}`, regexp2.None)

// Pattern 表示编译后的 URI 模板，参数用 {paramName} 表示
// 编译后不可变，可以并发使用
type Pattern struct {
	template   string
	path       *matcher
	query      map[string]*matcher
	queryOrder []string
}

// matcher 匹配一个解码后的组件，params 按捕获组顺序记录占位符名字
type matcher struct {
	re     *regexp2.Regexp
	params []string
}

type options struct {
	matchTimeout time.Duration
}

// Option 配置编译选项
type Option func(*options)

// WithMatchTimeout 限制单次正则匹配的时间
func WithMatchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.matchTimeout = d
	}
}

// Compile 编译 URI 模板，例如 /send?id=test-{a}-event-{b}
func Compile(template string, opts ...Option) (*Pattern, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	names, err := placeholderNames(template)
	if err != nil {
		return nil, err
	}

	// 占位符先替换掉，避免 {} 影响 URL 解析
	masked, err := paramMatcher.Replace(template, paramPlaceholder, -1, -1)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTemplate, template, err)
	}

	u, err := url.Parse(masked)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTemplate, template, err)
	}
	if u.Fragment != "" {
		return nil, fmt.Errorf("%w: %s: fragments are not supported", ErrMalformedTemplate, template)
	}

	b := &builder{names: names, timeout: o.matchTimeout}

	p := &Pattern{
		template: template,
		query:    make(map[string]*matcher),
	}

	if p.path, err = b.build(u.Path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTemplate, template, err)
	}

	if u.RawQuery != "" {
		for _, pair := range strings.Split(u.RawQuery, paramSeparator) {
			name, value, ok := strings.Cut(pair, nameValueSeparator)
			if !ok {
				return nil, fmt.Errorf("%w: %s: query parameter %q has no value", ErrMalformedTemplate, template, pair)
			}

			decodedName, err := url.QueryUnescape(name)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTemplate, template, err)
			}
			decodedValue, err := url.QueryUnescape(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTemplate, template, err)
			}

			m, err := b.build(decodedValue)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTemplate, template, err)
			}

			// 同名参数后出现的生效
			if _, ok := p.query[decodedName]; !ok {
				p.queryOrder = append(p.queryOrder, decodedName)
			}
			p.query[decodedName] = m
		}
	}

	if b.next != len(names) {
		return nil, fmt.Errorf("%w: %s: placeholders are allowed only in the path and query values", ErrMalformedTemplate, template)
	}

	return p, nil
}

// MustCompile 编译失败时 panic
func MustCompile(template string, opts ...Option) *Pattern {
	p, err := Compile(template, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Template 返回原始模板
func (p *Pattern) Template() string { return p.template }

// Matches 检查 uri 是否匹配模板
// 路径必须完全匹配；查询参数不能多也不能少，每个值都要匹配
func (p *Pattern) Matches(uri string) bool {
	return p.match(uri, nil)
}

// Extract 匹配 uri 并返回占位符对应的值
// 同名占位符出现多次时取最后一次
func (p *Pattern) Extract(uri string) (map[string]string, bool) {
	params := make(map[string]string)
	if !p.match(uri, params) {
		return nil, false
	}
	return params, true
}

// match 执行匹配，params 不为 nil 时收集捕获的值
func (p *Pattern) match(uri string, params map[string]string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}

	if !p.path.match(u.Path, params) {
		return false
	}

	values, ok := parseQuery(u.RawQuery)
	if !ok {
		return false
	}

	for name := range values {
		if _, declared := p.query[name]; !declared {
			return false
		}
	}

	for _, name := range p.queryOrder {
		value, ok := values[name]
		if !ok {
			return false
		}
		if !p.query[name].match(value, params) {
			return false
		}
	}

	return true
}

// Resolve 用 params 中的值替换占位符
// 值先转成字符串再编码，路径部分和查询部分使用各自的编码方式
func (p *Pattern) Resolve(params map[string]any) (string, error) {
	pathPart, queryPart, hasQuery := strings.Cut(p.template, "?")

	resolved, err := resolvePart(pathPart, params, encodePathValue)
	if err != nil {
		return "", err
	}
	if !hasQuery {
		return resolved, nil
	}

	query, err := resolvePart(queryPart, params, encodeQueryValue)
	if err != nil {
		return "", err
	}
	return resolved + "?" + query, nil
}

// String 返回匹配器的调试形式
func (p *Pattern) String() string {
	var b strings.Builder
	b.WriteString(p.path.re.String())
	b.WriteByte('?')
	for i, name := range p.queryOrder {
		if i > 0 {
			b.WriteString(paramSeparator)
		}
		b.WriteString(name)
		b.WriteString(nameValueSeparator)
		b.WriteString(p.query[name].re.String())
	}
	return b.String()
}

// builder 依次消费占位符名字构造匹配器
type builder struct {
	names   []string
	next    int
	timeout time.Duration
}

// build 把解码后的组件转换为锚定的正则，字面部分会被转义
// 整个值是占位符时等价于完全通配
func (b *builder) build(decoded string) (*matcher, error) {
	parts := strings.Split(decoded, paramPlaceholder)

	var expr strings.Builder
	expr.WriteString(`\A`)

	var params []string
	for i, part := range parts {
		if i > 0 {
			if b.next >= len(b.names) {
				return nil, errors.New("unexpected placeholder")
			}
			params = append(params, b.names[b.next])
			b.next++
			expr.WriteString(anyValuePattern)
		}
		expr.WriteString(regexp2.Escape(part))
	}
	expr.WriteString(`\z`)

	re, err := regexp2.Compile(expr.String(), regexp2.None)
	if err != nil {
		return nil, err
	}
	if b.timeout > 0 {
		re.MatchTimeout = b.timeout
	}

	return &matcher{re: re, params: params}, nil
}

// match 匹配一个值，超时视为不匹配
func (m *matcher) match(value string, params map[string]string) bool {
	if params == nil {
		ok, err := m.re.MatchString(value)
		return err == nil && ok
	}

	found, err := m.re.FindStringMatch(value)
	if err != nil || found == nil {
		return false
	}
	for i, name := range m.params {
		if g := found.GroupByNumber(i + 1); g != nil {
			params[name] = g.String()
		}
	}
	return true
}

// placeholderNames 按出现顺序返回所有占位符名字
func placeholderNames(template string) ([]string, error) {
	var names []string

	m, err := paramMatcher.FindStringMatch(template)
	for m != nil && err == nil {
		names = append(names, m.GroupByName(nameGroup).String())
		m, err = paramMatcher.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTemplate, template, err)
	}

	return names, nil
}

// parseQuery 解析查询串，没有 = 的参数值为空字符串
func parseQuery(rawQuery string) (map[string]string, bool) {
	values := make(map[string]string)
	if rawQuery == "" {
		return values, true
	}

	for _, pair := range strings.Split(rawQuery, paramSeparator) {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, nameValueSeparator)

		decodedName, err := url.QueryUnescape(name)
		if err != nil {
			return nil, false
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			return nil, false
		}
		values[decodedName] = decodedValue
	}

	return values, true
}

// resolvePart 替换一段模板中的占位符
func resolvePart(part string, params map[string]any, encode func(string) string) (string, error) {
	var missing string

	resolved, err := paramMatcher.ReplaceFunc(part, func(m regexp2.Match) string {
		name := m.GroupByName(nameGroup).String()
		value, ok := params[name]
		if !ok || value == nil {
			if missing == "" {
				missing = name
			}
			return ""
		}
		return encode(fmt.Sprint(value))
	}, -1, -1)
	if err != nil {
		return "", err
	}

	if missing != "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParameter, missing)
	}
	return resolved, nil
}

// encodePathValue 先解码再编码，已编码的值不会被重复编码
func encodePathValue(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	return url.PathEscape(s)
}

func encodeQueryValue(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		s = decoded
	}
	return url.QueryEscape(s)
}
