package codec

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/glesirok/jsoncodec/pkg/message"
	"github.com/glesirok/jsoncodec/pkg/path"
	"github.com/glesirok/jsoncodec/pkg/schema"
	"github.com/glesirok/jsoncodec/pkg/uri"
)

const (
	// Protocol 是本编解码器处理的协议名
	Protocol = "json"

	PropertyMethod = "method"
	PropertyURI    = "uri"

	// uriField 是请求消息中保存 URI 参数的子消息字段
	uriField = schema.AttrURI
)

// messageInfo 关联一个请求类型的 HTTP 方法和 URI 模板
type messageInfo struct {
	messageType string
	method      string
	pattern     *uri.Pattern
}

func (i *messageInfo) matches(method, u string) bool {
	return strings.EqualFold(i.method, method) && i.pattern.Matches(u)
}

type options struct {
	logger       *zap.Logger
	matchTimeout time.Duration
}

// Option 配置 Codec
type Option func(*options)

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMatchTimeout 限制 URI 模板匹配的时间
func WithMatchTimeout(d time.Duration) Option {
	return func(o *options) { o.matchTimeout = d }
}

// Codec 在原始 JSON 消息和结构化消息之间转换消息组
// 创建后只读，可以并发使用
type Codec struct {
	dictionary *schema.Dictionary
	settings   Settings
	navigator  *path.Navigator
	body       *bodyCodec
	typeField  path.Path
	requests   []*messageInfo // 按字典顺序
	responses  []*messageInfo // messageType 是响应类型
	logger     *zap.Logger
}

// New 根据字典和配置创建 Codec
func New(dict *schema.Dictionary, settings Settings, opts ...Option) (*Codec, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	c := &Codec{
		dictionary: dict,
		settings:   settings,
		navigator:  path.NewNavigator(),
		body:       newBodyCodec(settings),
		logger:     o.logger,
	}

	switch settings.MessageTypeDetection {
	case ByInnerField:
		c.typeField = path.MustParse(settings.MessageTypeField)
	case Constant:
		if _, ok := dict.Message(settings.ConstantMessageType); !ok {
			return nil, fmt.Errorf("unknown constant message type: %s", settings.ConstantMessageType)
		}
	}

	if err := c.buildTables(o.matchTimeout); err != nil {
		return nil, err
	}

	c.logger.Debug("codec created",
		zap.String("dictionary", dict.Name),
		zap.String("detection", string(settings.MessageTypeDetection)),
		zap.Int("requests", len(c.requests)))

	return c, nil
}

func (c *Codec) Dictionary() *schema.Dictionary { return c.dictionary }

func (c *Codec) Settings() Settings { return c.settings }

// buildTables 收集同时带有 Method、URI、Response 属性的消息
func (c *Codec) buildTables(timeout time.Duration) error {
	for _, m := range c.dictionary.Messages {
		method, hasMethod := m.Attribute(schema.AttrMethod)
		template, hasURI := m.Attribute(schema.AttrURI)
		response, hasResponse := m.Attribute(schema.AttrResponse)
		if !hasMethod || !hasURI || !hasResponse {
			continue
		}

		pattern, err := uri.Compile(template, uri.WithMatchTimeout(timeout))
		if err != nil {
			return fmt.Errorf("failed to create URI pattern from %s: %w", template, err)
		}
		if _, ok := c.dictionary.Message(response); !ok {
			return fmt.Errorf("unknown response type: %s", response)
		}

		c.requests = append(c.requests, &messageInfo{messageType: m.Name, method: method, pattern: pattern})
		c.responses = append(c.responses, &messageInfo{messageType: response, method: method, pattern: pattern})
	}
	return nil
}

func (c *Codec) request(messageType string) *messageInfo {
	for _, info := range c.requests {
		if info.messageType == messageType {
			return info
		}
	}
	return nil
}

func (c *Codec) isResponse(messageType string) bool {
	for _, info := range c.responses {
		if info.messageType == messageType {
			return true
		}
	}
	return false
}

// Encode 把组内 json 协议的结构化消息编码为原始消息，其余消息原样保留
func (c *Codec) Encode(group message.Group) (message.Group, error) {
	if !hasParsedJSON(group) {
		return group, nil
	}

	out := message.Group{Messages: make([]message.AnyMessage, 0, len(group.Messages))}
	for _, m := range group.Messages {
		if !m.IsParsed() || m.Parsed.Metadata.Protocol != Protocol {
			out.Messages = append(out.Messages, m)
			continue
		}

		raw, err := c.encode(m.Parsed)
		if err != nil {
			return message.Group{}, fmt.Errorf("encode message %s: %w", m.ID(), err)
		}
		out.Messages = append(out.Messages, message.AnyMessage{Raw: raw})
	}

	return out, nil
}

func (c *Codec) encode(pm *message.ParsedMessage) (*message.RawMessage, error) {
	messageType := pm.Metadata.MessageType
	structure, ok := c.dictionary.Message(messageType)
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", messageType)
	}

	body := pm.Body
	if body == nil {
		body = message.NewRecord(structure)
	}

	var info *messageInfo
	switch c.settings.MessageTypeDetection {
	case ByHTTPMethodAndURI:
		info = c.request(messageType)
		if info == nil && !c.isResponse(messageType) {
			return nil, fmt.Errorf("message type is not a request or response: %s", messageType)
		}
	case ByInnerField:
		body = body.Clone()
		if err := c.navigator.Set(body, c.typeField, structure, messageType, false); err != nil {
			return nil, fmt.Errorf("set message type at %s: %w", c.typeField.Full(), err)
		}
	}

	skip := ""
	if info != nil {
		skip = uriField
	}

	data, err := c.body.encode(body, structure, skip)
	if err != nil {
		return nil, err
	}

	props := message.CopyProperties(pm.Metadata.Properties)
	if info != nil {
		params, err := c.uriParams(body, structure)
		if err != nil {
			return nil, err
		}
		resolved, err := info.pattern.Resolve(params)
		if err != nil {
			return nil, fmt.Errorf("resolve URI of %s: %w", messageType, err)
		}
		if props == nil {
			props = make(map[string]string, 2)
		}
		props[PropertyMethod] = info.method
		props[PropertyURI] = resolved
	}

	c.logger.Debug("encoded message",
		zap.Stringer("id", pm.Metadata.ID),
		zap.String("type", messageType),
		zap.Int("size", len(data)))

	return &message.RawMessage{
		Metadata: message.Metadata{
			ID:         pm.Metadata.ID,
			Timestamp:  pm.Metadata.Timestamp,
			Protocol:   Protocol,
			Properties: props,
		},
		Body: data,
	}, nil
}

// uriParams 读取请求中 URI 子消息的所有字段
func (c *Codec) uriParams(body *message.Record, structure *schema.Message) (map[string]any, error) {
	f, ok := structure.Field(uriField)
	if !ok {
		return nil, nil
	}

	rec, ok, err := path.Get[*message.Record](c.navigator, body, path.FromTokens(f.WireName()), structure)
	if err != nil {
		return nil, fmt.Errorf("read URI parameters: %w", err)
	}
	if !ok {
		return nil, nil
	}

	params := make(map[string]any, rec.Len())
	for _, name := range rec.FieldNames() {
		params[name], _ = rec.Get(name)
	}
	return params, nil
}

// Decode 把组内的原始消息解码为结构化消息，其余消息原样保留
func (c *Codec) Decode(group message.Group) (message.Group, error) {
	if !hasRaw(group) {
		return group, nil
	}

	out := message.Group{Messages: make([]message.AnyMessage, 0, len(group.Messages))}
	for _, m := range group.Messages {
		if !m.IsRaw() {
			out.Messages = append(out.Messages, m)
			continue
		}

		parsed, err := c.decode(m.Raw)
		if err != nil {
			return message.Group{}, fmt.Errorf("decode message %s: %w", m.ID(), err)
		}
		out.Messages = append(out.Messages, message.AnyMessage{Parsed: parsed})
	}

	return out, nil
}

func (c *Codec) decode(rm *message.RawMessage) (*message.ParsedMessage, error) {
	messageType, req, err := c.detect(rm)
	if err != nil {
		return nil, err
	}

	structure, ok := c.dictionary.Message(messageType)
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", messageType)
	}

	body, err := c.body.decode(rm.Body, structure)
	if err != nil {
		return nil, err
	}

	if req != nil {
		if err := c.restoreURIParams(body, structure, req, rm.Metadata.Properties[PropertyURI]); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("decoded message",
		zap.Stringer("id", rm.Metadata.ID),
		zap.String("type", messageType))

	return &message.ParsedMessage{
		Metadata: message.Metadata{
			ID:          rm.Metadata.ID,
			Timestamp:   rm.Metadata.Timestamp,
			MessageType: messageType,
			Protocol:    Protocol,
			Properties:  message.CopyProperties(rm.Metadata.Properties),
		},
		Body: body,
	}, nil
}

// detect 确定原始消息的类型，请求消息同时返回对应的 messageInfo
func (c *Codec) detect(rm *message.RawMessage) (string, *messageInfo, error) {
	switch c.settings.MessageTypeDetection {
	case ByInnerField:
		res := gjson.GetBytes(rm.Body, c.typeField.GJSON())
		if res.Type != gjson.String || res.Str == "" {
			return "", nil, fmt.Errorf("message has no type at %s", c.typeField.Full())
		}
		return res.Str, nil, nil

	case Constant:
		return c.settings.ConstantMessageType, nil, nil
	}

	props := rm.Metadata.Properties
	method, ok := props[PropertyMethod]
	if !ok {
		return "", nil, fmt.Errorf("message has no '%s' metadata property", PropertyMethod)
	}
	u, ok := props[PropertyURI]
	if !ok {
		return "", nil, fmt.Errorf("message has no '%s' metadata property", PropertyURI)
	}

	switch direction := rm.Metadata.ID.Direction; direction {
	case message.DirectionFirst:
		for _, info := range c.responses {
			if info.matches(method, u) {
				return info.messageType, nil, nil
			}
		}
		return "", nil, fmt.Errorf("no response for request with '%s' method and URI matching: %s", method, u)
	case message.DirectionSecond:
		for _, info := range c.requests {
			if info.matches(method, u) {
				return info.messageType, info, nil
			}
		}
		return "", nil, fmt.Errorf("no request with '%s' method and URI matching: %s", method, u)
	default:
		return "", nil, fmt.Errorf("unsupported message direction: %s", direction)
	}
}

// restoreURIParams 把 URI 中提取的参数写回请求的 URI 子消息，已有的值保持不变
func (c *Codec) restoreURIParams(body *message.Record, structure *schema.Message, info *messageInfo, u string) error {
	f, ok := structure.Field(uriField)
	if !ok || !f.IsComplex() || f.IsCollection() {
		return nil
	}

	params, ok := info.pattern.Extract(u)
	if !ok {
		return nil
	}

	for name, value := range params {
		pf, ok := f.Reference.Field(name)
		if !ok {
			c.logger.Debug("URI parameter is not declared",
				zap.String("message", structure.Name),
				zap.String("param", name))
			continue
		}

		v, err := coerce(pf, value, true)
		if err != nil {
			return fmt.Errorf("URI parameter %s: %w", name, err)
		}

		p := path.FromTokens(f.WireName(), pf.WireName())
		if err := c.navigator.Set(body, p, structure, v, false); err != nil {
			return fmt.Errorf("URI parameter %s: %w", name, err)
		}
	}
	return nil
}

func hasParsedJSON(group message.Group) bool {
	for _, m := range group.Messages {
		if m.IsParsed() && m.Parsed.Metadata.Protocol == Protocol {
			return true
		}
	}
	return false
}

func hasRaw(group message.Group) bool {
	for _, m := range group.Messages {
		if m.IsRaw() {
			return true
		}
	}
	return false
}
