package processor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/pretty"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/glesirok/jsoncodec/pkg/codec"
	"github.com/glesirok/jsoncodec/pkg/message"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Mode 决定对消息组执行编码还是解码
type Mode string

const (
	ModeEncode Mode = "encode"
	ModeDecode Mode = "decode"
)

// Option 配置 Processor
type Option func(*Processor)

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithOutput 设置进度和 dry-run 输出的位置，默认 stdout
func WithOutput(w io.Writer) Option {
	return func(p *Processor) { p.out = w }
}

// Processor 批量处理消息组文件
type Processor struct {
	codec  *codec.Codec
	mode   Mode
	logger *zap.Logger
	out    io.Writer
}

// NewProcessor 创建处理器
func NewProcessor(c *codec.Codec, mode Mode, opts ...Option) (*Processor, error) {
	if mode != ModeEncode && mode != ModeDecode {
		return nil, fmt.Errorf("unknown mode: %s", mode)
	}

	p := &Processor{
		codec:  c,
		mode:   mode,
		logger: zap.NewNop(),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process 转换一个消息组文件的内容
func (p *Processor) Process(data []byte) ([]byte, error) {
	// 检测并移除 UTF-8 BOM
	hasBOM := bytes.HasPrefix(data, bom)
	if hasBOM {
		data = data[len(bom):]
	}

	var file groupFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	group, err := toGroup(&file, p.codec.Dictionary())
	if err != nil {
		return nil, err
	}

	result, err := p.run(group)
	if err != nil {
		return nil, err
	}

	// 序列化 YAML（保持2空格缩进）
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(fromGroup(result)); err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}

	output := buf.Bytes()
	if hasBOM {
		output = append(append([]byte(nil), bom...), output...)
	}
	return output, nil
}

func (p *Processor) run(group message.Group) (message.Group, error) {
	if p.mode == ModeEncode {
		return p.codec.Encode(group)
	}
	return p.codec.Decode(group)
}

// ProcessFile 处理单个消息组文件
func (p *Processor) ProcessFile(inputPath, outputPath string, dryRun bool) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	output, err := p.Process(data)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintf(p.out, "=== Dry-run: %s ===\n", inputPath)
		fmt.Fprintln(p.out, string(output))
		p.printBodies(output)
		return nil
	}

	if err := os.WriteFile(outputPath, output, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	p.logger.Debug("file processed",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("mode", string(p.mode)))
	return nil
}

// printBodies 格式化输出结果中的原始 JSON 正文
func (p *Processor) printBodies(output []byte) {
	var file groupFile
	if err := yaml.Unmarshal(bytes.TrimPrefix(output, bom), &file); err != nil {
		return
	}
	for _, m := range file.Messages {
		if !m.isRaw() {
			continue
		}
		fmt.Fprintf(p.out, "--- body %s ---\n", m.Metadata.ID)
		p.out.Write(pretty.Pretty([]byte(m.Body)))
	}
	fmt.Fprintln(p.out)
}

// ProcessDirectory 批量处理目录下的所有 YAML 文件
func (p *Processor) ProcessDirectory(inputDir, outputDir string, dryRun, backup bool) error {
	// 确保输出目录存在
	if !dryRun && outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	return filepath.Walk(inputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// 只处理 .yaml 和 .yml 文件
		if info.IsDir() || (!strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml")) {
			return nil
		}

		relPath, err := filepath.Rel(inputDir, path)
		if err != nil {
			return err
		}

		outputPath := path // 原地修改
		if outputDir != "" {
			outputPath = filepath.Join(outputDir, relPath)
			if !dryRun {
				if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
			}
		}

		if backup && !dryRun && outputDir == "" {
			if err := Backup(path); err != nil {
				return err
			}
		}

		fmt.Fprintf(p.out, "Processing: %s\n", path)
		if err := p.ProcessFile(path, outputPath, dryRun); err != nil {
			return fmt.Errorf("process %s: %w", path, err)
		}

		return nil
	})
}

// Backup 把文件复制为同名的 .bak 文件
func Backup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("backup file: %w", err)
	}
	if err := os.WriteFile(path+".bak", data, 0644); err != nil {
		return fmt.Errorf("backup file: %w", err)
	}
	return nil
}
