// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package builtin

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/liminal-stream/engine/internal/config"
	"github.com/liminal-stream/engine/internal/message"
	"github.com/liminal-stream/engine/internal/processor"
)

func init() {
	processor.Register("file", newFileProcessor)
}

// fileOutputFormat selects how payloads are serialised to disk.
type fileOutputFormat string

const (
	fileFormatJSON   fileOutputFormat = "json"
	fileFormatPretty fileOutputFormat = "pretty"
	fileFormatCSV    fileOutputFormat = "csv"
	fileFormatText   fileOutputFormat = "text"
)

// fileProcessor writes every received message to a file, grounded on the
// reference implementation's FileOutputProcessor.
type fileProcessor struct {
	name       string
	path       string
	format     fileOutputFormat
	append     bool
	createDirs bool
	autoFlush  bool

	file   *os.File
	writer *bufio.Writer
}

func newFileProcessor(name string, cfg config.StageConfig) (processor.Processor, error) {
	path := processor.ExtractParam(cfg.Parameters, "file_path", "")
	if path == "" {
		return nil, fmt.Errorf("file %q: file_path parameter is required", name)
	}
	return &fileProcessor{
		name:       name,
		path:       path,
		format:     fileOutputFormat(processor.ExtractParam(cfg.Parameters, "format", string(fileFormatJSON))),
		append:     processor.ExtractParam(cfg.Parameters, "append", true),
		createDirs: processor.ExtractParam(cfg.Parameters, "create_dirs", true),
		autoFlush:  processor.ExtractParam(cfg.Parameters, "auto_flush", false),
	}, nil
}

func (p *fileProcessor) Init(ctx context.Context) error {
	if p.createDirs {
		if dir := filepath.Dir(p.path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("file %q: creating directory %q: %w", p.name, dir, err)
			}
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if p.append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(p.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("file %q: opening %q: %w", p.name, p.path, err)
	}
	p.file = f
	p.writer = bufio.NewWriterSize(f, 8192)
	return nil
}

func (p *fileProcessor) Process(ctx context.Context, pc *processor.ProcessingContext) error {
	written := 0
	for inputName, sub := range pc.Inputs {
		for {
			msg, ok := sub.TryRecv()
			if !ok {
				break
			}
			if err := p.writeMessage(inputName, msg); err != nil {
				return fmt.Errorf("file %q: writing message from %q: %w", p.name, inputName, err)
			}
			written++
		}
	}

	if written > 0 && !p.autoFlush {
		if err := p.writer.Flush(); err != nil {
			return fmt.Errorf("file %q: flushing: %w", p.name, err)
		}
	}
	if written == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(idleDelay):
		}
	}
	return nil
}

func (p *fileProcessor) writeMessage(inputName string, msg message.Message) error {
	switch p.format {
	case fileFormatPretty:
		b, err := message.MarshalPayload(msg.Payload)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.writer, "%s\n", b)
		return err
	case fileFormatCSV:
		obj, ok := msg.Payload.(map[string]any)
		if !ok {
			return fmt.Errorf("csv format requires an object payload")
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make([]string, len(keys))
		for i, k := range keys {
			values[i] = fmt.Sprintf("%v", obj[k])
		}
		_, err := fmt.Fprintf(p.writer, "%s\n", strings.Join(values, ","))
		return err
	case fileFormatText:
		b, err := message.MarshalPayload(msg.Payload)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.writer, "[%s] %s\n", inputName, b)
		return err
	default: // json
		b, err := message.MarshalPayload(msg.Payload)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.writer, "%s\n", b)
		if err == nil && p.autoFlush {
			err = p.writer.Flush()
		}
		return err
	}
}
