// liminal - configuration-driven stream processing engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liminal-stream/engine

package builtin

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/liminal-stream/engine/internal/config"
	"github.com/liminal-stream/engine/internal/message"
	"github.com/liminal-stream/engine/internal/processor"
)

func init() {
	processor.Register("tcp_input", newTCPInputProcessor)
	processor.Register("tcp_output", newTCPOutputProcessor)
}

// tcpMode selects whether a TCP stage dials out or accepts connections.
type tcpMode string

const (
	tcpModeClient tcpMode = "client"
	tcpModeServer tcpMode = "server"
)

type tcpEndpointConfig struct {
	mode              tcpMode
	host              string
	port              int
	reconnect         bool
	reconnectInterval time.Duration
}

func tcpEndpointFromStage(cfg config.StageConfig) (tcpEndpointConfig, error) {
	mode := tcpMode(processor.ExtractParam(cfg.Parameters, "mode", string(tcpModeClient)))
	if mode != tcpModeClient && mode != tcpModeServer {
		return tcpEndpointConfig{}, fmt.Errorf("invalid tcp mode %q: must be client or server", mode)
	}
	defaultHost := "localhost"
	if mode == tcpModeServer {
		defaultHost = "0.0.0.0"
	}
	return tcpEndpointConfig{
		mode:              mode,
		host:              processor.ExtractParam(cfg.Parameters, "host", defaultHost),
		port:              processor.ExtractParam(cfg.Parameters, "port", 8080),
		reconnect:         processor.ExtractParam(cfg.Parameters, "reconnect", true),
		reconnectInterval: time.Duration(processor.ExtractParam(cfg.Parameters, "reconnect_interval_ms", uint64(5000))) * time.Millisecond,
	}, nil
}

func (e tcpEndpointConfig) addr() string {
	return fmt.Sprintf("%s:%d", e.host, e.port)
}

// tcpInputProcessor reads newline-delimited JSON messages from a TCP
// connection (dialled or accepted, per mode) and republishes each line
// downstream. The reference implementation's TcpInputProcessor is an
// unimplemented stub; this engine supplies a working transport in the same
// client/server shape its TcpConfig (see common/tcp.rs) describes.
type tcpInputProcessor struct {
	name   string
	ep     tcpEndpointConfig
	lines  chan string
	ln     net.Listener
}

func newTCPInputProcessor(name string, cfg config.StageConfig) (processor.Processor, error) {
	ep, err := tcpEndpointFromStage(cfg)
	if err != nil {
		return nil, fmt.Errorf("tcp_input %q: %w", name, err)
	}
	return &tcpInputProcessor{name: name, ep: ep, lines: make(chan string, 256)}, nil
}

func (p *tcpInputProcessor) Init(ctx context.Context) error {
	switch p.ep.mode {
	case tcpModeServer:
		ln, err := net.Listen("tcp", p.ep.addr())
		if err != nil {
			return fmt.Errorf("tcp_input %q: listening on %s: %w", p.name, p.ep.addr(), err)
		}
		p.ln = ln
		go p.acceptLoop(ctx)
	case tcpModeClient:
		go p.dialLoop(ctx)
	}
	return nil
}

func (p *tcpInputProcessor) acceptLoop(ctx context.Context) {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		go p.readLoop(ctx, conn)
	}
}

func (p *tcpInputProcessor) dialLoop(ctx context.Context) {
	for {
		conn, err := net.DialTimeout("tcp", p.ep.addr(), 10*time.Second)
		if err == nil {
			p.readLoop(ctx, conn)
		}
		if !p.ep.reconnect {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.ep.reconnectInterval):
		}
	}
}

func (p *tcpInputProcessor) readLoop(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		select {
		case p.lines <- scanner.Text():
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (p *tcpInputProcessor) Process(ctx context.Context, pc *processor.ProcessingContext) error {
	select {
	case line := <-p.lines:
		payload := decodeMQTTPayload([]byte(line))
		return pc.Publish(message.New(p.name, outputTopic(pc, p.name), payload))
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(idleDelay):
		return nil
	}
}

// tcpOutputProcessor writes every received message as a newline-delimited
// JSON line to a TCP connection.
type tcpOutputProcessor struct {
	name string
	ep   tcpEndpointConfig
	ln   net.Listener
	conn net.Conn
}

func newTCPOutputProcessor(name string, cfg config.StageConfig) (processor.Processor, error) {
	ep, err := tcpEndpointFromStage(cfg)
	if err != nil {
		return nil, fmt.Errorf("tcp_output %q: %w", name, err)
	}
	return &tcpOutputProcessor{name: name, ep: ep}, nil
}

func (p *tcpOutputProcessor) Init(ctx context.Context) error {
	switch p.ep.mode {
	case tcpModeClient:
		conn, err := net.DialTimeout("tcp", p.ep.addr(), 10*time.Second)
		if err != nil {
			return fmt.Errorf("tcp_output %q: dialing %s: %w", p.name, p.ep.addr(), err)
		}
		p.conn = conn
	case tcpModeServer:
		ln, err := net.Listen("tcp", p.ep.addr())
		if err != nil {
			return fmt.Errorf("tcp_output %q: listening on %s: %w", p.name, p.ep.addr(), err)
		}
		p.ln = ln
		go func() {
			conn, err := ln.Accept()
			if err == nil {
				p.conn = conn
			}
		}()
	}
	return nil
}

func (p *tcpOutputProcessor) Process(ctx context.Context, pc *processor.ProcessingContext) error {
	if p.conn == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(idleDelay):
			return nil
		}
	}

	received := false
	for _, sub := range pc.Inputs {
		msg, ok := sub.TryRecv()
		if !ok {
			continue
		}
		received = true
		body, err := message.MarshalPayload(msg.Payload)
		if err != nil {
			return fmt.Errorf("tcp_output %q: marshalling payload: %w", p.name, err)
		}
		if _, err := p.conn.Write(append(body, '\n')); err != nil {
			return fmt.Errorf("tcp_output %q: writing: %w", p.name, err)
		}
	}
	if !received {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(idleDelay):
		}
	}
	return nil
}
