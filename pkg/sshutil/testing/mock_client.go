// Package testing provides an in-memory SSH client for exercising remote
// dispatch without a network.
package testing

import (
	"context"
	"errors"
	"regexp"
	"sync"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
	// Block makes the command hang until the caller's context ends.
	Block bool
}

// MockClient simulates an SSH connection for testing. Commands are matched
// exactly first, then as regular expressions in registration order.
type MockClient struct {
	mu       sync.Mutex
	closed   bool
	patterns []string
	commands map[string]CommandResponse
	history  []string
}

// NewMockClient creates a mock client with no configured responses. Unknown
// commands exit 127 with a "command not found" message.
func NewMockClient() *MockClient {
	return &MockClient{
		commands: make(map[string]CommandResponse),
	}
}

// SetCommandResponse configures the response for a command or pattern.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.commands[pattern]; !ok {
		m.patterns = append(m.patterns, pattern)
	}
	m.commands[pattern] = resp
}

// ExecContext returns the configured response for cmd.
func (m *MockClient) ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, -1, errors.New("connection closed")
	}
	m.history = append(m.history, cmd)
	resp, ok := m.lookup(cmd)
	m.mu.Unlock()

	if !ok {
		return nil, []byte("sh: command not found\n"), 127, nil
	}
	if resp.Block {
		<-ctx.Done()
		return nil, nil, -1, ctx.Err()
	}
	return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
}

func (m *MockClient) lookup(cmd string) (CommandResponse, bool) {
	if resp, ok := m.commands[cmd]; ok {
		return resp, true
	}
	for _, pattern := range m.patterns {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			return m.commands[pattern], true
		}
	}
	return CommandResponse{}, false
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (m *MockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Commands returns every command passed to ExecContext, in order.
func (m *MockClient) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}
