package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// Executor runs feedback plugins with timeout support. A slow speech
// synthesizer must never hold up the frame loop's announcements for long.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates a new Executor with the specified per-call timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Execute runs a plugin with the given request and returns its response.
// The request is marshaled to JSON and written to the plugin's stdin; the
// plugin's stdout is parsed as a Response.
func (e *Executor) Execute(plugin *Plugin, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("plugin execution timeout after %s", e.timeout)
	}
	if err != nil {
		if stderrStr := stderr.String(); stderrStr != "" {
			return nil, fmt.Errorf("plugin execution failed: %w, stderr: %s", err, stderrStr)
		}
		return nil, fmt.Errorf("plugin execution failed: %w", err)
	}

	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("parse plugin response: %w, stdout: %s", err, stdout.String())
	}

	return &response, nil
}

// PluginSink delivers feedback through one discovered plugin.
type PluginSink struct {
	plugin   *Plugin
	executor *Executor

	mu       sync.Mutex
	exercise string
}

// NewPluginSink creates a sink that announces through the given plugin.
func NewPluginSink(plugin *Plugin, executor *Executor) *PluginSink {
	return &PluginSink{plugin: plugin, executor: executor}
}

// SetExercise tags subsequent announcements with the active exercise id.
// Safe to call while announcements are being delivered.
func (s *PluginSink) SetExercise(id string) {
	s.mu.Lock()
	s.exercise = id
	s.mu.Unlock()
}

// Announce delivers the text to the plugin.
func (s *PluginSink) Announce(text string) error {
	s.mu.Lock()
	exercise := s.exercise
	s.mu.Unlock()

	resp, err := s.executor.Execute(s.plugin, &Request{
		Event:    "feedback",
		Text:     text,
		Exercise: exercise,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s: %s", s.plugin.Manifest.Name, resp.Error)
	}
	return nil
}

// SinksFromDir discovers plugins under dir and returns one sink per
// plugin, always including a LogSink so feedback is never silently lost.
func SinksFromDir(dir string, timeout time.Duration) (MultiSink, error) {
	sinks := MultiSink{LogSink{}}

	manager := NewManager(dir)
	if err := manager.Discover(); err != nil {
		return sinks, err
	}

	executor := NewExecutor(timeout)
	for _, plugin := range manager.List() {
		sinks = append(sinks, NewPluginSink(plugin, executor))
	}
	return sinks, nil
}
