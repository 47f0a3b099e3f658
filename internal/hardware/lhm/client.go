// Package lhm serves the hardware tree from a long-running
// LibreHardwareMonitor helper process. The helper speaks one JSON request
// per stdin line and answers with one JSON response per stdout line.
package lhm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"devicemonitor/internal/hardware"
	"devicemonitor/internal/logger"
)

const (
	// CommandList asks for the hardware nodes of the given subsystems.
	CommandList = "list"
	// CommandUpdate refreshes one node and returns its sensors.
	CommandUpdate = "update"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	stopTimeout           = 5 * time.Second
	maxBackoff            = 60 * time.Second
)

var (
	// ErrNotStarted is returned when the helper has not been started or was stopped.
	ErrNotStarted = errors.New("lhm helper not started")
	// ErrHelper wraps errors reported by the helper itself.
	ErrHelper = errors.New("lhm helper error")
)

// Request is one line written to the helper.
type Request struct {
	Command    string   `json:"Command"`
	Subsystems []string `json:"Subsystems,omitempty"`
	Identifier string   `json:"Identifier,omitempty"`
}

// Response is one line read from the helper.
type Response struct {
	Hardware []*hardware.Node  `json:"Hardware,omitempty"`
	Sensors  []hardware.Sensor `json:"Sensors,omitempty"`
	Error    string            `json:"Error,omitempty"`
}

// Config configures a Client.
type Config struct {
	// HelperPath is the helper executable. Empty searches the usual locations.
	HelperPath     string
	RequestTimeout time.Duration
	Clock          clock.Clock
}

// Client owns the helper process. Requests are serialized; a dead helper is
// restarted on the next request with exponential backoff.
type Client struct {
	mu             sync.Mutex
	helperPath     string
	requestTimeout time.Duration
	clock          clock.Clock

	cmd         *exec.Cmd
	stdin       io.WriteCloser
	stdout      *bufio.Reader
	stderr      io.ReadCloser
	processExit chan struct{} // closed when the process exits

	consecutiveFailures int
	lastStartAttempt    time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewClient creates a client. The helper is not launched until Start.
func NewClient(cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Client{
		helperPath:     cfg.HelperPath,
		requestTimeout: cfg.RequestTimeout,
		clock:          cfg.Clock,
	}
}

// Start locates and launches the helper. Failure is not fatal to callers:
// queries then report unavailable readings.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	path, err := findHelper(c.helperPath)
	if err != nil {
		return err
	}
	c.helperPath = path

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.lastStartAttempt = c.clock.Now()

	if err := c.startProcess(); err != nil {
		c.started = false
		c.cancel()
		return fmt.Errorf("failed to start lhm helper: %w", err)
	}
	return nil
}

// Stop shuts the helper down.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return
	}
	c.started = false
	c.stopProcess()
	c.cancel()
}

// Started reports whether Start succeeded and Stop has not been called.
func (c *Client) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Do sends one request and waits for its response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil, ErrNotStarted
	}

	log := logger.WithComponent("lhm")

	if !c.isProcessAlive() {
		log.Warn().Msg("LHM helper process is dead, attempting restart")
		if err := c.restartWithBackoff(); err != nil {
			return nil, err
		}
	}

	resp, err := c.doRequestWithTimeout(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("command", req.Command).Msg("LHM helper request failed, stopping process for restart on next call")
		c.consecutiveFailures++
		c.stopProcess()
		return nil, fmt.Errorf("lhm helper request failed: %w", err)
	}
	c.consecutiveFailures = 0

	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrHelper, resp.Error)
	}
	return resp, nil
}

func (c *Client) startProcess() error {
	log := logger.WithComponent("lhm")

	cmd := exec.Command(c.helperPath, "--daemon")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", c.helperPath, err)
	}

	c.cmd = cmd
	c.stdin = stdin
	c.stdout = bufio.NewReaderSize(stdout, 256*1024)
	c.stderr = stderr
	c.processExit = make(chan struct{})

	// A restart replaces processExit, so the goroutine closes its own copy.
	exitCh := c.processExit
	go func() {
		cmd.Wait()
		close(exitCh)
	}()
	go drainStderr(stderr)

	log.Info().Int("pid", cmd.Process.Pid).Str("path", c.helperPath).Msg("LHM helper started")

	// An empty list validates the helper opened its computer.
	resp, err := c.doRequestWithTimeout(c.ctx, Request{Command: CommandList})
	if err != nil {
		c.stopProcess()
		return fmt.Errorf("initial request failed: %w", err)
	}
	if resp.Error != "" {
		c.stopProcess()
		return fmt.Errorf("%w: %s", ErrHelper, resp.Error)
	}

	c.consecutiveFailures = 0
	log.Info().Msg("LHM helper ready")
	return nil
}

// stopProcess closes stdin so the helper exits, killing it if it does not.
func (c *Client) stopProcess() {
	if c.cmd == nil || c.cmd.Process == nil {
		return
	}

	log := logger.WithComponent("lhm")
	pid := c.cmd.Process.Pid

	if c.stdin != nil {
		c.stdin.Close()
		c.stdin = nil
	}
	if c.stderr != nil {
		c.stderr.Close()
		c.stderr = nil
	}

	select {
	case <-c.processExit:
		log.Info().Int("pid", pid).Msg("LHM helper stopped")
	case <-time.After(stopTimeout):
		log.Warn().Int("pid", pid).Msg("LHM helper did not exit in time, killing")
		c.cmd.Process.Kill()
		<-c.processExit
	}

	c.cmd = nil
	c.stdout = nil
}

func drainStderr(r io.Reader) {
	log := logger.WithComponent("lhm-helper")
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Info().Str("stderr", scanner.Text()).Msg("LHM helper")
	}
}

// doRequestWithTimeout performs one round trip. The pipes are captured up
// front because stopProcess may clear them once the deadline fires.
func (c *Client) doRequestWithTimeout(ctx context.Context, req Request) (*Response, error) {
	stdin, stdout := c.stdin, c.stdout
	if stdin == nil || stdout == nil {
		return nil, errors.New("helper pipes not available")
	}

	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	line = append(line, '\n')

	type result struct {
		resp *Response
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		if _, err := stdin.Write(line); err != nil {
			ch <- result{nil, fmt.Errorf("failed to write to helper stdin: %w", err)}
			return
		}
		out, err := stdout.ReadBytes('\n')
		if err != nil {
			ch <- result{nil, fmt.Errorf("failed to read from helper stdout: %w", err)}
			return
		}
		var resp Response
		if err := json.Unmarshal(out, &resp); err != nil {
			ch <- result{nil, fmt.Errorf("failed to parse helper response (%d bytes): %w", len(out), err)}
			return
		}
		ch <- result{&resp, nil}
	}()

	timer := c.clock.Timer(c.requestTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil, fmt.Errorf("request timed out (%v)", c.requestTimeout)
	}
}

func (c *Client) isProcessAlive() bool {
	if c.cmd == nil || c.cmd.Process == nil {
		return false
	}
	select {
	case <-c.processExit:
		return false
	default:
		return true
	}
}

// backoff returns 1s, 2s, 4s ... capped at maxBackoff.
func backoff(failures int) time.Duration {
	if failures > 6 {
		return maxBackoff
	}
	d := time.Duration(1<<failures) * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// restartWithBackoff must be called with c.mu held. The lock is released
// while waiting so Stop can proceed.
func (c *Client) restartWithBackoff() error {
	log := logger.WithComponent("lhm")

	wait := backoff(c.consecutiveFailures) - c.clock.Since(c.lastStartAttempt)
	if wait > 0 {
		log.Warn().
			Int("consecutive_failures", c.consecutiveFailures).
			Dur("backoff_wait", wait).
			Msg("LHM helper restart backoff")

		c.mu.Unlock()
		select {
		case <-c.clock.After(wait):
		case <-c.ctx.Done():
			c.mu.Lock()
			return fmt.Errorf("lhm helper restart cancelled: %w", c.ctx.Err())
		}
		c.mu.Lock()

		if !c.started {
			return ErrNotStarted
		}
	}

	c.lastStartAttempt = c.clock.Now()
	log.Info().Int("consecutive_failures", c.consecutiveFailures).Msg("Restarting LHM helper")

	c.stopProcess()
	if err := c.startProcess(); err != nil {
		c.consecutiveFailures++
		return fmt.Errorf("lhm helper restart failed (attempt %d): %w", c.consecutiveFailures, err)
	}
	return nil
}
