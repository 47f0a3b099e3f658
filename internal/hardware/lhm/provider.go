package lhm

import (
	"context"
	"sort"
	"sync"

	"devicemonitor/internal/hardware"
)

// Provider opens computers backed by a shared helper Client.
type Provider struct {
	client *Client
}

// NewProvider creates a provider over client. The client must be started.
func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

// Open returns a computer with no subsystem enabled. It fails when the helper
// is not running.
func (p *Provider) Open(ctx context.Context) (hardware.Computer, error) {
	if !p.client.Started() {
		return nil, ErrNotStarted
	}
	return &computer{client: p.client, enabled: make(map[hardware.Subsystem]bool)}, nil
}

type computer struct {
	client *Client

	mu      sync.Mutex
	enabled map[hardware.Subsystem]bool
	closed  bool
}

func (c *computer) Enable(s hardware.Subsystem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled[s] = true
}

func (c *computer) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Hardware asks the helper for the top-level nodes of the enabled subsystems.
func (c *computer) Hardware(ctx context.Context) ([]hardware.Hardware, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, hardware.ErrComputerClosed
	}
	subsystems := make([]hardware.Subsystem, 0, len(c.enabled))
	for s := range c.enabled {
		subsystems = append(subsystems, s)
	}
	c.mu.Unlock()

	if len(subsystems) == 0 {
		return nil, nil
	}
	sort.Slice(subsystems, func(i, j int) bool { return subsystems[i] < subsystems[j] })

	names := make([]string, len(subsystems))
	for i, s := range subsystems {
		names[i] = s.String()
	}

	resp, err := c.client.Do(ctx, Request{Command: CommandList, Subsystems: names})
	if err != nil {
		return nil, err
	}

	var hw []hardware.Hardware
	for _, n := range resp.Hardware {
		if n == nil || !covered(subsystems, n.Type) {
			continue
		}
		hw = append(hw, newNode(c, n))
	}
	return hw, nil
}

func (c *computer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func covered(subsystems []hardware.Subsystem, t hardware.HardwareType) bool {
	for _, s := range subsystems {
		if s.Covers(t) {
			return true
		}
	}
	return false
}

// node is one helper hardware node. Its sub-hardware is built once so an
// update pass and the read that follows see the same objects.
type node struct {
	computer *computer
	info     *hardware.Node
	subs     []hardware.Hardware

	mu      sync.Mutex
	sensors []hardware.Sensor
}

func newNode(c *computer, n *hardware.Node) *node {
	h := &node{
		computer: c,
		info:     n,
		sensors:  hardware.OwnedSensors(n.Identifier, n.Sensors),
	}
	for _, sub := range n.SubHardware {
		if sub != nil {
			h.subs = append(h.subs, newNode(c, sub))
		}
	}
	return h
}

func (h *node) Type() hardware.HardwareType { return h.info.Type }
func (h *node) Identifier() string          { return h.info.Identifier }
func (h *node) Name() string                { return h.info.Name }

// Update refreshes the node's sensors from the helper.
func (h *node) Update(ctx context.Context) error {
	if h.computer.isClosed() {
		return hardware.ErrComputerClosed
	}
	resp, err := h.computer.client.Do(ctx, Request{Command: CommandUpdate, Identifier: h.info.Identifier})
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.sensors = hardware.OwnedSensors(h.info.Identifier, resp.Sensors)
	h.mu.Unlock()
	return nil
}

func (h *node) Sensors() []hardware.Sensor {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]hardware.Sensor, len(h.sensors))
	copy(out, h.sensors)
	return out
}

func (h *node) SubHardware() []hardware.Hardware {
	return h.subs
}
