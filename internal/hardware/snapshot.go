package hardware

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// Node is the JSON form of a hardware node. It is shared by snapshot files
// and the LHM helper protocol.
type Node struct {
	Type        HardwareType `json:"HardwareType"`
	Identifier  string       `json:"Identifier"`
	Name        string       `json:"Name"`
	Sensors     []Sensor     `json:"Sensors"`
	SubHardware []*Node      `json:"SubHardware,omitempty"`
}

// Snapshot is the content of a hardware snapshot file.
type Snapshot struct {
	Hardware []*Node `json:"Hardware"`
}

// StaticProvider serves a fixed in-memory tree. Every Open returns a new
// computer over the same nodes.
type StaticProvider struct {
	nodes []*Node

	// OnUpdate, if set, is called each time a node is updated.
	OnUpdate func(h Hardware)

	opened atomic.Int64
	closed atomic.Int64
}

// NewStaticProvider creates a provider over the given top-level nodes.
func NewStaticProvider(nodes ...*Node) *StaticProvider {
	return &StaticProvider{nodes: nodes}
}

// Open returns a computer with no subsystem enabled.
func (p *StaticProvider) Open(ctx context.Context) (Computer, error) {
	p.opened.Add(1)
	return newStaticComputer(p.nodes, p.OnUpdate, func() { p.closed.Add(1) }), nil
}

// Opened returns how many computers have been opened.
func (p *StaticProvider) Opened() int64 { return p.opened.Load() }

// Closed returns how many computers have been closed.
func (p *StaticProvider) Closed() int64 { return p.closed.Load() }

// SnapshotProvider reads a snapshot file on every Open, so each query sees
// the file as it is at that moment.
type SnapshotProvider struct {
	path string
}

// NewSnapshotProvider creates a provider backed by the JSON file at path.
func NewSnapshotProvider(path string) *SnapshotProvider {
	return &SnapshotProvider{path: path}
}

// Open loads the snapshot file.
func (p *SnapshotProvider) Open(ctx context.Context) (Computer, error) {
	snap, err := LoadSnapshot(p.path)
	if err != nil {
		return nil, err
	}
	return newStaticComputer(snap.Hardware, nil, nil), nil
}

// LoadSnapshot reads and parses a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hardware snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse hardware snapshot: %w", err)
	}
	return &snap, nil
}

type staticComputer struct {
	nodes    []*Node
	onUpdate func(Hardware)
	onClose  func()

	mu      sync.Mutex
	enabled map[Subsystem]bool
	closed  bool
}

func newStaticComputer(nodes []*Node, onUpdate func(Hardware), onClose func()) *staticComputer {
	return &staticComputer{
		nodes:    nodes,
		onUpdate: onUpdate,
		onClose:  onClose,
		enabled:  make(map[Subsystem]bool),
	}
}

func (c *staticComputer) Enable(s Subsystem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled[s] = true
}

func (c *staticComputer) Hardware(ctx context.Context) ([]Hardware, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrComputerClosed
	}

	var hw []Hardware
	for _, n := range c.nodes {
		for s := range c.enabled {
			if s.Covers(n.Type) {
				hw = append(hw, &staticHardware{node: n, onUpdate: c.onUpdate})
				break
			}
		}
	}
	return hw, nil
}

func (c *staticComputer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.onClose != nil {
		c.onClose()
	}
	return nil
}

type staticHardware struct {
	node     *Node
	onUpdate func(Hardware)
}

func (h *staticHardware) Type() HardwareType { return h.node.Type }
func (h *staticHardware) Identifier() string { return h.node.Identifier }
func (h *staticHardware) Name() string       { return h.node.Name }

func (h *staticHardware) Update(ctx context.Context) error {
	if h.onUpdate != nil {
		h.onUpdate(h)
	}
	return nil
}

func (h *staticHardware) Sensors() []Sensor {
	return OwnedSensors(h.node.Identifier, h.node.Sensors)
}

func (h *staticHardware) SubHardware() []Hardware {
	subs := make([]Hardware, 0, len(h.node.SubHardware))
	for _, n := range h.node.SubHardware {
		subs = append(subs, &staticHardware{node: n, onUpdate: h.onUpdate})
	}
	return subs
}

// OwnedSensors copies sensors, filling in owner where the owner is missing.
func OwnedSensors(owner string, sensors []Sensor) []Sensor {
	out := make([]Sensor, len(sensors))
	for i, s := range sensors {
		if s.Hardware == "" {
			s.Hardware = owner
		}
		out[i] = s
	}
	return out
}

// Capture opens a computer from p, updates the given subsystems and returns
// the tree as a Snapshot that SnapshotProvider can replay.
func Capture(ctx context.Context, p Provider, subsystems ...Subsystem) (*Snapshot, error) {
	c, err := p.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	for _, s := range subsystems {
		c.Enable(s)
	}
	hw, err := Traverse(ctx, c, nil)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	for _, h := range hw {
		snap.Hardware = append(snap.Hardware, toNode(h))
	}
	return snap, nil
}

func toNode(h Hardware) *Node {
	n := &Node{
		Type:       h.Type(),
		Identifier: h.Identifier(),
		Name:       h.Name(),
		Sensors:    h.Sensors(),
	}
	for _, sub := range h.SubHardware() {
		n.SubHardware = append(n.SubHardware, toNode(sub))
	}
	return n
}

// WriteSnapshot writes snap to path as indented JSON.
func WriteSnapshot(path string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode hardware snapshot: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write hardware snapshot: %w", err)
	}
	return nil
}
