// Package hwmon builds the hardware tree from Linux hardware monitors. The
// CPU node carries the CPU package and core temperatures reported by
// gopsutil; the motherboard node has one sub-hardware per sysfs hwmon chip
// exposing fans (fan*_input) and their PWM controls (pwm*).
package hwmon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/host"

	"devicemonitor/internal/hardware"
	"devicemonitor/internal/logger"
)

// DefaultSysfsRoot is where the kernel exposes hwmon chips.
const DefaultSysfsRoot = "/sys/class/hwmon"

const (
	cpuIdentifier   = "/hwmon/cpu"
	boardIdentifier = "/hwmon/motherboard"
)

// cpuChips are the chip prefixes whose temperatures belong to the CPU.
var cpuChips = []string{"coretemp", "k10temp", "zenpower"}

// TemperatureFunc returns the host temperature sensors.
type TemperatureFunc func(ctx context.Context) ([]host.TemperatureStat, error)

// Config configures a Provider.
type Config struct {
	SysfsRoot    string
	Temperatures TemperatureFunc
}

// Provider opens computers over the local hwmon chips.
type Provider struct {
	root  string
	temps TemperatureFunc
}

// NewProvider creates a provider. Zero config fields use the live system.
func NewProvider(cfg Config) *Provider {
	if cfg.SysfsRoot == "" {
		cfg.SysfsRoot = DefaultSysfsRoot
	}
	if cfg.Temperatures == nil {
		cfg.Temperatures = host.SensorsTemperaturesWithContext
	}
	return &Provider{root: cfg.SysfsRoot, temps: cfg.Temperatures}
}

// Open returns a computer with no subsystem enabled.
func (p *Provider) Open(ctx context.Context) (hardware.Computer, error) {
	return &computer{provider: p, enabled: make(map[hardware.Subsystem]bool)}, nil
}

type computer struct {
	provider *Provider

	mu      sync.Mutex
	enabled map[hardware.Subsystem]bool
	closed  bool
}

func (c *computer) Enable(s hardware.Subsystem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled[s] = true
}

func (c *computer) Hardware(ctx context.Context) ([]hardware.Hardware, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, hardware.ErrComputerClosed
	}

	var hw []hardware.Hardware
	if c.enabled[hardware.SubsystemCPU] {
		hw = append(hw, &cpuNode{temps: c.provider.temps})
	}
	if c.enabled[hardware.SubsystemMotherboard] {
		chips, err := listChips(c.provider.root)
		if err != nil {
			return nil, err
		}
		board := &boardNode{}
		for _, chip := range chips {
			board.subs = append(board.subs, chip)
		}
		hw = append(hw, board)
	}
	return hw, nil
}

func (c *computer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// cpuNode reports CPU temperatures.
type cpuNode struct {
	temps TemperatureFunc

	mu      sync.Mutex
	sensors []hardware.Sensor
}

func (n *cpuNode) Type() hardware.HardwareType      { return hardware.TypeCPU }
func (n *cpuNode) Identifier() string               { return cpuIdentifier }
func (n *cpuNode) Name() string                     { return "CPU" }
func (n *cpuNode) SubHardware() []hardware.Hardware { return nil }

func (n *cpuNode) Update(ctx context.Context) error {
	stats, err := n.temps(ctx)
	if err != nil && len(stats) == 0 {
		return fmt.Errorf("failed to read temperatures: %w", err)
	}
	if err != nil {
		log := logger.WithComponent("hwmon")
		log.Debug().Err(err).Msg("Partial temperature read")
	}

	var sensors []hardware.Sensor
	for _, st := range stats {
		label, ok := cpuLabel(st.SensorKey)
		if !ok {
			continue
		}
		sensors = append(sensors, hardware.Sensor{
			Identifier: fmt.Sprintf("%s/temperature/%d", cpuIdentifier, len(sensors)),
			Name:       SensorName(label),
			Type:       hardware.SensorTemperature,
			Value:      st.Temperature,
			Hardware:   cpuIdentifier,
		})
	}

	n.mu.Lock()
	n.sensors = sensors
	n.mu.Unlock()
	return nil
}

func (n *cpuNode) Sensors() []hardware.Sensor {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]hardware.Sensor(nil), n.sensors...)
}

// cpuLabel strips a CPU chip prefix from a gopsutil sensor key such as
// "coretemp_package_id_0". ok is false for keys of other chips.
func cpuLabel(key string) (label string, ok bool) {
	for _, chip := range cpuChips {
		if !strings.HasPrefix(key, chip) {
			continue
		}
		rest := strings.TrimPrefix(key, chip)
		// zenpower3 and similar suffixed chip names
		rest = strings.TrimLeft(rest, "0123456789")
		return strings.TrimPrefix(rest, "_"), true
	}
	return "", false
}

// SensorName maps a hwmon temperature label to the name LibreHardwareMonitor
// gives the same sensor, so one selection rule set serves every provider.
func SensorName(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.HasPrefix(l, "package_id"), strings.HasPrefix(l, "package id"):
		return "CPU Package"
	case l == "tctl":
		return "Core (Tctl/Tdie)"
	case l == "tdie":
		return "Core (Tdie)"
	case strings.HasPrefix(l, "tccd"):
		return "CCD" + strings.TrimPrefix(l, "tccd") + " (Tdie)"
	case strings.HasPrefix(l, "core_"), strings.HasPrefix(l, "core "):
		if n, err := strconv.Atoi(l[len("core_"):]); err == nil {
			return fmt.Sprintf("CPU Core #%d", n+1)
		}
	}
	return label
}

// boardNode groups the fan chips. It has no sensors of its own.
type boardNode struct {
	subs []hardware.Hardware
}

func (n *boardNode) Type() hardware.HardwareType      { return hardware.TypeMotherboard }
func (n *boardNode) Identifier() string               { return boardIdentifier }
func (n *boardNode) Name() string                     { return "Motherboard" }
func (n *boardNode) Update(ctx context.Context) error { return nil }
func (n *boardNode) Sensors() []hardware.Sensor       { return nil }
func (n *boardNode) SubHardware() []hardware.Hardware { return n.subs }

// chipNode is one hwmon directory with fans or PWM outputs.
type chipNode struct {
	dir  string
	id   string
	name string

	mu      sync.Mutex
	sensors []hardware.Sensor
}

// listChips returns the hwmon chips under root that expose fans or PWM
// outputs, ordered by directory name.
func listChips(root string) ([]*chipNode, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	var chips []*chipNode
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		if len(indexedFiles(dir, "fan", "_input")) == 0 && len(indexedFiles(dir, "pwm", "")) == 0 {
			continue
		}
		chips = append(chips, &chipNode{
			dir:  dir,
			id:   "/hwmon/" + e.Name(),
			name: chipName(dir),
		})
	}
	return chips, nil
}

func chipName(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "name"))
	if err != nil {
		return filepath.Base(dir)
	}
	return strings.TrimSpace(string(data))
}

func (n *chipNode) Type() hardware.HardwareType      { return hardware.TypeSuperIO }
func (n *chipNode) Identifier() string               { return n.id }
func (n *chipNode) Name() string                     { return n.name }
func (n *chipNode) SubHardware() []hardware.Hardware { return nil }

// Update re-reads fan speeds and PWM duty cycles. Unreadable channels are
// skipped.
func (n *chipNode) Update(ctx context.Context) error {
	var sensors []hardware.Sensor

	for _, idx := range indexedFiles(n.dir, "fan", "_input") {
		rpm, err := readNumber(filepath.Join(n.dir, "fan"+idx+"_input"))
		if err != nil {
			continue
		}
		sensors = append(sensors, hardware.Sensor{
			Identifier: n.id + "/fan/" + idx,
			Name:       n.label("fan"+idx, "Fan #"+idx),
			Type:       hardware.SensorFan,
			Value:      rpm,
			Hardware:   n.id,
		})
	}

	for _, idx := range indexedFiles(n.dir, "pwm", "") {
		duty, err := readNumber(filepath.Join(n.dir, "pwm"+idx))
		if err != nil {
			continue
		}
		sensors = append(sensors, hardware.Sensor{
			Identifier: n.id + "/control/" + idx,
			Name:       "Fan Control #" + idx,
			Type:       hardware.SensorControl,
			Value:      duty / 255 * 100,
			Hardware:   n.id,
		})
	}

	n.mu.Lock()
	n.sensors = sensors
	n.mu.Unlock()
	return nil
}

func (n *chipNode) Sensors() []hardware.Sensor {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]hardware.Sensor(nil), n.sensors...)
}

func (n *chipNode) label(prefix, fallback string) string {
	data, err := os.ReadFile(filepath.Join(n.dir, prefix+"_label"))
	if err != nil {
		return fallback
	}
	if l := strings.TrimSpace(string(data)); l != "" {
		return l
	}
	return fallback
}

// indexedFiles returns the channel numbers N of files named prefix+N+suffix
// in dir, in numeric order.
func indexedFiles(dir, prefix, suffix string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var idx []int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		num := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
		n, err := strconv.Atoi(num)
		if err != nil || n < 0 || strconv.Itoa(n) != num {
			continue
		}
		idx = append(idx, n)
	}
	sort.Ints(idx)

	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = strconv.Itoa(n)
	}
	return out
}

func readNumber(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
}
