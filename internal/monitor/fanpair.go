package monitor

import (
	"sort"
	"strings"

	"devicemonitor/internal/hardware"
)

// Fan status values returned alongside a percentage.
const (
	StatusOK          = 0
	StatusUnavailable = -1
)

// pairWildcard replaces "fan" and "control" in identifiers so that a fan and
// its controller, e.g. /lpc/nct6798d/fan/1 and /lpc/nct6798d/control/1,
// share one key.
const pairWildcard = "*"

// CanonicalPairKey returns the pairing key for a sensor identifier. Matching
// is case-sensitive: LibreHardwareMonitor and hwmon both emit lower-case
// identifier segments.
func CanonicalPairKey(identifier string) string {
	key := strings.ReplaceAll(identifier, "fan", pairWildcard)
	return strings.ReplaceAll(key, "control", pairWildcard)
}

// FanPairGroup is a set of fan/control sensors sharing a canonical key.
type FanPairGroup struct {
	Key     string
	Members []hardware.Sensor
}

// GroupFanPairs keeps nonzero Fan and Control sensors, groups them by
// canonical key, and returns the groups sorted by key with members sorted by
// sensor type.
func GroupFanPairs(sensors []hardware.Sensor) []FanPairGroup {
	index := make(map[string]int)
	var groups []FanPairGroup

	for _, s := range sensors {
		if s.Type != hardware.SensorFan && s.Type != hardware.SensorControl {
			continue
		}
		if s.Value == 0 {
			continue
		}

		key := CanonicalPairKey(s.Identifier)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, FanPairGroup{Key: key})
		}
		groups[i].Members = append(groups[i].Members, s)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	for _, g := range groups {
		members := g.Members
		sort.SliceStable(members, func(i, j int) bool { return members[i].Type < members[j].Type })
	}
	return groups
}

// ResolveFanPercentage picks the first group with exactly one fan and one
// controller candidate and returns the controller's value as a whole
// percentage.
func ResolveFanPercentage(sensors []hardware.Sensor) (int, bool) {
	for _, g := range GroupFanPairs(sensors) {
		if len(g.Members) != 2 {
			continue
		}
		for _, s := range g.Members {
			if s.Type == hardware.SensorControl {
				return int(s.Value), true
			}
		}
		// First two-member group decides even without a controller.
		return 0, false
	}
	return 0, false
}
