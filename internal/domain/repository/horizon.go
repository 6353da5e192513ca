package repository

import "fmt"

// Horizon is a forward forecast offset, normalized to whole hours.
type Horizon int

const (
	Horizon1h  Horizon = 1
	Horizon4h  Horizon = 4
	Horizon24h Horizon = 24
	Horizon7d  Horizon = 7 * 24
)

var horizonLabels = map[string]Horizon{
	"1h":  Horizon1h,
	"4h":  Horizon4h,
	"24h": Horizon24h,
	"1d":  Horizon24h,
	"7d":  Horizon7d,
}

// ParseHorizon maps a request label to hours. Unknown labels fold to 24h,
// mirroring how callers treat a day as the default forecast window.
func ParseHorizon(label string) Horizon {
	if h, ok := horizonLabels[label]; ok {
		return h
	}
	return Horizon24h
}

// Hours returns the horizon as an hour count.
func (h Horizon) Hours() int { return int(h) }

// Label formats the horizon back into its canonical request label.
func (h Horizon) Label() string {
	switch h {
	case Horizon1h:
		return "1h"
	case Horizon4h:
		return "4h"
	case Horizon24h:
		return "24h"
	case Horizon7d:
		return "7d"
	}
	return fmt.Sprintf("%dh", int(h))
}

// ParseHorizons maps labels to horizons, deduplicating while preserving the
// caller's order. An empty input yields the default set.
func ParseHorizons(labels []string) []Horizon {
	if len(labels) == 0 {
		return DefaultHorizons()
	}
	seen := make(map[Horizon]bool, len(labels))
	out := make([]Horizon, 0, len(labels))
	for _, l := range labels {
		h := ParseHorizon(l)
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}

// DefaultHorizons is the full supported set, in ascending order.
func DefaultHorizons() []Horizon {
	return []Horizon{Horizon1h, Horizon4h, Horizon24h, Horizon7d}
}
