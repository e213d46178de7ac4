package domain

import (
	"sort"
	"time"
)

// SummaryKey addresses one cell of a station summary.
type SummaryKey struct {
	StationID string
	Kind      string
}

// SummaryCell is one populated cell of a station summary.
type SummaryCell struct {
	StationID string  `json:"station_id"`
	Kind      string  `json:"measurement_kind"`
	Mean      float64 `json:"mean"`
}

// SummaryTable is a station x measurement-kind matrix of mean values.
// A (station, kind) pair with no known-kind observations has no cell;
// absence is distinct from a mean of zero.
type SummaryTable struct {
	Stations    []string // sorted station ids with at least one cell
	Kinds       []string // sorted kinds with at least one cell
	GeneratedAt time.Time

	cells map[SummaryKey]float64
}

// Mean returns the mean for (station, kind) and whether the cell exists.
func (t SummaryTable) Mean(station, kind string) (float64, bool) {
	v, ok := t.cells[SummaryKey{StationID: station, Kind: kind}]
	return v, ok
}

// Size returns the number of populated cells.
func (t SummaryTable) Size() int { return len(t.cells) }

// Cells returns the populated cells ordered by station id, then kind.
func (t SummaryTable) Cells() []SummaryCell {
	out := make([]SummaryCell, 0, len(t.cells))
	for _, station := range t.Stations {
		for _, kind := range t.Kinds {
			if v, ok := t.cells[SummaryKey{StationID: station, Kind: kind}]; ok {
				out = append(out, SummaryCell{StationID: station, Kind: kind, Mean: v})
			}
		}
	}
	return out
}

// Summarize groups readings by (station, kind), restricted to rows with a
// known kind, and computes the arithmetic mean per group. It is a pure
// function of its input. Values are collected and sorted before summing, so
// any input row order produces bit-identical means.
func Summarize(readings []Reading) SummaryTable {
	groups := make(map[SummaryKey][]float64)
	for _, r := range readings {
		if !r.Known() || r.Value == nil {
			continue
		}
		key := SummaryKey{StationID: r.StationID, Kind: r.Kind}
		groups[key] = append(groups[key], *r.Value)
	}

	cells := make(map[SummaryKey]float64, len(groups))
	stationSet := make(map[string]struct{})
	kindSet := make(map[string]struct{})
	for key, values := range groups {
		sort.Float64s(values)
		var sum float64
		for _, v := range values {
			sum += v
		}
		cells[key] = sum / float64(len(values))
		stationSet[key.StationID] = struct{}{}
		kindSet[key.Kind] = struct{}{}
	}

	return SummaryTable{
		Stations:    sortedKeys(stationSet),
		Kinds:       sortedKeys(kindSet),
		GeneratedAt: clock.Now(),
		cells:       cells,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
