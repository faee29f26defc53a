// Package cluster groups spatially-adjacent high-importance grid cells
// into ranked clusters around a reference point.
package cluster

import (
	"sort"

	"context-magnifier/internal/grid"
	"context-magnifier/pkg/geometry"
)

// Options controls cluster selection.
type Options struct {
	// CellRadius is the search radius around the reference, in cells.
	CellRadius int
	// Threshold is the absolute importance a cell must exceed to be
	// considered. This is a raw score, not normalized to the sub-grid.
	Threshold float64
}

// DefaultOptions returns the standard clustering parameters.
func DefaultOptions() Options {
	return Options{CellRadius: 3, Threshold: 0.5}
}

// Member is a single cell belonging to a cluster.
type Member struct {
	Cell       grid.Cell
	Importance float64
	// Distance is the Euclidean distance to the reference, in cell units.
	Distance float64
}

// Cluster is a connected group of high-importance cells.
type Cluster struct {
	Members        []Member
	MeanImportance float64
	MinDistance    float64
	// Center is the centroid of the member cell centers, in pixels.
	Center geometry.Point2D
}

// Find selects cells within Options.CellRadius of the reference point
// whose importance exceeds Options.Threshold, groups them into connected
// components under 8-directional adjacency, and ranks the components by
// descending mean importance with ties broken by proximity.
func Find(snap *grid.Snapshot, ref geometry.Point2D, opts Options) []Cluster {
	if snap == nil || snap.CellWidth <= 0 || snap.CellHeight <= 0 {
		return nil
	}

	refCol := int(ref.X) / snap.CellWidth
	refRow := int(ref.Y) / snap.CellHeight

	// Collect candidate cells in the search window.
	type key struct{ col, row int }
	selected := make(map[key]grid.Cell)
	for _, cell := range snap.Cells {
		if abs(cell.Col-refCol) > opts.CellRadius || abs(cell.Row-refRow) > opts.CellRadius {
			continue
		}
		if cell.Importance <= opts.Threshold {
			continue
		}
		selected[key{cell.Col, cell.Row}] = cell
	}
	if len(selected) == 0 {
		return nil
	}

	// Depth-first traversal over 8-connected components.
	visited := make(map[key]bool, len(selected))
	var clusters []Cluster

	// Iterate cells in snapshot order so output is deterministic.
	for _, cell := range snap.Cells {
		start := key{cell.Col, cell.Row}
		if _, ok := selected[start]; !ok || visited[start] {
			continue
		}

		var members []Member
		stack := []key{start}
		visited[start] = true
		for len(stack) > 0 {
			k := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			c := selected[k]

			dc := float64(c.Col - refCol)
			dr := float64(c.Row - refRow)
			members = append(members, Member{
				Cell:       c,
				Importance: c.Importance,
				Distance:   euclid(dc, dr),
			})

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					n := key{k.col + dx, k.row + dy}
					if _, ok := selected[n]; ok && !visited[n] {
						visited[n] = true
						stack = append(stack, n)
					}
				}
			}
		}

		clusters = append(clusters, summarize(members))
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].MeanImportance != clusters[j].MeanImportance {
			return clusters[i].MeanImportance > clusters[j].MeanImportance
		}
		return clusters[i].MinDistance < clusters[j].MinDistance
	})

	return clusters
}

// summarize computes the ranking statistics for a set of members.
func summarize(members []Member) Cluster {
	var sum float64
	minDist := members[0].Distance
	centers := make([]geometry.Point2D, 0, len(members))
	for _, m := range members {
		sum += m.Importance
		if m.Distance < minDist {
			minDist = m.Distance
		}
		centers = append(centers, m.Cell.Bounds.ToFloat().Center())
	}
	return Cluster{
		Members:        members,
		MeanImportance: sum / float64(len(members)),
		MinDistance:    minDist,
		Center:         geometry.Centroid(centers),
	}
}

func euclid(dx, dy float64) float64 {
	return geometry.Point2D{X: dx, Y: dy}.Distance(geometry.Point2D{})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
