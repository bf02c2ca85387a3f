/*
Package game
File: routing.go
Description:
    Builds the all-pairs next-hop table passengers use to pick a train.

    The line topology is flattened into an undirected station graph (two
    stations are adjacent when they are consecutive on any line). For every
    destination a breadth-first search yields hop counts, and each source
    station points at the neighbour with the strictly smallest count.
    Cost is O(V(V+E)); the table is only rebuilt when the topology changes.
*/

package game

import (
	"fmt"
	"strings"
)

// HopCount is the breadth-first distance from a station to a destination.
// The zero value is Unreachable.
type HopCount struct {
	hops      int
	reachable bool
}

// Unreachable marks a station with no path to the destination.
var Unreachable = HopCount{}

// Hops returns a reachable hop count of n.
func Hops(n int) HopCount {
	return HopCount{hops: n, reachable: true}
}

// Value returns the hop count and whether the station is reachable at all.
func (h HopCount) Value() (int, bool) {
	return h.hops, h.reachable
}

// Reachable reports whether a path exists.
func (h HopCount) Reachable() bool {
	return h.reachable
}

// Less orders reachable counts before unreachable ones.
func (h HopCount) Less(o HopCount) bool {
	switch {
	case !h.reachable:
		return false
	case !o.reachable:
		return true
	default:
		return h.hops < o.hops
	}
}

func (h HopCount) String() string {
	if !h.reachable {
		return "unreachable"
	}
	return fmt.Sprintf("%d", h.hops)
}

// Graph is the undirected station adjacency derived from the lines.
// Neighbour lists keep first-insertion order, which fixes tie-breaking.
type Graph struct {
	ids   []string
	index map[string]int
	adj   [][]int
}

// BuildGraph flattens the lines into a station graph. A line naming a station
// that is not part of the level is an inconsistent world.
func BuildGraph(stations []Station, lines []*Line) (*Graph, error) {
	g := &Graph{
		ids:   make([]string, len(stations)),
		index: make(map[string]int, len(stations)),
		adj:   make([][]int, len(stations)),
	}
	for i, s := range stations {
		g.ids[i] = s.ID
		g.index[s.ID] = i
	}

	seen := make(map[[2]int]struct{})
	for _, line := range lines {
		for i := 0; i+1 < len(line.Stations); i++ {
			a, ok := g.index[line.Stations[i]]
			if !ok {
				return nil, fmt.Errorf("line %q: station %q: %w", line.ID, line.Stations[i], ErrInconsistentWorld)
			}
			b, ok := g.index[line.Stations[i+1]]
			if !ok {
				return nil, fmt.Errorf("line %q: station %q: %w", line.ID, line.Stations[i+1], ErrInconsistentWorld)
			}
			if a == b {
				continue
			}
			if _, dup := seen[[2]int{a, b}]; dup {
				continue
			}
			seen[[2]int{a, b}] = struct{}{}
			seen[[2]int{b, a}] = struct{}{}
			g.adj[a] = append(g.adj[a], b)
			g.adj[b] = append(g.adj[b], a)
		}
	}
	return g, nil
}

// Neighbors returns the IDs adjacent to id, in insertion order.
func (g *Graph) Neighbors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]string, len(g.adj[i]))
	for k, n := range g.adj[i] {
		out[k] = g.ids[n]
	}
	return out
}

// distancesTo runs a breadth-first search from dest over the undirected graph.
func (g *Graph) distancesTo(dest int) []HopCount {
	dist := make([]HopCount, len(g.ids))
	dist[dest] = Hops(0)

	queue := make([]int, 0, len(g.ids))
	queue = append(queue, dest)
	for cursor := 0; cursor < len(queue); cursor++ {
		node := queue[cursor]
		for _, next := range g.adj[node] {
			if dist[next].reachable {
				continue
			}
			dist[next] = Hops(dist[node].hops + 1)
			queue = append(queue, next)
		}
	}
	return dist
}

// RoutingTable answers "which neighbour should a passenger at S heading to D
// move toward" in O(1).
type RoutingTable struct {
	ids   []string
	index map[string]int
	next  [][]int      // next[dest][src] is a station index, or -1 when unreachable
	dist  [][]HopCount // dist[dest][src]
}

// BuildRoutingTable computes the next-hop table for the current line topology.
func BuildRoutingTable(stations []Station, lines []*Line) (*RoutingTable, error) {
	g, err := BuildGraph(stations, lines)
	if err != nil {
		return nil, err
	}

	n := len(g.ids)
	t := &RoutingTable{
		ids:   g.ids,
		index: g.index,
		next:  make([][]int, n),
		dist:  make([][]HopCount, n),
	}

	for dest := 0; dest < n; dest++ {
		dist := g.distancesTo(dest)
		row := make([]int, n)
		for src := 0; src < n; src++ {
			if src == dest {
				row[src] = dest
				continue
			}
			best, bestDist := -1, Unreachable
			for _, neighbor := range g.adj[src] {
				if dist[neighbor].Less(bestDist) {
					best, bestDist = neighbor, dist[neighbor]
				}
			}
			row[src] = best
		}
		t.next[dest] = row
		t.dist[dest] = dist
	}
	return t, nil
}

// NextHop returns the neighbour of srcID on a shortest path to destID.
// A station maps to itself as its own destination. The second result is
// false when the destination is unreachable or either ID is unknown.
func (t *RoutingTable) NextHop(destID, srcID string) (string, bool) {
	d, ok := t.index[destID]
	if !ok {
		return "", false
	}
	s, ok := t.index[srcID]
	if !ok {
		return "", false
	}
	hop := t.next[d][s]
	if hop < 0 {
		return "", false
	}
	return t.ids[hop], true
}

// Distance returns the hop count from srcID to destID.
func (t *RoutingTable) Distance(srcID, destID string) HopCount {
	d, ok := t.index[destID]
	if !ok {
		return Unreachable
	}
	s, ok := t.index[srcID]
	if !ok {
		return Unreachable
	}
	return t.dist[d][s]
}

// LineSignature fingerprints the topology: line IDs and their ordered stations.
func LineSignature(lines []*Line) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(line.ID)
		b.WriteByte(':')
		b.WriteString(strings.Join(line.Stations, "-"))
	}
	return b.String()
}
