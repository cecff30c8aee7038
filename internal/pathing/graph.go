package pathing

import (
	"time"

	"foresight/internal/knowledge"
	"foresight/internal/types"
)

// Node is one event placed on the attack graph with its kill-chain
// annotation.
type Node struct {
	EventID   string
	EventType string
	Technique string
	Phase     string
	Timestamp time.Time
}

// Edge links two consecutive events with the elapsed seconds between them.
type Edge struct {
	From   string
	To     string
	DeltaT float64
}

// AttackGraph is the temporal graph of a single session. Sessions are
// linear event chains, so the graph is an ordered node list plus an
// adjacency list of timed edges.
type AttackGraph struct {
	Nodes []Node
	Edges []Edge
	adj   map[string][]Edge
}

// BuildGraph constructs the session graph from timestamp-ordered events.
// Every consecutive pair gets a directed edge carrying the gap in seconds.
func BuildGraph(events []types.EnrichedEvent) *AttackGraph {
	g := &AttackGraph{
		Nodes: make([]Node, 0, len(events)),
		adj:   make(map[string][]Edge, len(events)),
	}
	for i, ev := range events {
		g.Nodes = append(g.Nodes, Node{
			EventID:   ev.EventID,
			EventType: ev.EventType,
			Technique: ev.MitreTechnique,
			Phase:     knowledge.PhaseOf(ev.MitreTechnique),
			Timestamp: ev.Timestamp,
		})
		if i == 0 {
			continue
		}
		prev := events[i-1]
		edge := Edge{
			From:   prev.EventID,
			To:     ev.EventID,
			DeltaT: ev.Timestamp.Sub(prev.Timestamp).Seconds(),
		}
		g.Edges = append(g.Edges, edge)
		g.adj[prev.EventID] = append(g.adj[prev.EventID], edge)
	}
	return g
}

// RootCause returns the id of the earliest event, the node every later
// finding chains back to.
func (g *AttackGraph) RootCause() string {
	if len(g.Nodes) == 0 {
		return ""
	}
	return g.Nodes[0].EventID
}

// Depth is the length of the longest path through the graph. Session
// graphs are chains, so this is the node count.
func (g *AttackGraph) Depth() int {
	return len(g.Nodes)
}

// Successors returns the timed edges leaving an event.
func (g *AttackGraph) Successors(eventID string) []Edge {
	return g.adj[eventID]
}
