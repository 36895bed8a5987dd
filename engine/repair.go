package engine

import (
	"gopkg.in/yaml.v3"

	"github.com/relio-db/graphkv/graph"
	"github.com/relio-db/graphkv/graph/adj"
)

// RepairReport summarizes what a Repair pass found and fixed (spec §9's
// "repair pass that rebuilds degrees and adjacency lists from the edge
// table"). Serialized with gopkg.in/yaml.v3 so it reads naturally as an
// operator-facing report rather than a wire format.
type RepairReport struct {
	NodesChecked       int `yaml:"nodes_checked"`
	DegreeMismatches   int `yaml:"degree_mismatches_fixed"`
	AdjacencyRepacked  int `yaml:"adjacency_lists_repacked"`
	OrphanEdgesSkipped int `yaml:"orphan_edges_skipped"`
}

func (r *RepairReport) YAML() (string, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// degreeSetter is implemented by every representation's Graph; kept as
// an unexported interface here rather than added to graph.Handle
// because repair is an operational tool, not a query/mutation the
// representations' ordinary callers need.
type degreeSetter interface {
	SetDegree(id uint32, in, out uint32) error
}

// Repair walks h's edge table as the source of truth and recomputes
// every node's (in_degree, out_degree); for *adj.Graph specifically, it
// also repacks both adjacency side tables from the same recount via
// PreloadAdjacency, since Adj's adjacency lists (not just degrees) are
// the cached state an interrupted mutation can leave inconsistent.
// Safe to run against a Std or EKey handle too: for those, nothing
// beyond the degree cache is derived state, so only SetDegree applies.
func Repair(h graph.Handle) (*RepairReport, error) {
	report := &RepairReport{}

	out := map[uint32][]uint32{}
	in := map[uint32][]uint32{}

	ec := h.EdgeIter()
	ec.SetIncludeWeight(false)
	defer ec.Close()
	for ec.HasMore() {
		e, err := ec.Next()
		if err != nil {
			return nil, err
		}
		if e.IsOutOfBand() {
			break
		}
		out[e.SrcID] = append(out[e.SrcID], e.DstID)
		in[e.DstID] = append(in[e.DstID], e.SrcID)
	}

	nodes, err := h.GetNodes()
	if err != nil {
		return nil, err
	}

	known := make(map[uint32]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}

	setter, canSetDegree := h.(degreeSetter)
	adjGraph, isAdj := h.(*adj.Graph)

	for _, n := range nodes {
		report.NodesChecked++
		wantOut := uint32(len(out[n.ID]))
		wantIn := uint32(len(in[n.ID]))

		if wantOut != n.OutDegree || wantIn != n.InDegree {
			report.DegreeMismatches++
			if canSetDegree {
				if err := setter.SetDegree(n.ID, wantIn, wantOut); err != nil {
					return nil, err
				}
			}
		}

		if isAdj {
			if err := adjGraph.PreloadAdjacency(n.ID, out[n.ID], in[n.ID]); err != nil {
				return nil, err
			}
			report.AdjacencyRepacked++
		}
	}

	for src := range out {
		if !known[src] {
			report.OrphanEdgesSkipped += len(out[src])
		}
	}

	return report, nil
}
