package bibliometrics

import (
	"fmt"
	"math"
	"slices"

	"github.com/helixir/bibliometrics-service/internal/repository"
)

// PageRankConfig controls the power iteration.
type PageRankConfig struct {
	Damping       float64
	Tolerance     float64
	MaxIterations int
}

// DefaultPageRankConfig returns damping 0.85, an L1 tolerance of 1e-6 and
// a cap of 100 iterations.
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{Damping: 0.85, Tolerance: 1e-6, MaxIterations: 100}
}

// Graph is an undirected simple graph over author ids.
type Graph struct {
	nodes []int64
	index map[int64]int
	adj   [][]int
}

// Nodes returns the node ids in ascending order.
func (g *Graph) Nodes() []int64 {
	return g.nodes
}

// Degree returns the number of distinct neighbours of id.
func (g *Graph) Degree(id int64) int {
	i, ok := g.index[id]
	if !ok {
		return 0
	}
	return len(g.adj[i])
}

// BuildCoauthorGraph connects every pair of authors sharing a paper.
// authors lists every node, including authors without coauthors. Shared
// papers beyond the first add no extra edges.
func BuildCoauthorGraph(authors []int64, authorships []repository.Authorship) (*Graph, error) {
	ids := slices.Clone(authors)
	for _, a := range authorships {
		if a.AuthorID <= 0 || a.PaperID <= 0 {
			return nil, fmt.Errorf("invalid authorship (paper %d, author %d)", a.PaperID, a.AuthorID)
		}
		ids = append(ids, a.AuthorID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	g := &Graph{
		nodes: ids,
		index: make(map[int64]int, len(ids)),
		adj:   make([][]int, len(ids)),
	}
	for i, id := range ids {
		g.index[id] = i
	}

	byPaper := make(map[int64][]int)
	for _, a := range authorships {
		byPaper[a.PaperID] = append(byPaper[a.PaperID], g.index[a.AuthorID])
	}

	edges := make([]map[int]struct{}, len(ids))
	for _, members := range byPaper {
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				a, b := members[i], members[j]
				if a == b {
					continue
				}
				if edges[a] == nil {
					edges[a] = make(map[int]struct{})
				}
				if edges[b] == nil {
					edges[b] = make(map[int]struct{})
				}
				edges[a][b] = struct{}{}
				edges[b][a] = struct{}{}
			}
		}
	}
	for i, set := range edges {
		neighbours := make([]int, 0, len(set))
		for n := range set {
			neighbours = append(neighbours, n)
		}
		slices.Sort(neighbours)
		g.adj[i] = neighbours
	}
	return g, nil
}

// PageRank runs the power iteration on g. Mass held by nodes without
// neighbours is spread uniformly, so scores always sum to 1. It returns the
// scores and the number of iterations performed.
func PageRank(g *Graph, cfg PageRankConfig) (map[int64]float64, int, error) {
	n := len(g.nodes)
	if n == 0 {
		return map[int64]float64{}, 0, nil
	}
	if cfg.Damping <= 0 || cfg.Damping >= 1 {
		return nil, 0, fmt.Errorf("damping %v outside (0, 1)", cfg.Damping)
	}
	if cfg.MaxIterations < 1 {
		return nil, 0, fmt.Errorf("max iterations %d < 1", cfg.MaxIterations)
	}

	size := float64(n)
	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1 / size
	}
	next := make([]float64, n)

	iterations := 0
	for iterations < cfg.MaxIterations {
		iterations++

		dangling := 0.0
		for i, r := range rank {
			if len(g.adj[i]) == 0 {
				dangling += r
			}
		}
		base := (1-cfg.Damping)/size + cfg.Damping*dangling/size
		for i := range next {
			next[i] = base
		}
		for i, r := range rank {
			if deg := len(g.adj[i]); deg > 0 {
				share := cfg.Damping * r / float64(deg)
				for _, j := range g.adj[i] {
					next[j] += share
				}
			}
		}

		delta := 0.0
		for i := range rank {
			delta += math.Abs(next[i] - rank[i])
		}
		rank, next = next, rank
		if math.IsNaN(delta) {
			return nil, iterations, fmt.Errorf("pagerank diverged at iteration %d", iterations)
		}
		if delta < cfg.Tolerance {
			break
		}
	}

	scores := make(map[int64]float64, n)
	for i, id := range g.nodes {
		scores[id] = rank[i]
	}
	return scores, iterations, nil
}
