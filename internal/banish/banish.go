// Package banish implements the Banisher: it builds an undirected graph
// over the endpoints of every verified Match, seeds a multi-source BFS
// from the windows of any banished document, and deletes every Match row
// touching a node within the configured distance of a seed.
package banish

import "github.com/kshedden/intertext/internal/store"

// Config parameterizes one banish-propagation run.
type Config struct {
	BanishedDocIDs []int
	Distance       int // D; nodes with shortest-path distance strictly < D are marked
}

// Run removes matches reachable from the banished document set. It is a
// no-op when BanishedDocIDs is empty.
func Run(st store.Store, cfg Config) error {
	if len(cfg.BanishedDocIDs) == 0 {
		return nil
	}
	banished := make(map[int]struct{}, len(cfg.BanishedDocIDs))
	for _, d := range cfg.BanishedDocIDs {
		banished[d] = struct{}{}
	}

	adj := make(map[store.NodeID]map[store.NodeID]struct{})
	addEdge := func(a, b store.NodeID) {
		if adj[a] == nil {
			adj[a] = make(map[store.NodeID]struct{})
		}
		if adj[b] == nil {
			adj[b] = make(map[store.NodeID]struct{})
		}
		adj[a][b] = struct{}{}
		adj[b][a] = struct{}{}
	}

	var seeds []store.NodeID
	err := st.StreamAllMatches(func(r store.MatchRow) error {
		na := store.Node(r.DocA, r.WinA)
		nb := store.Node(r.DocB, r.WinB)
		addEdge(na, nb)
		if _, ok := banished[r.DocA]; ok {
			seeds = append(seeds, na)
		}
		if _, ok := banished[r.DocB]; ok {
			seeds = append(seeds, nb)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return nil
	}

	dist := bfsDistances(adj, seeds, cfg.Distance)

	marked := make(map[store.NodeID]struct{})
	for n, d := range dist {
		if d < cfg.Distance {
			marked[n] = struct{}{}
		}
	}
	if len(marked) == 0 {
		return nil
	}
	return st.DeleteMatchesWithEndpoint(marked)
}

// bfsDistances runs a multi-source BFS from seeds over adj, returning the
// shortest distance from any seed to every node it reaches. Expansion
// stops past distance, since nodes at or beyond it are never marked; this
// keeps the BFS from walking the full graph when distance is small.
func bfsDistances(adj map[store.NodeID]map[store.NodeID]struct{}, seeds []store.NodeID, distance int) map[store.NodeID]int {
	dist := make(map[store.NodeID]int)
	queue := make([]store.NodeID, 0, len(seeds))
	for _, s := range seeds {
		if _, ok := dist[s]; !ok {
			dist[s] = 0
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		d := dist[n]
		if d+1 >= distance {
			continue
		}
		for nb := range adj[n] {
			if _, ok := dist[nb]; !ok {
				dist[nb] = d + 1
				queue = append(queue, nb)
			}
		}
	}
	return dist
}
