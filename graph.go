package engram

// expandGraph performs an N-hop breadth-first walk over the Links table
// starting from seedIDs, returning newly-discovered memory ids in BFS
// order with the hop distance they were first reached at (§4.4 graph
// expansion). Seed ids themselves are never included in the result.
func expandGraph(store *Store, seedIDs []int64, hops int) ([]int64, map[int64]int, error) {
	visited := make(map[int64]bool, len(seedIDs))
	hopOf := make(map[int64]int)
	for _, id := range seedIDs {
		visited[id] = true
	}

	frontier := append([]int64{}, seedIDs...)
	var order []int64

	for hop := 1; hop <= hops && len(frontier) > 0; hop++ {
		var next []int64
		for _, id := range frontier {
			neighbors, err := store.LinkedNeighborIDs(id)
			if err != nil {
				return nil, nil, err
			}
			for _, n := range neighbors {
				if visited[n] {
					continue
				}
				visited[n] = true
				hopOf[n] = hop
				order = append(order, n)
				next = append(next, n)
			}
		}
		frontier = next
	}

	return order, hopOf, nil
}
