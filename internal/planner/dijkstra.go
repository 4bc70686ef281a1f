package planner

import (
	"container/heap"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// cellGraph is a weighted adjacency over cells of one level
type cellGraph struct {
	adj    map[models.CellID][]models.CellID
	weight func(a, b models.CellID) float64
}

// shortestPath runs Dijkstra from src to dst and returns the cell path
// including both ends, or nil when dst is unreachable
func (g *cellGraph) shortestPath(src, dst models.CellID) []models.CellID {
	if _, ok := g.adj[src]; !ok {
		return nil
	}
	if _, ok := g.adj[dst]; !ok {
		return nil
	}

	dist := map[models.CellID]float64{src: 0}
	cameFrom := make(map[models.CellID]models.CellID)
	closed := make(map[models.CellID]bool)

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &pqItem{cell: src, priority: 0})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		current := item.cell
		if current == dst {
			return reconstructPath(cameFrom, src, dst)
		}
		if closed[current] {
			continue
		}
		closed[current] = true

		for _, next := range g.adj[current] {
			if closed[next] {
				continue
			}
			tentative := dist[current] + g.weight(current, next)
			if old, ok := dist[next]; !ok || tentative < old {
				dist[next] = tentative
				cameFrom[next] = current
				heap.Push(pq, &pqItem{cell: next, priority: tentative})
			}
		}
	}
	return nil
}

func reconstructPath(cameFrom map[models.CellID]models.CellID, src, dst models.CellID) []models.CellID {
	path := []models.CellID{dst}
	current := dst
	for current != src {
		prev, ok := cameFrom[current]
		if !ok {
			return nil
		}
		path = append(path, prev)
		current = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type pqItem struct {
	cell     models.CellID
	priority float64
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority == pq[j].priority {
		return pq[i].cell < pq[j].cell
	}
	return pq[i].priority < pq[j].priority
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*pqItem)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}
