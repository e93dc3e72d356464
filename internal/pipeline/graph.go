package pipeline

import (
	"container/heap"
	"math"

	"github.com/michiboo/sdg11-backend/internal/osm"
)

const earthRadius = 6371000.0

// point is a projected network node in meters relative to the analysis center.
type point struct {
	X float64
	Y float64
}

type arc struct {
	to     int
	length float64
}

// graph is the in-memory spatial network: nodes projected to local meters and
// an undirected adjacency list with edge lengths.
type graph struct {
	points []point
	adj    [][]arc
}

// project converts WGS84 coordinates to meters on a local equirectangular
// plane centered on the analysis point. Accurate well beyond the 5 km buffer.
func project(lng, lat, centerLng, centerLat float64) point {
	x := (lng - centerLng) * math.Pi / 180 * earthRadius * math.Cos(centerLat*math.Pi/180)
	y := (lat - centerLat) * math.Pi / 180 * earthRadius
	return point{X: x, Y: y}
}

func buildGraph(network *osm.Network, centerLng, centerLat float64) *graph {
	index := make(map[int64]int, len(network.Nodes))
	g := &graph{
		points: make([]point, 0, len(network.Nodes)),
		adj:    make([][]arc, 0, len(network.Nodes)),
	}

	for _, n := range network.Nodes {
		index[n.ID] = len(g.points)
		g.points = append(g.points, project(n.Lng, n.Lat, centerLng, centerLat))
		g.adj = append(g.adj, nil)
	}

	for _, e := range network.Edges {
		from, okFrom := index[e.From]
		to, okTo := index[e.To]
		if !okFrom || !okTo || from == to {
			continue
		}
		length := distance(g.points[from], g.points[to])
		if length == 0 {
			continue
		}
		g.adj[from] = append(g.adj[from], arc{to: to, length: length})
		g.adj[to] = append(g.adj[to], arc{to: from, length: length})
	}

	return g
}

func distance(a, b point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// decompose splits every edge longer than step into segments of at most step
// meters, inserting intermediate nodes. Higher node resolution sharpens the
// centrality measure the same way the graph decomposition of the original
// analysis does.
func (g *graph) decompose(step float64) {
	type edge struct {
		from, to int
		length   float64
	}

	var edges []edge
	for from, arcs := range g.adj {
		for _, a := range arcs {
			if from < a.to {
				edges = append(edges, edge{from: from, to: a.to, length: a.length})
			}
		}
	}

	adj := make([][]arc, len(g.points))
	link := func(a, b int, length float64) {
		adj[a] = append(adj[a], arc{to: b, length: length})
		adj[b] = append(adj[b], arc{to: a, length: length})
	}

	for _, e := range edges {
		segments := int(math.Ceil(e.length / step))
		if segments <= 1 {
			link(e.from, e.to, e.length)
			continue
		}

		from := g.points[e.from]
		to := g.points[e.to]
		segLength := e.length / float64(segments)

		prev := e.from
		for i := 1; i < segments; i++ {
			t := float64(i) / float64(segments)
			g.points = append(g.points, point{
				X: from.X + (to.X-from.X)*t,
				Y: from.Y + (to.Y-from.Y)*t,
			})
			adj = append(adj, nil)
			next := len(g.points) - 1
			link(prev, next, segLength)
			prev = next
		}
		link(prev, e.to, segLength)
	}

	g.adj = adj
}

// nearest returns the index of the node closest to p, or -1 for an empty graph.
func (g *graph) nearest(p point) int {
	best := -1
	bestDist := math.Inf(1)
	for i, candidate := range g.points {
		if d := distance(candidate, p); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

type queueItem struct {
	node int
	dist float64
}

type priorityQueue []queueItem

func (q priorityQueue) Len() int            { return len(q) }
func (q priorityQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q priorityQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *priorityQueue) Push(x interface{}) { *q = append(*q, x.(queueItem)) }
func (q *priorityQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// shortestPaths runs a bounded Dijkstra from the given sources, with edge
// lengths scaled by weight (seconds per meter for time-based searches, 1 for
// distance). Nodes beyond maxCost keep +Inf.
func (g *graph) shortestPaths(sources []int, maxCost, weight float64) []float64 {
	dist := make([]float64, len(g.points))
	for i := range dist {
		dist[i] = math.Inf(1)
	}

	q := make(priorityQueue, 0, len(sources))
	for _, s := range sources {
		if s < 0 || s >= len(g.points) {
			continue
		}
		dist[s] = 0
		q = append(q, queueItem{node: s})
	}
	heap.Init(&q)

	for q.Len() > 0 {
		item := heap.Pop(&q).(queueItem)
		if item.dist > dist[item.node] {
			continue
		}
		for _, a := range g.adj[item.node] {
			next := item.dist + a.length*weight
			if next > maxCost || next >= dist[a.to] {
				continue
			}
			dist[a.to] = next
			heap.Push(&q, queueItem{node: a.to, dist: next})
		}
	}

	return dist
}
