package pipeline

import (
	"container/heap"
	"context"
	"math"

	"github.com/michiboo/sdg11-backend/internal/artifacts"
	"github.com/michiboo/sdg11-backend/internal/osm"
	"go.uber.org/zap"
)

const (
	// ThresholdDistance is the maximum walking tolerance in meters at which
	// the gravity centrality is computed.
	ThresholdDistance = 50.0

	// minThresholdWeight is the spatial impedance weight at the threshold
	// distance, from which beta is derived.
	minThresholdWeight = 0.01831563889

	// decomposeStep is the maximum edge segment length after decomposition.
	decomposeStep = 25.0
)

// CentralityPipeline computes a spatial-impedance weighted ("gravity")
// centrality for every node of the street network around the input point and
// renders it as a scatter visualization.
type CentralityPipeline struct {
	client osm.Client
	buffer float64
}

var _ Pipeline = (*CentralityPipeline)(nil)

func NewCentralityPipeline(client osm.Client, buffer float64) *CentralityPipeline {
	if buffer <= 0 {
		buffer = DefaultBufferDistance
	}
	return &CentralityPipeline{client: client, buffer: buffer}
}

func (p *CentralityPipeline) Run(ctx context.Context, params Params) (*artifacts.Artifact, error) {
	logger := zap.S().Named("centrality")

	network, err := p.client.RoadNetwork(ctx, params.Lng, params.Lat, p.buffer)
	if err != nil {
		return nil, NewErrDataSourceUnavailable(err)
	}

	g := buildGraph(network, params.Lng, params.Lat)
	if len(g.points) == 0 {
		return nil, NewErrEmptyNetwork()
	}
	hasEdges := false
	for _, arcs := range g.adj {
		if len(arcs) > 0 {
			hasEdges = true
			break
		}
	}
	if !hasEdges {
		return nil, NewErrEmptyNetwork()
	}

	g.decompose(decomposeStep)
	logger.Infof("street network prepared: %d nodes after decomposition", len(g.points))

	beta := BetaFromDistance(ThresholdDistance)
	values := make([]float64, len(g.points))
	for i := range g.points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values[i] = gravityIndex(g, i, ThresholdDistance, beta)
	}

	image, err := renderScatter(g.points, values, plotBuffer, magma)
	if err != nil {
		return nil, NewError("failed to render centrality plot", err)
	}

	return &artifacts.Artifact{
		Image: image,
		Stats: []artifacts.Stat{
			{Name: "avgToleranceDistance", Value: AvgDistanceForBeta(beta, ThresholdDistance)},
			{Name: "impedanceFactor", Value: beta},
			{Name: "thresholdDistance", Value: ThresholdDistance},
		},
	}, nil
}

// BetaFromDistance derives the spatial impedance factor beta so the
// negative exponential decay reaches minThresholdWeight at distance d.
func BetaFromDistance(d float64) float64 {
	return -math.Log(minThresholdWeight) / d
}

// AvgDistanceForBeta is the mean walking distance under the exponential decay
// weighting, bounded by the threshold distance.
func AvgDistanceForBeta(beta, d float64) float64 {
	decay := math.Exp(-beta * d)
	return (1 - decay*(1+beta*d)) / (beta * (1 - decay))
}

// gravityIndex sums exp(-beta*d) over all nodes reachable within maxDist of
// the source. A localized Dijkstra keeps the search to the threshold
// neighbourhood instead of touching the whole graph.
func gravityIndex(g *graph, source int, maxDist, beta float64) float64 {
	dist := map[int]float64{source: 0}
	q := priorityQueue{{node: source}}
	heap.Init(&q)

	total := 0.0
	for q.Len() > 0 {
		item := heap.Pop(&q).(queueItem)
		if item.dist > dist[item.node] {
			continue
		}
		if item.node != source {
			total += math.Exp(-beta * item.dist)
		}
		for _, a := range g.adj[item.node] {
			next := item.dist + a.length
			if next > maxDist {
				continue
			}
			if current, seen := dist[a.to]; seen && next >= current {
				continue
			}
			dist[a.to] = next
			heap.Push(&q, queueItem{node: a.to, dist: next})
		}
	}

	return total
}
