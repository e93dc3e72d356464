package pipeline

import (
	"context"
	"math"

	"github.com/michiboo/sdg11-backend/internal/artifacts"
	"github.com/michiboo/sdg11-backend/internal/osm"
	"go.uber.org/zap"
)

const (
	// WalkSpeed is the assumed uniform pedestrian speed in km/h.
	WalkSpeed = 4.5

	// WalkTimeHorizon is the maximum walking time in seconds: nodes further
	// than this from every POI are rendered as out of range.
	WalkTimeHorizon = 15 * 60.0
)

// WalkabilityPipeline computes the shortest walking time from every node of
// the pedestrian network to its nearest point of interest and renders it as a
// heat-map visualization. It produces no numeric stats.
type WalkabilityPipeline struct {
	client osm.Client
	buffer float64
}

var _ Pipeline = (*WalkabilityPipeline)(nil)

func NewWalkabilityPipeline(client osm.Client, buffer float64) *WalkabilityPipeline {
	if buffer <= 0 {
		buffer = DefaultBufferDistance
	}
	return &WalkabilityPipeline{client: client, buffer: buffer}
}

func (p *WalkabilityPipeline) Run(ctx context.Context, params Params) (*artifacts.Artifact, error) {
	logger := zap.S().Named("walkability")

	network, err := p.client.PedestrianNetwork(ctx, params.Lng, params.Lat, p.buffer)
	if err != nil {
		return nil, NewErrDataSourceUnavailable(err)
	}

	g := buildGraph(network, params.Lng, params.Lat)
	if len(g.points) == 0 {
		return nil, NewErrEmptyNetwork()
	}

	pois, err := p.client.POIs(ctx, params.Lng, params.Lat, p.buffer)
	if err != nil {
		return nil, NewErrDataSourceUnavailable(err)
	}
	if len(pois) == 0 {
		return nil, NewErrNoPOIs()
	}
	logger.Infof("pedestrian network has %d nodes, %d POIs found", len(g.points), len(pois))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Snap every POI to its closest network node and run a single
	// multi-source time-bounded search from there.
	sources := make([]int, 0, len(pois))
	for _, poi := range pois {
		if node := g.nearest(project(poi.Lng, poi.Lat, params.Lng, params.Lat)); node >= 0 {
			sources = append(sources, node)
		}
	}

	secondsPerMeter := 3600.0 / (WalkSpeed * 1000.0)
	times := g.shortestPaths(sources, WalkTimeHorizon, secondsPerMeter)

	// Out-of-range nodes saturate at the horizon so the render keeps them
	// on the scale instead of dropping them.
	values := make([]float64, len(times))
	for i, t := range times {
		if math.IsInf(t, 1) {
			values[i] = WalkTimeHorizon
		} else {
			values[i] = t
		}
	}

	image, err := renderScatter(g.points, values, plotBuffer, viridisReversed)
	if err != nil {
		return nil, NewError("failed to render walkability plot", err)
	}

	return &artifacts.Artifact{Image: image}, nil
}
