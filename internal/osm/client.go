package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// POI categories queried for walkability analysis.
const (
	amenityFilter = "^(cafe|bar|pub|restaurant)$"
	shopFilter    = "^(bakery|convenience|supermarket|mall|department_store|clothes|fashion|shoes)$"
	leisureFilter = "^(fitness_centre)$"
)

// highway classes a pedestrian cannot use
const nonWalkableFilter = "^(motorway|motorway_link|trunk|trunk_link)$"

var _ Client = (*overpassClient)(nil)

// Client retrieves street networks and points of interest around a location.
type Client interface {
	RoadNetwork(ctx context.Context, lng, lat, radius float64) (*Network, error)
	PedestrianNetwork(ctx context.Context, lng, lat, radius float64) (*Network, error)
	POIs(ctx context.Context, lng, lat, radius float64) ([]POI, error)
}

type overpassClient struct {
	endpoint string
	client   *http.Client
}

func NewClient(endpoint string) Client {
	return &overpassClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *overpassClient) RoadNetwork(ctx context.Context, lng, lat, radius float64) (*Network, error) {
	query := fmt.Sprintf(`[out:json][timeout:180];
way(around:%.0f,%f,%f)["highway"];
(._;>;);
out body;`, radius, lat, lng)

	resp, err := c.query(ctx, query)
	if err != nil {
		return nil, err
	}
	return buildNetwork(resp), nil
}

func (c *overpassClient) PedestrianNetwork(ctx context.Context, lng, lat, radius float64) (*Network, error) {
	query := fmt.Sprintf(`[out:json][timeout:180];
way(around:%.0f,%f,%f)["highway"]["highway"!~"%s"]["foot"!~"^no$"];
(._;>;);
out body;`, radius, lat, lng, nonWalkableFilter)

	resp, err := c.query(ctx, query)
	if err != nil {
		return nil, err
	}
	return buildNetwork(resp), nil
}

func (c *overpassClient) POIs(ctx context.Context, lng, lat, radius float64) ([]POI, error) {
	query := fmt.Sprintf(`[out:json][timeout:180];
(
  nwr(around:%.0f,%f,%f)["amenity"~"%s"];
  nwr(around:%.0f,%f,%f)["shop"~"%s"];
  nwr(around:%.0f,%f,%f)["leisure"~"%s"];
);
out center;`,
		radius, lat, lng, amenityFilter,
		radius, lat, lng, shopFilter,
		radius, lat, lng, leisureFilter)

	resp, err := c.query(ctx, query)
	if err != nil {
		return nil, err
	}

	pois := make([]POI, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		poi := POI{ID: el.ID, Name: el.Tags["name"]}
		switch {
		case el.Type == "node":
			poi.Lng, poi.Lat = el.Lon, el.Lat
		case el.Center != nil:
			// ways and relations carry a computed centroid
			poi.Lng, poi.Lat = el.Center.Lon, el.Center.Lat
		default:
			continue
		}
		pois = append(pois, poi)
	}
	return pois, nil
}

func (c *overpassClient) query(ctx context.Context, query string) (*overpassResponse, error) {
	form := url.Values{"data": []string{query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode overpass response: %w", err)
	}
	return &parsed, nil
}

func buildNetwork(resp *overpassResponse) *Network {
	network := &Network{}
	for _, el := range resp.Elements {
		switch el.Type {
		case "node":
			network.Nodes = append(network.Nodes, Node{ID: el.ID, Lng: el.Lon, Lat: el.Lat})
		case "way":
			for i := 1; i < len(el.Nodes); i++ {
				network.Edges = append(network.Edges, Edge{From: el.Nodes[i-1], To: el.Nodes[i]})
			}
		}
	}
	return network
}
