package osm

// Node is a point of the street network in WGS84 coordinates.
type Node struct {
	ID  int64
	Lng float64
	Lat float64
}

// Edge connects two nodes of the street network.
type Edge struct {
	From int64
	To   int64
}

// Network is the raw street graph returned by the data source.
type Network struct {
	Nodes []Node
	Edges []Edge
}

// POI is a point of interest relevant for walkability analysis.
type POI struct {
	ID   int64
	Lng  float64
	Lat  float64
	Name string
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Nodes  []int64           `json:"nodes"`
	Center *overpassCenter   `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
