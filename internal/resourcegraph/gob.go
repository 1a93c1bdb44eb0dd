package resourcegraph

import (
	"bytes"
	"encoding/gob"
)

// vertexData and edgeData are the plain-data shapes a Graph serializes to.
// gonum's graph.Node/simple.DirectedGraph types aren't gob-friendly
// directly, so Save/Load round-trip through this flattened form instead.
type vertexData struct {
	ID                 int64
	Path               string
	IndexfileResources []string
	IndexfilePath      string
	IndexfileTargets   []string
}

type edgeData struct {
	From, To int64
}

type graphData struct {
	Vertices []vertexData
	Edges    []edgeData
}

func toGraphData(g *Graph) graphData {
	var data graphData
	for _, v := range g.byPath {
		data.Vertices = append(data.Vertices, vertexData{
			ID:                 v.id,
			Path:               v.Path,
			IndexfileResources: v.IndexfileResources,
			IndexfilePath:      v.IndexfilePath,
			IndexfileTargets:   v.IndexfileTargets,
		})
	}
	it := g.g.Edges()
	for it.Next() {
		e := it.Edge()
		data.Edges = append(data.Edges, edgeData{From: e.From().ID(), To: e.To().ID()})
	}
	return data
}

func fromGraphData(data graphData) *Graph {
	g := New()
	byID := make(map[int64]*Vertex, len(data.Vertices))
	for _, vd := range data.Vertices {
		v := &Vertex{
			id:                 vd.ID,
			Path:               vd.Path,
			IndexfileResources: vd.IndexfileResources,
			IndexfilePath:      vd.IndexfilePath,
			IndexfileTargets:   vd.IndexfileTargets,
		}
		g.byPath[v.Path] = v
		g.g.AddNode(v)
		byID[v.id] = v
		if v.id >= g.nextID {
			g.nextID = v.id + 1
		}
	}
	for _, ed := range data.Edges {
		from, to := byID[ed.From], byID[ed.To]
		g.g.SetEdge(g.g.NewEdge(from, to))
	}
	return g
}

func encodeGob(data graphData) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(b []byte, data *graphData) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(data)
}
