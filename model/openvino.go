// MODUL: openvino
// ZWECK: OpenVINO IR aus Netzbeschreibung (.xml) und Gewichten (.bin)
// INPUT: XML-Text, Gewichts-Bytes
// OUTPUT: *OpenVino mit Layern, Kanten und geprueften Blob-Bereichen
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: encoding/xml (Standardbibliothek)
// HINWEISE: IR v10+ (data offset/size) und IR v7 (<blobs>) werden akzeptiert

package model

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// OpenVino paart Netzbeschreibung und Gewichte
type OpenVino struct {
	Name    string
	Version int
	Layers  []OpenVinoLayer
	Edges   []OpenVinoEdge

	network string
	weights []byte
	ops     *opSet
}

// OpenVinoLayer ist ein Layer der IR. Blobs sind Bereiche in den Gewichten.
type OpenVinoLayer struct {
	ID      int
	Name    string
	Type    string
	Version string
	Blobs   []OpenVinoBlob
}

type OpenVinoBlob struct {
	Name   string
	Offset int64
	Size   int64
}

type OpenVinoEdge struct {
	FromLayer, FromPort int
	ToLayer, ToPort     int
}

func (*OpenVino) Format() Format { return FormatOpenVino }
func (*OpenVino) sealed()        {}

func (m *OpenVino) Ops() []string            { return m.ops.list() }
func (m *OpenVino) OpCounts() map[string]int { return m.ops.counts() }

// Network gibt die XML-Netzbeschreibung zurueck
func (m *OpenVino) Network() string { return m.network }

// Weights gibt die rohen Gewichte zurueck
func (m *OpenVino) Weights() []byte { return m.weights }

// Blob gibt die Bytes eines Blobs zurueck
func (m *OpenVino) Blob(b OpenVinoBlob) []byte {
	return m.weights[b.Offset : b.Offset+b.Size]
}

type irNet struct {
	XMLName xml.Name  `xml:"net"`
	Name    string    `xml:"name,attr"`
	Version int       `xml:"version,attr"`
	Layers  []irLayer `xml:"layers>layer"`
	Edges   []irEdge  `xml:"edges>edge"`
}

type irLayer struct {
	ID      int    `xml:"id,attr"`
	Name    string `xml:"name,attr"`
	Type    string `xml:"type,attr"`
	Version string `xml:"version,attr"`
	Data    *struct {
		Offset *int64 `xml:"offset,attr"`
		Size   *int64 `xml:"size,attr"`
	} `xml:"data"`
	Blobs *struct {
		Items []struct {
			XMLName xml.Name
			Offset  int64 `xml:"offset,attr"`
			Size    int64 `xml:"size,attr"`
		} `xml:",any"`
	} `xml:"blobs"`
}

type irEdge struct {
	FromLayer int `xml:"from-layer,attr"`
	FromPort  int `xml:"from-port,attr"`
	ToLayer   int `xml:"to-layer,attr"`
	ToPort    int `xml:"to-port,attr"`
}

// NewOpenVino parst die Netzbeschreibung und prueft dass alle Blobs
// innerhalb der Gewichte liegen und alle Kanten existierende Layer verbinden.
func NewOpenVino(network string, weights []byte) (*OpenVino, error) {
	var net irNet
	if err := xml.NewDecoder(strings.NewReader(network)).Decode(&net); err != nil {
		return nil, invalid(FormatOpenVino, "network description: %v", err)
	}
	if len(net.Layers) == 0 {
		return nil, invalid(FormatOpenVino, "network %q has no layers", net.Name)
	}

	m := &OpenVino{
		Name:    net.Name,
		Version: net.Version,
		network: network,
		weights: weights,
		ops:     newOpSet(),
	}

	ids := make(map[int]bool, len(net.Layers))
	for _, l := range net.Layers {
		if ids[l.ID] {
			return nil, invalid(FormatOpenVino, "duplicate layer id %d", l.ID)
		}
		ids[l.ID] = true

		layer := OpenVinoLayer{ID: l.ID, Name: l.Name, Type: l.Type, Version: l.Version}
		if l.Data != nil && l.Data.Offset != nil && l.Data.Size != nil {
			layer.Blobs = append(layer.Blobs, OpenVinoBlob{Name: "data", Offset: *l.Data.Offset, Size: *l.Data.Size})
		}
		if l.Blobs != nil {
			for _, b := range l.Blobs.Items {
				layer.Blobs = append(layer.Blobs, OpenVinoBlob{Name: b.XMLName.Local, Offset: b.Offset, Size: b.Size})
			}
		}

		for _, b := range layer.Blobs {
			if b.Offset < 0 || b.Size < 0 || b.Offset+b.Size > int64(len(weights)) {
				return nil, invalid(FormatOpenVino, "layer %q blob %s [%d:+%d] outside weights (%d bytes)",
					l.Name, b.Name, b.Offset, b.Size, len(weights))
			}
		}

		m.Layers = append(m.Layers, layer)
		m.ops.add(l.Type)
	}

	for _, e := range net.Edges {
		if !ids[e.FromLayer] || !ids[e.ToLayer] {
			return nil, invalid(FormatOpenVino, "edge %d->%d references unknown layer", e.FromLayer, e.ToLayer)
		}
		m.Edges = append(m.Edges, OpenVinoEdge(e))
	}

	return m, nil
}

func (m *OpenVino) String() string {
	return fmt.Sprintf("openvino ir v%d %q: %d layers, %d edges, %d weight bytes", m.Version, m.Name, len(m.Layers), len(m.Edges), len(m.weights))
}
