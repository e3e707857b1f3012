// Package osm streams nodes and ways out of an OpenStreetMap XML extract.
package osm

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/Faultbox/geobake/pkg/encoding"
)

// Node is an OSM node.
type Node struct {
	ID  int64   `xml:"id,attr"`
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

// Tags holds the key/value tags of a way.
type Tags map[string]string

// Get returns the value for key and whether it was present.
func (t Tags) Get(key string) (string, bool) {
	v, ok := t[key]
	return v, ok
}

// Has reports whether key is present.
func (t Tags) Has(key string) bool {
	_, ok := t[key]
	return ok
}

// Way is an OSM way: an ordered list of node references plus tags.
type Way struct {
	ID      int64
	NodeIDs []int64
	Tags    Tags
}

// Tag returns the value for key and whether it was present.
func (w *Way) Tag(key string) (string, bool) {
	return w.Tags.Get(key)
}

// IsClosed reports whether the way starts and ends on the same node.
func (w *Way) IsClosed() bool {
	return len(w.NodeIDs) > 1 && w.NodeIDs[0] == w.NodeIDs[len(w.NodeIDs)-1]
}

type xmlTag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

type xmlNodeRef struct {
	Ref int64 `xml:"ref,attr"`
}

type xmlWay struct {
	ID   int64        `xml:"id,attr"`
	Nds  []xmlNodeRef `xml:"nd"`
	Tags []xmlTag     `xml:"tag"`
}

// Scanner reads objects in document order. Relations are skipped.
type Scanner struct {
	dec *xml.Decoder
	obj any
	err error
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = encoding.CharsetReader
	return &Scanner{dec: dec}
}

// Scan advances to the next node or way. It returns false at the end of the
// input or on error; check Err afterwards.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for {
		tok, err := s.dec.Token()
		if err == io.EOF {
			return false
		}
		if err != nil {
			s.err = fmt.Errorf("osm: %w", err)
			return false
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "node":
			var n Node
			if err := s.dec.DecodeElement(&n, &start); err != nil {
				s.err = fmt.Errorf("osm: decoding node: %w", err)
				return false
			}
			s.obj = &n
			return true
		case "way":
			var xw xmlWay
			if err := s.dec.DecodeElement(&xw, &start); err != nil {
				s.err = fmt.Errorf("osm: decoding way: %w", err)
				return false
			}
			w := &Way{
				ID:      xw.ID,
				NodeIDs: make([]int64, len(xw.Nds)),
				Tags:    make(Tags, len(xw.Tags)),
			}
			for i, nd := range xw.Nds {
				w.NodeIDs[i] = nd.Ref
			}
			for _, t := range xw.Tags {
				w.Tags[t.K] = t.V
			}
			s.obj = w
			return true
		case "relation":
			if err := s.dec.Skip(); err != nil {
				s.err = fmt.Errorf("osm: skipping relation: %w", err)
				return false
			}
		}
	}
}

// Object returns the current *Node or *Way.
func (s *Scanner) Object() any {
	return s.obj
}

// Err returns the first error encountered while scanning.
func (s *Scanner) Err() error {
	return s.err
}
