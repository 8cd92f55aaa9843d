package model

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// opSet sammelt Operationstypen ohne Duplikate in Einfuege-Reihenfolge
type opSet struct {
	m *orderedmap.OrderedMap[string, int]
}

func newOpSet() *opSet {
	return &opSet{m: orderedmap.New[string, int]()}
}

// add zaehlt ein Vorkommen von op
func (s *opSet) add(op string) {
	n, _ := s.m.Get(op)
	s.m.Set(op, n+1)
}

func (s *opSet) list() []string {
	out := make([]string, 0, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// counts gibt die Anzahl je Operation zurueck
func (s *opSet) counts() map[string]int {
	out := make(map[string]int, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}
