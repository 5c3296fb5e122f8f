// Package discovery resolves service names to backend addresses.
//
// Three resolvers satisfy registry.Discoverer: HTTP queries a remote
// directory, Static serves a fixed table, and Directory is the file-backed
// directory that the HTTP resolver is normally pointed at.
package discovery

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownService is returned when a resolver has no entry for a name.
var ErrUnknownService = errors.New("discovery: unknown service")

// Entry is the directory record for one service. It is also the JSON body
// returned by the directory for GET /{name}.
type Entry struct {
	Name string   `json:"name"`
	IPs  []string `json:"ips"`
}

func (e Entry) clone() Entry {
	e.IPs = append([]string(nil), e.IPs...)
	return e
}

// Static resolves names from a fixed table.
type Static struct {
	backends map[string][]string
}

// NewStatic copies table into a Static resolver.
func NewStatic(table map[string][]string) *Static {
	s := &Static{backends: make(map[string][]string, len(table))}
	for name, ips := range table {
		s.backends[name] = append([]string(nil), ips...)
	}
	return s
}

func (s *Static) Backends(_ context.Context, name string) ([]string, error) {
	ips, ok := s.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	return append([]string(nil), ips...), nil
}
