// Package proxy provides the shared upstream proxy pool.
package proxy

import (
	"math/rand/v2"
	"net/url"
	"strings"
)

// Pool holds a fixed set of upstream proxy endpoints. The backing list is
// never mutated after construction, so Pool is safe for concurrent use by
// all workers without locking.
type Pool struct {
	endpoints []string
}

// NewPool builds a Pool from the configured endpoint list. Blank entries and
// endpoints that do not parse as URLs are dropped.
func NewPool(endpoints []string) *Pool {
	p := &Pool{}
	for _, raw := range endpoints {
		endpoint := strings.TrimSpace(raw)
		if endpoint == "" {
			continue
		}
		if _, err := url.Parse(endpoint); err != nil {
			continue
		}
		p.endpoints = append(p.endpoints, endpoint)
	}
	return p
}

// Select returns a uniformly random endpoint from the pool, or false when
// none are configured and the caller must fetch direct.
func (p *Pool) Select() (string, bool) {
	if p == nil || len(p.endpoints) == 0 {
		return "", false
	}
	return p.endpoints[rand.IntN(len(p.endpoints))], true
}

// Size reports the number of configured endpoints.
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return len(p.endpoints)
}
