package proxy

import "testing"

func TestPoolSelectEmpty(t *testing.T) {
	t.Parallel()

	p := NewPool(nil)
	if _, ok := p.Select(); ok {
		t.Fatal("expected no endpoint from an empty pool")
	}

	var nilPool *Pool
	if _, ok := nilPool.Select(); ok {
		t.Fatal("expected no endpoint from a nil pool")
	}
}

func TestPoolSelectMembership(t *testing.T) {
	t.Parallel()

	endpoints := []string{
		"http://58.60.255.104:8118",
		"http://219.135.164.245:3128",
		"http://27.44.171.27:9999",
	}
	p := NewPool(endpoints)
	if p.Size() != 3 {
		t.Fatalf("expected 3 endpoints, got %d", p.Size())
	}

	allowed := make(map[string]struct{}, len(endpoints))
	for _, e := range endpoints {
		allowed[e] = struct{}{}
	}
	seen := make(map[string]struct{})
	for i := 0; i < 300; i++ {
		endpoint, ok := p.Select()
		if !ok {
			t.Fatal("expected an endpoint from a non-empty pool")
		}
		if _, member := allowed[endpoint]; !member {
			t.Fatalf("selected endpoint %q not in configured set", endpoint)
		}
		seen[endpoint] = struct{}{}
	}
	if len(seen) != len(endpoints) {
		t.Fatalf("expected all endpoints selected over 300 draws, saw %d", len(seen))
	}
}

func TestPoolDropsBlankEntries(t *testing.T) {
	t.Parallel()

	p := NewPool([]string{"  ", "", "http://proxy.internal:8080"})
	if p.Size() != 1 {
		t.Fatalf("expected 1 endpoint after filtering, got %d", p.Size())
	}
	endpoint, ok := p.Select()
	if !ok || endpoint != "http://proxy.internal:8080" {
		t.Fatalf("unexpected selection %q, ok=%v", endpoint, ok)
	}
}
