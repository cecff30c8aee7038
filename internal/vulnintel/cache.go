package vulnintel

import "sync"

// lookupCache is a read-through cache over catalog queries. Sessions in one
// analysis run tend to reference the same handful of CVEs, so the cache
// turns the per-event lookups into map reads. Negative lookups are cached
// too; the catalog does not change under a running pipeline.
type lookupCache struct {
	mu    sync.RWMutex
	vulns map[string]Details
	cwes  map[string]Weakness
}

func newLookupCache() *lookupCache {
	return &lookupCache{
		vulns: make(map[string]Details),
		cwes:  make(map[string]Weakness),
	}
}

func (lc *lookupCache) getVuln(id string) (Details, bool) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	d, ok := lc.vulns[id]
	return d, ok
}

func (lc *lookupCache) putVuln(id string, d Details) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.vulns[id] = d
}

func (lc *lookupCache) getCWE(id string) (Weakness, bool) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	w, ok := lc.cwes[id]
	return w, ok
}

func (lc *lookupCache) putCWE(id string, w Weakness) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.cwes[id] = w
}
