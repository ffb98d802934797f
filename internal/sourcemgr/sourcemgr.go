// Package sourcemgr implements the process-wide SourceManager: reference-
// counted open record.Source handles keyed by path, plus three
// hashicorp/golang-lru/v2 caches (geodes, mercator-reprojected geodes,
// attribute records) shared across every selector and filter.
//
// Grounded on the LRU cache wiring in
// _examples/tobilg-duckdb-tileserver/internal/cache/lru.go (eviction
// callback + logrus instrumentation pattern) and spec.md §5's description
// of the manager's single-mutex critical sections.
package sourcemgr

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"

	"github.com/google/earthenterprise-sub002/internal/coreerr"
	"github.com/google/earthenterprise-sub002/internal/geomtypes"
	"github.com/google/earthenterprise-sub002/internal/record"
)

const defaultCacheSize = 4096

type sourceHandle struct {
	source   record.Source
	refCount int
}

// Manager owns every open Source plus the three shared LRU caches. All
// state is guarded by one mutex; cache probes/inserts and handle
// acquire/release are its only critical sections.
type Manager struct {
	mu sync.Mutex

	handles map[string]*sourceHandle

	geodes   *lru.Cache[record.RecordID, geomtypes.Geode]
	mercator *lru.Cache[record.RecordID, geomtypes.Geode]
	attrs    *lru.Cache[record.RecordID, *record.Record]
}

// New builds a Manager with caches sized per cacheSize (defaultCacheSize
// if <= 0).
func New(cacheSize int) (*Manager, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	m := &Manager{handles: make(map[string]*sourceHandle)}

	var err error
	m.geodes, err = lru.NewWithEvict[record.RecordID, geomtypes.Geode](cacheSize, evictLog[geomtypes.Geode]("geode"))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "sourcemgr.New", err)
	}
	m.mercator, err = lru.NewWithEvict[record.RecordID, geomtypes.Geode](cacheSize, evictLog[geomtypes.Geode]("mercator"))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "sourcemgr.New", err)
	}
	m.attrs, err = lru.NewWithEvict[record.RecordID, *record.Record](cacheSize, evictLog[*record.Record]("record"))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoFailure, "sourcemgr.New", err)
	}
	return m, nil
}

func evictLog[V any](cacheName string) func(record.RecordID, V) {
	return func(key record.RecordID, _ V) {
		log.WithFields(log.Fields{"cache": cacheName, "source_id": key.SourceID, "feature_id": key.FeatureID}).Trace("evicted")
	}
}

// Acquire returns a reference-counted handle to the source already
// registered at path, or opens it via open and registers it if this is the
// first acquisition. The caller must call Release exactly once per
// Acquire.
func (m *Manager) Acquire(path string, open func() (record.Source, error)) (record.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.handles[path]; ok {
		h.refCount++
		return h.source, nil
	}
	src, err := open()
	if err != nil {
		return nil, err
	}
	m.handles[path] = &sourceHandle{source: src, refCount: 1}
	return src, nil
}

// Release decrements path's reference count, closing and unregistering the
// source on the last release.
func (m *Manager) Release(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.handles[path]
	if !ok {
		return coreerr.New(coreerr.InvalidArgument, "sourcemgr.Release", "no open handle for path").WithPath(path)
	}
	h.refCount--
	if h.refCount > 0 {
		return nil
	}
	delete(m.handles, path)
	return h.source.Close()
}

// CachedGeode returns the cached geode for id, if present.
func (m *Manager) CachedGeode(id record.RecordID) (geomtypes.Geode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geodes.Get(id)
}

// PutGeode inserts/updates the geode cache for id.
func (m *Manager) PutGeode(id record.RecordID, g geomtypes.Geode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geodes.Add(id, g)
}

// CachedMercatorGeode returns the cached mercator-reprojected geode for id.
func (m *Manager) CachedMercatorGeode(id record.RecordID) (geomtypes.Geode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mercator.Get(id)
}

// PutMercatorGeode inserts/updates the mercator-reprojected geode cache.
func (m *Manager) PutMercatorGeode(id record.RecordID, g geomtypes.Geode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mercator.Add(id, g)
}

// CachedRecord returns the cached attribute record for id.
func (m *Manager) CachedRecord(id record.RecordID) (*record.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attrs.Get(id)
}

// PutRecord inserts/updates the attribute record cache.
func (m *Manager) PutRecord(id record.RecordID, r *record.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attrs.Add(id, r)
}

// Stats reports current cache occupancy, for the debug server's status
// endpoint.
type Stats struct {
	GeodeCount    int
	MercatorCount int
	RecordCount   int
	OpenSources   int
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		GeodeCount:    m.geodes.Len(),
		MercatorCount: m.mercator.Len(),
		RecordCount:   m.attrs.Len(),
		OpenSources:   len(m.handles),
	}
}
