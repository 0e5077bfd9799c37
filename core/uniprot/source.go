package uniprot

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"protein-updater/core/reconcile"
	"protein-updater/core/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// IndexObject is the name of the secondary to primary accession map under the canonical prefix.
const IndexObject = "index.json"

// Source serves canonical entries from JSON snapshots in the object store.
// It implements reconcile.CanonicalSource.
type Source struct {
	client storage.Client
	bucket string
	prefix string
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.RWMutex
	index *accessionIndex
	sf    singleflight.Group
}

// accessionIndex maps secondary accessions to the primary accession of their entry.
type accessionIndex struct {
	secondary map[string]string
	built     time.Time
	ttl       time.Duration
}

func (i *accessionIndex) isExpired() bool {
	if i.ttl == 0 {
		return true
	}
	return time.Since(i.built) > i.ttl
}

// NewSource creates a snapshot source reading from bucket.
func NewSource(client storage.Client, bucket string, cfg Config, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		client: client,
		bucket: bucket,
		prefix: cfg.CanonicalPrefix,
		ttl:    time.Duration(cfg.IndexTTLSeconds) * time.Second,
		logger: logger,
	}
}

// Fetch returns the entry known under id, resolving secondary accessions through
// the index. It returns nil when no snapshot exists for id.
func (s *Source) Fetch(ctx context.Context, id string) (*reconcile.CanonicalRecord, error) {
	rec, err := s.entry(ctx, id)
	if err != nil || rec != nil {
		return rec, err
	}

	idx, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	primary, ok := idx.secondary[id]
	if !ok || primary == id {
		return nil, nil
	}
	s.logger.Debug("Resolved secondary accession", zap.String("accession", id), zap.String("primary", primary))
	return s.entry(ctx, primary)
}

// Invalidate drops the cached index so the next lookup reloads it.
func (s *Source) Invalidate() {
	s.mu.Lock()
	s.index = nil
	s.mu.Unlock()
}

func (s *Source) entry(ctx context.Context, accession string) (*reconcile.CanonicalRecord, error) {
	var rec reconcile.CanonicalRecord
	found, err := storage.ReadJSON(ctx, s.client, s.bucket, path.Join(s.prefix, accession+".json"), &rec)
	if err != nil || !found {
		return nil, err
	}
	if rec.PrimaryID == "" {
		return nil, fmt.Errorf("entry %s has no primary accession", accession)
	}
	return &rec, nil
}

// loadIndex returns the cached index, rebuilding it once for concurrent callers when expired.
func (s *Source) loadIndex(ctx context.Context) (*accessionIndex, error) {
	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()
	if idx != nil && !idx.isExpired() {
		return idx, nil
	}

	result, err, _ := s.sf.Do(IndexObject, func() (any, error) {
		s.mu.RLock()
		idx := s.index
		s.mu.RUnlock()
		if idx != nil && !idx.isExpired() {
			return idx, nil
		}

		secondary := make(map[string]string)
		if _, err := storage.ReadJSON(ctx, s.client, s.bucket, path.Join(s.prefix, IndexObject), &secondary); err != nil {
			return nil, err
		}

		idx = &accessionIndex{secondary: secondary, built: time.Now(), ttl: s.ttl}
		s.mu.Lock()
		s.index = idx
		s.mu.Unlock()
		s.logger.Debug("Loaded accession index", zap.Int("entries", len(secondary)))
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*accessionIndex), nil
}
