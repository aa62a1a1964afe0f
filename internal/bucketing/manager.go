package bucketing

import (
	"hash"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"account-service/internal/config"
)

// Manager assigns records to fixed-size partition buckets so that wide
// Scylla partitions stay bounded. The same user always lands in the same
// bucket.
type Manager struct {
	userBuckets  int
	eventBuckets int
	hasherPool   sync.Pool
}

func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		userBuckets:  cfg.Bucketing.UserBuckets,
		eventBuckets: cfg.Bucketing.EventBuckets,
	}

	m.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return m
}

// UserBucket returns the consistent bucket for a user id (0 to userBuckets-1).
func (m *Manager) UserBucket(userID string) int {
	return m.bucket(userID, m.userBuckets)
}

// EventBucket returns the bucket for an audit event identifier.
func (m *Manager) EventBucket(identifier string) int {
	return m.bucket(identifier, m.eventBuckets)
}

// DateBucket returns the UTC date partition for audit rows.
func (m *Manager) DateBucket() string {
	return time.Now().UTC().Format("2006-01-02")
}

func (m *Manager) bucket(key string, numBuckets int) int {
	if numBuckets <= 0 {
		return 0
	}
	return int(m.sum64(key) % uint64(numBuckets))
}

func (m *Manager) sum64(key string) uint64 {
	hasher := m.hasherPool.Get().(hash.Hash64)
	defer m.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}
