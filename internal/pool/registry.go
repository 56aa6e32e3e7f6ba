// Package pool owns the process-global registry of live database
// connection pools. Pools are keyed by a hash of the connection secret —
// the secret itself never reaches memory logs — and live until CloseAll at
// process shutdown. They are never closed per-request.
package pool

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/asklens/asklens/internal/source"
)

const (
	maxOpenConns   = 5
	idleTimeout    = 30 * time.Second
	connectTimeout = 10 * time.Second
)

// Key derives the registry key for a (kind, secret) pair.
func Key(kind source.Kind, secret string) string {
	sum := sha256.Sum256([]byte(string(kind) + ":" + secret))
	return hex.EncodeToString(sum[:])
}

// Registry hands out shared pools. Creation is single-owner under a narrow
// mutex; lookups after creation are lock-free via sync.Map.
type Registry struct {
	pools sync.Map // key string -> *sqlx.DB
	mu    sync.Mutex
	log   *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{log: log}
}

// Pool returns the pool for the secret, creating it lazily on first use.
func (r *Registry) Pool(kind source.Kind, secret string) (*sqlx.DB, error) {
	key := Key(kind, secret)
	if db, ok := r.pools.Load(key); ok {
		return db.(*sqlx.DB), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if db, ok := r.pools.Load(key); ok {
		return db.(*sqlx.DB), nil
	}

	driver, dsn, err := driverDSN(kind, secret)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s pool %s: %w", kind, key[:8], err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxIdleTime(idleTimeout)

	r.pools.Store(key, db)
	r.log.Info("connection pool created",
		zap.String("kind", string(kind)),
		zap.String("key", key[:8]),
		zap.Int("max_open", maxOpenConns))
	return db, nil
}

// CloseAll closes every pool. Called once on orderly shutdown; errors are
// logged per pool and never abort the sweep.
func (r *Registry) CloseAll() {
	r.pools.Range(func(key, value any) bool {
		db := value.(*sqlx.DB)
		if err := db.Close(); err != nil {
			r.log.Warn("closing pool", zap.String("key", key.(string)[:8]), zap.Error(err))
		}
		r.pools.Delete(key)
		return true
	})
}

// driverDSN maps the source kind to a database/sql driver and applies the
// connect timeout when the secret doesn't carry one already.
func driverDSN(kind source.Kind, secret string) (driver, dsn string, err error) {
	switch kind {
	case source.KindMySQL:
		dsn = secret
		if !strings.Contains(dsn, "timeout=") {
			if strings.Contains(dsn, "?") {
				dsn += "&timeout=" + connectTimeout.String()
			} else {
				dsn += "?timeout=" + connectTimeout.String()
			}
		}
		return "mysql", dsn, nil
	case source.KindPostgres:
		dsn = secret
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if !strings.Contains(dsn, "connect_timeout=") {
				sep := "?"
				if strings.Contains(dsn, "?") {
					sep = "&"
				}
				dsn += sep + fmt.Sprintf("connect_timeout=%d", int(connectTimeout.Seconds()))
			}
		} else if !strings.Contains(dsn, "connect_timeout=") {
			dsn += fmt.Sprintf(" connect_timeout=%d", int(connectTimeout.Seconds()))
		}
		return "postgres", dsn, nil
	default:
		return "", "", fmt.Errorf("kind %q has no live driver", kind)
	}
}
