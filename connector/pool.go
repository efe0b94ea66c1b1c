package connector

import (
	"github.com/pkg/errors"

	"github.com/mensylisir/xmbuild/cache"
	"github.com/mensylisir/xmbuild/logger"
)

// Pool shares one Connection per endpoint. Connections are closed when they
// are evicted, either by Release or by Close.
type Pool struct {
	dial  Dialer
	conns *cache.Cache[string, Connection]
}

// NewPool creates a Pool that opens connections with dial. A nil dial uses Dial.
func NewPool(dial Dialer) *Pool {
	if dial == nil {
		dial = Dial
	}
	return &Pool{
		dial: dial,
		conns: cache.NewCache[string, Connection](cache.WithEvictFunc(func(key string, c Connection) {
			if err := c.Close(); err != nil {
				logger.Log.Warnf("failed to close connection %s: %v", key, err)
			}
		})),
	}
}

// Get returns the pooled connection for cfg, dialing on first use.
func (p *Pool) Get(cfg Config) (Connection, error) {
	key := cfg.Key()
	conn, err := p.conns.GetOrCreate(key, func() (Connection, error) {
		return p.dial(cfg)
	})
	return conn, errors.Wrapf(err, "failed to connect to %s", key)
}

// Release closes and forgets the connection for cfg, if any.
func (p *Pool) Release(cfg Config) {
	p.conns.Delete(cfg.Key())
}

// Len returns the number of open connections.
func (p *Pool) Len() int {
	return p.conns.Len()
}

// Close closes every pooled connection.
func (p *Pool) Close() {
	p.conns.Close()
}
