package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

var _ Cache = (*Valkey)(nil)

// Valkey shares cached lookups between client processes through a Valkey
// (Redis-compatible) server. Eviction is left to the server's TTL and maxmemory policy.
type Valkey struct {
	client valkey.Client
	ttl    time.Duration
	prefix string
}

// NewValkey connects to addr. Entries expire after ttl.
func NewValkey(addr string, ttl time.Duration) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return newValkey(client, ttl), nil
}

func newValkey(client valkey.Client, ttl time.Duration) *Valkey {
	return &Valkey{client: client, ttl: ttl, prefix: "route-risk:"}
}

// Get retrieves the entry stored under key.
func (c *Valkey) Get(ctx context.Context, key string) (Entry, error) {
	cmd := c.client.Do(ctx, c.client.B().Get().Key(c.prefix+key).Build())
	b, err := cmd.AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return Entry{}, ErrMiss
		}
		return Entry{}, err
	}

	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, fmt.Errorf("decode cache entry %q: %w", key, err)
	}
	return e, nil
}

// Set stores value under key with the configured TTL.
func (c *Valkey) Set(ctx context.Context, key string, value []byte) error {
	data, err := json.Marshal(Entry{Key: key, Value: value, InsertedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	cmd := c.client.Do(ctx,
		c.client.B().Set().Key(c.prefix+key).Value(string(data)).Ex(c.ttl).Build(),
	)
	return cmd.Error()
}

// Close releases the client.
func (c *Valkey) Close() {
	c.client.Close()
}
