package oid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"

	"github.com/matzehuels/pglocktrace/pkg/cache"
	"github.com/matzehuels/pglocktrace/pkg/errors"
	"github.com/matzehuels/pglocktrace/pkg/observability"
)

const (
	relationsQuery = `SELECT n.nspname, c.relname, c.oid
FROM pg_namespace n
JOIN pg_class c ON n.oid = c.relnamespace`

	relationQuery = `SELECT n.nspname, c.relname
FROM pg_namespace n
JOIN pg_class c ON n.oid = c.relnamespace
WHERE c.oid = $1`
)

// catalogDB is the subset of catalog access a Catalog needs.
type catalogDB interface {
	relations(ctx context.Context) (map[uint32]string, error)
	relation(ctx context.Context, oid uint32) (string, bool, error)
	close(ctx context.Context) error
}

type pgxCatalog struct {
	conn *pgx.Conn
}

func (p *pgxCatalog) relations(ctx context.Context) (map[uint32]string, error) {
	rows, err := p.conn.Query(ctx, relationsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[uint32]string)
	for rows.Next() {
		var nsp, rel string
		var oid uint32
		if err := rows.Scan(&nsp, &rel, &oid); err != nil {
			return nil, err
		}
		names[oid] = nsp + "." + rel
	}
	return names, rows.Err()
}

func (p *pgxCatalog) relation(ctx context.Context, oid uint32) (string, bool, error) {
	var nsp, rel string
	err := p.conn.QueryRow(ctx, relationQuery, oid).Scan(&nsp, &rel)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return nsp + "." + rel, true, nil
}

func (p *pgxCatalog) close(ctx context.Context) error { return p.conn.Close(ctx) }

// CatalogOptions configures a [Catalog].
type CatalogOptions struct {
	Cache  cache.Cache   // shared name cache; nil disables it
	Keyer  cache.Keyer   // nil uses cache.DefaultKeyer
	TTL    time.Duration // expiry of cached names; zero never expires
	Logger *log.Logger

	// ApplicationName is reported in pg_stat_activity unless the URL sets
	// application_name itself.
	ApplicationName string
}

func (o *CatalogOptions) setDefaults() {
	if o.Cache == nil {
		o.Cache = cache.NewNullCache()
	}
	if o.Keyer == nil {
		o.Keyer = cache.NewDefaultKeyer()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Catalog resolves OIDs against the pg_class catalog of one database.
// Lookups go to the in-memory map first, then to the shared cache, then to
// the database. Catalog is safe for concurrent use.
type Catalog struct {
	url  string
	opts CatalogOptions

	mu    sync.Mutex
	db    catalogDB
	names map[uint32]string
}

// Connect opens a connection to the database at url and warms the catalog.
// Transient connection failures are retried with backoff. If the warm-up
// query fails, names cached by an earlier session are used instead.
func Connect(ctx context.Context, url string, opts CatalogOptions) (*Catalog, error) {
	if err := errors.ValidateDatabaseURL(url); err != nil {
		return nil, err
	}

	cfg, err := connConfig(url, opts.ApplicationName)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidResolver, err, "invalid database URL %s", redact(url))
	}

	var conn *pgx.Conn
	err = cache.RetryWithBackoff(ctx, func() error {
		var err error
		conn, err = pgx.ConnectConfig(ctx, cfg)
		if err != nil && ctx.Err() == nil {
			return cache.Retryable(err)
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "unable to connect to the database %s", redact(url))
	}

	c := newCatalog(url, &pgxCatalog{conn: conn}, opts)
	c.Warm(ctx)
	return c, nil
}

// connConfig parses url and names the connection appName when the URL does
// not name it.
func connConfig(url, appName string) (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	if _, ok := cfg.RuntimeParams["application_name"]; !ok && appName != "" {
		cfg.RuntimeParams["application_name"] = appName
	}
	return cfg, nil
}

func newCatalog(url string, db catalogDB, opts CatalogOptions) *Catalog {
	opts.setDefaults()
	return &Catalog{url: url, opts: opts, db: db, names: make(map[uint32]string)}
}

// Warm loads every relation name of the database into memory and returns
// how many were loaded.
func (c *Catalog) Warm(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	names, err := c.db.relations(ctx)
	if err != nil {
		observability.Resolver().OnError(ctx, "catalog", err)
		c.opts.Logger.Warn("catalog warm-up failed, using cached names", "err", err)
		return c.loadSnapshot(ctx)
	}
	observability.Resolver().OnResolve(ctx, "catalog", true, time.Since(start))

	for oid, name := range names {
		c.names[oid] = name
	}
	c.storeSnapshot(ctx)
	c.opts.Logger.Debug("warmed OID catalog", "relations", len(names), "duration", time.Since(start))
	return len(names)
}

func (c *Catalog) loadSnapshot(ctx context.Context) int {
	data, ok, err := c.opts.Cache.Get(ctx, c.opts.Keyer.CatalogKey(c.url))
	if err != nil || !ok {
		observability.Cache().OnCacheMiss(ctx, "catalog")
		return 0
	}
	var snap map[string]string
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0
	}
	observability.Cache().OnCacheHit(ctx, "catalog")
	for k, name := range snap {
		if oid, err := strconv.ParseUint(k, 10, 32); err == nil {
			c.names[uint32(oid)] = name
		}
	}
	return len(snap)
}

func (c *Catalog) storeSnapshot(ctx context.Context) {
	snap := make(map[string]string, len(c.names))
	for oid, name := range c.names {
		snap[strconv.FormatUint(uint64(oid), 10)] = name
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.opts.Cache.Set(ctx, c.opts.Keyer.CatalogKey(c.url), data, c.opts.TTL); err != nil {
		c.opts.Logger.Debug("cache catalog snapshot", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "catalog", len(data))
}

// Resolve returns the schema-qualified name of oid, or the placeholder if
// the catalog does not know it or cannot be queried.
func (c *Catalog) Resolve(ctx context.Context, oid uint32) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if name, ok := c.names[oid]; ok {
		return name
	}

	key := c.opts.Keyer.OIDKey(c.url, oid)
	if data, ok, err := c.opts.Cache.Get(ctx, key); err == nil && ok {
		observability.Cache().OnCacheHit(ctx, "oid")
		c.names[oid] = string(data)
		return string(data)
	}
	observability.Cache().OnCacheMiss(ctx, "oid")

	start := time.Now()
	name, found, err := c.db.relation(ctx, oid)
	if err != nil {
		observability.Resolver().OnError(ctx, "catalog", err)
		c.opts.Logger.Warn("resolve OID", "oid", oid, "err", err)
		return Placeholder(oid)
	}
	observability.Resolver().OnResolve(ctx, "catalog", found, time.Since(start))
	if !found {
		return Placeholder(oid)
	}

	c.names[oid] = name
	if err := c.opts.Cache.Set(ctx, key, []byte(name), c.opts.TTL); err == nil {
		observability.Cache().OnCacheSet(ctx, "oid", len(name))
	}
	return name
}

// Len returns the number of names held in memory.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.names)
}

// Close closes the database connection. The shared cache is owned by the
// caller and stays open.
func (c *Catalog) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.db.close(ctx); err != nil {
		return fmt.Errorf("close catalog connection: %w", err)
	}
	return nil
}

// redact hides the password of a database URL for messages.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
