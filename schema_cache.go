package qdb

import (
	"context"
	"database/sql"
	"strings"
	"sync"
)

// schemaCache holds, per (schema, table), the engine's actual column
// casing and declared SQL type. It is populated lazily the first time a
// table is touched by a lookup, shared between a Database and every
// Transaction opened from it (embedded-engine transactions excepted),
// and dropped whenever ExecuteScript may
// have altered the schema out from under it.
type schemaCache struct {
	mu    sync.Mutex
	byKey map[string]map[string]SchemaColumn
}

func newSchemaCache() *schemaCache {
	return &schemaCache{byKey: map[string]map[string]SchemaColumn{}}
}

func cacheKey(schema, table string) string {
	return strings.ToLower(schema) + "\x00" + strings.ToLower(table)
}

// columns returns the cached column map for schema.table, querying the
// engine's adapter and populating the cache on first use. A failed or
// empty introspection is treated the same as "nothing cached yet":
// callers fall back to using names as given rather than failing a query
// over an introspection problem.
func (c *schemaCache) columns(ctx context.Context, engine *Engine, db *sql.DB, schema, table string) map[string]SchemaColumn {
	if table == "" {
		return nil
	}
	key := cacheKey(schema, table)

	c.mu.Lock()
	cols, ok := c.byKey[key]
	c.mu.Unlock()
	if ok {
		return cols
	}

	fetched, err := engine.Adapter.SchemaColumns(ctx, db, schema, table)
	if err != nil || len(fetched) == 0 {
		return nil
	}

	byLower := make(map[string]SchemaColumn, len(fetched))
	for _, col := range fetched {
		byLower[strings.ToLower(col.Name)] = col
	}

	c.mu.Lock()
	c.byKey[key] = byLower
	c.mu.Unlock()
	return byLower
}

// invalidate drops every cached table. Used after ExecuteScript, since
// an arbitrary script may have added, dropped, renamed, or retyped
// columns the cache has no way to observe incrementally.
func (c *schemaCache) invalidate() {
	c.mu.Lock()
	c.byKey = map[string]map[string]SchemaColumn{}
	c.mu.Unlock()
}

// resolveSchemaColumn looks name up case-insensitively against cols.
func resolveSchemaColumn(cols map[string]SchemaColumn, name string) (SchemaColumn, bool) {
	if cols == nil || name == "" {
		return SchemaColumn{}, false
	}
	col, ok := cols[strings.ToLower(name)]
	return col, ok
}
