package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Dialect identifies a backend-specific SQL variant of an otherwise
// logically identical query.
type Dialect string

const (
	DialectPostgreSQL Dialect = "postgresql"
	DialectClickHouse Dialect = "clickhouse"
	DialectStarRocks  Dialect = "starrocks"
	DialectTrino      Dialect = "trino"
)

// QueryDefinition is one named, parameterized benchmark query. The same
// logical query may need different SQL text per backend; dialects not listed
// fall back to DefaultSQL when it is set, otherwise the query is unsupported
// for that dialect.
type QueryDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	SQL         map[Dialect]string `json:"sql"`
	DefaultSQL  string             `json:"default_sql,omitempty"`
}

// Resolve returns the SQL text for the given dialect. The second return is
// false when the query has neither a dialect-specific entry nor a default.
func (q *QueryDefinition) Resolve(d Dialect) (string, bool) {
	if sql, ok := q.SQL[d]; ok && strings.TrimSpace(sql) != "" {
		return sql, true
	}
	if strings.TrimSpace(q.DefaultSQL) != "" {
		return q.DefaultSQL, true
	}
	return "", false
}

// Catalog is an ordered, immutable-after-load set of query definitions.
type Catalog struct {
	queries []QueryDefinition
	byName  map[string]int
}

// New builds a catalog from definitions, validating uniqueness and shape.
func New(defs []QueryDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("query catalog is empty")
	}
	c := &Catalog{
		queries: make([]QueryDefinition, 0, len(defs)),
		byName:  make(map[string]int, len(defs)),
	}
	for _, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			return nil, fmt.Errorf("query definition with empty name")
		}
		if _, dup := c.byName[def.Name]; dup {
			return nil, fmt.Errorf("duplicate query name: %s", def.Name)
		}
		if len(def.SQL) == 0 && strings.TrimSpace(def.DefaultSQL) == "" {
			return nil, fmt.Errorf("query %s has no SQL for any dialect", def.Name)
		}
		c.byName[def.Name] = len(c.queries)
		c.queries = append(c.queries, def)
	}
	return c, nil
}

// LoadFile reads query definitions from a JSON file. Unknown fields are
// ignored so older harness versions can read newer catalog files.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query catalog: %w", err)
	}
	var defs []QueryDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse query catalog %s: %w", path, err)
	}
	return New(defs)
}

// Queries returns the definitions in catalog order.
func (c *Catalog) Queries() []QueryDefinition {
	out := make([]QueryDefinition, len(c.queries))
	copy(out, c.queries)
	return out
}

// Get returns the definition with the given name.
func (c *Catalog) Get(name string) (QueryDefinition, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return QueryDefinition{}, false
	}
	return c.queries[idx], true
}

// Len returns the number of queries in the catalog.
func (c *Catalog) Len() int {
	return len(c.queries)
}
