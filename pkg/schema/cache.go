package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tagus/graphmind/pkg/interfaces"
	"github.com/tagus/graphmind/pkg/logging"
)

// ErrSchemaUnavailable indicates the database could not be introspected.
// Callers are expected to proceed with an empty snapshot rather than fail
// the whole request.
var ErrSchemaUnavailable = errors.New("schema unavailable")

// Introspection via apoc.meta.data, mirroring the procedure output shape
const (
	nodePropertiesQuery = `
CALL apoc.meta.data()
YIELD label, other, elementType, type, property
WHERE NOT type = "RELATIONSHIP" AND elementType = "node"
WITH label AS nodeLabel, collect({property: property, type: type}) AS properties
RETURN nodeLabel, properties`

	relPropertiesQuery = `
CALL apoc.meta.data()
YIELD label, other, elementType, type, property
WHERE NOT type = "RELATIONSHIP" AND elementType = "relationship"
WITH label AS relType, collect({property: property, type: type}) AS properties
RETURN relType, properties`

	relTopologyQuery = `
CALL apoc.meta.data()
YIELD label, other, elementType, type, property
WHERE type = "RELATIONSHIP" AND elementType = "node"
UNWIND other AS otherNode
RETURN label AS start, property AS type, toString(otherNode) AS end`
)

// Fallback introspection for databases without APOC
const (
	builtinNodeQuery     = `CALL db.schema.nodeTypeProperties() YIELD nodeType, propertyName, propertyTypes RETURN nodeType, propertyName, propertyTypes`
	builtinRelQuery      = `CALL db.schema.relTypeProperties() YIELD relType, propertyName, propertyTypes RETURN relType, propertyName, propertyTypes`
	builtinTopologyQuery = `MATCH (a)-[r]->(b) RETURN DISTINCT head(labels(a)) AS start, type(r) AS type, head(labels(b)) AS end LIMIT 500`
)

// Cache holds the current schema snapshot. Get returns the cached snapshot
// without touching the database; Refresh replaces it wholesale. Staleness is
// tolerated: query generation only needs the schema to be close enough.
type Cache struct {
	executor interfaces.GraphExecutor
	database string
	excluded map[string][]string
	logger   logging.Logger

	mu       sync.RWMutex
	snapshot *Snapshot
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithExcludedProperties strips the named properties per node label from
// every captured snapshot, keeping sensitive fields out of prompts
func WithExcludedProperties(excluded map[string][]string) CacheOption {
	return func(c *Cache) {
		c.excluded = excluded
	}
}

// WithLogger sets the logger for the cache
func WithLogger(logger logging.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache creates a schema cache backed by the given executor
func NewCache(executor interfaces.GraphExecutor, database string, options ...CacheOption) *Cache {
	cache := &Cache{
		executor: executor,
		database: database,
		logger:   logging.New(),
	}
	for _, option := range options {
		option(cache)
	}
	return cache
}

// Get returns the current snapshot, fetching one on first use. It never
// refreshes an existing snapshot; callers wanting a fresh view use Refresh.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	snapshot := c.snapshot
	c.mu.RUnlock()

	if snapshot != nil {
		return snapshot, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches the schema from the database and replaces the cached
// snapshot. On failure the previous snapshot (possibly nil) is kept and the
// error wraps ErrSchemaUnavailable.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	snapshot, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn(ctx, "Schema introspection failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()

	c.logger.Info(ctx, "Schema snapshot refreshed", map[string]interface{}{
		"node_labels":   len(snapshot.NodeProps),
		"rel_types":     len(snapshot.RelProps),
		"relationships": len(snapshot.Relationships),
	})
	return snapshot, nil
}

func (c *Cache) fetch(ctx context.Context) (*Snapshot, error) {
	snapshot, err := c.fetchViaAPOC(ctx)
	if err == nil {
		return snapshot, nil
	}
	if !isProcedureNotFound(err) {
		return nil, err
	}

	c.logger.Debug(ctx, "APOC not available, using built-in schema procedures", nil)
	return c.fetchViaBuiltin(ctx)
}

func (c *Cache) fetchViaAPOC(ctx context.Context) (*Snapshot, error) {
	nodeRows, err := c.executor.ExecuteQuery(ctx, nodePropertiesQuery, nil, c.database)
	if err != nil {
		return nil, err
	}
	nodeProps := make(map[string][]Property)
	for _, row := range nodeRows {
		label, _ := row["nodeLabel"].(string)
		if label == "" {
			continue
		}
		nodeProps[label] = c.filterProps(label, propertyList(row["properties"]))
	}

	relRows, err := c.executor.ExecuteQuery(ctx, relPropertiesQuery, nil, c.database)
	if err != nil {
		return nil, err
	}
	relProps := make(map[string][]Property)
	for _, row := range relRows {
		relType, _ := row["relType"].(string)
		if relType == "" {
			continue
		}
		relProps[relType] = propertyList(row["properties"])
	}

	topologyRows, err := c.executor.ExecuteQuery(ctx, relTopologyQuery, nil, c.database)
	if err != nil {
		return nil, err
	}
	relationships := make([]Relationship, 0, len(topologyRows))
	for _, row := range topologyRows {
		relationships = append(relationships, Relationship{
			Start: asString(row["start"], "Node"),
			Type:  asString(row["type"], "RELATES_TO"),
			End:   asString(row["end"], "Node"),
		})
	}

	return &Snapshot{NodeProps: nodeProps, RelProps: relProps, Relationships: relationships}, nil
}

func (c *Cache) fetchViaBuiltin(ctx context.Context) (*Snapshot, error) {
	nodeRows, err := c.executor.ExecuteQuery(ctx, builtinNodeQuery, nil, c.database)
	if err != nil {
		return nil, err
	}
	nodeProps := make(map[string][]Property)
	for _, row := range nodeRows {
		label := strings.Trim(asString(row["nodeType"], "Unknown"), ":`")
		name := asString(row["propertyName"], "")
		if name == "" || c.isExcluded(label, name) {
			continue
		}
		nodeProps[label] = append(nodeProps[label], Property{Name: name, Type: typeString(row["propertyTypes"])})
	}

	relRows, err := c.executor.ExecuteQuery(ctx, builtinRelQuery, nil, c.database)
	if err != nil {
		return nil, err
	}
	relProps := make(map[string][]Property)
	for _, row := range relRows {
		relType := strings.Trim(asString(row["relType"], "RELATES_TO"), ":`")
		name := asString(row["propertyName"], "")
		if name == "" {
			continue
		}
		relProps[relType] = append(relProps[relType], Property{Name: name, Type: typeString(row["propertyTypes"])})
	}

	topologyRows, err := c.executor.ExecuteQuery(ctx, builtinTopologyQuery, nil, c.database)
	if err != nil {
		return nil, err
	}
	relationships := make([]Relationship, 0, len(topologyRows))
	for _, row := range topologyRows {
		relationships = append(relationships, Relationship{
			Start: asString(row["start"], "Node"),
			Type:  asString(row["type"], "RELATES_TO"),
			End:   asString(row["end"], "Node"),
		})
	}

	return &Snapshot{NodeProps: nodeProps, RelProps: relProps, Relationships: relationships}, nil
}

func (c *Cache) isExcluded(label, property string) bool {
	for _, name := range c.excluded[label] {
		if name == property {
			return true
		}
	}
	return false
}

func (c *Cache) filterProps(label string, props []Property) []Property {
	filtered := props[:0]
	for _, p := range props {
		if !c.isExcluded(label, p.Name) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func propertyList(value any) []Property {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	props := make([]Property, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := asString(m["property"], "")
		if name == "" {
			continue
		}
		props = append(props, Property{Name: name, Type: asString(m["type"], "STRING")})
	}
	return props
}

func typeString(value any) string {
	switch v := value.(type) {
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		return strings.Join(parts, ",")
	case nil:
		return "STRING"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asString(value any, fallback string) string {
	if s, ok := value.(string); ok && s != "" {
		return s
	}
	return fallback
}

func isProcedureNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "ProcedureNotFound") || strings.Contains(msg, "There is no procedure")
}
