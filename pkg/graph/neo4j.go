package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/tagus/graphmind/pkg/logging"
)

// Config holds Neo4j connection configuration
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Executor wraps a Neo4j driver and implements interfaces.GraphExecutor
type Executor struct {
	driver   neo4j.DriverWithContext
	database string
	logger   logging.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithLogger sets the logger for the executor
func WithLogger(logger logging.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// New creates a new Neo4j executor and verifies connectivity
func New(ctx context.Context, cfg Config, options ...Option) (*Executor, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	executor := &Executor{
		driver:   driver,
		database: cfg.Database,
		logger:   logging.New(),
	}
	for _, option := range options {
		option(executor)
	}

	return executor, nil
}

// Close closes the Neo4j connection
func (e *Executor) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

// QueryError is a structured execution error from the database. Code is the
// Neo4j status code when available; Query is the offending query, kept for
// diagnosis.
type QueryError struct {
	Code  string
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("query execution failed (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// ExecuteQuery runs a Cypher query and returns its rows as maps. The database
// argument overrides the executor's default database when non-empty.
func (e *Executor) ExecuteQuery(ctx context.Context, query string, params map[string]any, database string) ([]map[string]any, error) {
	if database == "" {
		database = e.database
	}

	session := e.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var rows []map[string]any
		for result.Next(ctx) {
			rows = append(rows, result.Record().AsMap())
		}
		if err := result.Err(); err != nil {
			return nil, err
		}

		return rows, nil
	})
	if err != nil {
		e.logger.Debug(ctx, "Cypher execution failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, &QueryError{Code: neo4jErrorCode(err), Query: query, Err: err}
	}

	rows, _ := result.([]map[string]any)
	return rows, nil
}

// ExecuteWrite runs a Cypher write query. Used for example ingestion and
// vector index management, never by the question pipeline.
func (e *Executor) ExecuteWrite(ctx context.Context, query string, params map[string]any, database string) error {
	if database == "" {
		database = e.database
	}

	session := e.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	if err != nil {
		return &QueryError{Code: neo4jErrorCode(err), Query: query, Err: err}
	}

	return nil
}

func neo4jErrorCode(err error) string {
	var neo4jErr *neo4j.Neo4jError
	if errors.As(err, &neo4jErr) {
		return neo4jErr.Code
	}
	return ""
}
