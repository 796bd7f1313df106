package engine

import "fmt"

// QueryGenerationError reports a failure to produce a usable query: the
// model call failed, returned nothing, or returned a query that the
// read-only guard rejected. Nothing was executed.
type QueryGenerationError struct {
	Err error
}

func (e *QueryGenerationError) Error() string {
	return fmt.Sprintf("query generation failed: %v", e.Err)
}

func (e *QueryGenerationError) Unwrap() error { return e.Err }

// QueryExecutionError reports a generated query that the database rejected
// or that failed mid-execution. Cypher is the query that failed.
type QueryExecutionError struct {
	Cypher string
	Err    error
}

func (e *QueryExecutionError) Error() string {
	if e.Cypher != "" {
		return fmt.Sprintf("query execution failed: %v (query: %s)", e.Err, e.Cypher)
	}
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// ToolExecutionError reports a graph algorithm tool call that failed after
// routing chose the tool path and no fallback applied.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }
