package gds

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/tagus/graphmind/pkg/interfaces"
)

// ArgumentError reports tool arguments rejected by the tool's declared
// input schema, before anything reached the wire.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("gds: invalid arguments for tool %q: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// ValidateArguments checks args against the tool's input schema. Descriptors
// without a schema accept anything.
func ValidateArguments(descriptor interfaces.ToolDescriptor, args map[string]any) error {
	if len(descriptor.InputSchema) == 0 {
		return nil
	}

	raw, err := json.Marshal(descriptor.InputSchema)
	if err != nil {
		return &ArgumentError{Tool: descriptor.Name, Err: fmt.Errorf("encoding schema: %w", err)}
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return &ArgumentError{Tool: descriptor.Name, Err: fmt.Errorf("parsing schema: %w", err)}
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return &ArgumentError{Tool: descriptor.Name, Err: fmt.Errorf("resolving schema: %w", err)}
	}
	if err := resolved.Validate(args); err != nil {
		return &ArgumentError{Tool: descriptor.Name, Err: err}
	}
	return nil
}
