package mcp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// decode copies the tool arguments into T through their JSON form. A wrongly
// typed argument is reported by its name, e.g. "refresh must be a boolean".
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var out T
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return out, fmt.Errorf("arguments are not JSON: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) && typeErr.Field != "" {
			return out, fmt.Errorf("%s must be %s", typeErr.Field, jsonKind(typeErr.Type.Kind().String()))
		}
		return out, fmt.Errorf("invalid arguments: %w", err)
	}
	return out, nil
}

// jsonKind names a Go kind the way a tool caller sees it.
func jsonKind(kind string) string {
	switch kind {
	case "bool":
		return "a boolean"
	case "string":
		return "a string"
	case "slice", "array":
		return "an array"
	case "struct", "map":
		return "an object"
	default:
		return "a number"
	}
}
