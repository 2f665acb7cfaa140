package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kikuchi0790/ukfr-smbc-app-sub000/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
)

// handleRetrievePassages handles the retrieve_passages tool invocation
func (s *Server) handleRetrievePassages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	question, ok := args["question"].(string)
	if !ok || question == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "question parameter is required", map[string]interface{}{
			"param":  "question",
			"reason": "missing or empty",
		})
	}

	req := types.RetrieveRequest{
		Question:          question,
		StableID:          getStringDefault(args, "stableId", ""),
		K:                 getIntDefault(args, "k", 0),
		UseAdvancedSearch: getBoolDefault(args, "useAdvancedSearch", false),
	}

	resp, err := s.service.Retrieve(ctx, req)
	if errors.Is(err, types.ErrInvalidRequest) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid retrieval request", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Degraded retrievals are tool successes carrying the fallback flag:
	// the client decides whether to fall back to keyword search.
	return mcp.NewToolResultText(marshalJSON(resp)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stat, err := s.index.Stat(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get index status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"index": map[string]interface{}{
			"kind":      stat.Kind,
			"passages":  stat.Passages,
			"dimension": stat.Dimension,
		},
		"cache": map[string]interface{}{
			"entries": s.results.Len(),
		},
		"embedding": map[string]interface{}{
			"provider": s.embProvider,
			"model":    s.embModel,
		},
		"expansion": map[string]interface{}{
			"enabled": s.expansionEnabled,
		},
	}
	return mcp.NewToolResultText(marshalJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// marshalJSON formats a value as indented JSON
func marshalJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
