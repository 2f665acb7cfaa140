package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// retrievePassagesTool returns the tool definition for retrieve_passages
func retrievePassagesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "retrieve_passages",
		Description: "Retrieve the study-material passages most relevant to an exam question",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Exam question text to find supporting passages for",
				},
				"stableId": map[string]interface{}{
					"type":        "string",
					"description": "Stable question identifier used as the cache key; repeat calls with the same id are served from cache",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of passages to return (1-20, default 5)",
					"minimum":     1,
					"maximum":     20,
				},
				"useAdvancedSearch": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, expand the question into alternative phrasings and rerank with the LLM collaborator",
					"default":     false,
				},
			},
			Required: []string{"question"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report passage index, cache and provider status",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
