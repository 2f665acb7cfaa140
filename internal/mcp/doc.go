// Package mcp implements the Model Context Protocol (MCP) server for the
// passage retrieval engine.
//
// The server exposes two tools to study-app clients:
//   - retrieve_passages: find the study-material passages most relevant to
//     an exam question
//   - get_status: report index, cache and provider health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Tool: retrieve_passages
//
//	Request:
//	{
//	  "name": "retrieve_passages",
//	  "arguments": {
//	    "question": "What is the FSCS deposit protection limit?",
//	    "stableId": "mock-exam-1-q17",
//	    "k": 5,
//	    "useAdvancedSearch": true
//	  }
//	}
//
//	Response:
//	{
//	  "passages": [
//	    {
//	      "materialId": "Checkpoint",
//	      "page": 112,
//	      "quote": "The FSCS protects deposits up to £85,000 per person...",
//	      "score": 0.91,
//	      "offset": 240
//	    }
//	  ],
//	  "cached": false
//	}
//
// When a downstream dependency is unavailable the tool still returns a
// result rather than an error, with "fallback": true and an "error" field
// describing the degradation. Callers should fall back to keyword search.
//
// # Tool: get_status
//
//	Response:
//	{
//	  "index": {"kind": "local", "passages": 1893, "dimension": 1536},
//	  "cache": {"entries": 42},
//	  "embedding": {"provider": "openai", "model": "text-embedding-3-small"},
//	  "expansion": {"enabled": true}
//	}
//
// # Error Handling
//
// Invalid arguments map to JSON-RPC error -32602; unexpected internal
// failures map to -32603. Degraded retrievals are successes with the
// fallback flag set, never protocol errors.
//
// # Logging
//
// The server logs to stderr; stdout is reserved for MCP protocol traffic.
package mcp
