// Package types defines the shared data model for the passage retrieval
// engine: passage records, retrieved passages, search options, and the
// request/response contract exposed by the MCP tools.
package types
