// Package domain maps MCP tool calls onto dice expression operations.
//
// Each tool has an input and a result struct; their json and jsonschema tags
// are the tool's published schema.
package domain
