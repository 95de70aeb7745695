// Package mcp exposes the analytics tools over the Model Context Protocol
// using github.com/felixgeelhaar/mcp-go.
package mcp

import (
	mcpgo "github.com/felixgeelhaar/mcp-go"
)

// Transport and metadata types of mcp-go used by callers of this package.
type (
	// ServerInfo contains MCP server metadata.
	ServerInfo = mcpgo.ServerInfo

	// ServeOption configures the stdio transport.
	ServeOption = mcpgo.ServeOption

	// HTTPOption configures the HTTP transport.
	HTTPOption = mcpgo.HTTPOption
)
