// Package mcp implements the Model Context Protocol (MCP) server for
// LocalSearch.
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server listens on stdin and writes responses to stdout, so all
// logging goes to stderr.
//
// # Tools
//
// Eight tools are registered:
//
//   - search: hybrid, semantic, or keyword search over indexed documents
//   - index_path: index one file (txt, md, pdf, docx)
//   - index_directory: recursively index a directory tree
//   - remove_path: drop every chunk of a file from the index
//   - add_document: write one document directly, bypassing file extraction
//   - remove_document: delete one document by id
//   - get_stats: document/vector counts, provider, index size, build mode
//   - rebuild_index: rebuild the full-text index and run an integrity check
//
// Tool definitions live in schemas.go and handlers in tools.go. Handlers
// return results as indented JSON text and report failures as MCPError
// values carrying a JSON-RPC error code.
//
// # Wiring
//
// NewServer opens one SQLite store through a storage.Registry, builds the
// full-text and (when available) vector indexes in it, picks an embedding
// provider from the environment, and routes all writes through the
// searcher's write path so both indexes stay consistent.
package mcp
