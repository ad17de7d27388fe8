// Package mcp implements the Model Context Protocol (MCP) server for docsearch.
//
// The server exposes the retrieval engine to MCP clients as tools:
//   - index_documents: Scan a folder or accept inline documents and index them
//   - search_documents: Hybrid semantic and keyword search with optional context reranking
//   - get_status: Index size, snapshot metadata, indexing progress and cache counters
//   - cache_stats: Hit, miss and eviction counters for the query caches
//   - clear_cache: Drop every cached embedding and result
//   - clear_index: Remove every indexed document
//   - save_snapshot: Persist the index to the snapshot directory
//   - load_snapshot: Replace the index with the saved snapshot
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started via the serve command:
//
//	docsearch serve --config docsearch.yaml
//
// It then listens on stdin for MCP protocol messages and writes responses
// to stdout. Logs go to stderr.
//
// # Tool: search_documents
//
//	Request:
//	{
//	  "name": "search_documents",
//	  "arguments": {
//	    "query": "quarterly revenue",
//	    "k": 5,
//	    "alpha": 0.7,
//	    "use_context": true,
//	    "file_types": [".pdf"]
//	  }
//	}
//
//	Response:
//	{
//	  "query": "quarterly revenue",
//	  "search_method": "hybrid",
//	  "cache_hit": false,
//	  "results": [
//	    {
//	      "rank": 1,
//	      "path": "/docs/finance/q3.pdf",
//	      "similarity_score": 0.81,
//	      "bm25_score": 1,
//	      "hybrid_score": 0.867,
//	      "context_score": 0.72
//	    }
//	  ]
//	}
//
// Scores that were not computed for a result are omitted.
//
// # Error Handling
//
// Handlers return *MCPError values. Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (embedding provider, storage, filesystem)
//   - -32002: Indexing in progress
//   - -32004: Empty query
//   - -32005: Snapshot not found
//   - -32006: Corrupt snapshot, index reset to empty
package mcp
