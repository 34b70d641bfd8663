// Package server implements the MCP (Model Context Protocol) server for the
// document pipeline.
//
// The server speaks JSON-RPC 2.0 over stdio and exposes each pipeline
// operation as a tool, so an MCP client can normalize, read and extract
// documents one call at a time or submit whole multi-page batches.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//   - Logs: stderr only, so they never corrupt the protocol stream
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Page preparation:
//   - document_assess_quality: Quality metrics and the enhancement plan
//   - document_normalize: Page detection, perspective flattening, enhancement
//   - document_compress: Lowest JPEG quality above a target SSIM
//   - document_crop: Extract a rectangular region
//
// Text and fields:
//   - document_ocr: Tesseract text or word boxes of a normalized page
//   - document_extract_fields: Full single-page pipeline with routing trace
//
// Documents:
//   - document_process: Concurrent extraction and merge of a page batch
//   - document_merge_pages: Merge already extracted page results
//   - document_match_identity: Compare name, address and date of birth
//
// Images are passed either as "path" (a file readable by the server) or as
// "image_base64". Large batches belong on the queue worker instead.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: the error's map form (error_kind, op, message, cause) for
//     classified errors, the error string otherwise
//
// Degraded extractions are not errors: they come back as results with
// "degraded": true and a lower confidence.
//
// # Usage
//
//	srv := server.New(p, server.Options{Logger: logger, Version: version})
//	if err := srv.Run(ctx); err != nil {
//	    return err
//	}
package server
