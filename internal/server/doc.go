// Package server implements the MCP (Model Context Protocol) server for screen OCR.
//
// This package provides a JSON-RPC 2.0 server that exposes the OCR pipeline
// through the MCP protocol, so that an assistant can read the text in
// screenshots and screen selections.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - ocr_image: Recognize the text of an image file, optionally cropped
//   - ocr_capture_region: Recognize the text under a selection in screen points
//   - ocr_detect_regions: Find text blocks without recognizing them
//   - ocr_candidates: List the image variants a run would try
//
// ocr_capture_region goes through a capture.Controller, so it shares its
// rules: calls inside the debounce window or during another capture fail,
// and selections of 10 points or less come back with "cancelled": true.
//
// # Image Caching
//
// Images are decoded once and cached by path for the lifetime of the
// process, since clients typically run several tools on the same capture.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// An image without text is not an error: the result has "found": false.
//
// # Usage
//
//	srv := server.New(svc, server.Options{Version: version}, log)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
