// Package server implements the MCP (Model Context Protocol) server for the
// pixel codec.
//
// The server exposes format conversion and raw pixel transfer as tools, so a
// client can inspect an image, convert it, or move its samples in and out in
// any byte layout the quantum engine supports.
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
// Requests without an id are notifications and never get a reply.
//
// # Available Tools
//
// Image Information:
//   - image_identify: Format, geometry, depth and colorspace from the header
//   - image_formats: Registered formats and their capabilities
//
// Conversion:
//   - image_convert: Read one file and write it in another format
//   - image_crop: Extract a region as base64 PNG
//
// Pixel Transfer:
//   - pixels_export: Region of an image as base64 raw samples
//   - pixels_import: Base64 raw samples written as an image file
//
// Color:
//   - image_sample_color: Color of one pixel
//
// Paths accept the same "TAG:" prefixes as the command line, so
// "GRAY:plane.raw" with a size reads headerless 8-bit gray samples.
//
// # Caching
//
// Decoded images are kept in an ImageCache for the life of the session.
// Tools that write a file evict it, so a later read sees the new content.
//
// # Error Handling
//
// Tool failures are returned as JSON-RPC errors with code -32000 and the
// error text in the data field. Decoder warnings do not fail a call; they are
// listed in the result.
package server
