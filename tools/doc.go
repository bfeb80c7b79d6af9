// Package tools defines the MCP tools exposed by the server: their
// schemas and the handlers that query crates.io, docs.rs, and OSV.dev
// and render markdown reports. Handlers perform no admission control of
// their own; every call reaches them through the middleware stack.
package tools
