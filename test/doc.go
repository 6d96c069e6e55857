// Package test provides integration test infrastructure: an in-memory
// database, a real API server, and a real API client wired together so
// tests exercise the full request path.
package test
