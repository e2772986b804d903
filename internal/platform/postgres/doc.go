// Package postgres provides the PostgreSQL adapters for loam's two storage
// collaborators: the durable queue-persistence store (one namespace per
// queue) and the context-store backend that receives enrichment results.
package postgres
