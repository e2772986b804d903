// Package enrich contains the handlers bound to the background enrichment
// queues: computing embeddings for stored text and producing semantic
// summaries of stored content. Handlers parse their queue message payloads,
// call the model client, and write results into the context-store backend.
package enrich
