// Package queue implements named durable FIFO queues for background
// enrichment work: message definition and validation, durable enqueue,
// consume-with-retry loops bound to pluggable handlers, dead-lettering on
// retry exhaustion, and a process-wide manager that registers queues and
// controls their consumer lifecycle.
package queue
