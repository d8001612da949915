// Package scenario loads broker scenarios and runs them deterministically.
//
// # Scenario Format
//
// Scenarios are YAML documents:
//
//	name: dlq
//	description: "Rejected tasks move to a dead-letter queue"
//	exchanges:
//	  - { name: task-exchange, type: direct }
//	queues:
//	  - { name: task-queue, dead_letter_queue: task-dlq, max_length: 3 }
//	  - { name: task-dlq }
//	bindings:
//	  - { exchange: task-exchange, queue: task-queue, routing_key: task.process }
//	consumers:
//	  - { name: Task Processor, queue: task-queue }
//	publications:
//	  - { at_ms: 1000, exchange: task-exchange, routing_key: task.process, content: "Task 1" }
//	run:
//	  ticks: 5
//	  rejections: [false, true]
//	assertions:
//	  - { type: queue_depth, queue: task-dlq, count: 1 }
//
// Documents are checked against an embedded CUE schema, decoded with strict
// field validation and then checked for consistency (Validate).
//
// # Assertion Types
//
//   - queue_depth: a queue holds exactly count messages at the end
//   - consumer_processed: a consumer processed exactly count messages
//   - event_count: an event type appears exactly count times in the trace
//   - event_order: event types first appear in the given order
//
// # Demos
//
// DefaultCatalog holds the built-in demos (ecommerce, microservices, fanout,
// dlq, scaling). Apply builds a scenario's topology on an engine and marks
// it as the active demo; NewRepublisher re-issues its publications whenever
// a Runner resumes.
//
// # Deterministic Runs
//
// Run executes a scenario with a manual clock, sequence ids and a seeded or
// scripted random source, so the same scenario always produces the same
// trace. RunWithGolden compares that trace with testdata/golden files.
package scenario
