// Package integration contains the Integration bounded context.
// This context receives sales-order bills from an external order-management
// platform and records a synchronization outcome for each of them.
//
// Key concepts:
//   - Bill: a sales order pushed by the platform, made of LineItems
//   - SyncOutcome: the per-bill verdict returned to the platform and persisted
//   - SyncOutcomeRepository: port for the append-only outcome log
//   - TriggerRequest: an operator-initiated diagnostic action (token fetch, outbound call)
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
