// Package rpc carries the order-sync gRPC contract: the wire messages, a JSON
// codec registered under the "json" content subtype, hand-written service
// descriptors for the Order and Initialization services, and the server and
// client plumbing around them.
//
// Messages travel as JSON with PascalCase field names. The server decodes every
// payload as JSON regardless of the announced content subtype, so peers sending
// protobuf-encoded messages are not supported; clients here announce
// "application/grpc+json".
package rpc
