// Package integration holds the application services of the order-sync
// bridge: the inbound batch sync use case, the result query, and the
// diagnostic trigger executor used by the admin API and the CLI.
package integration
