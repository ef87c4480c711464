// Package postgres provides the PostgreSQL-backed implementations of the
// IndexStore and BlobStore contracts, used by hosted deployments where the
// catalogue lives server-side instead of on the device. The schema is
// managed with goose migrations embedded in the binary.
package postgres
