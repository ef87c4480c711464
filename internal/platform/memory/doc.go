// Package memory provides in-memory implementations of the IndexStore and
// BlobStore contracts. They back service-level tests and support failure
// injection through overridable function fields, in addition to serving as a
// throwaway backend for ephemeral sessions.
package memory
