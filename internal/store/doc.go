// Package store defines the persistence contracts for the study catalogue:
// the IndexStore holding the small per-user metadata record and the BlobStore
// holding note bodies and audio payloads. Implementations live under
// internal/platform.
package store
