// Package service implements the study catalogue engine: the per-user
// controller owning in-memory catalogue state, the one-time notes migration,
// the boot-time audio reconciliation pass, and the backup import merge.
package service
