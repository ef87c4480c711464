// Package api implements the HTTP surface over the catalogue engine, used
// by the application's UI process and AI-feature producers. Authentication
// is an external concern: callers arrive with a user ID already resolved.
package api
