// Package domain contains the core business entities, value objects, and
// domain logic of the study catalogue, independent of any specific
// infrastructure or delivery mechanism.
package domain
