// Package storage defines the persistence contracts for the exercise
// service: user accounts, owner-scoped exercise collections, and revoked
// token tracking.
package storage
