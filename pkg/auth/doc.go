// Package auth holds the identity model: users, the closed three-role set
// with its derived privilege predicates, deterministic signup confirmation
// codes, and the opaque access-token generator.
package auth
