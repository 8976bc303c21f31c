// Package rbac implements the permission policies applied per resource
// class: admin-gated writes with public reads, author-or-moderator object
// ownership rules, and the staff-gated user management endpoints.
//
// Policies are pure functions of the explicit actor and the request kind;
// there is no ambient "current user" state.
package rbac
