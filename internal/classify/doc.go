// Package classify derives a target service role from free-text request
// descriptions via keyword matching, so callers that only have a request's
// text (not an already-known role) can still populate RequiredRole.
//
// This is in-core keyword lookup, not the NLP/ML gateway classification
// spec.md's Non-goals exclude — see SPEC_FULL.md §5.1.
package classify
