// Package vector implements the geometric primitives the routing engine is
// built on: dot product, magnitude, Euclidean distance, cosine similarity,
// element-wise add/sub, normalize, and angle-between.
//
// # Overview
//
// Every node position and every request target is a Vector — a fixed-
// dimension, immutable ordered tuple of float64. All operations in this
// package are pure and total: for any finite input of matching dimension
// they produce a finite result. Degenerate inputs (zero vectors) are
// handled by returning a defined value (0 similarity, the zero vector for
// normalize) rather than NaN or Inf.
//
// # Dimension agreement
//
// Binary operations require operands of equal dimension. A mismatch is a
// programmer error — the caller constructed vectors from two different
// spaces — and is reported via ErrDimensionMismatch rather than panicking,
// so that callers higher up the stack (topology construction, scoring) can
// decide how to surface it.
package vector
