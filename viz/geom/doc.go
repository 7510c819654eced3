// Package geom provides rigid transforms for the navigation view.
//
// A Transform is a translation plus a unit-quaternion rotation; it never
// carries scale or shear. Matrices follow the OpenGL column-major layout
// used by mgl32, so composition reads right to left: a.Mul4(b) applies b
// first.
package geom
