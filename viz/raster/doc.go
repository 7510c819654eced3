// Package raster is a small fixed-pipeline software Surface.
//
// Pipeline (fixed):
//
//	model-view → orthographic projection → viewport → fan/point rasterization → alpha blend.
//
// There is no depth test: primitives land in submission order, so later
// draws cover earlier ones. The canvas avoids allocations in the draw path.
package raster
