// Package geom provides the closed set of collision primitives used by the
// physics pipeline.
//
// A [Shape] is a tagged variant: exactly one of
//
//   - [KindSphere]: a ball of the given radius centred on the local origin
//   - [KindCuboid]: an oriented box given by its half extents
//   - [KindPlane]: an infinite half-space whose boundary passes through the
//     local origin with the given outward normal
//
// Shapes carry no behaviour beyond bounding volumes, volume and mass
// properties. Pair-wise intersection lives in the physics narrow phase.
package geom
