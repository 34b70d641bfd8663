// Package imaging implements the per-page image stages of the document
// pipeline.
//
// The stages run in this order for every page:
//
//  1. Decode: bytes become an Asset carrying the perceptual hash (Hash).
//  2. Assess: a downscaled sample produces a QualityProfile and an EnhancementPlan.
//  3. Enhance: deskew, shadow removal and sharpening, each only when planned.
//  4. Compress: the lowest JPEG quality that keeps the target SSIM.
//
// Geometry normalization (perspective correction) lives in the geometry
// package and runs between Assess and Enhance.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Thread Safety
//
// All functions are stateless and never modify their input images, so they
// can be called concurrently, including on the same image.
//
// # Error Handling
//
// Only decoding returns errors of kind errors.KindInput. Quality problems are
// never errors: they show up as a low Score and a non-empty plan.
package imaging
