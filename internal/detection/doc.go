// Package detection provides geometric feature detection for document images.
//
// Everything here works on edge maps or grayscale images and returns plain
// geometry; decoding and pixel conversion live in the imaging package.
//
//   - FindDocumentQuad locates the outline of a photographed page using
//     contour finding, convex hulls and Douglas-Peucker simplification.
//   - EstimateSkew measures the dominant text line angle with a Hough
//     line transform.
//   - DetectTextRegions finds areas with text-like edge density and reports
//     how much of the page they cover.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// # Angles
//
// Skew angles are in degrees within [-45, 45]. A positive angle means text
// lines descend to the right; rotating the image counter-clockwise by the
// same amount levels them.
//
// # Performance Considerations
//
// The Hough transform visits every edge pixel once per angular bin. Callers
// downscale pages (see imaging.Assess) before estimating skew.
package detection
