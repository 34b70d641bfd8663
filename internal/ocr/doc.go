// Package ocr recognizes text in normalized document pages.
//
// Recognition is behind the Engine interface. TesseractEngine is the
// production engine (gosseract/v2, cgo builds only); Recognizer adds the
// ocr-text cache in front of any Engine.
//
// # Modes
//
// A Mode names a page layout and maps to one Tesseract page segmentation
// mode:
//
//	ModeAuto          PSM 3   fully automatic segmentation
//	ModeBlock         PSM 6   one uniform block (invoices)
//	ModeSparse        PSM 11  scattered text (IDs)
//	ModeSingleColumn  PSM 4   one column of variable sizes (receipts, reports)
//
// ModeFor picks the mode from a document type. When the type is unknown,
// Resolve inspects the page: pages whose text covers under 15% of the area
// are read in sparse mode, the rest as a block.
//
// # Prerequisites
//
// Tesseract and its language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Set TESSDATA_PREFIX (or OCR config tessdata_prefix) when the language data
// lives outside the default location. Binaries built without cgo carry a
// stub engine that reports ErrUnavailable.
package ocr
