package ocr

import (
	"fmt"
	"image"

	"github.com/sam02425/Document-Portal/internal/detection"
	"github.com/sam02425/Document-Portal/internal/extract"
	"github.com/sam02425/Document-Portal/internal/imaging"
)

// Mode is a page layout hint for the engine.
type Mode int

const (
	ModeAuto Mode = iota
	ModeBlock
	ModeSparse
	ModeSingleColumn
)

// psm maps each mode to its Tesseract page segmentation mode.
var psm = map[Mode]int{
	ModeAuto:         3,
	ModeBlock:        6,
	ModeSparse:       11,
	ModeSingleColumn: 4,
}

var modeNames = map[Mode]string{
	ModeAuto:         "auto",
	ModeBlock:        "block",
	ModeSparse:       "sparse",
	ModeSingleColumn: "single_column",
}

// PSM returns the Tesseract page segmentation mode for m.
func (m Mode) PSM() int {
	if v, ok := psm[m]; ok {
		return v
	}
	return psm[ModeAuto]
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses a mode name as returned by String.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeAuto, fmt.Errorf("unknown ocr mode %q", s)
}

// ModeFor returns the layout mode suited to a document type.
func ModeFor(t extract.DocType) Mode {
	switch t {
	case extract.DocTypeID:
		return ModeSparse
	case extract.DocTypeInvoice:
		return ModeBlock
	case extract.DocTypeReceipt, extract.DocTypeShiftReport:
		return ModeSingleColumn
	default:
		return ModeAuto
	}
}

const (
	// sparseCoverage is the text coverage below which a page reads as sparse.
	sparseCoverage = 0.15

	resolveHeight        = 1000
	resolveMinConfidence = 0.1
)

// Resolve replaces ModeAuto with a concrete mode chosen from the text
// coverage of img. Other modes are returned unchanged.
func Resolve(m Mode, img image.Image) Mode {
	if m != ModeAuto {
		return m
	}
	g := imaging.ToGray(imaging.ScaleToHeight(img, resolveHeight))
	if detection.DetectTextRegions(g, resolveMinConfidence).Coverage < sparseCoverage {
		return ModeSparse
	}
	return ModeBlock
}
