package imaging

import (
	"crypto/md5"
	"encoding/hex"
	"image"
	"math/bits"

	"github.com/disintegration/imaging"
)

// hashGrid is the side length of the downsampled grid used for hashing.
const hashGrid = 8

// Hash returns the perceptual (average) hash of img as 32 hex characters.
//
// # Algorithm
//
//  1. Downsample to 8x8 with a box filter
//  2. Convert to grayscale
//  3. Set bit i when pixel i is brighter than the grid mean (64 bits)
//  4. MD5 the bit string into a fixed-length key
//
// Identical pixel content always yields the same key. Re-compressed or
// slightly noisy copies of a photo usually collide, which lets the pipeline
// skip reprocessing of re-submitted images.
func Hash(img image.Image) string {
	return digestSignature(Signature(img))
}

// Signature returns the raw 64-bit average-hash signature of img.
// Bit 63 corresponds to the top-left grid cell.
func Signature(img image.Image) uint64 {
	small := imaging.Grayscale(imaging.Resize(img, hashGrid, hashGrid, imaging.Box))

	var vals [hashGrid * hashGrid]int
	sum := 0
	for y := 0; y < hashGrid; y++ {
		for x := 0; x < hashGrid; x++ {
			// Grayscale leaves R=G=B.
			v := int(small.Pix[y*small.Stride+x*4])
			vals[y*hashGrid+x] = v
			sum += v
		}
	}

	mean := float64(sum) / float64(len(vals))
	var sig uint64
	for _, v := range vals {
		sig <<= 1
		if float64(v) > mean {
			sig |= 1
		}
	}
	return sig
}

// HashBytes decodes data and returns its perceptual hash.
//
// Bytes that do not decode still get a stable key: "raw-" followed by the MD5
// of the bytes. It is returned together with Decode's input error.
func HashBytes(data []byte) (string, error) {
	asset, err := Decode(data)
	if err != nil {
		return rawHash(data), err
	}
	return asset.Hash, nil
}

// rawHashPrefix marks keys derived from undecoded bytes.
const rawHashPrefix = "raw-"

func rawHash(data []byte) string {
	sum := md5.Sum(data)
	return rawHashPrefix + hex.EncodeToString(sum[:])
}

// Hamming returns the number of differing bits between two signatures.
func Hamming(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

func digestSignature(sig uint64) string {
	var bitsStr [64]byte
	for i := 0; i < 64; i++ {
		if sig&(1<<uint(63-i)) != 0 {
			bitsStr[i] = '1'
		} else {
			bitsStr[i] = '0'
		}
	}
	sum := md5.Sum(bitsStr[:])
	return hex.EncodeToString(sum[:])
}
