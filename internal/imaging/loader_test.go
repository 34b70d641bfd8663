package imaging

import (
	"os"
	"path/filepath"
	"testing"

	perrors "github.com/sam02425/Document-Portal/internal/errors"
)

func TestDecode(t *testing.T) {
	doc := createDocumentImage(120, 90)

	tests := []struct {
		name       string
		data       []byte
		wantFormat string
		wantMime   string
	}{
		{"png", encodePNG(t, doc), "png", "image/png"},
		{"jpeg", encodeJPEG(t, doc, 90), "jpeg", "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset, err := Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if asset.Format != tt.wantFormat {
				t.Errorf("Format = %s, want %s", asset.Format, tt.wantFormat)
			}
			if asset.MimeType() != tt.wantMime {
				t.Errorf("MimeType = %s, want %s", asset.MimeType(), tt.wantMime)
			}
			if asset.Width != 120 || asset.Height != 90 {
				t.Errorf("dimensions = %dx%d, want 120x90", asset.Width, asset.Height)
			}
			if asset.Hash != Hash(asset.Image) {
				t.Error("asset hash does not match its image")
			}
			if len(asset.Data) != len(tt.data) {
				t.Error("asset should keep the encoded bytes")
			}
		})
	}
}

func TestDecode_InputErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not an image")},
		{"truncated png", encodePNG(t, createDocumentImage(50, 50))[:40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !perrors.IsKind(err, perrors.KindInput) {
				t.Errorf("error kind: got %v, want input error", err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.png")
	if err := os.WriteFile(path, encodePNG(t, createDocumentImage(60, 40)), 0o644); err != nil {
		t.Fatal(err)
	}

	asset, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if asset.Width != 60 || asset.Height != 40 {
		t.Errorf("dimensions = %dx%d", asset.Width, asset.Height)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("missing file should fail")
	}
}
