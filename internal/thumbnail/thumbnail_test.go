package thumbnail

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestRender_Scales(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"landscape", 200, 100, 50, 50, 25},
		{"portrait", 100, 200, 50, 25, 50},
		{"small stays", 40, 30, 64, 40, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(bytes.NewReader(makePNG(t, tt.w, tt.h)), tt.max)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			cfg, err := png.DecodeConfig(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("decode result: %v", err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Fatalf("size got=%dx%d want=%dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestRender_Errors(t *testing.T) {
	if _, err := Render(bytes.NewReader(makePNG(t, 10, 10)), 8); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("err got=%v want=%v", err, ErrInvalidSize)
	}
	if _, err := Render(bytes.NewReader([]byte("not an image")), 64); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestResolve(t *testing.T) {
	dir := "/srv/images"
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"day1.png", filepath.Join(dir, "day1.png"), false},
		{"sub/day2.png", filepath.Join(dir, "sub", "day2.png"), false},
		{"../../etc/passwd", filepath.Join(dir, "etc", "passwd"), false},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Resolve(dir, tt.name)
		if (err != nil) != tt.wantErr {
			t.Fatalf("Resolve(%q) err=%v wantErr=%v", tt.name, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("Resolve(%q) got=%q want=%q", tt.name, got, tt.want)
		}
	}
}

func TestGet_WithoutCache(t *testing.T) {
	t.Setenv("PRESENT_CALENDAR_DATA_DIR", t.TempDir())
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "day1.png"), makePNG(t, 120, 60), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := Get(dir, "day1.png", 60)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 60 || cfg.Height != 30 {
		t.Fatalf("size got=%dx%d want=60x30", cfg.Width, cfg.Height)
	}

	if _, err := Get(dir, "missing.png", 60); err == nil {
		t.Fatal("expected error for missing file")
	}
}
