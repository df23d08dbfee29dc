package uploadform

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func TestImageDecoder(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	p, err := ImageDecoder{}.Decode(context.Background(), BytesFile("pixel.png", buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.MimeType != "image/png" || p.Width != 3 || p.Height != 2 {
		t.Errorf("unexpected preview %+v", p)
	}
	if !strings.HasPrefix(p.URL, "data:image/png;base64,") {
		t.Errorf("unexpected URL prefix %q", p.URL[:30])
	}
}

func TestImageDecoderRejectsNonImages(t *testing.T) {
	if _, err := (ImageDecoder{}).Decode(context.Background(), BytesFile("notes.txt", []byte("hello"))); err == nil {
		t.Fatal("expected an error for a non-image file")
	}
	if _, err := (ImageDecoder{}).Decode(context.Background(), NewSelectedFile("nil.png", nil)); err == nil {
		t.Fatal("expected an error for a file without content")
	}
}
