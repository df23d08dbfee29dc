package uploadform

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Preview is the displayable representation of a decoded image.
type Preview struct {
	URL      string
	MimeType string
	Width    int
	Height   int
}

// Empty reports whether no image has been attached yet.
func (p Preview) Empty() bool { return p.URL == "" }

// Decoder turns a selected file into a preview. Decode may be slow; the row
// builder calls it off the loop.
type Decoder interface {
	Decode(ctx context.Context, file SelectedFile) (Preview, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, file SelectedFile) (Preview, error)

// Decode calls fn.
func (fn DecoderFunc) Decode(ctx context.Context, file SelectedFile) (Preview, error) {
	return fn(ctx, file)
}

// ImageDecoder validates the file as an image and returns it as a data URL.
type ImageDecoder struct{}

// Decode implements Decoder.
func (ImageDecoder) Decode(ctx context.Context, file SelectedFile) (Preview, error) {
	data, err := file.Read(ctx)
	if err != nil {
		return Preview{}, fmt.Errorf("read %q: %w", file.Name, err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Preview{}, fmt.Errorf("decode %q: %w", file.Name, err)
	}
	mimeType := "image/" + format
	return Preview{
		URL:      "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}
