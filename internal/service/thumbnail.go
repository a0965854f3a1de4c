package service

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

const (
	// ThumbnailMaxSize bounds both sides of a carousel thumbnail.
	ThumbnailMaxSize = 480

	ThumbnailJPEGQuality = 85
)

// ThumbnailProcessor turns a source image into a JPEG thumbnail.
type ThumbnailProcessor interface {
	// GenerateThumbnail fits the image within maxWidth x maxHeight keeping
	// its aspect ratio. It returns the JPEG bytes and the source size.
	GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error)
}

type imagingProcessor struct{}

// NewImagingProcessor creates a ThumbnailProcessor backed by imaging.
func NewImagingProcessor() ThumbnailProcessor {
	return &imagingProcessor{}
}

func (p *imagingProcessor) GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error) {
	img, err := imaging.Decode(data, imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()

	// Fit never upscales, so small sources keep their size.
	thumb := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(ThumbnailJPEGQuality)); err != nil {
		return nil, 0, 0, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}
