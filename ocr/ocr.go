// Package ocr defines the contract for plugging OCR engines into the
// scanning pipeline. The interfaces are small and transport-agnostic so
// engines can be backed by native libraries, local binaries, or remote
// APIs without leaking provider concerns into callers.
package ocr

import (
	"bytes"
	"context"
	"fmt"
)

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
	ImageFormatTIFF ImageFormat = "image/tiff"
)

// Region describes a rectangular area in pixel coordinates with the
// origin in the upper-left corner of the image.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Input encapsulates a single image submitted for OCR.
type Input struct {
	// ID is an optional caller-provided identifier that is echoed back
	// in the corresponding Result.
	ID string
	// Image is the encoded image payload in the format given by Format.
	Image  []byte
	Format ImageFormat
	// Region restricts recognition to a sub-rectangle; nil means the
	// whole image.
	Region *Region
	// DPI carries the effective dots-per-inch; zero means unknown.
	DPI int
	// Languages holds language hints in provider order of preference.
	Languages []string
	// Metadata carries provider-specific tuning variables.
	Metadata map[string]string
}

// Result captures OCR output for a single input image.
type Result struct {
	InputID string
	// PlainText contains the linearized text extracted from the image.
	PlainText string
	// Confidence is the provider's mean word confidence in 0..1.
	Confidence float64
	// Language indicates the dominant language detected, if known.
	Language string
}

// Engine is the simplest OCR provider contract: one image in, one
// result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}

// BatchEngine handles multiple images in a single call, enabling
// providers that amortize setup costs or remote round-trips.
type BatchEngine interface {
	Engine
	RecognizeBatch(ctx context.Context, inputs []Input) ([]Result, error)
}

// InputFromImage builds an Input by sniffing the payload's container
// format. Unrecognized payloads are rejected; raw sample buffers cannot
// be submitted to an engine.
func InputFromImage(id string, data []byte) (Input, error) {
	format, ok := SniffFormat(data)
	if !ok {
		return Input{}, fmt.Errorf("ocr: input %s: unrecognized image format", id)
	}
	return Input{ID: id, Image: data, Format: format}, nil
}

// SniffFormat recognizes the encoded-image containers engines accept.
func SniffFormat(data []byte) (ImageFormat, bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return ImageFormatJPEG, true
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return ImageFormatPNG, true
	case bytes.HasPrefix(data, []byte{'I', 'I', 0x2A, 0x00}),
		bytes.HasPrefix(data, []byte{'M', 'M', 0x00, 0x2A}):
		return ImageFormatTIFF, true
	}
	return "", false
}

// Noop is the engine used when no OCR provider is configured. It
// recognizes nothing and never fails.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Recognize(_ context.Context, in Input) (Result, error) {
	return Result{InputID: in.ID}, nil
}
