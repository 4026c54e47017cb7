package detect

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"

	"pdfsan/filters"
	"pdfsan/ir/raw"
	"pdfsan/report"
)

// stegoMaxEdge bounds the pixel count analyzed per image. Larger images
// are downscaled first; the statistics are ratios and survive scaling.
const stegoMaxEdge = 256

// channelStats holds the least-significant-bit statistics for one color
// channel.
type channelStats struct {
	lsbRatio        float64
	transitionRatio float64
}

// StegoDetector runs statistical analysis over decoded image streams.
// LSB analysis measures bit-plane randomness per channel; the DCT-domain
// check uses the luma histogram spread as a proxy statistic. Both are
// heuristics, so findings say "suspected" and never "proven".
type StegoDetector struct {
	cfg  Config
	pipe *filters.Pipeline
}

func NewStegoDetector(cfg Config, pipe *filters.Pipeline) *StegoDetector {
	return &StegoDetector{cfg: cfg, pipe: pipe}
}

func (d *StegoDetector) Name() string { return "steganography" }

func (d *StegoDetector) Detect(ctx context.Context, ref raw.ObjectRef, obj raw.Object) ([]report.Finding, []report.Issue) {
	stream, ok := obj.(raw.Stream)
	if !ok || raw.DictName(stream.Dictionary(), "Subtype") != "Image" {
		return nil, nil
	}
	decoded, err := d.pipe.DecodeStream(ctx, stream)
	if err != nil {
		return nil, []report.Issue{{
			Severity:    report.SeverityInfo,
			Ref:         refOf(ref),
			Description: "image stream does not decode",
			Err:         err,
		}}
	}
	img, _, err := image.Decode(bytes.NewReader(decoded))
	if err != nil {
		// Raw samples without a container header cannot be analyzed.
		return nil, nil
	}
	img = downscale(img)

	stats, pixels := analyzeLSB(img)
	if pixels < 64 {
		return nil, nil
	}
	conf := lsbConfidence(stats)

	threshold := d.cfg.StatisticalThreshold
	if threshold <= 0 {
		threshold = 0.7
	}

	var findings []report.Finding
	if conf >= threshold {
		findings = append(findings, report.Finding{
			Kind:        report.KindSteganography,
			Ref:         refOf(ref),
			Description: "suspected LSB steganography",
			Confidence:  conf,
			Severity:    report.SeverityMedium,
			Context: fmt.Sprintf("lsb=[%.3f %.3f %.3f] transitions=[%.3f %.3f %.3f]",
				stats[0].lsbRatio, stats[1].lsbRatio, stats[2].lsbRatio,
				stats[0].transitionRatio, stats[1].transitionRatio, stats[2].transitionRatio),
		})
	}

	mean, stddev := lumaHistogram(img)
	if hconf := histogramConfidence(mean, stddev); hconf >= threshold {
		findings = append(findings, report.Finding{
			Kind:        report.KindSteganography,
			Ref:         refOf(ref),
			Description: "suspected DCT-domain embedding",
			Confidence:  hconf,
			Severity:    report.SeverityMedium,
			Context:     fmt.Sprintf("luma mean=%.1f stddev=%.1f", mean, stddev),
		})
	}
	return findings, nil
}

func downscale(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= stegoMaxEdge && b.Dy() <= stegoMaxEdge {
		return img
	}
	scale := float64(stegoMaxEdge) / float64(max(b.Dx(), b.Dy()))
	dst := image.NewRGBA(image.Rect(0, 0,
		int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// analyzeLSB computes per-channel bit statistics in row-major order.
func analyzeLSB(img image.Image) ([3]channelStats, int) {
	b := img.Bounds()
	var ones, transitions [3]int
	var prev [3]uint8
	pixels := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			cur := [3]uint8{uint8(r>>8) & 1, uint8(g>>8) & 1, uint8(bl>>8) & 1}
			for c := 0; c < 3; c++ {
				if cur[c] == 1 {
					ones[c]++
				}
				if pixels > 0 && cur[c] != prev[c] {
					transitions[c]++
				}
			}
			prev = cur
			pixels++
		}
	}
	var stats [3]channelStats
	if pixels == 0 {
		return stats, 0
	}
	for c := 0; c < 3; c++ {
		stats[c].lsbRatio = float64(ones[c]) / float64(pixels)
		stats[c].transitionRatio = float64(transitions[c]) / float64(pixels)
	}
	return stats, pixels
}

// lsbConfidence combines bit balance and transition density. Random
// embedded data drives both toward 0.5; natural image planes are
// correlated and sit lower.
func lsbConfidence(stats [3]channelStats) float64 {
	conf := 0.0
	for c := 0; c < 3; c++ {
		balance := 1 - math.Abs(stats[c].lsbRatio-0.5)*2
		noise := 1 - math.Abs(stats[c].transitionRatio-0.5)*2
		conf += 0.6*balance + 0.4*noise
	}
	return conf / 3
}

// lumaHistogram returns the mean and standard deviation of the 8-bit
// luma distribution.
func lumaHistogram(img image.Image) (mean, stddev float64) {
	var hist [256]int
	b := img.Bounds()
	total := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			luma := (299*(r>>8) + 587*(g>>8) + 114*(bl>>8)) / 1000
			hist[luma&0xFF]++
			total++
		}
	}
	if total == 0 {
		return 0, 0
	}
	for v, n := range hist {
		mean += float64(v) * float64(n)
	}
	mean /= float64(total)
	for v, n := range hist {
		d := float64(v) - mean
		stddev += d * d * float64(n)
	}
	stddev = math.Sqrt(stddev / float64(total))
	return mean, stddev
}

// histogramConfidence scores how far the luma spread sits from what
// photographic content produces. A near-flat or near-degenerate
// histogram suggests coefficient manipulation.
func histogramConfidence(mean, stddev float64) float64 {
	if mean == 0 && stddev == 0 {
		return 0
	}
	switch {
	case stddev < 2:
		return 0.8
	case stddev > 90:
		return 0.75
	}
	return 0
}
