package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	stdascii85 "encoding/ascii85"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"pdfsan/ir/raw"
)

// Decoder turns encoded stream bytes back into their payload.
type Decoder interface {
	Name() string
	Decode(ctx context.Context, input []byte, params raw.Dictionary) ([]byte, error)
}

// Encoder is the inverse direction for filters the sanitizer re-applies
// after rewriting stream content.
type Encoder interface {
	Name() string
	Encode(ctx context.Context, input []byte) ([]byte, error)
}

// Limits bounds decode work so hostile streams cannot exhaust memory.
type Limits struct {
	MaxDecompressedSize int64
}

// Pipeline applies a filter chain in order.
type Pipeline struct {
	decoders []Decoder
	limits   Limits
}

// NewPipeline constructs a pipeline with the provided decoders and limits.
func NewPipeline(decoders []Decoder, limits Limits) *Pipeline {
	return &Pipeline{decoders: decoders, limits: limits}
}

// NewDefaultPipeline returns a pipeline with every built-in decoder.
func NewDefaultPipeline(limits Limits) *Pipeline {
	return NewPipeline([]Decoder{
		NewFlateDecoder(),
		NewASCIIHexDecoder(),
		NewASCII85Decoder(),
		NewRunLengthDecoder(),
		NewCCITTDecoder(),
	}, limits)
}

func (p *Pipeline) findDecoder(name string) Decoder {
	for _, d := range p.decoders {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

// Decode applies filterNames in order. params may be shorter than the
// filter list; missing entries mean no parameters.
func (p *Pipeline) Decode(ctx context.Context, input []byte, filterNames []string, params []raw.Dictionary) ([]byte, error) {
	data := input
	for i, name := range filterNames {
		dec := p.findDecoder(name)
		if dec == nil {
			return nil, fmt.Errorf("unknown filter: %s", name)
		}
		var param raw.Dictionary
		if i < len(params) {
			param = params[i]
		}
		out, err := dec.Decode(ctx, data, param)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if p.limits.MaxDecompressedSize > 0 && int64(len(out)) > p.limits.MaxDecompressedSize {
			return nil, errors.New("decompressed size exceeds limit")
		}
		data = out
	}
	return data, nil
}

// DecodeStream decodes a stream object according to its Filter entry
// (name or array) and DecodeParms.
func (p *Pipeline) DecodeStream(ctx context.Context, s raw.Stream) ([]byte, error) {
	names, params := FilterChain(s.Dictionary())
	return p.Decode(ctx, s.RawData(), names, params)
}

// FilterChain reads Filter/DecodeParms from a stream dictionary into
// parallel slices.
func FilterChain(dict raw.Dictionary) ([]string, []raw.Dictionary) {
	if dict == nil {
		return nil, nil
	}
	var names []string
	filter, _ := dict.Get(raw.NameLiteral("Filter"))
	switch f := filter.(type) {
	case raw.Name:
		names = []string{f.Value()}
	case raw.Array:
		for i := 0; i < f.Len(); i++ {
			if n, ok := f.Get(i); ok {
				if name, ok := n.(raw.Name); ok {
					names = append(names, name.Value())
				}
			}
		}
	}
	var params []raw.Dictionary
	parms, _ := dict.Get(raw.NameLiteral("DecodeParms"))
	switch pm := parms.(type) {
	case raw.Dictionary:
		params = []raw.Dictionary{pm}
	case raw.Array:
		for i := 0; i < pm.Len(); i++ {
			v, _ := pm.Get(i)
			d, _ := v.(raw.Dictionary)
			params = append(params, d)
		}
	}
	return names, params
}

// Registry holds decoders keyed by filter name.
type Registry struct{ decoders map[string]Decoder }

func (r *Registry) Register(d Decoder) {
	if r.decoders == nil {
		r.decoders = make(map[string]Decoder)
	}
	r.decoders[d.Name()] = d
}

func (r *Registry) Get(name string) (Decoder, bool) { d, ok := r.decoders[name]; return d, ok }

// FlateDecode

type flateDecoder struct{}

func NewFlateDecoder() Decoder { return flateDecoder{} }

func (flateDecoder) Name() string { return "FlateDecode" }

func (flateDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(in))
	var r io.ReadCloser
	if err != nil {
		// Some producers emit raw deflate without the zlib wrapper.
		r = flate.NewReader(bytes.NewReader(in))
	} else {
		r = zr
	}
	defer r.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

type flateEncoder struct{ level int }

// NewFlateEncoder returns a zlib encoder at the given compression level.
func NewFlateEncoder(level int) Encoder { return flateEncoder{level: level} }

func (flateEncoder) Name() string { return "FlateDecode" }

func (e flateEncoder) Encode(ctx context.Context, in []byte) ([]byte, error) {
	level := e.level
	if level == 0 {
		level = zlib.DefaultCompression
	}
	var b bytes.Buffer
	w, err := zlib.NewWriterLevel(&b, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(in); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// ASCIIHexDecode

type asciiHexDecoder struct{}

func NewASCIIHexDecoder() Decoder { return asciiHexDecoder{} }

func (asciiHexDecoder) Name() string { return "ASCIIHexDecode" }

func (asciiHexDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	trimmed := whitespaceStripped(in)
	if i := bytes.IndexByte(trimmed, '>'); i >= 0 {
		trimmed = trimmed[:i]
	}
	// Odd length pads with a trailing 0 digit.
	if len(trimmed)%2 == 1 {
		trimmed = append(trimmed, '0')
	}
	result := make([]byte, hex.DecodedLen(len(trimmed)))
	n, err := hex.Decode(result, trimmed)
	if err != nil {
		return nil, err
	}
	return result[:n], nil
}

// ASCII85Decode

type ascii85Decoder struct{}

func NewASCII85Decoder() Decoder { return ascii85Decoder{} }

func (ascii85Decoder) Name() string { return "ASCII85Decode" }

func (ascii85Decoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	trimmed := bytes.TrimSpace(in)
	if bytes.HasPrefix(trimmed, []byte("<~")) {
		trimmed = trimmed[2:]
	}
	if bytes.HasSuffix(trimmed, []byte("~>")) {
		trimmed = trimmed[:len(trimmed)-2]
	}
	out := make([]byte, len(trimmed)*2)
	n, _, err := stdascii85.Decode(out, trimmed, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// RunLengthDecode

type runLengthDecoder struct{}

func NewRunLengthDecoder() Decoder { return runLengthDecoder{} }

func (runLengthDecoder) Name() string { return "RunLengthDecode" }

func (runLengthDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	var out bytes.Buffer
	i := 0
	for i < len(in) {
		length := in[i]
		i++
		switch {
		case length == 128: // EOD
			return out.Bytes(), nil
		case length < 128:
			n := int(length) + 1
			if i+n > len(in) {
				return nil, errors.New("runlength literal run past end of data")
			}
			out.Write(in[i : i+n])
			i += n
		default:
			if i >= len(in) {
				return nil, errors.New("runlength repeat run past end of data")
			}
			n := 257 - int(length)
			out.Write(bytes.Repeat(in[i:i+1], n))
			i++
		}
	}
	return out.Bytes(), nil
}

func whitespaceStripped(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for _, c := range in {
		switch c {
		case ' ', '\t', '\r', '\n', '\f', 0:
		default:
			out = append(out, c)
		}
	}
	return out
}
