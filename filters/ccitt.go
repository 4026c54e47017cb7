package filters

import (
	"bytes"
	"context"
	"io"

	"golang.org/x/image/ccitt"

	"pdfsan/ir/raw"
)

// ccittDecoder implements CCITTFaxDecode on top of golang.org/x/image/ccitt.
type ccittDecoder struct{}

func NewCCITTDecoder() Decoder { return ccittDecoder{} }

func (ccittDecoder) Name() string { return "CCITTFaxDecode" }

func (ccittDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	k := int64(0)
	columns := int64(1728)
	rows := int64(0)
	blackIs1 := false
	byteAlign := false
	if params != nil {
		if v, ok := raw.DictInt(params, "K"); ok {
			k = v
		}
		if v, ok := raw.DictInt(params, "Columns"); ok {
			columns = v
		}
		if v, ok := raw.DictInt(params, "Rows"); ok {
			rows = v
		}
		if v, ok := params.Get(raw.NameLiteral("BlackIs1")); ok {
			if b, isBool := v.(raw.Boolean); isBool {
				blackIs1 = b.Value()
			}
		}
		if v, ok := params.Get(raw.NameLiteral("EncodedByteAlign")); ok {
			if b, isBool := v.(raw.Boolean); isBool {
				byteAlign = b.Value()
			}
		}
	}

	sf := ccitt.Group3
	if k < 0 {
		sf = ccitt.Group4
	}
	opts := &ccitt.Options{Invert: !blackIs1, Align: byteAlign}
	height := int(rows)
	if height == 0 {
		// Unknown row count; decode until the reader is exhausted.
		height = -1
	}
	r := ccitt.NewReader(bytes.NewReader(in), ccitt.MSB, sf, int(columns), height, opts)
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return out.Bytes(), nil
}
