package detect

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"pdfsan/filters"
	"pdfsan/ir/raw"
	"pdfsan/ocr"
	"pdfsan/report"
)

func testPipe() *filters.Pipeline {
	return filters.NewDefaultPipeline(filters.Limits{})
}

func ref(num int) raw.ObjectRef { return raw.ObjectRef{Num: num, Gen: 0} }

func TestPatternDetectorEmailSingleFinding(t *testing.T) {
	d := NewPatternDetector(DefaultConfig(), testPipe())
	obj := raw.Str([]byte("contact: alice@example.com for details"))

	findings, issues := d.Detect(context.Background(), ref(2), obj)
	if len(issues) != 0 {
		t.Fatalf("issues = %v", issues)
	}
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1: %+v", len(findings), findings)
	}
	f := findings[0]
	if f.Kind != report.KindPattern {
		t.Errorf("kind = %q", f.Kind)
	}
	if f.Severity != report.SeverityHigh {
		t.Errorf("severity = %v, want high", f.Severity)
	}
	if f.Context != "alice@example.com" {
		t.Errorf("context = %q", f.Context)
	}
	if f.Ref == nil || f.Ref.Num != 2 {
		t.Errorf("ref = %v", f.Ref)
	}
}

func TestPatternDetectorBuiltins(t *testing.T) {
	cases := []struct {
		text string
		desc string
	}{
		{"ssn 123-45-6789 on file", "social security number"},
		{"card 4111 1111 1111 1111 expires", "credit card number"},
		{"host 192.168.10.5 internal", "IPv4 address"},
		{"see https://example.com/doc?id=1 now", "URL"},
		{"call +1 (555) 123-4567 today", "phone number"},
	}
	d := NewPatternDetector(DefaultConfig(), testPipe())
	for _, tc := range cases {
		findings, _ := d.Detect(context.Background(), ref(1), raw.Str([]byte(tc.text)))
		found := false
		for _, f := range findings {
			if f.Description == tc.desc {
				found = true
			}
		}
		if !found {
			t.Errorf("%q: no %q finding in %+v", tc.text, tc.desc, findings)
		}
	}
}

func TestPatternDetectorNestedDictStrings(t *testing.T) {
	inner := raw.Dict()
	inner.Set(raw.NameLiteral("Contact"), raw.Str([]byte("bob@example.org")))
	outer := raw.Dict()
	outer.Set(raw.NameLiteral("Child"), inner)

	d := NewPatternDetector(DefaultConfig(), testPipe())
	findings, _ := d.Detect(context.Background(), ref(3), outer)
	if len(findings) != 1 || findings[0].Description != "email address" {
		t.Fatalf("findings = %+v", findings)
	}
}

func TestPatternDetectorUTF16Strings(t *testing.T) {
	// "a@b.co" as UTF-16BE with BOM.
	payload := []byte{0xFE, 0xFF}
	for _, r := range "a@b.co" {
		payload = append(payload, 0, byte(r))
	}
	d := NewPatternDetector(DefaultConfig(), testPipe())
	findings, _ := d.Detect(context.Background(), ref(4), raw.Str(payload))
	if len(findings) != 1 {
		t.Fatalf("findings = %+v", findings)
	}
}

func TestCustomPatternsAndCompileFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CustomPatterns = []CustomPattern{
		{Name: "case id", Expr: `CASE-(?=\d{4})\d+`, Severity: report.SeverityMedium},
		{Name: "broken", Expr: `(unclosed`, Severity: report.SeverityLow},
	}
	d := NewPatternDetector(cfg, testPipe())

	findings, issues := d.Detect(context.Background(), ref(1), raw.Str([]byte("ref CASE-2041 open")))
	if len(issues) != 1 {
		t.Fatalf("issues = %+v, want one compile failure", issues)
	}
	var got *report.Finding
	for i := range findings {
		if findings[i].Description == "case id" {
			got = &findings[i]
		}
	}
	if got == nil {
		t.Fatalf("no custom finding in %+v", findings)
	}
	if got.Severity != report.SeverityMedium {
		t.Errorf("severity = %v", got.Severity)
	}

	// The compile failure is reported once, not per object.
	_, issues = d.Detect(context.Background(), ref(2), raw.Str([]byte("CASE-2041")))
	if len(issues) != 0 {
		t.Fatalf("second scan issues = %+v", issues)
	}
}

func TestSignatureDetectorEmbeddedPayloads(t *testing.T) {
	data := append([]byte("plain prefix "), 0x7F, 'E', 'L', 'F')
	data = append(data, []byte(" and PK\x03\x04 archive")...)
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(data))))

	d := NewSignatureDetector(DefaultConfig())
	findings, _ := d.Detect(context.Background(), ref(6), raw.NewStream(dict, data))

	kinds := map[string]report.Severity{}
	for _, f := range findings {
		kinds[f.Description] = f.Severity
	}
	if len(findings) != 2 {
		t.Fatalf("findings = %+v", findings)
	}
	for desc, sev := range kinds {
		switch {
		case desc == "ELF executable header at offset 13":
			if sev != report.SeverityCritical {
				t.Errorf("%s severity = %v", desc, sev)
			}
		case desc == "ZIP archive header at offset 22":
			if sev != report.SeverityMedium {
				t.Errorf("%s severity = %v", desc, sev)
			}
		default:
			t.Errorf("unexpected finding %q", desc)
		}
	}
}

func TestSignatureDetectorSkipsDeclaredImage(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("Subtype"), raw.NameLiteral("Image"))

	d := NewSignatureDetector(DefaultConfig())
	findings, _ := d.Detect(context.Background(), ref(7), raw.NewStream(dict, jpeg))
	if len(findings) != 0 {
		t.Fatalf("declared image flagged: %+v", findings)
	}

	// The same header inside a non-image stream is an embedded payload.
	plain := raw.Dict()
	findings, _ = d.Detect(context.Background(), ref(8), raw.NewStream(plain, jpeg))
	if len(findings) != 1 {
		t.Fatalf("findings = %+v", findings)
	}
}

func TestRichTextHiddenAndScript(t *testing.T) {
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("RC"), raw.Str([]byte(
		`<body><span style="display: none">secret text</span><script>app.alert(1)</script></body>`)))

	d := NewRichTextDetector(DefaultConfig())
	findings, issues := d.Detect(context.Background(), ref(9), dict)
	if len(issues) != 0 {
		t.Fatalf("issues = %+v", issues)
	}
	var hidden, script bool
	for _, f := range findings {
		switch f.Kind {
		case report.KindHiddenText:
			hidden = true
			if f.Context != "secret text" {
				t.Errorf("hidden context = %q", f.Context)
			}
		case report.KindJavaScript:
			script = true
		}
	}
	if !hidden || !script {
		t.Fatalf("hidden=%v script=%v in %+v", hidden, script, findings)
	}
}

func TestJavaScriptDetectorActionDict(t *testing.T) {
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("S"), raw.NameLiteral("JavaScript"))
	dict.Set(raw.NameLiteral("JS"), raw.Str([]byte(`eval(unescape("%u9090%u9090"));`)))

	d := NewJavaScriptDetector(DefaultConfig(), testPipe())
	findings, _ := d.Detect(context.Background(), ref(10), dict)
	if len(findings) != 1 {
		t.Fatalf("findings = %+v", findings)
	}
	f := findings[0]
	if f.Kind != report.KindJavaScript || f.Severity != report.SeverityHigh {
		t.Fatalf("finding = %+v", f)
	}
	if f.Confidence < 0.9 {
		t.Fatalf("confidence = %v, want >= 0.9 for multiple markers", f.Confidence)
	}
}

func TestJavaScriptDetectorIgnoresProse(t *testing.T) {
	dict := raw.Dict()
	data := []byte("This page discusses nothing suspicious at all.")
	sd := raw.Dict()
	sd.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(data))))
	_ = dict

	d := NewJavaScriptDetector(DefaultConfig(), testPipe())
	findings, _ := d.Detect(context.Background(), ref(11), raw.NewStream(sd, data))
	if len(findings) != 0 {
		t.Fatalf("prose flagged: %+v", findings)
	}
}

func TestFontDetectorRejectsGarbage(t *testing.T) {
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("Subtype"), raw.NameLiteral("Type1C"))
	d := NewFontDetector(testPipe())

	findings, issues := d.Detect(context.Background(), ref(12), raw.NewStream(dict, []byte("not a font")))
	if len(issues) != 0 {
		t.Fatalf("issues = %+v", issues)
	}
	if len(findings) != 1 || findings[0].Kind != report.KindFont {
		t.Fatalf("findings = %+v", findings)
	}
}

func TestFontDetectorIgnoresType1(t *testing.T) {
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("Length1"), raw.NumberInt(100))
	dict.Set(raw.NameLiteral("Length2"), raw.NumberInt(200))
	d := NewFontDetector(testPipe())

	findings, _ := d.Detect(context.Background(), ref(13), raw.NewStream(dict, []byte("%!PS-AdobeFont")))
	if len(findings) != 0 {
		t.Fatalf("Type1 program flagged: %+v", findings)
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func imageStream(data []byte) raw.Stream {
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("Subtype"), raw.NameLiteral("Image"))
	dict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(data))))
	return raw.NewStream(dict, data)
}

func TestStegoDetectorRandomLSBPlane(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	state := uint32(12345)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			px := [3]uint8{}
			for c := range px {
				state = state*1664525 + 1013904223
				px[c] = 128 | uint8((state>>16)&1)
			}
			img.SetRGBA(x, y, color.RGBA{R: px[0], G: px[1], B: px[2], A: 255})
		}
	}
	d := NewStegoDetector(DefaultConfig(), testPipe())
	findings, issues := d.Detect(context.Background(), ref(14), imageStream(encodePNG(t, img)))
	if len(issues) != 0 {
		t.Fatalf("issues = %+v", issues)
	}
	var lsb *report.Finding
	for i := range findings {
		if findings[i].Description == "suspected LSB steganography" {
			lsb = &findings[i]
		}
	}
	if lsb == nil {
		t.Fatalf("no LSB finding in %+v", findings)
	}
	if lsb.Confidence < 0.7 {
		t.Fatalf("confidence = %v", lsb.Confidence)
	}
}

func TestStegoDetectorCleanGradient(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8((x * 4) &^ 1)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	d := NewStegoDetector(DefaultConfig(), testPipe())
	findings, _ := d.Detect(context.Background(), ref(15), imageStream(encodePNG(t, img)))
	for _, f := range findings {
		if f.Description == "suspected LSB steganography" {
			t.Fatalf("clean image flagged: %+v", f)
		}
	}
}

func TestScanDocumentThresholdAndOrder(t *testing.T) {
	doc := raw.NewDocument()
	doc.Objects[ref(1)] = raw.Dict()
	doc.Objects[ref(2)] = raw.Str([]byte("mail me: eve@example.net"))
	doc.Trailer.Root = ref(1)

	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0.5
	r := NewDefaultRegistry(cfg, testPipe(), nil)

	findings, issues, err := r.ScanDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("issues = %+v", issues)
	}
	if len(findings) != 1 || findings[0].Description != "email address" {
		t.Fatalf("findings = %+v", findings)
	}
}

func TestScanDocumentCancellation(t *testing.T) {
	doc := raw.NewDocument()
	doc.Objects[ref(1)] = raw.Dict()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewDefaultRegistry(DefaultConfig(), testPipe(), nil)
	if _, _, err := r.ScanDocument(ctx, doc); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestOCRDetectorFindsRenderedPII(t *testing.T) {
	engine := fakeEngine{text: "ssn 123-45-6789", confidence: 0.9}
	d := NewOCRDetector(DefaultConfig(), testPipe(), engine)

	img := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 8, 8)))
	findings, issues := d.Detect(context.Background(), ref(16), imageStream(img))
	if len(issues) != 0 {
		t.Fatalf("issues = %+v", issues)
	}
	if len(findings) != 1 {
		t.Fatalf("findings = %+v", findings)
	}
	if findings[0].Description != "social security number in rendered image text" {
		t.Fatalf("description = %q", findings[0].Description)
	}
}

type fakeEngine struct {
	text       string
	confidence float64
}

func (fakeEngine) Name() string { return "fake" }

func (e fakeEngine) Recognize(_ context.Context, in ocr.Input) (ocr.Result, error) {
	return ocr.Result{InputID: in.ID, PlainText: e.text, Confidence: e.confidence}, nil
}
