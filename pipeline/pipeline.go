// Package pipeline sequences the sanitization stages over one document:
// forensic scanning, content and binary cleaning, object-graph
// rewriting, and encryption. The pipeline owns the document for the
// duration of a run; stages never alias it.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"pdfsan/contentstream"
	"pdfsan/detect"
	"pdfsan/filters"
	"pdfsan/ir/raw"
	"pdfsan/observability"
	"pdfsan/report"
	"pdfsan/rewrite"
	"pdfsan/sanitize"
	"pdfsan/security"
)

// CleaningConfig selects which cleaning families run.
type CleaningConfig struct {
	// CleanStreams runs the content-stream sanitizer over form, image
	// and page-content streams.
	CleanStreams bool
	// CleanBinary strips identifying segments from binary payloads.
	CleanBinary bool
	// CleanContent enables the aggressive content rewrites: operator
	// removal and text-show merging.
	CleanContent bool
	// CleanStructure runs the object-graph rewriting stages.
	CleanStructure bool

	// PreserveFunctionality keeps rewrites that change rendering out of
	// the run: no operator removal, no text merging. Redundancy
	// collapsing and comment removal stay on; they are render-neutral.
	PreserveFunctionality bool

	RemoveMetadata bool
	RemoveHidden   bool
}

// Options wires the pipeline's collaborators. Zero values get working
// defaults; Crypto and Scanner stay off unless provided.
type Options struct {
	Cleaning CleaningConfig
	Rewrite  rewrite.Config
	Content  contentstream.ProcessingConfig

	Scanner *detect.Registry
	Crypto  *security.Handler
	Filters *filters.Pipeline

	Logger observability.Logger
	Tracer observability.Tracer

	// Workers bounds the pool used for per-object stages. Zero means
	// one worker per object up to a small fixed cap.
	Workers int
}

// Result aggregates everything one run produced.
type Result struct {
	Stats        rewrite.Stats
	BytesRemoved int64
	KeysRemoved  int
	Findings     []report.Finding
	Issues       []report.Issue
	Resources    contentstream.ResourceUsage
	Duration     time.Duration
}

// Pipeline is the orchestrator. Construct one per configuration; a
// single Pipeline may process documents sequentially, one Run at a time
// per document.
type Pipeline struct {
	opts   Options
	logger observability.Logger
	tracer observability.Tracer
}

// New builds a Pipeline with defaults filled in.
func New(opts Options) *Pipeline {
	if opts.Filters == nil {
		opts.Filters = filters.NewDefaultPipeline(filters.Limits{})
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger{}
	}
	if opts.Tracer == nil {
		opts.Tracer = observability.NopTracer()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Pipeline{opts: opts, logger: opts.Logger, tracer: opts.Tracer}
}

// stage is one pipeline step. Stages run in order with a barrier in
// between; a stage either completes or leaves the document as the
// previous stage produced it.
type stage struct {
	name    string
	enabled bool
	run     func(ctx context.Context, doc *raw.Document, res *Result) error
}

// Run executes the configured stages over doc. Per-object work inside a
// stage may fan out across the worker pool; stages themselves never
// overlap. Cancellation is honored at stage boundaries.
func (p *Pipeline) Run(ctx context.Context, doc *raw.Document) (Result, error) {
	start := time.Now()
	var res Result

	cl := p.opts.Cleaning
	stages := []stage{
		{"scan", p.opts.Scanner != nil, p.runScan},
		{"clean-content", cl.CleanStreams || cl.CleanContent, p.runContent},
		{"strip-metadata", cl.RemoveMetadata, p.runMetadata},
		{"strip-hidden", cl.RemoveHidden, p.runHidden},
		{"clean-binary", cl.CleanBinary, p.runBinary},
		{"rewrite", cl.CleanStructure, p.runRewrite},
		{"encrypt", p.opts.Crypto != nil, p.runEncrypt},
	}

	for _, st := range stages {
		if !st.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		stageStart := time.Now()
		spanCtx, span := p.tracer.StartSpan(ctx, "pipeline."+st.name)
		err := st.run(spanCtx, doc, &res)
		span.SetTag(observability.MetricStageDuration, time.Since(stageStart))
		if err != nil {
			span.SetError(err)
			span.Finish()
			res.Duration = time.Since(start)
			return res, fmt.Errorf("pipeline: %s: %w", st.name, err)
		}
		span.Finish()
		p.logger.Debug("stage complete",
			observability.String("stage", st.name),
			observability.Int("objects", len(doc.Objects)),
			observability.Int("issues", len(res.Issues)))
	}

	res.Duration = time.Since(start)
	p.logger.Info("pipeline complete",
		observability.Int("findings", len(res.Findings)),
		observability.Int("issues", len(res.Issues)),
		observability.Int64(observability.MetricBytesRemoved, res.BytesRemoved),
		observability.Int(observability.MetricObjectsRemoved, res.Stats.ObjectsRemoved))
	return res, nil
}

// Scan runs only the forensic scanner. The document is not modified.
func (p *Pipeline) Scan(ctx context.Context, doc *raw.Document) ([]report.Finding, []report.Issue, error) {
	if p.opts.Scanner == nil {
		return nil, nil, nil
	}
	return p.opts.Scanner.ScanDocument(ctx, doc)
}

// Encrypt applies the configured cipher and installs the Encrypt
// dictionary as a new indirect object.
func (p *Pipeline) Encrypt(ctx context.Context, doc *raw.Document) error {
	if p.opts.Crypto == nil {
		return security.ErrNoEncryptionKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	if err := p.opts.Crypto.EncryptDocument(doc); err != nil {
		return err
	}
	ref := nextRef(doc)
	doc.Objects[ref] = p.opts.Crypto.BuildEncryptDict()
	doc.Trailer.Encrypt = raw.Ref(ref.Num, ref.Gen)
	p.logger.Debug("document encrypted",
		observability.String("object", ref.String()),
		observability.Int64(observability.MetricEncryptDuration, time.Since(start).Milliseconds()))
	return nil
}

// Decrypt reverses Encrypt under the same handler and drops the Encrypt
// dictionary.
func (p *Pipeline) Decrypt(ctx context.Context, doc *raw.Document) error {
	if p.opts.Crypto == nil {
		return security.ErrNoEncryptionKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.opts.Crypto.DecryptDocument(doc); err != nil {
		return err
	}
	if ref, ok := doc.EncryptRef(); ok {
		delete(doc.Objects, ref)
	}
	doc.Trailer.Encrypt = nil
	return nil
}

func (p *Pipeline) runScan(ctx context.Context, doc *raw.Document, res *Result) error {
	findings, issues, err := p.opts.Scanner.ScanDocument(ctx, doc)
	res.Findings = append(res.Findings, findings...)
	res.Issues = append(res.Issues, issues...)
	return err
}

func (p *Pipeline) runMetadata(_ context.Context, doc *raw.Document, res *Result) error {
	res.KeysRemoved += sanitize.StripMetadata(doc)
	return nil
}

func (p *Pipeline) runHidden(_ context.Context, doc *raw.Document, res *Result) error {
	res.KeysRemoved += sanitize.StripHidden(doc)
	return nil
}

func (p *Pipeline) runBinary(_ context.Context, doc *raw.Document, res *Result) error {
	res.BytesRemoved += int64(sanitize.CleanBinary(doc))
	return nil
}

func (p *Pipeline) runRewrite(ctx context.Context, doc *raw.Document, res *Result) error {
	rw := rewrite.New(p.opts.Rewrite, nil, p.logger)
	stats, err := rw.Run(ctx, doc)
	res.Stats = stats
	return err
}

func (p *Pipeline) runEncrypt(ctx context.Context, doc *raw.Document, _ *Result) error {
	if err := p.Encrypt(ctx, doc); err != nil {
		return err
	}
	// Encryption added the Encrypt object and changed string and stream
	// bytes, so the table the rewrite stage built is stale.
	if p.opts.Cleaning.CleanStructure && p.opts.Rewrite.RebuildXRef {
		return rewrite.RebuildXRef(doc, nil)
	}
	return nil
}

// contentConfig derives the effective content-stream policy from the
// cleaning flags.
func (p *Pipeline) contentConfig() contentstream.ProcessingConfig {
	cfg := p.opts.Content
	cl := p.opts.Cleaning
	if !cl.CleanContent || cl.PreserveFunctionality {
		cfg.RemoveOperators = nil
		cfg.MergeTextShows = false
	}
	return cfg
}

func nextRef(doc *raw.Document) raw.ObjectRef {
	maxNum := 0
	for ref := range doc.Objects {
		if ref.Num > maxNum {
			maxNum = ref.Num
		}
	}
	return raw.ObjectRef{Num: maxNum + 1, Gen: 0}
}
