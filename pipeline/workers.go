package pipeline

import (
	"context"
	"runtime"
	"sync"

	"pdfsan/contentstream"
	"pdfsan/ir/raw"
	"pdfsan/report"
)

var defaultWorkers = min(runtime.GOMAXPROCS(0), 8)

// runContent sanitizes every stream's content through a bounded worker
// pool. Each worker mutates only the stream it holds; the document's
// object set is not restructured here, so concurrent per-object work is
// safe. The stage returns only after every worker has drained.
func (p *Pipeline) runContent(ctx context.Context, doc *raw.Document, res *Result) error {
	cfg := p.contentConfig()

	var refs []raw.ObjectRef
	for _, ref := range doc.SortedRefs() {
		if _, ok := doc.Objects[ref].(*raw.StreamObj); ok {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return nil
	}
	if res.Resources.Fonts == nil {
		res.Resources = contentstream.ResourceUsage{
			Fonts:    make(map[string]struct{}),
			XObjects: make(map[string]struct{}),
		}
	}

	jobs := make(chan raw.ObjectRef)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := min(p.opts.Workers, len(refs))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				stream := doc.Objects[ref].(*raw.StreamObj)
				usage, removed, err := contentstream.SanitizeStream(ctx, stream, p.opts.Filters, cfg)
				mu.Lock()
				if err != nil {
					res.Issues = append(res.Issues, report.Issue{
						Severity:    report.SeverityMedium,
						Ref:         refPtr(ref),
						Description: "content stream sanitization failed",
						Err:         err,
					})
				} else {
					res.BytesRemoved += int64(removed)
					for f := range usage.Fonts {
						res.Resources.Fonts[f] = struct{}{}
					}
					for x := range usage.XObjects {
						res.Resources.XObjects[x] = struct{}{}
					}
				}
				mu.Unlock()
			}
		}()
	}
	for _, ref := range refs {
		jobs <- ref
	}
	close(jobs)
	wg.Wait()
	return nil
}

func refPtr(ref raw.ObjectRef) *raw.ObjectRef {
	r := ref
	return &r
}
