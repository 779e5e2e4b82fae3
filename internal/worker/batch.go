package worker

import (
	"context"
	"sort"

	"github.com/ppiankov/bufilter/internal/model"
)

// Resolver resolves one input record; *match.Resolver satisfies it
type Resolver interface {
	Resolve(rec model.InputRecord) model.ResolvedRecord
}

// minChunk keeps per-job overhead small relative to the lookups
const minChunk = 256

// ResolveJob resolves a contiguous chunk of input records
type ResolveJob struct {
	Offset   int
	Records  []model.InputRecord
	Resolver Resolver
	Progress *Progress
}

// Execute resolves the chunk, stopping early if ctx is cancelled
func (j *ResolveJob) Execute(ctx context.Context) Result {
	out := make([]model.ResolvedRecord, len(j.Records))
	for i, rec := range j.Records {
		if i%minChunk == 0 {
			if err := ctx.Err(); err != nil {
				return &ResolveResult{Offset: j.Offset, Error: err}
			}
		}
		out[i] = j.Resolver.Resolve(rec)
	}
	j.Progress.Add(len(out))
	return &ResolveResult{Offset: j.Offset, Records: out}
}

// ResolveResult holds a resolved chunk and where it belongs in the input
type ResolveResult struct {
	Offset  int
	Records []model.ResolvedRecord
	Error   error
}

// GetError returns the error from the resolve result
func (r *ResolveResult) GetError() error {
	return r.Error
}

// BatchResolver resolves input records concurrently and returns them in
// input order
type BatchResolver struct {
	resolver    Resolver
	concurrency int
	progress    *Progress
}

// NewBatchResolver creates a new batch resolver. progress may be nil.
func NewBatchResolver(resolver Resolver, concurrency int, progress *Progress) *BatchResolver {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchResolver{
		resolver:    resolver,
		concurrency: concurrency,
		progress:    progress,
	}
}

// Resolve returns exactly one resolved record per input record, in input
// order. The only error is cancellation of ctx.
func (b *BatchResolver) Resolve(ctx context.Context, records []model.InputRecord) ([]model.ResolvedRecord, error) {
	if len(records) == 0 {
		return []model.ResolvedRecord{}, nil
	}

	// Small inputs are not worth the goroutines
	if b.concurrency == 1 || len(records) <= minChunk {
		job := &ResolveJob{Records: records, Resolver: b.resolver, Progress: b.progress}
		res := job.Execute(ctx).(*ResolveResult)
		return res.Records, res.Error
	}

	var jobs []Job
	size := chunkSize(len(records), b.concurrency)
	for off := 0; off < len(records); off += size {
		end := min(off+size, len(records))
		jobs = append(jobs, &ResolveJob{
			Offset:   off,
			Records:  records[off:end],
			Resolver: b.resolver,
			Progress: b.progress,
		})
	}

	pool := NewPool(ctx, b.concurrency)
	results := pool.Run(jobs)

	chunks := make([]*ResolveResult, 0, len(results))
	for _, r := range results {
		res := r.(*ResolveResult)
		if res.Error != nil {
			return nil, res.Error
		}
		chunks = append(chunks, res)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(chunks) != len(jobs) {
		return nil, context.Canceled
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Offset < chunks[j].Offset })

	out := make([]model.ResolvedRecord, 0, len(records))
	for _, c := range chunks {
		out = append(out, c.Records...)
	}
	return out, nil
}

// chunkSize aims for a few chunks per worker so a slow chunk does not
// leave the others idle
func chunkSize(n, workers int) int {
	size := n / (workers * 4)
	if size < minChunk {
		size = minChunk
	}
	return size
}
