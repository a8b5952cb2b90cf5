// Package pipeline orchestrates one ingestion run: index, fan-out download,
// partition, stage and upload. Distinct documents are independent and are
// processed in parallel on a bounded worker pool; within one document the
// stages run strictly in order, since each stage consumes the previous
// stage's output file.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/driftline/ingest/internal/core/domain"
	"github.com/driftline/ingest/internal/core/ports/driven"
	"github.com/driftline/ingest/internal/dataprep"
	"github.com/driftline/ingest/internal/logger"
)

// DefaultWorkers is the download fan-out when none is configured.
const DefaultWorkers = 4

// Partitioner turns one downloaded artifact into element records.
// Partitioning proper is a separate concern; the pipeline only needs some
// function with this shape between download and staging.
type Partitioner func(fd domain.FileData, localPath string) ([]map[string]any, error)

// RawTextPartitioner wraps the whole downloaded file into a single text
// element. It is the default when no real partitioner is plugged in.
func RawTextPartitioner(fd domain.FileData, localPath string) ([]map[string]any, error) {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}
	return []map[string]any{
		{
			"type": "UncategorizedText",
			"text": string(content),
			"metadata": map[string]any{
				"filename": fd.SourceIdentifiers.Filename,
			},
		},
	}, nil
}

// ItemError records a failure processing one document. Other documents are
// unaffected.
type ItemError struct {
	Identifier string
	Stage      string
	Err        error
}

// Error implements the error interface.
func (e ItemError) Error() string {
	return fmt.Sprintf("%s failed for item %q: %v", e.Stage, e.Identifier, e.Err)
}

// Result summarizes a pipeline run.
type Result struct {
	// Processed holds the post-download FileData of every successfully
	// handled document.
	Processed []domain.FileData

	// ItemErrors holds per-document failures that did not abort the run.
	ItemErrors []ItemError
}

// Pipeline drives one source, and optionally one destination, end to end.
type Pipeline struct {
	indexer     driven.Indexer
	downloader  driven.Downloader
	stager      driven.UploadStager
	uploader    driven.Uploader
	partitioner Partitioner
	workDir     string
	workers     int
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithWorkers sets the download fan-out. Values below 1 are raised to 1.
func WithWorkers(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			n = 1
		}
		p.workers = n
		return nil
	}
}

// WithPartitioner replaces the default raw-text partitioner.
func WithPartitioner(fn Partitioner) Option {
	return func(p *Pipeline) error {
		if fn == nil {
			return fmt.Errorf("%w: nil partitioner", domain.ErrInvalidInput)
		}
		p.partitioner = fn
		return nil
	}
}

// WithDestination attaches the upload side. Without it the pipeline stops
// after download, leaving content and checkpoints under the work directory.
func WithDestination(stager driven.UploadStager, uploader driven.Uploader) Option {
	return func(p *Pipeline) error {
		if stager == nil || uploader == nil {
			return fmt.Errorf("%w: destination requires both stager and uploader", domain.ErrInvalidInput)
		}
		p.stager = stager
		p.uploader = uploader
		return nil
	}
}

// New creates a pipeline. workDir receives the partitioned, staged and
// checkpoint files for the run.
func New(indexer driven.Indexer, downloader driven.Downloader, workDir string, opts ...Option) (*Pipeline, error) {
	if indexer == nil {
		return nil, fmt.Errorf("%w: pipeline requires an indexer", domain.ErrInvalidInput)
	}
	if downloader == nil {
		return nil, fmt.Errorf("%w: pipeline requires a downloader", domain.ErrInvalidInput)
	}
	if workDir == "" {
		return nil, fmt.Errorf("%w: pipeline requires a work directory", domain.ErrInvalidInput)
	}

	p := &Pipeline{
		indexer:     indexer,
		downloader:  downloader,
		partitioner: RawTextPartitioner,
		workDir:     workDir,
		workers:     DefaultWorkers,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Run executes the pipeline. Per-document failures are collected in the
// result; a connection-level failure cancels in-flight work and is returned
// as the run's error alongside whatever completed before it.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := p.indexer.Precheck(ctx); err != nil {
		return nil, err
	}
	if p.uploader != nil {
		if err := p.uploader.Precheck(ctx); err != nil {
			return nil, err
		}
	}
	for _, dir := range []string{p.partitionDir(), p.stagingDir(), p.checkpointDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := ants.NewPool(p.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		mu     sync.Mutex
		result Result
		runErr error
		wg     sync.WaitGroup
	)

	fail := func(err error) {
		mu.Lock()
		if runErr == nil {
			runErr = err
		}
		mu.Unlock()
		cancel()
	}

	docs, errs := p.indexer.Run(ctx)

	// Enumeration errors arrive on their own channel; item-level ones are
	// recorded, systemic ones end the run.
	var drainWG sync.WaitGroup
	drainWG.Add(1)
	go func() {
		defer drainWG.Done()
		for err := range errs {
			if domain.IsConnectionError(err) {
				fail(err)
				continue
			}
			mu.Lock()
			result.ItemErrors = append(result.ItemErrors, ItemError{Stage: "index", Err: err})
			mu.Unlock()
		}
	}()

	for fd := range docs {
		if err := fd.Validate(); err != nil {
			mu.Lock()
			result.ItemErrors = append(result.ItemErrors, ItemError{Identifier: fd.Identifier, Stage: "index", Err: err})
			mu.Unlock()
			continue
		}

		wg.Add(1)
		item := fd
		submitErr := pool.Submit(func() {
			defer wg.Done()
			p.processItem(ctx, item, &mu, &result, fail)
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}

	wg.Wait()
	drainWG.Wait()

	if runErr != nil {
		return &result, runErr
	}
	logger.Info("pipeline processed %d documents, %d item errors",
		len(result.Processed), len(result.ItemErrors))
	return &result, nil
}

// processItem runs download through upload for one document.
func (p *Pipeline) processItem(ctx context.Context, fd domain.FileData, mu *sync.Mutex, result *Result, fail func(error)) {
	recordItemErr := func(stage string, err error) {
		mu.Lock()
		result.ItemErrors = append(result.ItemErrors, ItemError{Identifier: fd.Identifier, Stage: stage, Err: err})
		mu.Unlock()
	}

	responses, err := p.downloader.Run(ctx, fd)
	if err != nil {
		if domain.IsConnectionError(err) {
			fail(err)
			return
		}
		// Item-not-found and anything else item-scoped stops only this
		// document.
		recordItemErr("download", err)
		return
	}

	for idx, resp := range responses {
		name := resp.FileData.Identifier
		if len(responses) > 1 {
			name = fmt.Sprintf("%s-%d", name, idx)
		}

		if err := domain.WriteFileData(resp.FileData, filepath.Join(p.checkpointDir(), name+".json")); err != nil {
			recordItemErr("checkpoint", err)
			return
		}

		if p.uploader == nil {
			continue
		}

		records, err := p.partitioner(resp.FileData, resp.Path)
		if err != nil {
			recordItemErr("partition", err)
			return
		}
		elementsPath := filepath.Join(p.partitionDir(), name+".json")
		if err := dataprep.WriteElements(elementsPath, records); err != nil {
			recordItemErr("partition", err)
			return
		}

		stagedPath, err := p.stager.Run(elementsPath, resp.FileData, p.stagingDir(), name)
		if err != nil {
			recordItemErr("stage", err)
			return
		}

		if err := p.uploader.Run(ctx, stagedPath, resp.FileData); err != nil {
			if domain.IsConnectionError(err) {
				fail(err)
				return
			}
			recordItemErr("upload", err)
			return
		}
	}

	mu.Lock()
	for _, resp := range responses {
		result.Processed = append(result.Processed, resp.FileData)
	}
	mu.Unlock()
}

func (p *Pipeline) partitionDir() string {
	return filepath.Join(p.workDir, "partitioned")
}

func (p *Pipeline) stagingDir() string {
	return filepath.Join(p.workDir, "staged")
}

func (p *Pipeline) checkpointDir() string {
	return filepath.Join(p.workDir, "filedata")
}
