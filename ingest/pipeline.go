package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"policyassist-backend/logger"
	"policyassist-backend/metrics"
	"policyassist-backend/models"
	"policyassist-backend/repository"
	"policyassist-backend/service"
	"policyassist-backend/storage"
)

// Step statuses recorded on an ingest run
const (
	StepIngested = "ingested"
	StepSkipped  = "skipped"
	StepFailed   = "failed"
)

// ChunkWriter replaces the stored chunks of one source document
type ChunkWriter interface {
	ReplaceSource(ctx context.Context, source string, records []repository.ChunkRecord) error
	DeleteSource(ctx context.Context, source string) error
}

// DocumentTracker keeps the per-document ingestion state
type DocumentTracker interface {
	Upsert(ctx context.Context, doc *models.PolicyDocument) error
	GetByStorageKey(ctx context.Context, key string) (*models.PolicyDocument, error)
	MarkIngested(ctx context.Context, storageKey, checksum string, chunks int) error
	Delete(ctx context.Context, storageKey string) error
}

// RunTracker records ingest runs
type RunTracker interface {
	Create(ctx context.Context, run *models.IngestRun) error
	UpdateProgress(ctx context.Context, id uuid.UUID, steps models.IngestSteps) error
	Complete(ctx context.Context, id uuid.UUID, steps models.IngestSteps) error
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// Pipeline reads documents from storage, splits and embeds them and writes
// the chunks to the vector index
type Pipeline struct {
	store     storage.Storage
	embedder  service.DocumentEmbedder
	chunks    ChunkWriter
	docs      DocumentTracker
	runs      RunTracker
	force     bool
	batchSize int
	pause     time.Duration
}

type PipelineOption func(*Pipeline)

// WithDocumentTracker skips unchanged documents and records checksums
func WithDocumentTracker(d DocumentTracker) PipelineOption {
	return func(p *Pipeline) { p.docs = d }
}

func WithRunTracker(r RunTracker) PipelineOption {
	return func(p *Pipeline) { p.runs = r }
}

// WithForce re-ingests documents whose checksum is unchanged
func WithForce(force bool) PipelineOption {
	return func(p *Pipeline) { p.force = force }
}

// WithBatchSize caps the texts sent per embedding call
func WithBatchSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithPause waits between documents to stay under provider rate limits
func WithPause(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.pause = d }
}

func NewPipeline(store storage.Storage, embedder service.DocumentEmbedder, chunks ChunkWriter, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:     store,
		embedder:  embedder,
		chunks:    chunks,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests every supported document in the store. Per-document failures
// are recorded on the run and do not stop it; a failure to list the store
// fails the run.
func (p *Pipeline) Run(ctx context.Context, trigger string) (*models.IngestRun, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "policyassist.ingest"})

	run := &models.IngestRun{Status: models.IngestStatusInProgress, Trigger: trigger, Steps: models.IngestSteps{}}
	if p.runs != nil {
		if err := p.runs.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("create ingest run: %w", err)
		}
	}

	objects, err := p.store.List(ctx, "")
	if err != nil {
		p.fail(ctx, run, err)
		return run, fmt.Errorf("list documents: %w", err)
	}

	manifest, err := p.loadManifest(ctx, objects)
	if err != nil {
		slog.WarnContext(ctx, "ignoring unreadable manifest", "error", err)
	}

	for _, obj := range objects {
		if !Supported(obj.Key) || isManifest(obj.Key) {
			continue
		}
		if err := ctx.Err(); err != nil {
			p.fail(ctx, run, err)
			return run, err
		}

		step := p.Ingest(ctx, obj.Key, manifest)
		run.Steps = append(run.Steps, step)
		if p.runs != nil {
			if err := p.runs.UpdateProgress(ctx, run.ID, run.Steps); err != nil {
				slog.WarnContext(ctx, "failed to record ingest progress", "error", err)
			}
		}
		if step.Status == StepIngested && p.pause > 0 {
			time.Sleep(p.pause)
		}
	}

	run.Status = models.IngestStatusCompleted
	now := time.Now().UTC()
	run.CompletedAt = &now
	if p.runs != nil {
		if err := p.runs.Complete(ctx, run.ID, run.Steps); err != nil {
			return run, fmt.Errorf("complete ingest run: %w", err)
		}
	}

	ingested, skipped, failed := run.Counts()
	slog.InfoContext(ctx, "ingest run finished", "ingested", ingested, "skipped", skipped, "failed", failed)
	return run, nil
}

func (p *Pipeline) fail(ctx context.Context, run *models.IngestRun, cause error) {
	run.Status = models.IngestStatusFailed
	msg := cause.Error()
	run.ErrorMessage = &msg
	if p.runs == nil {
		return
	}
	if err := p.runs.Fail(context.WithoutCancel(ctx), run.ID, msg); err != nil {
		slog.WarnContext(ctx, "failed to record ingest failure", "error", err)
	}
}

// LoadManifest reads the first manifest present in the store. A store with
// no manifest yields an empty one.
func (p *Pipeline) LoadManifest(ctx context.Context) (Manifest, error) {
	objects, err := p.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return p.loadManifest(ctx, objects)
}

func (p *Pipeline) loadManifest(ctx context.Context, objects []storage.Object) (Manifest, error) {
	present := make(map[string]bool, len(objects))
	for _, o := range objects {
		present[strings.ToLower(o.Key)] = true
	}
	for _, name := range ManifestNames {
		if !present[name] {
			continue
		}
		rc, err := p.store.Open(ctx, name)
		if err != nil {
			return Manifest{}, err
		}
		defer rc.Close()
		m, err := LoadManifest(rc)
		if err != nil {
			return Manifest{}, fmt.Errorf("%s: %w", name, err)
		}
		slog.InfoContext(ctx, "loaded metadata manifest", "manifest", name, "entries", len(m))
		return m, nil
	}
	return Manifest{}, nil
}

func isManifest(key string) bool {
	for _, name := range ManifestNames {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}

// Ingest processes a single document and reports the outcome as a step
func (p *Pipeline) Ingest(ctx context.Context, key string, manifest Manifest) models.IngestStep {
	step := models.IngestStep{Document: key}
	chunks, err := p.ingest(ctx, key, manifest)
	switch {
	case errors.Is(err, errUnchanged):
		step.Status = StepSkipped
		slog.DebugContext(ctx, "document unchanged, skipping", "document", key)
	case err != nil:
		step.Status = StepFailed
		step.Error = err.Error()
		slog.ErrorContext(ctx, "failed to ingest document", "document", key, "error", err)
	default:
		step.Status = StepIngested
		step.Chunks = chunks
		slog.InfoContext(ctx, "ingested document", "document", key, "chunks", chunks)
	}
	return step
}

// IngestOne loads the store's manifest and ingests a single document
func (p *Pipeline) IngestOne(ctx context.Context, key string) models.IngestStep {
	manifest, err := p.LoadManifest(ctx)
	if err != nil {
		slog.WarnContext(ctx, "ignoring unreadable manifest", "error", err)
	}
	return p.Ingest(ctx, key, manifest)
}

var errUnchanged = errors.New("document unchanged")

func (p *Pipeline) ingest(ctx context.Context, key string, manifest Manifest) (int, error) {
	rc, err := p.store.Open(ctx, key)
	if err != nil {
		return 0, err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	meta, text, err := resolve(key, data, manifest)
	if err != nil {
		return 0, err
	}

	if p.docs != nil {
		if err := p.track(ctx, key, meta, int64(len(data)), checksum); err != nil {
			return 0, err
		}
	}

	parts, err := SplitText(key, text)
	if err != nil {
		return 0, err
	}

	records := make([]repository.ChunkRecord, len(parts))
	for i, part := range parts {
		chunk := models.NewPolicyChunk(part, meta.Map(key))
		chunk.ChunkIndex = i
		records[i] = repository.ChunkRecord{Chunk: chunk}
	}

	if err := p.embed(ctx, records); err != nil {
		return 0, err
	}
	if err := p.chunks.ReplaceSource(ctx, key, records); err != nil {
		return 0, err
	}
	metrics.IngestedChunksTotal.Add(float64(len(records)))

	if p.docs != nil {
		if err := p.docs.MarkIngested(ctx, key, checksum, len(records)); err != nil {
			return 0, fmt.Errorf("mark %s ingested: %w", key, err)
		}
	}
	return len(records), nil
}

// ResolveMetadata returns the tags the document at key would be indexed
// with: CSV columns first, then the store's manifest, then the filename.
func (p *Pipeline) ResolveMetadata(ctx context.Context, key string) (Metadata, error) {
	manifest, err := p.LoadManifest(ctx)
	if err != nil {
		return Metadata{}, err
	}
	rc, err := p.store.Open(ctx, key)
	if err != nil {
		return Metadata{}, err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return Metadata{}, fmt.Errorf("read %s: %w", key, err)
	}
	meta, _, err := resolve(key, data, manifest)
	return meta, err
}

func resolve(key string, data []byte, manifest Manifest) (Metadata, string, error) {
	meta := InferMetadata(key, manifest)
	text, tags, err := ExtractText(key, data)
	if err != nil {
		return Metadata{}, "", err
	}
	meta.Department = firstNonEmpty(tags.Department, meta.Department)
	meta.Country = firstNonEmpty(tags.Country, meta.Country)
	meta.Visibility = firstNonEmpty(meta.Visibility, models.VisibilityAll)
	return meta, text, nil
}

// track upserts the document row and reports errUnchanged when neither the
// content nor the resolved tags differ from the last ingestion
func (p *Pipeline) track(ctx context.Context, key string, meta Metadata, size int64, checksum string) error {
	existing, err := p.docs.GetByStorageKey(ctx, key)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load document %s: %w", key, err)
	}
	if existing != nil && !p.force && existing.Checksum == checksum && existing.ChunkCount > 0 && meta.Matches(existing) {
		return errUnchanged
	}

	doc := &models.PolicyDocument{
		StorageKey: key,
		Filename:   key,
		PolicyName: meta.PolicyName,
		Department: meta.Department,
		Country:    meta.Country,
		Visibility: meta.Visibility,
		MimeType:   storage.ContentType(key),
		Size:       size,
	}
	if err := p.docs.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("record document %s: %w", key, err)
	}
	return nil
}

// embed fills in record embeddings in batches
func (p *Pipeline) embed(ctx context.Context, records []repository.ChunkRecord) error {
	for start := 0; start < len(records); start += p.batchSize {
		end := min(start+p.batchSize, len(records))
		inputs := make([]string, 0, end-start)
		for _, rec := range records[start:end] {
			inputs = append(inputs, embeddingInput(rec.Chunk))
		}

		vectors, err := p.embedder.EmbedDocuments(ctx, inputs)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(inputs) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(inputs))
		}
		for i, v := range vectors {
			repository.NormalizeEmbedding(v)
			records[start+i].Embedding = v
		}
	}
	return nil
}

// embeddingInput prefixes the chunk with its policy name so short chunks
// still carry the document's subject
func embeddingInput(c models.PolicyChunk) string {
	if c.PolicyName == "" {
		return c.Content
	}
	return "[POLICY: " + c.PolicyName + "]\n\n" + c.Content
}

// Remove drops a deleted document from the index
func (p *Pipeline) Remove(ctx context.Context, key string) error {
	if err := p.chunks.DeleteSource(ctx, key); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", key, err)
	}
	if p.docs != nil {
		if err := p.docs.Delete(ctx, key); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("delete document %s: %w", key, err)
		}
	}
	slog.InfoContext(ctx, "removed document from index", "document", key)
	return nil
}
