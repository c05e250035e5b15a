package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codeatlas-ai/codeatlas/internal/embedder"
	"github.com/codeatlas-ai/codeatlas/internal/generator"
	"github.com/codeatlas-ai/codeatlas/internal/graph"
	"github.com/codeatlas-ai/codeatlas/internal/parser"
	"github.com/codeatlas-ai/codeatlas/internal/store"
	"github.com/codeatlas-ai/codeatlas/pkg/types"
)

// Common errors
var (
	ErrBuildInProgress = errors.New("full build already in progress")
	ErrNotIndexed      = errors.New("file not indexed")
)

// State is the indexer lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateProcessing:
		return "processing"
	default:
		return "idle"
	}
}

// indexableExtensions are the file types the parser understands. Other
// files are ignored during discovery; explicitly enqueued paths of any
// extension still get a whole-file chunk.
var indexableExtensions = map[string]string{
	".go":  "go",
	".ts":  "typescript",
	".tsx": "typescript",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".py":  "python",
}

// Stats summarizes one processing batch. A batch with failures still
// commits its successful files; FailedFiles plus Errors report the rest.
type Stats struct {
	TotalFiles   int
	IndexedFiles int
	SkippedFiles int
	FailedFiles  int
	ChunksStored int
	Duration     time.Duration
	Errors       []string
}

// Status reports the index state for callers polling progress.
type Status struct {
	Exists  bool     `json:"exists"`
	Syncing bool     `json:"syncing"`
	State   string   `json:"state"`
	Files   []string `json:"files"`
}

// Indexer coordinates the pipeline: read -> parse -> describe -> embed ->
// store + graph. All mutations funnel through it so the vector store and
// the code graph stay consistent.
type Indexer struct {
	root      string
	parser    *parser.Parser
	graph     *graph.Graph
	store     store.Store
	embedder  embedder.Embedder
	describer generator.Describer
	logger    *zap.Logger
	workers   int

	state atomic.Int32
	build buildLock

	mu     sync.Mutex // serializes mutation batches
	filter *Filter

	cacheMu sync.RWMutex
	hashes  map[string][32]byte
}

// Config contains indexer construction options.
type Config struct {
	Root      string
	Parser    *parser.Parser
	Graph     *graph.Graph
	Store     store.Store
	Embedder  embedder.Embedder
	Describer generator.Describer
	Logger    *zap.Logger
	Workers   int
}

// New creates an Indexer. The hash cache starts from the store's persisted
// file hashes so a restart does not re-embed unchanged files.
func New(ctx context.Context, cfg Config) (*Indexer, error) {
	if cfg.Root == "" {
		return nil, errors.New("indexer: workspace root required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Describer == nil {
		cfg.Describer = generator.Disabled{}
	}

	idx := &Indexer{
		root:      cfg.Root,
		parser:    cfg.Parser,
		graph:     cfg.Graph,
		store:     cfg.Store,
		embedder:  cfg.Embedder,
		describer: cfg.Describer,
		logger:    cfg.Logger,
		workers:   cfg.Workers,
	}

	hashes, err := cfg.Store.FileHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load file hashes: %w", err)
	}
	idx.hashes = hashes

	return idx, nil
}

// State returns the current lifecycle state.
func (idx *Indexer) State() State {
	return State(idx.state.Load())
}

// Status reports whether an index exists and which files it covers.
func (idx *Indexer) Status(ctx context.Context) Status {
	files, err := idx.store.ListFiles(ctx)
	if err != nil {
		idx.logger.Warn("status: list files failed", zap.Error(err))
	}
	st := idx.State()
	return Status{
		Exists:  len(files) > 0,
		Syncing: st != StateIdle,
		State:   st.String(),
		Files:   files,
	}
}

// SetFilter validates and installs a new inclusion filter. On validation
// error the previous filter stays active.
func (idx *Indexer) SetFilter(include, exclude []string) error {
	f, err := NewFilter(include, exclude)
	if err != nil {
		return err
	}
	idx.mu.Lock()
	idx.filter = f
	idx.mu.Unlock()
	return nil
}

// ProcessDocuments indexes the given workspace-relative paths. Unchanged
// files (by content hash) are skipped unless force is set. Each file
// commits independently: one bad file never aborts the batch.
func (idx *Indexer) ProcessDocuments(ctx context.Context, paths []string, force bool) (*Stats, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.state.Store(int32(StateProcessing))
	defer idx.state.Store(int32(StateIdle))

	start := time.Now()
	stats := &Stats{TotalFiles: len(paths)}

	paths = idx.filtered(paths, stats)

	var (
		indexed atomic.Int32
		skipped atomic.Int32
		failed  atomic.Int32
		chunks  atomic.Int32
		errMu   sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)

	for _, relPath := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := idx.processFile(gctx, relPath, force)
			switch {
			case errors.Is(err, errUnchanged):
				skipped.Add(1)
			case err != nil:
				failed.Add(1)
				idx.logger.Warn("index file failed",
					zap.String("path", relPath), zap.Error(err))
				errMu.Lock()
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", relPath, err))
				errMu.Unlock()
			default:
				indexed.Add(1)
				chunks.Add(int32(n))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.IndexedFiles = int(indexed.Load())
	stats.SkippedFiles += int(skipped.Load())
	stats.FailedFiles = int(failed.Load())
	stats.ChunksStored = int(chunks.Load())
	stats.Duration = time.Since(start)
	sort.Strings(stats.Errors)

	idx.logger.Info("batch processed",
		zap.Int("indexed", stats.IndexedFiles),
		zap.Int("skipped", stats.SkippedFiles),
		zap.Int("failed", stats.FailedFiles),
		zap.Duration("took", stats.Duration))

	return stats, nil
}

// errUnchanged marks a hash-cache hit inside processFile.
var errUnchanged = errors.New("file unchanged")

func (idx *Indexer) filtered(paths []string, stats *Stats) []string {
	idxFilter := idx.filter
	if idxFilter == nil {
		return dedupe(paths)
	}
	out := make([]string, 0, len(paths))
	for _, p := range dedupe(paths) {
		if idxFilter.Match(p) {
			out = append(out, p)
		} else {
			stats.SkippedFiles++
		}
	}
	return out
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = filepath.ToSlash(p)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// processFile runs the full pipeline for one file. The cache hash is
// updated only after the store transaction commits, so a failure leaves
// the file eligible for retry on the next batch.
func (idx *Indexer) processFile(ctx context.Context, relPath string, force bool) (int, error) {
	text, err := os.ReadFile(filepath.Join(idx.root, filepath.FromSlash(relPath)))
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}

	hash := sha256.Sum256(text)
	if !force && idx.cachedHash(relPath) == hash {
		return 0, errUnchanged
	}

	result, err := idx.parser.ParseFile(relPath, text)
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}

	entries, err := idx.embedChunks(ctx, result.Chunks)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}

	file := &store.FileRecord{
		Path:        relPath,
		ContentHash: hash,
		Language:    languageOf(relPath),
		IndexedAt:   time.Now(),
	}
	if err := idx.store.ReplaceFile(ctx, file, entries); err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}

	idx.graph.UpsertFile(relPath, result.Symbols, result.Edges)
	idx.setCachedHash(relPath, hash)

	return len(entries), nil
}

// embedChunks produces store entries for a file's chunks. Description
// generation is best-effort: a failure logs and leaves the field empty.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []*types.Chunk) ([]*store.Entry, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		text := chunk.Content
		if idx.describer.Enabled() {
			desc, err := idx.describer.Describe(ctx, chunk)
			if err != nil {
				idx.logger.Warn("describe failed",
					zap.String("chunk", chunk.ID), zap.Error(err))
			} else {
				chunk.Description = desc
				text = desc + "\n\n" + text
			}
		}
		texts[i] = text
	}

	vectors, err := idx.embedBatched(ctx, texts)
	if err != nil {
		return nil, err
	}

	entries := make([]*store.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = &store.Entry{
			ChunkID:     chunk.ID,
			FilePath:    chunk.FilePath,
			SymbolName:  chunk.SymbolName,
			Content:     chunk.Content,
			Description: chunk.Description,
			ContentHash: chunk.ContentHash,
			Vector:      vectors[i],
			Dimension:   len(vectors[i]),
			Provider:    idx.embedder.Provider(),
			Model:       idx.embedder.Model(),
			StartLine:   chunk.StartLine,
			EndLine:     chunk.EndLine,
		}
	}
	return entries, nil
}

// embedBatched splits texts into provider-sized batches.
func (idx *Indexer) embedBatched(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedder.DefaultBatchSize {
		end := start + embedder.DefaultBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := idx.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// SummarizeFile generates a one-paragraph summary of an indexed file from
// its stored chunks. The describer must be enabled; the Disabled no-op
// reports generator.ErrDisabled.
func (idx *Indexer) SummarizeFile(ctx context.Context, relPath string) (string, error) {
	relPath = filepath.ToSlash(relPath)
	entries, err := idx.store.EntriesByFile(ctx, relPath)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", relPath, err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotIndexed, relPath)
	}

	chunks := make([]*types.Chunk, len(entries))
	for i, e := range entries {
		chunks[i] = &types.Chunk{
			ID:         e.ChunkID,
			FilePath:   e.FilePath,
			SymbolName: e.SymbolName,
			Content:    e.Content,
			StartLine:  e.StartLine,
			EndLine:    e.EndLine,
		}
	}
	return idx.describer.Summarize(ctx, chunks)
}

// DeleteFile removes a file from the store, the graph, and the hash cache.
// Deleting an unknown path is a no-op.
func (idx *Indexer) DeleteFile(ctx context.Context, relPath string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	relPath = filepath.ToSlash(relPath)
	if err := idx.store.DeleteFile(ctx, relPath); err != nil {
		return fmt.Errorf("delete %s: %w", relPath, err)
	}
	idx.graph.RemoveFile(relPath)

	idx.cacheMu.Lock()
	delete(idx.hashes, relPath)
	idx.cacheMu.Unlock()

	idx.logger.Info("file removed from index", zap.String("path", relPath))
	return nil
}

// DeleteIndex drops all indexed data and resets the graph and cache.
func (idx *Indexer) DeleteIndex(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	idx.graph.Reset()

	idx.cacheMu.Lock()
	idx.hashes = make(map[string][32]byte)
	idx.cacheMu.Unlock()

	idx.logger.Info("index deleted")
	return nil
}

// ClearCache rebuilds the hash cache from the store's persisted hashes.
func (idx *Indexer) ClearCache(ctx context.Context) error {
	hashes, err := idx.store.FileHashes(ctx)
	if err != nil {
		return fmt.Errorf("reload file hashes: %w", err)
	}
	idx.cacheMu.Lock()
	idx.hashes = hashes
	idx.cacheMu.Unlock()
	return nil
}

// FullBuild scans the workspace for indexable files and processes them
// all. force bypasses the hash cache. A build requested while one is
// running returns ErrBuildInProgress.
func (idx *Indexer) FullBuild(ctx context.Context, force bool) (*Stats, error) {
	if !idx.build.TryAcquire() {
		return nil, ErrBuildInProgress
	}
	defer idx.build.Release()

	idx.state.Store(int32(StateScanning))
	paths, err := idx.discover()
	if err != nil {
		idx.state.Store(int32(StateIdle))
		return nil, fmt.Errorf("scan workspace: %w", err)
	}

	return idx.ProcessDocuments(ctx, paths, force)
}

// discover walks the workspace collecting indexable files. Hidden
// directories, vendor, and node_modules are skipped.
func (idx *Indexer) discover() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(idx.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p == idx.root {
				return nil
			}
			if strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := indexableExtensions[filepath.Ext(name)]; !ok {
			return nil
		}
		rel, err := filepath.Rel(idx.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (idx *Indexer) cachedHash(relPath string) [32]byte {
	idx.cacheMu.RLock()
	defer idx.cacheMu.RUnlock()
	return idx.hashes[relPath]
}

func (idx *Indexer) setCachedHash(relPath string, hash [32]byte) {
	idx.cacheMu.Lock()
	idx.hashes[relPath] = hash
	idx.cacheMu.Unlock()
}

func languageOf(relPath string) string {
	if lang, ok := indexableExtensions[filepath.Ext(relPath)]; ok {
		return lang
	}
	return "text"
}
