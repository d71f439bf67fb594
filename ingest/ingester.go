package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/richinex/libretto/llm"
	"github.com/richinex/libretto/storage"
	"github.com/richinex/libretto/vectorstore"
)

// embedBatchSize caps texts per embedding call (Cohere rejects batches
// over 96).
const embedBatchSize = 96

// pointNamespace seeds deterministic chunk IDs so re-ingesting a file
// overwrites its existing points instead of duplicating them.
var pointNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Embedder is the slice of llm.Registry the ingester needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string, intent llm.EmbedIntent) ([][]float32, error)
}

// Options configures one ingest run.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	VectorSize   int
	// Force re-embeds files even when the catalog says they are unchanged.
	Force bool
}

// Stats summarizes an ingest run.
type Stats struct {
	Files   int
	Skipped int
	Chunks  int
}

// Ingester embeds book source files into the vector store.
type Ingester struct {
	embedder Embedder
	store    vectorstore.Store
	catalog  *storage.Catalog
	opts     Options
	log      *slog.Logger
}

// NewIngester creates an ingester. A nil catalog disables change
// tracking: every file is re-embedded on every run.
func NewIngester(embedder Embedder, store vectorstore.Store, catalog *storage.Catalog, opts Options, log *slog.Logger) *Ingester {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ingester{embedder: embedder, store: store, catalog: catalog, opts: opts, log: log}
}

// IngestDir walks root for .md and .mdx files and ingests each one.
// The collection is created first if absent.
func (ing *Ingester) IngestDir(ctx context.Context, root string) (Stats, error) {
	if err := ing.store.EnsureCollection(ctx, ing.opts.VectorSize, vectorstore.DistanceCosine); err != nil {
		return Stats{}, err
	}

	var stats Stats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".mdx" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		chunks, skipped, err := ing.ingestFile(ctx, path, rel)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", rel, err)
		}
		if skipped {
			stats.Skipped++
			return nil
		}
		stats.Files++
		stats.Chunks += chunks
		return nil
	})
	if err != nil {
		return stats, err
	}

	ing.log.Info("ingest complete",
		"files", stats.Files, "skipped", stats.Skipped, "chunks", stats.Chunks)
	return stats, nil
}

func (ing *Ingester) ingestFile(ctx context.Context, path, rel string) (int, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false, err
	}

	doc, err := ParseMDX(rel, string(raw))
	if err != nil {
		return 0, false, err
	}

	sum := sha256.Sum256([]byte(doc.Content))
	hash := hex.EncodeToString(sum[:])

	if ing.catalog != nil && !ing.opts.Force {
		same, err := ing.catalog.Unchanged(ctx, rel, hash)
		if err != nil {
			return 0, false, err
		}
		if same {
			ing.log.Debug("unchanged, skipping", "file", rel)
			return 0, true, nil
		}
	}

	chunks := Chunk(doc.Content, ing.opts.ChunkSize, ing.opts.ChunkOverlap)
	if len(chunks) == 0 {
		ing.log.Warn("no text content after cleaning", "file", rel)
		return 0, true, nil
	}

	if err := ing.upsertChunks(ctx, doc, chunks); err != nil {
		return 0, false, err
	}

	if ing.catalog != nil {
		err := ing.catalog.Record(ctx, storage.Document{
			Path:        rel,
			ContentHash: hash,
			ChunkCount:  len(chunks),
		})
		if err != nil {
			return 0, false, err
		}
	}

	ing.log.Info("ingested", "file", rel, "chunks", len(chunks))
	return len(chunks), false, nil
}

func (ing *Ingester) upsertChunks(ctx context.Context, doc Document, chunks []string) error {
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]

		vectors, err := ing.embedder.Embed(ctx, batch, llm.IntentDocument)
		if err != nil {
			return err
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(batch), len(vectors))
		}

		points := make([]vectorstore.Point, len(batch))
		for i, chunk := range batch {
			idx := start + i
			points[i] = vectorstore.Point{
				ID:      chunkID(doc.Path, idx),
				Vector:  vectors[i],
				Content: chunk,
				Metadata: map[string]any{
					"title":         doc.Title,
					"section":       doc.Section,
					"source_file":   doc.Path,
					"chunk_index":   idx,
					"document_type": "book_chapter",
					"source":        "physical_ai_book",
				},
			}
		}
		if err := ing.store.Upsert(ctx, points); err != nil {
			return err
		}
	}
	return nil
}

// chunkID derives a stable UUID from the file path and chunk index.
func chunkID(path string, index int) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s#%d", path, index))).String()
}
