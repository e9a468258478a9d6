package recognition

import (
	"errors"
	"fmt"
	"sync/atomic"

	"faceattend/internal/logger"
	"faceattend/internal/model"
)

// ErrDimensionMismatch is returned by Gallery.Load when embeddings differ in length.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Entry is one enrolled identity.
type Entry struct {
	StudentID string
	Name      string
	Embedding Embedding
}

// Snapshot is an immutable view of the gallery. Matches running against a
// snapshot are unaffected by later loads.
type Snapshot struct {
	entries []Entry
	dim     int
}

// Entries returns the snapshot entries. Callers must not modify them.
func (s *Snapshot) Entries() []Entry {
	if s == nil {
		return nil
	}
	return s.entries
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Dim returns the embedding length shared by every entry, or 0 when empty.
func (s *Snapshot) Dim() int {
	if s == nil {
		return 0
	}
	return s.dim
}

// Gallery holds the current snapshot of enrolled identities.
type Gallery struct {
	current atomic.Pointer[Snapshot]
	dim     int
	logger  *logger.Logger
}

// NewGallery creates an empty gallery. A positive dim makes Load reject
// embeddings of any other length; zero accepts the length of the first one.
func NewGallery(dim int, logger *logger.Logger) *Gallery {
	g := &Gallery{dim: dim, logger: logger}
	g.current.Store(&Snapshot{dim: dim})
	return g
}

// Load replaces the gallery with the students that carry an embedding. On
// error the previous snapshot stays in place.
func (g *Gallery) Load(students []model.Student) error {
	dim := g.dim
	entries := make([]Entry, 0, len(students))
	skipped := 0

	for _, s := range students {
		if !s.HasEmbedding() {
			skipped++
			continue
		}
		if dim == 0 {
			dim = len(s.Embedding)
		}
		if len(s.Embedding) != dim {
			return fmt.Errorf("%w: student %s has %d values, want %d",
				ErrDimensionMismatch, s.StudentID, len(s.Embedding), dim)
		}

		emb := make(Embedding, len(s.Embedding))
		copy(emb, s.Embedding)
		entries = append(entries, Entry{StudentID: s.StudentID, Name: s.Name, Embedding: emb})
	}

	g.current.Store(&Snapshot{entries: entries, dim: dim})

	if skipped > 0 {
		g.logger.Warning("Gallery skipped %d student(s) without a face embedding", skipped)
	}
	g.logger.Info("Gallery loaded with %d identities", len(entries))
	return nil
}

// Snapshot returns the current snapshot.
func (g *Gallery) Snapshot() *Snapshot {
	return g.current.Load()
}

// Len returns the size of the current snapshot.
func (g *Gallery) Len() int {
	return g.Snapshot().Len()
}
