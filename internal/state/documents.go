package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joescharf/alden/internal/api"
	"github.com/joescharf/alden/internal/models"
	"github.com/joescharf/alden/internal/transform"
)

// DocumentUpload describes a local file to upload.
type DocumentUpload struct {
	Name string // defaults to the base name of Path
	Type models.DocumentType
	Path string
}

// UploadDocument uploads a local file and prepends the resulting document.
func (s *Store) UploadDocument(ctx context.Context, in DocumentUpload) (*models.Document, error) {
	if strings.TrimSpace(in.Path) == "" {
		return nil, invalid("file path is required")
	}
	if !in.Type.Valid() {
		return nil, invalid("unknown document type %q", in.Type)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = filepath.Base(in.Path)
	}

	f, err := os.Open(in.Path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	s.clearError()
	wire, err := s.api.UploadDocument(ctx, api.Upload{
		Name:        name,
		ContentType: in.Type.ContentType(),
		Body:        f,
	})
	if err != nil {
		return nil, s.fail("upload document", err)
	}
	doc, err := transform.Document(*wire)
	if err != nil {
		return nil, s.fail("upload document", err)
	}

	s.update(func(st *Snapshot) {
		st.Documents = append([]models.Document{doc}, st.Documents...)
	})
	s.log.Info().Str("id", doc.ID).Str("name", doc.Name).Msg("document uploaded")
	return &doc, nil
}

// RemoveDocument deletes a document.
func (s *Store) RemoveDocument(ctx context.Context, id string) error {
	s.clearError()
	if err := s.api.DeleteDocument(ctx, id); err != nil {
		return s.fail("remove document", err)
	}
	s.update(func(st *Snapshot) {
		kept := st.Documents[:0:0]
		for _, d := range st.Documents {
			if d.ID != id {
				kept = append(kept, d)
			}
		}
		st.Documents = kept
	})
	return nil
}

// LoadDocuments replaces the document list with the backend's.
func (s *Store) LoadDocuments(ctx context.Context) {
	wire, err := s.api.ListDocuments(ctx)
	if err != nil {
		s.fail("load documents", err)
		return
	}
	docs, err := transform.Documents(wire)
	if err != nil {
		s.fail("load documents", err)
		return
	}
	s.update(func(st *Snapshot) { st.Documents = docs })
}

// DocumentContent fetches the extracted content of a document.
func (s *Store) DocumentContent(ctx context.Context, id string) (models.DocumentContent, error) {
	wire, err := s.api.DocumentContent(ctx, id)
	if err != nil {
		return models.DocumentContent{}, s.fail("document content", err)
	}
	return transform.DocumentContent(*wire), nil
}
