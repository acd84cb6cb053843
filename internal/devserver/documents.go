package devserver

import (
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joescharf/alden/internal/api"
	"github.com/joescharf/alden/internal/models"
)

// maxUploadSize caps the size of an uploaded document.
const maxUploadSize = 32 << 20

var allowedUploadTypes = []string{"application/pdf", "image/jpeg", "image/png", "text/plain"}

type document struct {
	id       string
	name     string
	typ      models.DocumentType
	uri      string
	data     []byte
	uploaded time.Time
}

func (d *document) wire() api.Document {
	size := int64(len(d.data))
	return api.Document{
		ID:         d.id,
		UserID:     defaultUserID,
		Name:       d.name,
		Type:       string(d.typ),
		URI:        d.uri,
		Size:       &size,
		UploadDate: isoTime(d.uploaded),
	}
}

func documentType(contentType string) models.DocumentType {
	switch {
	case contentType == "application/pdf":
		return models.DocumentTypePDF
	case strings.HasPrefix(contentType, "image/"):
		return models.DocumentTypeImage
	default:
		return models.DocumentTypeText
	}
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !slices.Contains(allowedUploadTypes, contentType) {
		writeError(w, http.StatusBadRequest, "File type not supported. Please upload PDF, image, or text files.")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save file: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	doc := &document{
		id:       id,
		name:     header.Filename,
		typ:      documentType(contentType),
		uri:      "uploads/" + id + filepath.Ext(header.Filename),
		data:     data,
		uploaded: s.now().UTC(),
	}
	s.docs = append(s.docs, doc)
	s.log.Debug().Str("id", id).Str("name", doc.name).Int("size", len(data)).Msg("document uploaded")
	writeJSON(w, http.StatusOK, doc.wire())
}

func (s *Server) listDocuments(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Document, 0, len(s.docs))
	for _, d := range slices.Backward(s.docs) {
		out = append(out, d.wire())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) findDocumentLocked(id string) int {
	return slices.IndexFunc(s.docs, func(d *document) bool { return d.id == id })
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findDocumentLocked(r.PathValue("id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	s.docs = slices.Delete(s.docs, i, i+1)
	writeMessage(w, "Document deleted successfully")
}

// documentContent returns the text of text documents. PDF extraction and
// image OCR are not supported and return a placeholder.
func (s *Server) documentContent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findDocumentLocked(r.PathValue("id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	d := s.docs[i]
	out := api.DocumentContent{Type: string(d.typ)}
	switch d.typ {
	case models.DocumentTypeText:
		out.Content = string(d.data)
	case models.DocumentTypePDF:
		out.Content = "PDF content extraction not implemented yet"
	case models.DocumentTypeImage:
		out.Content = "Image OCR not implemented yet"
	}
	writeJSON(w, http.StatusOK, out)
}
