package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

// Upload describes a file to send to the backend.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadDocument sends a file as multipart form data. Uploads get twice the
// normal request timeout and are never retried.
func (c *Client) UploadDocument(ctx context.Context, in Upload) (*Document, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(in.Name)))
	h.Set("Content-Type", in.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, in.Body); err != nil {
		return nil, fmt.Errorf("read %s: %w", in.Name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finish form: %w", err)
	}

	var out Document
	if err := c.do(ctx, http.MethodPost, "/documents/upload", w.FormDataContentType(), buf.Bytes(), 2*c.timeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDocuments returns the user's uploaded documents.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var out []Document
	if err := c.request(ctx, http.MethodGet, "/documents/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteDocument removes an uploaded document.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.request(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), nil, &MessageResult{})
}

// DocumentContent returns the extracted text of a document.
func (c *Client) DocumentContent(ctx context.Context, id string) (*DocumentContent, error) {
	var out DocumentContent
	if err := c.request(ctx, http.MethodGet, "/documents/"+url.PathEscape(id)+"/content", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
