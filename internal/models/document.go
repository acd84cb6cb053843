package models

import "time"

// DocumentType is the kind of uploaded study material.
type DocumentType string

const (
	DocumentTypePDF   DocumentType = "pdf"
	DocumentTypeImage DocumentType = "image"
	DocumentTypeText  DocumentType = "text"
)

// DocumentTypes lists every supported document type.
var DocumentTypes = []DocumentType{DocumentTypePDF, DocumentTypeImage, DocumentTypeText}

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	for _, v := range DocumentTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ContentType returns the MIME type used when uploading a document of this type.
func (t DocumentType) ContentType() string {
	switch t {
	case DocumentTypePDF:
		return "application/pdf"
	case DocumentTypeImage:
		return "image/jpeg"
	default:
		return "text/plain"
	}
}

// Document is study material uploaded for the assistant.
type Document struct {
	ID         string
	Name       string
	Type       DocumentType
	URI        string
	UploadDate time.Time
	Size       *int64
}

// DocumentContent is the extracted text of a document.
type DocumentContent struct {
	Content string
	Type    DocumentType
}
