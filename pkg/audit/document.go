// Package audit contains the public, wire-stable data model shared across
// the document-audit pipeline: documents, templates, selection results,
// extracted fields, findings, and the canonical/advisory artifacts produced
// at the end of a run.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Document is the immutable input to the pipeline: raw bytes plus the
// filename they arrived under. Once created it is identified thereafter by
// its content hash.
type Document struct {
	Filename    string
	Bytes       []byte
	ContentHash string
	IngestedAt  time.Time
}

// NewDocument computes the SHA-256 content hash and returns an immutable
// Document.
func NewDocument(filename string, data []byte, ingestedAt time.Time) Document {
	sum := sha256.Sum256(data)
	return Document{
		Filename:    filename,
		Bytes:       data,
		ContentHash: hex.EncodeToString(sum[:]),
		IngestedAt:  ingestedAt,
	}
}
