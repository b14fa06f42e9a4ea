// Package attachment defines the payloads a batch migrates and the store and
// converter contracts the batch processor depends on.
package attachment

import (
	"context"
	"maps"
	"mime"
	"slices"
	"strings"
)

// Attachment is a test asset payload owned by a migration owner.
type Attachment struct {
	ID          string            `json:"id"`
	FileName    string            `json:"fileName,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
	Provider    string            `json:"provider,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Payload     []byte            `json:"-"`
}

// Size returns the payload length in bytes.
func (a *Attachment) Size() int64 {
	return int64(len(a.Payload))
}

// MediaType returns the content type without parameters, lower-cased.
func (a *Attachment) MediaType() string {
	return MediaType(a.ContentType)
}

// Format classifies the attachment for conversion statistics.
func (a *Attachment) Format() Format {
	return FormatOf(a.ContentType)
}

// Clone returns a deep copy.
func (a *Attachment) Clone() *Attachment {
	if a == nil {
		return nil
	}
	c := *a
	c.Metadata = maps.Clone(a.Metadata)
	c.Payload = slices.Clone(a.Payload)
	return &c
}

// MediaType strips parameters such as charset from a content type.
func MediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	base, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// Format is the coarse payload family a converter works on.
type Format string

// Payload families.
const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatXML    Format = "xml"
	FormatBinary Format = "binary"
)

// FormatOf maps a content type to its Format.
func FormatOf(contentType string) Format {
	mt := MediaType(contentType)
	switch {
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		return FormatJSON
	case mt == "application/xml" || mt == "text/xml" || strings.HasSuffix(mt, "+xml"):
		return FormatXML
	case strings.HasPrefix(mt, "text/"):
		return FormatText
	default:
		return FormatBinary
	}
}

// Store loads and persists attachments. Get returns a failure.KindNotFound
// error for unknown ids.
type Store interface {
	Get(ctx context.Context, ownerID, id string) (*Attachment, error)
	Save(ctx context.Context, ownerID string, a *Attachment) error
}

// ConversionStats describes the work a conversion did.
type ConversionStats struct {
	BytesIn  int64 `json:"bytesIn"`
	BytesOut int64 `json:"bytesOut"`

	// Changes counts the edits the converter made, such as rewritten line
	// endings or replaced invalid characters.
	Changes int `json:"changes"`
}

// ConversionResult is the output of a Converter.
type ConversionResult struct {
	Payload     []byte
	ContentType string
	Warnings    []string
	Stats       ConversionStats
}

// Converter translates a payload between provider representations.
// Conversion failures are failure.KindConversion errors.
type Converter interface {
	Convert(ctx context.Context, payload []byte, contentType, sourceProvider, targetProvider string) (ConversionResult, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(ctx context.Context, payload []byte, contentType, sourceProvider, targetProvider string) (ConversionResult, error)

// Convert calls f.
func (f ConverterFunc) Convert(ctx context.Context, payload []byte, contentType, sourceProvider, targetProvider string) (ConversionResult, error) {
	return f(ctx, payload, contentType, sourceProvider, targetProvider)
}
