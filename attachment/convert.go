package attachment

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/jonwraymond/assetmigrate/failure"
)

// DefaultConverter performs the provider independent part of a migration:
// text is normalised to UTF-8 with LF line endings, JSON is validated and
// re-encoded compactly and XML is checked for well-formedness and passed
// through. Other content types are rejected.
type DefaultConverter struct{}

var _ Converter = DefaultConverter{}

// Convert implements Converter.
func (DefaultConverter) Convert(ctx context.Context, payload []byte, contentType, sourceProvider, targetProvider string) (ConversionResult, error) {
	if err := ctx.Err(); err != nil {
		return ConversionResult{}, err
	}

	res := ConversionResult{ContentType: contentType}
	if sourceProvider != "" && sourceProvider == targetProvider {
		res.Warnings = append(res.Warnings, "source and target provider are the same")
	}

	var err error
	switch FormatOf(contentType) {
	case FormatText:
		res.Payload, res.Stats.Changes = normaliseText(payload)
		if !utf8.Valid(payload) {
			res.Warnings = append(res.Warnings, "invalid UTF-8 sequences replaced")
		}
	case FormatJSON:
		res.Payload, err = reencodeJSON(payload)
	case FormatXML:
		err = checkXML(payload)
		res.Payload = payload
	default:
		err = errors.New("unsupported content type " + MediaType(contentType))
	}
	if err != nil {
		return ConversionResult{}, failure.Wrap(failure.KindConversion, "attachment.convert", err)
	}

	res.Stats.BytesIn = int64(len(payload))
	res.Stats.BytesOut = int64(len(res.Payload))
	return res, nil
}

func normaliseText(in []byte) ([]byte, int) {
	changes := 0
	out := in
	if !utf8.Valid(out) {
		out = bytes.ToValidUTF8(out, []byte("�"))
		changes++
	}
	if n := bytes.Count(out, []byte("\r\n")); n > 0 {
		out = bytes.ReplaceAll(out, []byte("\r\n"), []byte("\n"))
		changes += n
	}
	if n := bytes.Count(out, []byte("\r")); n > 0 {
		out = bytes.ReplaceAll(out, []byte("\r"), []byte("\n"))
		changes += n
	}
	if changes == 0 {
		out = bytes.Clone(in)
	}
	return out, changes
}

func reencodeJSON(in []byte) ([]byte, error) {
	if !json.Valid(in) {
		return nil, errors.New("payload is not valid JSON")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func checkXML(in []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(in))
	sawElement := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if _, ok := tok.(xml.StartElement); ok {
			sawElement = true
		}
	}
	if !sawElement {
		return errors.New("payload has no XML root element")
	}
	return nil
}
