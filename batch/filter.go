package batch

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jonwraymond/assetmigrate/attachment"
)

// Filter decides which fetched items belong in a batch. Within one list any
// pattern may match; when both lists are set both must match.
type Filter struct {
	ContentTypes []string
	FileNames    []string
}

// NewFilter builds the filter described by o.
func NewFilter(o Options) Filter {
	ct := make([]string, len(o.FilterByContentType))
	for i, c := range o.FilterByContentType {
		ct[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return Filter{ContentTypes: ct, FileNames: o.FilterByFileName}
}

// Empty reports whether the filter admits everything.
func (f Filter) Empty() bool {
	return len(f.ContentTypes) == 0 && len(f.FileNames) == 0
}

// Match reports whether a passes the filter. File name patterns are matched
// against FileName, or the id when the attachment has no file name.
func (f Filter) Match(a *attachment.Attachment) bool {
	if len(f.ContentTypes) > 0 && !matchContentType(f.ContentTypes, a.MediaType()) {
		return false
	}
	if len(f.FileNames) > 0 {
		name := a.FileName
		if name == "" {
			name = a.ID
		}
		if !matchFileName(f.FileNames, name) {
			return false
		}
	}
	return true
}

func matchContentType(patterns []string, mediaType string) bool {
	for _, p := range patterns {
		switch {
		case p == "*/*" || p == "*":
			return true
		case strings.HasSuffix(p, "/*"):
			if strings.HasPrefix(mediaType, strings.TrimSuffix(p, "*")) {
				return true
			}
		case attachment.MediaType(p) == mediaType:
			return true
		}
	}
	return false
}

func matchFileName(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

func validContentTypePattern(p string) bool {
	p = strings.TrimSpace(p)
	if p == "*" || p == "*/*" {
		return true
	}
	typ, sub, ok := strings.Cut(p, "/")
	return ok && typ != "" && sub != "" && !strings.Contains(typ, "*")
}
