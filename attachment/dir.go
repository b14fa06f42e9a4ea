package attachment

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jonwraymond/assetmigrate/failure"
)

// DirStore keeps each owner's attachments as files under Root/<owner>/.
// The file name is the attachment id; content types are sniffed from the
// payload.
type DirStore struct {
	root string
}

// NewDirStore creates a store rooted at dir, creating it if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if dir == "" {
		return nil, failure.New(failure.KindValidation, "attachment.dir", "directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, failure.Wrap(failure.KindInternal, "attachment.dir", err)
	}
	return &DirStore{root: dir}, nil
}

// Root returns the store directory.
func (s *DirStore) Root() string {
	return s.root
}

func (s *DirStore) path(op, ownerID, id string) (string, error) {
	for _, part := range []string{ownerID, id} {
		if part == "" || !filepath.IsLocal(part) || strings.ContainsAny(part, `/\`) {
			return "", failure.Newf(failure.KindValidation, op, "invalid path element %q", part)
		}
	}
	return filepath.Join(s.root, ownerID, id), nil
}

// Get reads the attachment file and detects its content type.
func (s *DirStore) Get(ctx context.Context, ownerID, id string) (*Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path("attachment.get", ownerID, id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, failure.Newf(failure.KindNotFound, "attachment.get", "attachment %q not found for owner %q", id, ownerID)
	}
	if err != nil {
		return nil, failure.Wrap(failure.KindInternal, "attachment.get", err)
	}
	return &Attachment{
		ID:          id,
		FileName:    id,
		ContentType: DetectContentType(id, data),
		Payload:     data,
	}, nil
}

// Save writes the payload atomically, replacing any existing file.
func (s *DirStore) Save(ctx context.Context, ownerID string, a *Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a == nil {
		return failure.New(failure.KindValidation, "attachment.save", "nil attachment")
	}
	p, err := s.path("attachment.save", ownerID, a.ID)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return failure.Wrap(failure.KindInternal, "attachment.save", err)
	}

	tmp, err := os.CreateTemp(dir, "."+a.ID+".*")
	if err != nil {
		return failure.Wrap(failure.KindInternal, "attachment.save", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(a.Payload); err != nil {
		_ = tmp.Close()
		return failure.Wrap(failure.KindInternal, "attachment.save", err)
	}
	if err := tmp.Close(); err != nil {
		return failure.Wrap(failure.KindInternal, "attachment.save", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return failure.Wrap(failure.KindInternal, "attachment.save", err)
	}
	return nil
}

// List returns the attachment ids stored for ownerID in sorted order.
func (s *DirStore) List(_ context.Context, ownerID string) ([]string, error) {
	if _, err := s.path("attachment.list", ownerID, "x"); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, ownerID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, failure.Wrap(failure.KindInternal, "attachment.list", err)
	}
	var ids []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			ids = append(ids, e.Name())
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// DetectContentType sniffs data, falling back to the file extension when
// the content alone is ambiguous.
func DetectContentType(name string, data []byte) string {
	if len(data) > 0 {
		if mt := http.DetectContentType(data); mt != "application/octet-stream" && !strings.HasPrefix(mt, "text/plain") {
			return mt
		}
		mt := mimetype.Detect(data)
		if !mt.Is("application/octet-stream") && !mt.Is("text/plain") {
			return mt.String()
		}
		if ext := mimetype.Lookup(extensionMIME(name)); ext != nil {
			return ext.String()
		}
		return mt.String()
	}
	if ext := mimetype.Lookup(extensionMIME(name)); ext != nil {
		return ext.String()
	}
	return "application/octet-stream"
}

func extensionMIME(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".xml":
		return "application/xml"
	case ".txt", ".md", ".feature":
		return "text/plain"
	case ".csv":
		return "text/csv"
	}
	return ""
}
