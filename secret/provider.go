package secret

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves references as environment variable names.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider returns a provider reading the process environment.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

// Name returns "env".
func (p *EnvProvider) Name() string { return "env" }

// Resolve returns the value of the variable ref.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := p.lookup(ref)
	if !ok {
		return "", fmt.Errorf("environment variable %q is not set", ref)
	}
	return v, nil
}

// Close is a no-op.
func (p *EnvProvider) Close() error { return nil }

// FileProvider resolves references as file names inside a directory. One
// trailing newline is trimmed from the content.
type FileProvider struct {
	root *os.Root
	dir  string
}

// NewFileProvider opens dir for reading secrets.
func NewFileProvider(dir string) (*FileProvider, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open secret dir: %w", err)
	}
	return &FileProvider{root: root, dir: dir}, nil
}

// Name returns "file".
func (p *FileProvider) Name() string { return "file" }

// Resolve reads the secret file ref. References escaping the directory are
// refused.
func (p *FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	if !filepath.IsLocal(ref) {
		return "", fmt.Errorf("secret file %q is outside %s", ref, p.dir)
	}
	f, err := p.root.Open(ref)
	if err != nil {
		return "", fmt.Errorf("read secret file %q: %w", ref, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read secret file %q: %w", ref, err)
	}
	v := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(v, "\r"), nil
}

// Close releases the directory handle.
func (p *FileProvider) Close() error { return p.root.Close() }

var (
	_ Provider = (*EnvProvider)(nil)
	_ Provider = (*FileProvider)(nil)
)
