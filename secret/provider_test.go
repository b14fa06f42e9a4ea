package secret

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	p := &EnvProvider{lookup: func(k string) (string, bool) {
		if k == "SET" {
			return "v", true
		}
		return "", false
	}}

	if got, err := p.Resolve(context.Background(), "SET"); err != nil || got != "v" {
		t.Errorf("Resolve(SET) = %q, %v", got, err)
	}
	if _, err := p.Resolve(context.Background(), "UNSET"); err == nil {
		t.Error("Resolve(UNSET) should fail")
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "token"), []byte("abc\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := NewFileProvider(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close() })

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{"token", "abc", false},
		{"missing", "", true},
		{"../etc/passwd", "", true},
		{"/etc/passwd", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := p.Resolve(context.Background(), tt.ref)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("Resolve(%q) = %q, %v", tt.ref, got, err)
			}
		})
	}
}

func TestNewFileProvider_MissingDir(t *testing.T) {
	if _, err := NewFileProvider(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("missing dir should fail")
	}
}
