package main

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{1073741824, "1.0 GiB"},
	}

	for _, tt := range tests {
		if got := formatSize(tt.bytes); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestRunBackup(t *testing.T) {
	datumDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(datumDir, "langchain.ai.toml"), []byte("[langchain]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(datumDir, "mcp")
	os.MkdirAll(sub, 0o755)
	if err := os.WriteFile(filepath.Join(sub, "crawler.mcp.toml"), []byte("[b00t]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	dataDir := t.TempDir()
	dbPath := filepath.Join(dataDir, "agentbus.db")
	if err := os.WriteFile(dbPath, []byte("sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AGENTBUS_DATUM_DIR", datumDir)
	t.Setenv("AGENTBUS_STORE_PATH", dbPath)

	out := filepath.Join(t.TempDir(), "backup.tar.zst")
	if err := runBackup([]string{"-f", out}); err != nil {
		t.Fatalf("backup: %v", err)
	}

	names := readArchiveNames(t, out)
	want := []string{
		"data/agentbus.db",
		"datums/langchain.ai.toml",
		"datums/mcp/crawler.mcp.toml",
	}
	sort.Strings(names)
	if len(names) != len(want) {
		t.Fatalf("archive entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRunBackupMissingFlag(t *testing.T) {
	if err := runBackup(nil); err == nil {
		t.Error("expected error without -f")
	}
}

func readArchiveNames(t *testing.T, path string) []string {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer zr.Close()

	var names []string
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read tar: %v", err)
		}
		names = append(names, hdr.Name)
	}
	return names
}
