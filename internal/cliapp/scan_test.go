package cliapp

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanVideosFlatIgnoresSubdirsAndNonVideo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp4"))
	writeFile(t, filepath.Join(dir, "notes.txt"))
	writeFile(t, filepath.Join(dir, "sub", "b.mp4"))

	paths, err := ScanVideos(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d: %v", len(paths), paths)
	}
	want, _ := filepath.Abs(filepath.Join(dir, "a.mp4"))
	if paths[0] != want {
		t.Fatalf("expected %s, got %s", want, paths[0])
	}
}

func TestScanVideosRecurseFindsNested(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp4"))
	writeFile(t, filepath.Join(dir, "sub", "b.webm"))
	writeFile(t, filepath.Join(dir, "sub", "deeper", "c.mp4"))
	writeFile(t, filepath.Join(dir, "sub", "readme.md"))

	paths, err := ScanVideos(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 paths, got %d: %v", len(paths), paths)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if !filepath.IsAbs(p) {
			t.Fatalf("expected absolute path, got %s", p)
		}
	}
}

func TestScanVideosCaseInsensitiveExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.MP4"))
	writeFile(t, filepath.Join(dir, "b.WEBM"))

	paths, err := ScanVideos(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d: %v", len(paths), paths)
	}
}

func TestScanVideosEmptyDir(t *testing.T) {
	dir := t.TempDir()
	paths, err := ScanVideos(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected 0 paths, got %d", len(paths))
	}
}
