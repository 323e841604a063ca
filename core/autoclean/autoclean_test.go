package autoclean

import (
	"os"
	"path/filepath"
	"testing"

	"AviaxMusic/model"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("data"), 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func TestCleanRemovesLocalArtifacts(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "track.m4a")
	speed := writeFile(t, dir, "track_1.5.m4a")

	Clean(&model.Track{File: file, SpeedPath: speed, VidID: "abc"})

	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Error("Expected track file removed")
	}
	if _, err := os.Stat(speed); !os.IsNotExist(err) {
		t.Error("Expected speed transcode removed")
	}
}

func TestCleanSkipsNonLocalSources(t *testing.T) {
	dir := t.TempDir()
	kept := writeFile(t, dir, "keep.m4a")

	cases := []*model.Track{
		nil,
		{File: "https://cdn.example/a.mp3"},
		{File: "live_abc", VidID: "abc"},
		{File: "index_3", VidID: "3"},
		{File: kept, VidID: model.SentinelTelegram},
	}
	for _, tr := range cases {
		Clean(tr)
	}

	if _, err := os.Stat(kept); err != nil {
		t.Errorf("Expected sentinel-tagged file kept, got %v", err)
	}
}

func TestCleanMissingFileIsQuiet(t *testing.T) {
	// Removal of an already-gone file must not panic or error loudly.
	Clean(&model.Track{File: filepath.Join(t.TempDir(), "gone.m4a"), VidID: "abc"})
}
