package catalog

import (
	"atlas-service/internal/models"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestLoadFromDirectory(t *testing.T) {
	dataDir := t.TempDir()

	writeFile(t, filepath.Join(dataDir, "chapters", "physics.json"), `[
		{"chapter_key": "mechanics-1", "title": "Mechanics I", "subject": "physics", "unlock_month_offset": 0},
		{"chapter_key": "optics", "title": "Optics", "subject": "physics", "unlock_month_offset": 14}
	]`)
	writeFile(t, filepath.Join(dataDir, "chapters", "single.json"),
		`{"chapter_key": "electrostatics", "title": "Electrostatics", "subject": "physics", "unlock_month_offset": 8}`)
	writeFile(t, filepath.Join(dataDir, "atlas", "nodes.json"), `[
		{"node_id": "node-kinematics", "title": "Kinematics", "subject": "physics"},
		{"node_id": "node-organic", "title": "Organic Chemistry", "subject": "chemistry", "pass_threshold": 0.7}
	]`)

	c, err := Load(dataDir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if c.ChapterCount() != 3 {
		t.Errorf("Expected 3 chapters, got %d", c.ChapterCount())
	}
	if c.NodeCount() != 2 {
		t.Errorf("Expected 2 atlas nodes, got %d", c.NodeCount())
	}

	chapters := c.Chapters()
	expectedOrder := []string{"mechanics-1", "electrostatics", "optics"}
	for i, key := range expectedOrder {
		if chapters[i].ChapterKey != key {
			t.Errorf("Expected chapter %d to be %s, got %s", i, key, chapters[i].ChapterKey)
		}
	}

	node, ok := c.Node("node-organic")
	if !ok {
		t.Fatal("Expected node-organic to be present")
	}
	if node.PassThreshold != 0.7 {
		t.Errorf("Expected pass threshold 0.7, got %.2f", node.PassThreshold)
	}

	if _, ok := c.Chapter("no-such-chapter"); ok {
		t.Error("Expected lookup of an unknown chapter to fail")
	}
}

func TestLoadSkipsMalformedAndDuplicateEntries(t *testing.T) {
	dataDir := t.TempDir()

	// Files are visited in lexical order, so base.json is read before
	// duplicate.json.
	writeFile(t, filepath.Join(dataDir, "chapters", "base.json"),
		`{"chapter_key": "mechanics-1", "unlock_month_offset": 0}`)
	writeFile(t, filepath.Join(dataDir, "chapters", "duplicate.json"),
		`{"chapter_key": "mechanics-1", "title": "Shadowed", "unlock_month_offset": 5}`)
	writeFile(t, filepath.Join(dataDir, "chapters", "broken.json"), `{not json`)
	writeFile(t, filepath.Join(dataDir, "chapters", "nokey.json"), `{"title": "Missing key"}`)

	c, err := Load(dataDir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if c.ChapterCount() != 1 {
		t.Errorf("Expected malformed and duplicate entries to be skipped, got %d chapters", c.ChapterCount())
	}
	ch, _ := c.Chapter("mechanics-1")
	if ch.UnlockMonthOffset != 0 {
		t.Errorf("Expected the first occurrence to win, got offset %d", ch.UnlockMonthOffset)
	}
}

func TestLoadMissingDirectories(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Expected missing catalog directories to load empty, got %v", err)
	}
	if c.ChapterCount() != 0 || c.NodeCount() != 0 {
		t.Errorf("Expected an empty catalog, got %d chapters and %d nodes", c.ChapterCount(), c.NodeCount())
	}
}

func TestNewFromEntries(t *testing.T) {
	c := NewFromEntries(
		[]models.Chapter{
			{ChapterKey: "b", UnlockMonthOffset: 2},
			{ChapterKey: "a", UnlockMonthOffset: 2},
			{ChapterKey: "c", UnlockMonthOffset: 0},
		},
		[]models.AtlasNode{{NodeID: "n1"}},
	)

	chapters := c.Chapters()
	if chapters[0].ChapterKey != "c" || chapters[1].ChapterKey != "a" || chapters[2].ChapterKey != "b" {
		t.Errorf("Expected offset-then-key ordering, got %s, %s, %s",
			chapters[0].ChapterKey, chapters[1].ChapterKey, chapters[2].ChapterKey)
	}
	if _, ok := c.Node("n1"); !ok {
		t.Error("Expected node n1 to be present")
	}
}
