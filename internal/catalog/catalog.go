package catalog

import (
	"atlas-service/internal/models"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Catalog holds the static chapter and atlas-node reference data. It is
// loaded once at startup and injected into the engines; nothing in the
// service mutates it afterwards.
type Catalog struct {
	chapters      []models.Chapter
	chaptersByKey map[string]models.Chapter
	nodesByID     map[string]models.AtlasNode
}

// Load reads chapter and node definitions from dataDir/chapters/*.json and
// dataDir/atlas/*.json. Each file holds either a single entry or an array.
func Load(dataDir string) (*Catalog, error) {
	c := &Catalog{
		chaptersByKey: make(map[string]models.Chapter),
		nodesByID:     make(map[string]models.AtlasNode),
	}

	chaptersDir := filepath.Join(dataDir, "chapters")
	if err := walkJSON(chaptersDir, func(path string) error {
		chapters, err := loadEntries[models.Chapter](path)
		if err != nil {
			log.Printf("Warning: failed to load chapters from %s: %v", path, err)
			return nil
		}
		for _, ch := range chapters {
			if ch.ChapterKey == "" {
				log.Printf("Warning: skipping chapter with empty key in %s", path)
				continue
			}
			if _, dup := c.chaptersByKey[ch.ChapterKey]; dup {
				log.Printf("Warning: duplicate chapter key %s in %s, keeping first", ch.ChapterKey, path)
				continue
			}
			c.chaptersByKey[ch.ChapterKey] = ch
			c.chapters = append(c.chapters, ch)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load chapter catalog: %w", err)
	}

	atlasDir := filepath.Join(dataDir, "atlas")
	if err := walkJSON(atlasDir, func(path string) error {
		nodes, err := loadEntries[models.AtlasNode](path)
		if err != nil {
			log.Printf("Warning: failed to load atlas nodes from %s: %v", path, err)
			return nil
		}
		for _, node := range nodes {
			if node.NodeID == "" {
				log.Printf("Warning: skipping atlas node with empty id in %s", path)
				continue
			}
			if _, dup := c.nodesByID[node.NodeID]; dup {
				log.Printf("Warning: duplicate atlas node %s in %s, keeping first", node.NodeID, path)
				continue
			}
			c.nodesByID[node.NodeID] = node
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load atlas catalog: %w", err)
	}

	// Stable ordering for unlock listings.
	sort.Slice(c.chapters, func(i, j int) bool {
		if c.chapters[i].UnlockMonthOffset != c.chapters[j].UnlockMonthOffset {
			return c.chapters[i].UnlockMonthOffset < c.chapters[j].UnlockMonthOffset
		}
		return c.chapters[i].ChapterKey < c.chapters[j].ChapterKey
	})

	log.Printf("Catalog loaded: %d chapters, %d atlas nodes", len(c.chapters), len(c.nodesByID))
	return c, nil
}

// NewFromEntries builds a catalog directly from in-memory entries.
func NewFromEntries(chapters []models.Chapter, nodes []models.AtlasNode) *Catalog {
	c := &Catalog{
		chaptersByKey: make(map[string]models.Chapter, len(chapters)),
		nodesByID:     make(map[string]models.AtlasNode, len(nodes)),
	}
	for _, ch := range chapters {
		if _, dup := c.chaptersByKey[ch.ChapterKey]; dup {
			continue
		}
		c.chaptersByKey[ch.ChapterKey] = ch
		c.chapters = append(c.chapters, ch)
	}
	for _, node := range nodes {
		c.nodesByID[node.NodeID] = node
	}
	sort.Slice(c.chapters, func(i, j int) bool {
		if c.chapters[i].UnlockMonthOffset != c.chapters[j].UnlockMonthOffset {
			return c.chapters[i].UnlockMonthOffset < c.chapters[j].UnlockMonthOffset
		}
		return c.chapters[i].ChapterKey < c.chapters[j].ChapterKey
	})
	return c
}

// Chapters returns all chapters ordered by unlock offset, then key.
func (c *Catalog) Chapters() []models.Chapter {
	out := make([]models.Chapter, len(c.chapters))
	copy(out, c.chapters)
	return out
}

func (c *Catalog) Chapter(key string) (models.Chapter, bool) {
	ch, ok := c.chaptersByKey[key]
	return ch, ok
}

func (c *Catalog) Node(nodeID string) (models.AtlasNode, bool) {
	node, ok := c.nodesByID[nodeID]
	return node, ok
}

func (c *Catalog) ChapterCount() int {
	return len(c.chapters)
}

func (c *Catalog) NodeCount() int {
	return len(c.nodesByID)
}

func walkJSON(dir string, handle func(path string) error) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Printf("Warning: catalog directory not found: %s", dir)
		return nil
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".json") {
			return nil
		}
		return handle(path)
	})
}

// loadEntries accepts either a single JSON object or an array of them.
func loadEntries[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entries []T
	if err := json.Unmarshal(data, &entries); err == nil {
		return entries, nil
	}

	var single T
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return []T{single}, nil
}
