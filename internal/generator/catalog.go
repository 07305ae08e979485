package generator

import (
	_ "embed"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"ideas-feedback/internal/models"
)

const (
	// HistorySize is how many earlier ideas are shown to the model as
	// "do not repeat" context.
	HistorySize = 10
	historyRunes = 100
)

//go:embed categories.yaml
var catalogYAML []byte

type Category struct {
	Key          string `yaml:"key"`
	Name         string `yaml:"name"`
	Heading      string `yaml:"heading"`
	Color        string `yaml:"color"`
	SystemPrompt string `yaml:"system_prompt"`
	UserPrompt   string `yaml:"user_prompt"`
}

// Catalog is the ordered set of idea categories.
type Catalog struct {
	categories []Category
	byKey      map[string]Category
}

// DefaultCatalog parses the embedded category definitions.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var cats []Category
	if err := yaml.Unmarshal(data, &cats); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("parse categories: no categories defined")
	}

	c := &Catalog{byKey: make(map[string]Category, len(cats))}
	for _, cat := range cats {
		if cat.Key == "" || cat.UserPrompt == "" {
			return nil, fmt.Errorf("parse categories: category %q needs a key and a user_prompt", cat.Key)
		}
		if _, dup := c.byKey[cat.Key]; dup {
			return nil, fmt.Errorf("parse categories: duplicate category %q", cat.Key)
		}
		c.byKey[cat.Key] = cat
		c.categories = append(c.categories, cat)
	}
	return c, nil
}

func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

func (c *Catalog) Get(key string) (Category, bool) {
	cat, ok := c.byKey[key]
	return cat, ok
}

func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.categories))
	for i, cat := range c.categories {
		keys[i] = cat.Key
	}
	return keys
}

// BuildPrompt fills the category's user prompt. previous is newest first;
// at most HistorySize entries are listed, oldest first, each cut to its
// first hundred characters.
func BuildPrompt(cat Category, date time.Time, previous []models.Idea) string {
	var context string
	if len(previous) > 0 {
		recent := previous
		if len(recent) > HistorySize {
			recent = recent[:HistorySize]
		}

		var b strings.Builder
		b.WriteString("\n\nPreviously generated ideas (do NOT repeat these):\n")
		for i := len(recent) - 1; i >= 0; i-- {
			fmt.Fprintf(&b, "- %s: %s...\n", recent[i].CreatedAt.Format("2006-01-02"), truncateRunes(recent[i].Content, historyRunes))
		}
		context = b.String()
	}

	return strings.NewReplacer(
		"{date}", date.Format("January 2, 2006"),
		"{context}", context,
	).Replace(cat.UserPrompt)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
