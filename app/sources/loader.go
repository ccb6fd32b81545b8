package sources

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Default registry used when no sources file is configured.
var defaultSources = []Source{
	{Name: "BBC News", URL: "https://feeds.bbci.co.uk/news/rss.xml", Category: "world"},
	{Name: "Reuters", URL: "https://www.reutersagency.com/feed/", Category: "world"},
	{Name: "Ars Technica", URL: "https://feeds.arstechnica.com/arstechnica/index", Category: "technology"},
	{Name: "Hacker News", URL: "https://news.ycombinator.com/rss", Category: "technology"},
	{Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml", Category: "technology"},
	{Name: "NPR", URL: "https://feeds.npr.org/1001/rss.xml", Category: "general"},
}

type registryFile struct {
	Sources []Source `yaml:"sources"`
}

// Load reads the source registry from a YAML file, or returns the built-in
// list when path is empty. Every source is validated; a single bad entry
// fails the whole load since the registry is static configuration.
func Load(path string) ([]Source, error) {
	if path == "" {
		return defaultSources, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s contains no sources", path)
	}

	seen := make(map[string]bool, len(file.Sources))
	for i, src := range file.Sources {
		if err := validate(src); err != nil {
			return nil, fmt.Errorf("invalid source #%d: %w", i+1, err)
		}
		if seen[src.Name] {
			return nil, fmt.Errorf("duplicate source name: %s", src.Name)
		}
		seen[src.Name] = true
	}

	return file.Sources, nil
}

func validate(src Source) error {
	if src.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if src.URL == "" {
		return fmt.Errorf("source URL is required")
	}
	parsed, err := url.Parse(src.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("source URL is not a valid absolute URL: %s", src.URL)
	}
	if !validCategory(src.Category) {
		return fmt.Errorf("unknown category %q for source %s", src.Category, src.Name)
	}
	return nil
}
