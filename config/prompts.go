package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PromptFileExt is the extension of prompt template files.
const PromptFileExt = ".prompt"

// DefaultPromptTemplates returns the built-in templates keyed by data type.
func DefaultPromptTemplates() map[string]string {
	return map[string]string{
		"product": `Analyze this product page screenshot and extract the following information in valid JSON format:
{
    "product_name": "Full product name",
    "price": "Current price with currency",
    "rating": "Average rating (if available, otherwise null)",
    "num_reviews": "Number of reviews (if available, otherwise null)",
    "description": "Short product description",
    "key_features": ["List of key features"],
    "availability": "In stock or not",
    "seller": "Seller name (if available, otherwise null)"
}
Make sure to return ONLY valid JSON with no additional text.`,

		"article": `Analyze this article page screenshot and extract the following information in valid JSON format:
{
    "title": "Article title",
    "author": "Author name (if available, otherwise null)",
    "date_published": "Publication date (if available, otherwise null)",
    "summary": "A brief summary of the article (2-3 sentences)",
    "main_topics": ["List of main topics covered"],
    "source": "Name of the publication or website"
}
Make sure to return ONLY valid JSON with no additional text.`,
	}
}

// LoadPromptDir reads every "<name>.prompt" file in dir into templates,
// overriding built-ins of the same name. A missing dir is not an error.
func LoadPromptDir(dir string, templates map[string]string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read prompts dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != PromptFileExt {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read prompt %s: %w", e.Name(), err)
		}
		name := strings.TrimSuffix(e.Name(), PromptFileExt)
		if prompt := strings.TrimSpace(string(content)); prompt != "" {
			templates[name] = prompt
		}
	}
	return nil
}
