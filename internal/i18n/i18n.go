// Package i18n holds the localized strings the target application shows to users,
// so scenarios can assert on them for a given locale.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed translations/*.json
var translationsFS embed.FS

// DefaultLanguage is the language the target application ships with.
const DefaultLanguage = "zh-Hans"

// KeyEmptyCopy is the toast shown when copy is pressed with an empty editor.
const KeyEmptyCopy = "toast.empty_copy"

// Catalog resolves translation keys for a locale.
type Catalog struct {
	translations map[string]map[string]interface{}
	langs        []string
	matcher      language.Matcher
}

var (
	instance *Catalog
	once     sync.Once
	loadErr  error
)

// Load returns the catalog built from the embedded translation files.
func Load() (*Catalog, error) {
	once.Do(func() {
		instance, loadErr = load(translationsFS)
	})
	return instance, loadErr
}

func load(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{translations: make(map[string]map[string]interface{})}

	err := fs.WalkDir(fsys, "translations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		// "zh-Hans.json" -> "zh-Hans"
		lang := strings.TrimSuffix(filepath.Base(path), ".json")

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read translation file %s: %w", path, err)
		}
		var translations map[string]interface{}
		if err := json.Unmarshal(content, &translations); err != nil {
			return fmt.Errorf("failed to parse translation file %s: %w", path, err)
		}

		c.translations[lang] = translations
		c.langs = append(c.langs, lang)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if _, ok := c.translations[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("default language %s has no translation file", DefaultLanguage)
	}

	// The matcher falls back to its first tag, so the default goes first.
	sort.SliceStable(c.langs, func(i, j int) bool {
		if c.langs[i] == DefaultLanguage {
			return true
		}
		if c.langs[j] == DefaultLanguage {
			return false
		}
		return c.langs[i] < c.langs[j]
	})
	tags := make([]language.Tag, 0, len(c.langs))
	for _, l := range c.langs {
		tags = append(tags, language.Make(l))
	}
	c.matcher = language.NewMatcher(tags)

	return c, nil
}

// Match returns the catalog language best matching locale (BCP 47, e.g. "zh-CN", "en-US").
func (c *Catalog) Match(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return DefaultLanguage
	}
	_, idx, conf := c.matcher.Match(tag)
	if conf == language.No {
		return DefaultLanguage
	}
	return c.langs[idx]
}

// T translates a dotted key for locale, falling back to the default language and then to the key.
func (c *Catalog) T(locale, key string) string {
	lang := c.Match(locale)
	if s, ok := lookup(c.translations[lang], key); ok {
		return s
	}
	if s, ok := lookup(c.translations[DefaultLanguage], key); ok {
		return s
	}
	return key
}

// Languages lists the loaded languages, default first.
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.langs...)
}

func lookup(m map[string]interface{}, key string) (string, bool) {
	var current interface{} = m
	for _, k := range strings.Split(key, ".") {
		currentMap, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		current = currentMap[k]
	}
	s, ok := current.(string)
	return s, ok
}

// EmptyCopyMessage returns the "nothing to copy" toast text for locale.
func EmptyCopyMessage(locale string) (string, error) {
	c, err := Load()
	if err != nil {
		return "", err
	}
	return c.T(locale, KeyEmptyCopy), nil
}
