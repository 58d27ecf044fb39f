// Package i18n provides locale catalogs for interview text, prompt
// templates and user-facing messages. Catalogs are flat key/value bundles
// loaded from YAML; nested YAML maps are joined with dots, so
// sections.personal.title addresses the personal section heading.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"resumeforge/internal/errors"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var builtinLocales embed.FS

// Translator resolves catalog keys for one locale.
type Translator interface {
	Locale() string
	T(key string) string
}

// Catalog holds one bundle per locale. It is safe for concurrent use and
// can be reloaded while translators obtained from it are in use.
type Catalog struct {
	mu            sync.RWMutex
	defaultLocale string
	overridesDir  string
	bundles       map[string]map[string]string
	logger        *errors.Logger
}

// NewCatalog loads the built-in locales and merges overrides from
// overridesDir, if set, on top of them.
func NewCatalog(defaultLocale, overridesDir string, logger *errors.Logger) (*Catalog, error) {
	c := &Catalog{
		defaultLocale: defaultLocale,
		overridesDir:  overridesDir,
		logger:        logger,
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload rebuilds every bundle from the built-in files and the override directory.
func (c *Catalog) Reload() error {
	bundles, err := loadBuiltin()
	if err != nil {
		return err
	}

	if c.overridesDir != "" {
		if err := mergeOverrides(bundles, c.overridesDir); err != nil {
			return err
		}
	}

	if _, ok := bundles[c.defaultLocale]; !ok {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("default locale %q has no catalog", c.defaultLocale), nil)
	}

	c.mu.Lock()
	c.bundles = bundles
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Debug("Locale catalogs loaded", "locales", c.Locales(), "overrides_dir", c.overridesDir)
	}
	return nil
}

// Locales returns the available locale codes in sorted order.
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	locales := make([]string, 0, len(c.bundles))
	for locale := range c.bundles {
		locales = append(locales, locale)
	}
	slices.Sort(locales)
	return locales
}

// Has reports whether a catalog exists for locale.
func (c *Catalog) Has(locale string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bundles[locale]
	return ok
}

// DefaultLocale returns the fallback locale code.
func (c *Catalog) DefaultLocale() string {
	return c.defaultLocale
}

// Resolve maps a requested locale to one the catalog can serve. Region
// suffixes are dropped ("fr-CA" resolves to "fr"), and unknown locales
// fall back to the default.
func (c *Catalog) Resolve(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if c.Has(locale) {
		return locale
	}
	if base, _, found := strings.Cut(strings.ReplaceAll(locale, "_", "-"), "-"); found && c.Has(base) {
		return base
	}
	return c.defaultLocale
}

// Translator returns a translator for the resolved locale.
func (c *Catalog) Translator(locale string) Translator {
	return &catalogTranslator{catalog: c, locale: c.Resolve(locale)}
}

func (c *Catalog) lookup(locale, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if value, ok := c.bundles[locale][key]; ok {
		return value, true
	}
	value, ok := c.bundles[c.defaultLocale][key]
	return value, ok
}

type catalogTranslator struct {
	catalog *Catalog
	locale  string
}

func (t *catalogTranslator) Locale() string {
	return t.locale
}

// T returns the text for key, falling back to the default locale and then
// to the key itself.
func (t *catalogTranslator) T(key string) string {
	if value, ok := t.catalog.lookup(t.locale, key); ok {
		return value
	}
	return key
}

// Format replaces {name} placeholders in a catalog message.
func Format(message string, args map[string]string) string {
	for name, value := range args {
		message = strings.ReplaceAll(message, "{"+name+"}", value)
	}
	return message
}

func loadBuiltin() (map[string]map[string]string, error) {
	entries, err := fs.ReadDir(builtinLocales, "locales")
	if err != nil {
		return nil, errors.NewInternalError("CATALOG_LOAD_FAILED", "failed to list built-in locales", err)
	}

	bundles := make(map[string]map[string]string, len(entries))
	for _, entry := range entries {
		data, err := builtinLocales.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, errors.NewInternalError("CATALOG_LOAD_FAILED", "failed to read built-in locale "+entry.Name(), err)
		}
		bundle, err := parseBundle(data)
		if err != nil {
			return nil, errors.NewInternalError("CATALOG_LOAD_FAILED", "invalid built-in locale "+entry.Name(), err)
		}
		bundles[localeFromFile(entry.Name())] = bundle
	}
	return bundles, nil
}

// mergeOverrides merges every <locale>.yaml in dir over the matching bundle.
// A file for a locale without a built-in catalog adds that locale.
func mergeOverrides(bundles map[string]map[string]string, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read locale overrides directory", err).
			WithContext("dir", dir)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isCatalogFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read locale override", err).
				WithContext("file", path)
		}
		bundle, err := parseBundle(data)
		if err != nil {
			return errors.NewValidationError(errors.ErrCodeInvalidFormat, "invalid locale override", err).
				WithContext("file", path)
		}

		locale := localeFromFile(entry.Name())
		target, ok := bundles[locale]
		if !ok {
			target = make(map[string]string, len(bundle))
			bundles[locale] = target
		}
		for key, value := range bundle {
			target[key] = value
		}
	}
	return nil
}

func isCatalogFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

func localeFromFile(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
}

func parseBundle(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	bundle := make(map[string]string)
	flatten("", raw, bundle)
	return bundle, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for key, value := range node {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(fullKey, v, out)
		case nil:
			out[fullKey] = ""
		default:
			out[fullKey] = fmt.Sprint(v)
		}
	}
}
