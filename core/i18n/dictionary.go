package i18n

import (
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/ar"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	"github.com/go-playground/locales/hi"
	"github.com/go-playground/locales/ru"
	"github.com/go-playground/locales/ur"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Dictionary holds the static UI strings of every language.
type Dictionary struct {
	uni  *ut.UniversalTranslator
	keys []string // sorted union of every catalog's keys
}

func localeTranslators() []locales.Translator {
	return []locales.Translator{en.New(), ar.New(), ur.New(), fr.New(), ru.New(), hi.New(), zh.New()}
}

// LoadDictionary reads one `<lang>.yaml` catalog per supported language from `dir`.
// Catalogs may nest keys; nested keys are joined with dots ("nav.home").
// A missing catalog is only an error for Default.
func LoadDictionary(fsys fs.FS, dir string) (*Dictionary, error) {
	uni := ut.New(en.New(), localeTranslators()...)
	seen := make(map[string]bool)

	for _, lang := range supported {
		raw, err := fs.ReadFile(fsys, path.Join(dir, string(lang)+".yaml"))
		if err != nil {
			if lang == Default {
				return nil, errors.Wrapf(err, "reading %s catalog", lang)
			}
			continue
		}

		var tree map[string]interface{}
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, errors.Wrapf(err, "parsing %s catalog", lang)
		}
		entries := make(map[string]string)
		flatten("", tree, entries)

		trans, _ := uni.GetTranslator(string(lang))
		for key, text := range entries {
			if err := trans.Add(key, text, true); err != nil {
				return nil, errors.Wrapf(err, "adding %s.%s", lang, key)
			}
			seen[key] = true
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Dictionary{uni: uni, keys: keys}, nil
}

func flatten(prefix string, tree map[string]interface{}, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(key, val, out)
		case string:
			out[key] = val
		case nil:
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

func (d *Dictionary) lookup(lang Lang, key string) (string, bool) {
	trans, found := d.uni.GetTranslator(string(lang))
	if !found {
		return "", false
	}
	text, err := trans.T(key)
	if err != nil || text == "" {
		return "", false
	}
	return text, true
}

// T returns the `lang` text of `key`, falling back to English, then to the key itself.
func (d *Dictionary) T(lang Lang, key string) string {
	if text, ok := d.lookup(lang, key); ok {
		return text
	}
	if lang != Default {
		if text, ok := d.lookup(Default, key); ok {
			return text
		}
	}
	return key
}

// All returns the full dictionary of `lang` with the English fallbacks filled in.
func (d *Dictionary) All(lang Lang) map[string]string {
	all := make(map[string]string, len(d.keys))
	for _, key := range d.keys {
		all[key] = d.T(lang, key)
	}
	return all
}

// Keys returns every known key, sorted.
func (d *Dictionary) Keys() []string {
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	return keys
}
