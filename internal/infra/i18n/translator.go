// Package i18n loads message templates for outbound notifications.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// DefaultLang is used when a requested language has no locale file.
const DefaultLang = "en"

type Translator struct {
	lang         string
	translations map[string]string
}

// NewTranslator reads locales/<lang>.yaml from fsys.
func NewTranslator(fsys fs.FS, lang string) (*Translator, error) {
	data, err := fs.ReadFile(fsys, path.Join("locales", lang+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("read locale %s: %w", lang, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("locale %s: %w", lang, err)
	}
	t.lang = lang
	return t, nil
}

// Load returns the embedded translator for lang, falling back to DefaultLang.
func Load(lang string) (*Translator, error) {
	if lang == "" {
		lang = DefaultLang
	}
	t, err := NewTranslator(LocalesFS, lang)
	if err != nil && lang != DefaultLang {
		return NewTranslator(LocalesFS, DefaultLang)
	}
	return t, err
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("parse translations: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T formats the template for key. Unknown keys come back unchanged.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) Lang() string { return t.lang }
