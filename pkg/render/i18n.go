package render

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/goliatone/go-formbind/pkg/view"
)

var (
	// ErrMissingTranslator is passed to MissingTranslationHandler when no
	// translator is configured.
	ErrMissingTranslator = errors.New("render: translator is not configured")
	// ErrMissingTranslation is returned by translators without a message
	// for the key.
	ErrMissingTranslation = errors.New("render: translation not found")
)

// Translator resolves a message key for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler returns the text used when key cannot be
// translated. fallback is the untranslated prop value, possibly empty.
type MissingTranslationHandler func(locale, key, fallback string, err error) string

func missingTranslationDefault(_, key, fallback string, _ error) string {
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return key
}

// Props translated by Localize: "<prop>Key" holds the message key and the
// translation is written to "<prop>".
var localizedProps = []string{"label", "description", "placeholder", "helpText"}

// Localize translates the *Key props of every node in place.
func Localize(nodes []*view.Node, opts RenderOptions) {
	onMissing := opts.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	view.Walk(nodes, func(node *view.Node) bool {
		for _, prop := range localizedProps {
			key := strings.TrimSpace(node.Prop(prop + "Key"))
			if key == "" {
				continue
			}
			if node.Props == nil {
				node.Props = make(map[string]any)
			}
			node.Props[prop] = translate(opts.Locale, key, node.Prop(prop), opts.Translator, onMissing)
		}
		return true
	})
}

func translate(locale, key, fallback string, t Translator, onMissing MissingTranslationHandler) string {
	if t == nil {
		return onMissing(locale, key, fallback, ErrMissingTranslator)
	}
	result, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	if err == nil {
		err = ErrMissingTranslation
	}
	return onMissing(locale, key, fallback, err)
}

// CatalogTranslator translates through an x/text message catalog.
type CatalogTranslator struct {
	builder *catalog.Builder
	known   map[string]map[string]struct{}
}

// NewCatalogTranslator creates an empty catalog translator.
func NewCatalogTranslator() *CatalogTranslator {
	return &CatalogTranslator{
		builder: catalog.NewBuilder(),
		known:   make(map[string]map[string]struct{}),
	}
}

// Add registers messages (key to format string) for locale.
func (c *CatalogTranslator) Add(locale string, messages map[string]string) error {
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("render: locale %q: %w", locale, err)
	}
	keys := c.known[tag.String()]
	if keys == nil {
		keys = make(map[string]struct{})
		c.known[tag.String()] = keys
	}
	for key, msg := range messages {
		if err := c.builder.SetString(tag, key, msg); err != nil {
			return fmt.Errorf("render: add %s/%s: %w", locale, key, err)
		}
		keys[key] = struct{}{}
	}
	return nil
}

// Translate implements Translator.
func (c *CatalogTranslator) Translate(locale, key string, args ...any) (string, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return "", fmt.Errorf("render: locale %q: %w", locale, err)
	}
	if _, ok := c.known[tag.String()][key]; !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrMissingTranslation, locale, key)
	}
	printer := message.NewPrinter(tag, message.Catalog(c.builder))
	return printer.Sprintf(key, args...), nil
}
