package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/radovskyb/watcher"
	"github.com/rs/zerolog/log"
)

//go:embed locales/*.json
var embedded embed.FS

// Catalog is the translation table of the interface strings
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]map[string]string
	fallback string
}

// NewCatalog loads the embedded translations
func NewCatalog(fallback string) (*Catalog, error) {
	c := &Catalog{
		messages: make(map[string]map[string]string),
		fallback: fallback,
	}
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, err
	}
	if err := c.load(sub); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDir replaces the translations with the <locale>.json files of dir.
// Locales without a file keep their current messages.
func (c *Catalog) LoadDir(dir string) error {
	return c.load(os.DirFS(dir))
}

func (c *Catalog) load(fsys fs.FS) error {
	loaded := make(map[string]map[string]string)
	for _, locale := range Supported {
		raw, err := fs.ReadFile(fsys, locale+".json")
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("could not read %s translations: %w", locale, err)
		}
		var messages map[string]string
		if err := json.Unmarshal(raw, &messages); err != nil {
			return fmt.Errorf("could not parse %s translations: %w", locale, err)
		}
		loaded[locale] = messages
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for locale, messages := range loaded {
		c.messages[locale] = messages
	}
	return nil
}

// T translates key in locale, falling back to the default locale then to the key itself.
// Arguments are formatted with fmt.Sprintf.
func (c *Catalog) T(locale, key string, args ...any) string {
	c.mu.RLock()
	msg, ok := c.messages[locale][key]
	if !ok {
		msg, ok = c.messages[c.fallback][key]
	}
	c.mu.RUnlock()
	if !ok {
		msg = key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Watch reloads the translations of dir every time one of its JSON files changes, until ctx is done
func (c *Catalog) Watch(ctx context.Context, dir string, interval time.Duration) error {
	if err := c.LoadDir(dir); err != nil {
		return err
	}

	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write, watcher.Create, watcher.Rename)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("could not watch %s: %w", dir, err)
	}

	go func() {
		for {
			select {
			case event := <-w.Event:
				if event.IsDir() || !strings.HasSuffix(event.Name(), ".json") {
					continue
				}
				if err := c.LoadDir(dir); err != nil {
					log.Error().Err(err).Str("file", filepath.Base(event.Path)).Msg("Could not reload translations")
					continue
				}
				log.Info().Str("file", filepath.Base(event.Path)).Msg("Reloaded translations")
			case err := <-w.Error:
				log.Error().Err(err).Msg("Translations watcher error")
			case <-w.Closed:
				return
			case <-ctx.Done():
				w.Close()
				return
			}
		}
	}()

	go func() {
		if err := w.Start(interval); err != nil {
			log.Error().Err(err).Msg("Could not start translations watcher")
		}
	}()
	return nil
}
