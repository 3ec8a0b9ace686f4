// Package landing manages the raw landing zone on disk: one JSON artifact
// per (city, year) window, laid out as <root>/<city_slug>/<year>.json.
package landing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Zone is a filesystem landing zone rooted at a single directory.
type Zone struct {
	root string
}

// NewZone creates a landing zone rooted at dir. The directory is created on
// first write, not here.
func NewZone(dir string) *Zone {
	return &Zone{root: dir}
}

// Path returns the artifact path for a (city, year) window.
func (z *Zone) Path(citySlug string, year int) string {
	return filepath.Join(z.root, citySlug, fmt.Sprintf("%d.json", year))
}

// Exists reports whether an artifact is already materialized for the window.
func (z *Zone) Exists(citySlug string, year int) bool {
	_, err := os.Stat(z.Path(citySlug, year))
	return err == nil
}

// Write persists a window artifact, overwriting any prior file.
func (z *Zone) Write(citySlug string, year int, payload []byte) error {
	path := z.Path(citySlug, year)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "landing: create dir for %s", citySlug)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return eris.Wrapf(err, "landing: write %s", path)
	}
	return nil
}

// Read returns a previously materialized window artifact.
func (z *Zone) Read(citySlug string, year int) ([]byte, error) {
	raw, err := os.ReadFile(z.Path(citySlug, year))
	if err != nil {
		return nil, eris.Wrapf(err, "landing: read %s/%d", citySlug, year)
	}
	return raw, nil
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts a display city name into a stable directory name:
// lower-cased, diacritics stripped, spaces replaced with underscores.
// "São Paulo" becomes "sao_paulo".
func Slugify(name string) string {
	s := strings.TrimSpace(name)
	if flat, _, err := transform.String(deaccent, s); err == nil {
		s = flat
	}
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, " ", "_")
}
