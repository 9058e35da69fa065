// Package fonts resolves display-font names to renderable faces with a
// fallback chain: known system paths, a cached web-font download, generic
// system fonts, then an embedded default. Resolution never fails.
package fonts

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

// systemFontPaths maps well-known font names to candidate file paths.
var systemFontPaths = map[string][]string{
	"Georgia":           {"/System/Library/Fonts/Georgia.ttf", "/Library/Fonts/Georgia.ttf", "C:/Windows/Fonts/georgia.ttf"},
	"Times New Roman":   {"/Library/Fonts/Times New Roman.ttf", "C:/Windows/Fonts/times.ttf", "/usr/share/fonts/truetype/msttcorefonts/Times_New_Roman.ttf"},
	"Palatino Linotype": {"/Library/Fonts/Palatino.ttf", "C:/Windows/Fonts/pala.ttf"},
	"Book Antiqua":      {"/Library/Fonts/Book Antiqua.ttf", "C:/Windows/Fonts/bkant.ttf"},
	"Garamond":          {"/System/Library/Fonts/Supplemental/Garamond.ttf", "/Library/Fonts/Garamond.ttf", "C:/Windows/Fonts/gara.ttf"},
	"Arial":             {"/System/Library/Fonts/Supplemental/Arial.ttf", "/Library/Fonts/Arial.ttf", "C:/Windows/Fonts/arial.ttf", "/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf"},
	"Verdana":           {"/System/Library/Fonts/Supplemental/Verdana.ttf", "/Library/Fonts/Verdana.ttf", "C:/Windows/Fonts/verdana.ttf"},
	"Trebuchet MS":      {"/System/Library/Fonts/Supplemental/Trebuchet MS.ttf", "/Library/Fonts/Trebuchet MS.ttf", "C:/Windows/Fonts/trebuc.ttf"},
	"Century Gothic":    {"/Library/Fonts/Century Gothic.ttf", "C:/Windows/Fonts/gothic.ttf"},
	"Lucida Sans":       {"/Library/Fonts/Lucida Sans.ttf", "C:/Windows/Fonts/l_10646.ttf"},
	"Courier New":       {"/System/Library/Fonts/Supplemental/Courier New.ttf", "/Library/Fonts/Courier New.ttf", "C:/Windows/Fonts/cour.ttf"},
	"Brush Script MT":   {"/System/Library/Fonts/Supplemental/Brush Script.ttf", "/Library/Fonts/Brush Script MT.ttf"},
	"Copperplate":       {"/Library/Fonts/Copperplate.ttf"},
	"Papyrus":           {"/Library/Fonts/Papyrus.ttf"},
}

// webFonts maps downloadable font names to their source URLs.
var webFonts = map[string]string{
	"Playfair Display":   "https://github.com/google/fonts/raw/main/ofl/playfairdisplay/PlayfairDisplay%5Bwght%5D.ttf",
	"Cinzel":             "https://github.com/google/fonts/raw/main/ofl/cinzel/Cinzel%5Bwght%5D.ttf",
	"Great Vibes":        "https://github.com/google/fonts/raw/main/ofl/greatvibes/GreatVibes-Regular.ttf",
	"Cormorant Garamond": "https://github.com/google/fonts/raw/main/ofl/cormorantgaramond/CormorantGaramond-Bold.ttf",
	"Roboto":             "https://github.com/google/fonts/raw/main/apache/roboto/static/Roboto-Bold.ttf",
	"Bebas Neue":         "https://github.com/google/fonts/raw/main/ofl/bebasneue/BebasNeue-Regular.ttf",
	"Oswald":             "https://github.com/google/fonts/raw/main/ofl/oswald/Oswald%5Bwght%5D.ttf",
	"Montserrat":         "https://github.com/google/fonts/raw/main/ofl/montserrat/Montserrat%5Bwght%5D.ttf",
	"Press Start 2P":     "https://github.com/google/fonts/raw/main/ofl/pressstart2p/PressStart2P-Regular.ttf",
	"Silkscreen":         "https://github.com/google/fonts/raw/main/ofl/silkscreen/Silkscreen-Regular.ttf",
	"Orbitron":           "https://github.com/google/fonts/raw/main/ofl/orbitron/Orbitron%5Bwght%5D.ttf",
	"Poppins":            "https://github.com/google/fonts/raw/main/ofl/poppins/Poppins-Bold.ttf",
}

// genericFallbacks are tried in order when the requested font is unavailable.
var genericFallbacks = []string{
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	"/Library/Fonts/Georgia.ttf",
	"C:/Windows/Fonts/times.ttf",
	"C:/Windows/Fonts/timesbd.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSerif-Bold.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSerif-Regular.ttf",
}

var (
	defaultFontOnce sync.Once
	defaultFont     *truetype.Font
)

// Resolver loads fonts by name, caching web-font downloads under cacheDir.
type Resolver struct {
	cacheDir string
	client   *http.Client
	logger   *slog.Logger

	mu sync.Mutex // serializes downloads of the same font
}

// NewResolver returns a Resolver that caches downloaded fonts in cacheDir.
func NewResolver(cacheDir string, logger *slog.Logger) *Resolver {
	return &Resolver{
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// Resolve returns a usable face for the given name and point size. It never
// returns nil: when every candidate fails it logs and falls back to the
// embedded default font.
func (r *Resolver) Resolve(name string, size float64) font.Face {
	for _, path := range systemFontPaths[name] {
		if face := loadFace(path, size); face != nil {
			return face
		}
	}

	if url, ok := webFonts[name]; ok {
		if path, err := r.download(name, url); err == nil {
			if face := loadFace(path, size); face != nil {
				return face
			}
		} else {
			r.logger.Warn("font download failed", "font", name, "err", err)
		}
	}

	for _, path := range genericFallbacks {
		if face := loadFace(path, size); face != nil {
			return face
		}
	}

	r.logger.Warn("could not load font, using default", "font", name)
	return defaultFace(size)
}

// download fetches the font once and caches it keyed by name. A second call
// for an already-cached font is a no-op.
func (r *Resolver) download(name, url string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := filepath.Join(r.cacheDir, strings.ReplaceAll(name, " ", "_")+".ttf")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	resp, err := r.client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", name, resp.StatusCode)
	}

	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return path, nil
}

// loadFace parses the font file at path. A file that exists but fails to
// parse is skipped, not fatal.
func loadFace(path string, size float64) font.Face {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72})
}

func defaultFace(size float64) font.Face {
	defaultFontOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err == nil {
			defaultFont = f
		}
	})
	if defaultFont == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(defaultFont, &truetype.Options{Size: size, DPI: 72})
}
