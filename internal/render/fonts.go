package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontManager loads and caches parsed fonts and sized faces. Unknown families
// fall back to the embedded Go fonts, which ship regular, bold, italic and
// bold-italic variants, so every style request can be satisfied.
type FontManager struct {
	mu     sync.Mutex
	loaded map[string]*opentype.Font // normalized family+style -> parsed font
	faces  map[faceKey]font.Face

	embedded map[styleKey]*opentype.Font
}

type styleKey struct {
	bold   bool
	italic bool
}

type faceKey struct {
	family string
	size   float64
	style  styleKey
}

// NewFontManager parses the embedded fallback fonts and scans the given
// directories for .ttf/.otf files. A file named "garamond-bold.ttf" registers
// family "garamond" in bold; style suffixes recognized are bold, italic and
// bolditalic (dash, underscore or space separated).
func NewFontManager(dirs ...string) (*FontManager, error) {
	fm := &FontManager{
		loaded:   make(map[string]*opentype.Font),
		faces:    make(map[faceKey]font.Face),
		embedded: make(map[styleKey]*opentype.Font),
	}

	variants := []struct {
		data  []byte
		style styleKey
	}{
		{goregular.TTF, styleKey{}},
		{gobold.TTF, styleKey{bold: true}},
		{goitalic.TTF, styleKey{italic: true}},
		{gobolditalic.TTF, styleKey{bold: true, italic: true}},
	}
	for _, v := range variants {
		parsed, err := opentype.Parse(v.data)
		if err != nil {
			return nil, fmt.Errorf("parse embedded font: %w", err)
		}
		fm.embedded[v.style] = parsed
	}

	for _, dir := range dirs {
		if err := fm.loadDir(dir); err != nil {
			return nil, err
		}
	}
	return fm, nil
}

func (fm *FontManager) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read font dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".ttf" && ext != ".otf" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read font %s: %w", e.Name(), err)
		}
		parsed, err := opentype.Parse(data)
		if err != nil {
			return fmt.Errorf("parse font %s: %w", e.Name(), err)
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		fm.loaded[normalizeFamily(base)] = parsed
	}
	return nil
}

func normalizeFamily(name string) string {
	name = strings.ToLower(name)
	for _, sep := range []string{" ", "_", "-"} {
		name = strings.ReplaceAll(name, sep, "")
	}
	return name
}

func styleSuffix(style styleKey) string {
	switch style {
	case styleKey{bold: true, italic: true}:
		return "bolditalic"
	case styleKey{bold: true}:
		return "bold"
	case styleKey{italic: true}:
		return "italic"
	}
	return ""
}

// lookup returns the parsed font for a family and style plus whether the
// caller must embolden synthetically (family found, bold variant missing).
func (fm *FontManager) lookup(family string, style styleKey) (*opentype.Font, bool) {
	key := normalizeFamily(family)
	if f, ok := fm.loaded[key+styleSuffix(style)]; ok {
		return f, false
	}
	// Family present without the styled variant: keep the family, fake the
	// weight at draw time.
	if f, ok := fm.loaded[key]; ok {
		return f, style.bold
	}
	return fm.embedded[style], false
}

// Face returns a sized face for the family and style. synthetic reports that
// the face is a regular weight standing in for a requested bold, which the
// compositor compensates for with a double draw.
func (fm *FontManager) Face(family string, size float64, bold, italic bool) (face font.Face, synthetic bool, err error) {
	if size <= 0 {
		return nil, false, fmt.Errorf("font size %g must be positive", size)
	}
	style := styleKey{bold: bold, italic: italic}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	key := faceKey{family: normalizeFamily(family), size: size, style: style}
	parsed, synthetic := fm.lookup(family, style)
	if cached, ok := fm.faces[key]; ok {
		return cached, synthetic, nil
	}

	face, err = opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, false, fmt.Errorf("create %s face at %g: %w", family, size, err)
	}
	fm.faces[key] = face
	return face, synthetic, nil
}
