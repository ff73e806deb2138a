package parser

import (
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// standard14Space holds the AFM width of the space glyph for the base-14
// fonts, which may omit /Widths.
var standard14Space = map[string]float64{
	"Courier":               600,
	"Courier-Bold":          600,
	"Courier-Oblique":       600,
	"Courier-BoldOblique":   600,
	"Helvetica":             278,
	"Helvetica-Bold":        278,
	"Helvetica-Oblique":     278,
	"Helvetica-BoldOblique": 278,
	"Times-Roman":           250,
	"Times-Bold":            250,
	"Times-Italic":          250,
	"Times-BoldItalic":      250,
	"Symbol":                250,
	"ZapfDingbats":          278,
}

// defaultGlyphWidth is used for glyph advances when a font carries no
// metrics at all.
const defaultGlyphWidth = 500

// fontInfo caches what the content reader needs from a font dictionary.
type fontInfo struct {
	identity   string
	spaceWidth float64 // glyph units (1/1000 em)
	twoByte    bool
	enc        pdflib.TextEncoding
	width      func(code int) float64
}

var fallbackFont = &fontInfo{
	identity:   "",
	spaceWidth: 250,
	width:      func(int) float64 { return defaultGlyphWidth },
}

func newFontInfo(f pdflib.Font, resourceName string) *fontInfo {
	fi := &fontInfo{identity: f.BaseFont()}
	if fi.identity == "" {
		fi.identity = resourceName
	}
	fi.enc = f.Encoder()

	base := stripSubset(f.BaseFont())
	if f.V.Key("Subtype").Name() == "Type0" {
		fi.twoByte = true
		fi.width = cidWidths(f.V.Key("DescendantFonts").Index(0))
	} else {
		fi.width = simpleWidths(f, base)
	}

	fi.spaceWidth = fi.width(' ')
	if fi.twoByte || fi.spaceWidth == 0 {
		if w, ok := standard14Space[base]; ok {
			fi.spaceWidth = w
		} else if fi.spaceWidth == 0 {
			fi.spaceWidth = missingWidth(f.V.Key("FontDescriptor"))
		}
	}
	return fi
}

// stripSubset removes a subset tag such as "ABCDEF+" from a base font name.
func stripSubset(name string) string {
	if i := strings.IndexByte(name, '+'); i == 6 {
		return name[i+1:]
	}
	return name
}

func simpleWidths(f pdflib.Font, base string) func(int) float64 {
	hasWidths := f.V.Key("Widths").Len() > 0
	fallback := missingWidth(f.V.Key("FontDescriptor"))
	if fallback == 0 {
		fallback = defaultGlyphWidth
		if strings.HasPrefix(base, "Courier") {
			fallback = 600
		}
	}
	return func(code int) float64 {
		if hasWidths {
			if w := f.Width(code); w != 0 {
				return w
			}
		}
		if code == ' ' {
			if w, ok := standard14Space[base]; ok {
				return w
			}
		}
		return fallback
	}
}

// cidWidths reads the /W array and /DW default of a CIDFont.
func cidWidths(desc pdflib.Value) func(int) float64 {
	dw := 1000.0
	if v := desc.Key("DW"); v.Kind() == pdflib.Integer || v.Kind() == pdflib.Real {
		dw = v.Float64()
	}
	widths := make(map[int]float64)
	w := desc.Key("W")
	for i := 0; i < w.Len(); {
		first := int(w.Index(i).Int64())
		next := w.Index(i + 1)
		if next.Kind() == pdflib.Array {
			for j := 0; j < next.Len(); j++ {
				widths[first+j] = next.Index(j).Float64()
			}
			i += 2
			continue
		}
		last := int(next.Int64())
		width := w.Index(i + 2).Float64()
		for c := first; c <= last && c-first < 0xFFFF; c++ {
			widths[c] = width
		}
		i += 3
	}
	return func(code int) float64 {
		if v, ok := widths[code]; ok {
			return v
		}
		return dw
	}
}

func missingWidth(desc pdflib.Value) float64 {
	if w := desc.Key("MissingWidth").Float64(); w > 0 {
		return w
	}
	if w := desc.Key("AvgWidth").Float64(); w > 0 {
		return w
	}
	return 0
}

func (f *fontInfo) decode(raw string) string {
	if f.enc == nil {
		return raw
	}
	return f.enc.Decode(raw)
}

// advance returns the horizontal displacement in unscaled text space for
// showing raw: glyph widths plus character spacing, and word spacing on
// single-byte code 32.
func (f *fontInfo) advance(raw string, size, charSpace, wordSpace float64) float64 {
	tx := 0.0
	step := 1
	if f.twoByte {
		step = 2
	}
	for i := 0; i+step <= len(raw); i += step {
		code := int(raw[i])
		if step == 2 {
			code = code<<8 | int(raw[i+1])
		}
		tx += f.width(code)/1000*size + charSpace
		if step == 1 && code == ' ' {
			tx += wordSpace
		}
	}
	return tx
}
