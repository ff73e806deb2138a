package parser

import (
	"math"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/storygraph/internal/render"
)

// tjSpaceThreshold is the TJ adjustment (thousandths of text space) at or
// below which a gap is read as a word space.
const tjSpaceThreshold = -250

type matrix [3][3]float64

var identity = matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

func (x matrix) mul(y matrix) matrix {
	var z matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				z[i][j] += x[i][k] * y[k][j]
			}
		}
	}
	return z
}

func translate(tx, ty float64) matrix {
	return matrix{{1, 0, 0}, {0, 1, 0}, {tx, ty, 1}}
}

func matrixFrom(args []pdflib.Value) matrix {
	m := identity
	for i := 0; i < 6 && i < len(args); i++ {
		m[i/2][i%2] = args[i].Float64()
	}
	return m
}

// gstate is the subset of the graphics state that affects text placement.
type gstate struct {
	ctm       matrix
	font      *fontInfo
	size      float64
	charSpace float64
	wordSpace float64
	scale     float64
	leading   float64
	rise      float64
}

// contentReader turns a content stream into render events.
type contentReader struct {
	events  []render.Event
	fonts   map[string]*fontInfo
	g       gstate
	stack   []gstate
	tm      matrix
	tlm     matrix
	newLine bool
}

func interpretPage(p pdflib.Page) []render.Event {
	cr := &contentReader{
		fonts: make(map[string]*fontInfo),
		g:     gstate{ctm: identity, scale: 1},
	}
	contents := p.V.Key("Contents")
	if contents.IsNull() {
		return nil
	}
	cr.run(contents, p.Resources(), 0)
	return cr.events
}

func (cr *contentReader) run(strm, resources pdflib.Value, depth int) {
	pdflib.Interpret(strm, func(stk *pdflib.Stack, op string) {
		n := stk.Len()
		args := make([]pdflib.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		cr.apply(op, args, resources, depth)
	})
}

func (cr *contentReader) apply(op string, args []pdflib.Value, resources pdflib.Value, depth int) {
	switch op {
	case "q":
		cr.stack = append(cr.stack, cr.g)
	case "Q":
		if n := len(cr.stack); n > 0 {
			cr.g = cr.stack[n-1]
			cr.stack = cr.stack[:n-1]
		}
	case "cm":
		if len(args) == 6 {
			cr.g.ctm = matrixFrom(args).mul(cr.g.ctm)
		}

	case "BT":
		cr.tm, cr.tlm = identity, identity
		cr.newLine = false
		cr.events = append(cr.events, render.RunBoundary())
	case "ET":
		cr.events = append(cr.events, render.RunBoundary())

	case "Tf":
		if len(args) == 2 {
			cr.g.font = cr.font(resources, args[0].Name())
			cr.g.size = args[1].Float64()
		}
	case "Tc":
		if len(args) == 1 {
			cr.g.charSpace = args[0].Float64()
		}
	case "Tw":
		if len(args) == 1 {
			cr.g.wordSpace = args[0].Float64()
		}
	case "Tz":
		if len(args) == 1 {
			cr.g.scale = args[0].Float64() / 100
		}
	case "TL":
		if len(args) == 1 {
			cr.g.leading = args[0].Float64()
		}
	case "Ts":
		if len(args) == 1 {
			cr.g.rise = args[0].Float64()
		}
	case "Td":
		if len(args) == 2 {
			cr.moveLine(args[0].Float64(), args[1].Float64())
		}
	case "TD":
		if len(args) == 2 {
			cr.g.leading = -args[1].Float64()
			cr.moveLine(args[0].Float64(), args[1].Float64())
		}
	case "Tm":
		if len(args) == 6 {
			cr.tm = matrixFrom(args)
			cr.tlm = cr.tm
			cr.newLine = true
		}
	case "T*":
		cr.moveLine(0, -cr.g.leading)

	case "Tj":
		if len(args) == 1 {
			cr.show(args[0].RawString())
		}
	case "'":
		if len(args) == 1 {
			cr.moveLine(0, -cr.g.leading)
			cr.show(args[0].RawString())
		}
	case "\"":
		if len(args) == 3 {
			cr.g.wordSpace = args[0].Float64()
			cr.g.charSpace = args[1].Float64()
			cr.moveLine(0, -cr.g.leading)
			cr.show(args[2].RawString())
		}
	case "TJ":
		if len(args) == 1 {
			cr.showArray(args[0])
		}

	case "Do":
		if len(args) == 1 {
			cr.xobject(resources, args[0].Name(), depth)
		}
	case "BI":
		cr.events = append(cr.events, render.Image())
	}
}

func (cr *contentReader) moveLine(tx, ty float64) {
	cr.tlm = translate(tx, ty).mul(cr.tlm)
	cr.tm = cr.tlm
	if ty != 0 {
		cr.newLine = true
	}
}

func (cr *contentReader) font(resources pdflib.Value, name string) *fontInfo {
	fv := resources.Key("Font").Key(name)
	key := fv.String()
	if f, ok := cr.fonts[key]; ok {
		return f
	}
	f := newFontInfo(pdflib.Font{V: fv}, name)
	cr.fonts[key] = f
	return f
}

// textToUser maps text space to user space for the current state.
func (cr *contentReader) textToUser() matrix {
	return cr.tm.mul(cr.g.ctm)
}

func (cr *contentReader) userPoint(dx float64) (float64, float64) {
	m := matrix{{1, 0, 0}, {0, 1, 0}, {dx, cr.g.rise, 1}}.mul(cr.textToUser())
	return m[2][0], m[2][1]
}

// spaceWidth is the width of a single space in user space.
func (cr *contentReader) spaceWidth() float64 {
	f := cr.g.font
	if f == nil {
		return 0
	}
	w := (f.spaceWidth/1000*cr.g.size + cr.g.charSpace + cr.g.wordSpace) * cr.g.scale
	m := cr.textToUser()
	return math.Hypot(w*m[0][0], w*m[0][1])
}

// show emits one text event for raw and advances the text matrix.
func (cr *contentReader) show(raw string) {
	f := cr.currentFont()
	x, y := cr.userPoint(0)
	sw := cr.spaceWidth()
	cr.advance(f.advance(raw, cr.g.size, cr.g.charSpace, cr.g.wordSpace))
	endX, _ := cr.userPoint(0)
	cr.emit(f.decode(raw), f.identity, sw, x, y, endX)
}

// showArray handles TJ as a single text event. Large negative adjustments
// become word spaces.
func (cr *contentReader) showArray(arr pdflib.Value) {
	f := cr.currentFont()
	x, y := cr.userPoint(0)
	sw := cr.spaceWidth()
	var buf strings.Builder
	for i := 0; i < arr.Len(); i++ {
		el := arr.Index(i)
		if el.Kind() == pdflib.String {
			raw := el.RawString()
			buf.WriteString(f.decode(raw))
			cr.advance(f.advance(raw, cr.g.size, cr.g.charSpace, cr.g.wordSpace))
			continue
		}
		adj := el.Float64()
		if adj <= tjSpaceThreshold && buf.Len() > 0 && !strings.HasSuffix(buf.String(), " ") {
			buf.WriteByte(' ')
		}
		cr.advance(-adj / 1000 * cr.g.size)
	}
	endX, _ := cr.userPoint(0)
	cr.emit(buf.String(), f.identity, sw, x, y, endX)
}

// emit appends a text event. Text that starts a new line inside the same
// text object is separated from the previous run by a space.
func (cr *contentReader) emit(text, font string, sw, x, y, endX float64) {
	if text == "" {
		return
	}
	if cr.newLine {
		cr.newLine = false
		if n := len(cr.events); n > 0 {
			last := cr.events[n-1]
			if last.Kind == render.KindText && !strings.HasSuffix(last.Text, " ") && !strings.HasPrefix(text, " ") {
				text = " " + text
			}
		}
	}
	cr.events = append(cr.events, render.PositionedText(text, font, sw, x, y, endX))
}

func (cr *contentReader) currentFont() *fontInfo {
	if cr.g.font == nil {
		return fallbackFont
	}
	return cr.g.font
}

// advance moves the text matrix by tx unscaled text-space units.
func (cr *contentReader) advance(tx float64) {
	cr.tm = translate(tx*cr.g.scale, 0).mul(cr.tm)
}

// xobject paints a named XObject: images count as image events and forms
// are interpreted with their own resources and matrix.
func (cr *contentReader) xobject(resources pdflib.Value, name string, depth int) {
	xo := resources.Key("XObject").Key(name)
	switch xo.Key("Subtype").Name() {
	case "Image":
		cr.events = append(cr.events, render.Image())
	case "Form":
		if depth >= maxTreeDepth {
			return
		}
		saved := cr.g
		savedStack := len(cr.stack)
		if m := xo.Key("Matrix"); m.Len() == 6 {
			vals := make([]pdflib.Value, 6)
			for i := range vals {
				vals[i] = m.Index(i)
			}
			cr.g.ctm = matrixFrom(vals).mul(cr.g.ctm)
		}
		formRes := xo.Key("Resources")
		if formRes.IsNull() {
			formRes = resources
		}
		cr.run(xo, formRes, depth+1)
		cr.g = saved
		if len(cr.stack) > savedStack {
			cr.stack = cr.stack[:savedStack]
		}
	}
}
