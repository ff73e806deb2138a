package parser

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/zeebo/blake3"

	"github.com/dgallion1/storygraph/internal/pagelabel"
	"github.com/dgallion1/storygraph/internal/render"
	"github.com/dgallion1/storygraph/internal/story"
)

// maxTreeDepth bounds recursion through number trees, name trees and form
// XObjects.
const maxTreeDepth = 32

// explicitDestPrefix names destinations synthesized from explicit
// [page /XYZ ...] arrays so they share the named-destination table.
const explicitDestPrefix = "@explicit:"

// PDFParser handles PDF files using ledongthuc/pdf.
type PDFParser struct{}

func (p *PDFParser) Open(r io.Reader, filename string) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	doc := &pdfDocument{}
	err = safely(func() error {
		reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return err
		}
		doc.r = reader
		doc.load()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", filename, err)
	}
	return doc, nil
}

type pdfDocument struct {
	r      *pdflib.Reader
	pages  []pdflib.Page
	refs   map[PageRef]int
	labels []pagelabel.Descriptor
	dests  map[string]PageRef
	annots [][]story.LinkAnnotation

	// byObject is set when every page's object number was read from the
	// page tree, so destinations resolve by object number.
	byObject bool
}

func (d *pdfDocument) load() {
	n := d.r.NumPage()
	d.pages = make([]pdflib.Page, 0, n)
	for i := 1; i <= n; i++ {
		p := d.r.Page(i)
		if p.V.IsNull() {
			break
		}
		d.pages = append(d.pages, p)
	}

	catalog := d.r.Trailer().Key("Root")
	d.refs = make(map[PageRef]int, len(d.pages))
	if objs := pageObjects(catalog.Key("Pages")); len(objs) == len(d.pages) {
		d.byObject = true
		for i, obj := range objs {
			d.refs[obj] = i + 1
		}
	} else {
		// Pages with identical dictionaries share a fingerprint; links to
		// them stay unresolved rather than landing on the wrong page.
		ambiguous := make(map[PageRef]bool)
		for i, p := range d.pages {
			ref := pageFingerprint(p.V)
			if _, dup := d.refs[ref]; dup {
				ambiguous[ref] = true
				continue
			}
			d.refs[ref] = i + 1
		}
		for ref := range ambiguous {
			delete(d.refs, ref)
		}
	}

	d.labels = readPageLabels(catalog.Key("PageLabels"))
	d.dests = make(map[string]PageRef)
	d.readDestsDict(catalog.Key("Dests"))
	d.readNameTree(catalog.Key("Names").Key("Dests"), 0)

	d.annots = make([][]story.LinkAnnotation, len(d.pages))
	for i, p := range d.pages {
		d.annots[i] = d.readAnnotations(p)
	}
}

func (d *pdfDocument) NumberOfPages() int { return len(d.pages) }
func (d *pdfDocument) NumberingDescriptors() []pagelabel.Descriptor { return d.labels }
func (d *pdfDocument) NamedDestinations() map[string]PageRef { return d.dests }
func (d *pdfDocument) Close() error { return nil }

func (d *pdfDocument) PageNumber(ref PageRef) (int, bool) {
	n, ok := d.refs[ref]
	return n, ok
}

func (d *pdfDocument) RenderEvents(pageIndex int) ([]render.Event, error) {
	if pageIndex < 0 || pageIndex >= len(d.pages) {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", pageIndex, len(d.pages))
	}
	var events []render.Event
	err := safely(func() error {
		events = interpretPage(d.pages[pageIndex])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("page %d content: %w", pageIndex+1, err)
	}
	return events, nil
}

func (d *pdfDocument) LinkAnnotations(pageIndex int) ([]story.LinkAnnotation, error) {
	if pageIndex < 0 || pageIndex >= len(d.annots) {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", pageIndex, len(d.annots))
	}
	return d.annots[pageIndex], nil
}

// pageObjects returns the object reference of every page in page-tree
// order. The library keeps object numbers unexported, but an array's
// String form prints unresolved references as "N G R", so each /Kids array
// is read from its text. nil means some page had no readable reference.
func pageObjects(root pdflib.Value) []PageRef {
	var out []PageRef
	ok := true
	var walk func(node pdflib.Value, depth int)
	walk = func(node pdflib.Value, depth int) {
		if !ok || depth > maxTreeDepth {
			ok = false
			return
		}
		kids := node.Key("Kids")
		refs := arrayRefs(kids.String())
		if len(refs) != kids.Len() {
			ok = false
			return
		}
		for i := 0; i < kids.Len(); i++ {
			kid := kids.Index(i)
			switch kid.Key("Type").Name() {
			case "Pages":
				walk(kid, depth+1)
			case "Page":
				out = append(out, refs[i])
			}
		}
	}
	walk(root, 0)
	if !ok {
		return nil
	}
	return out
}

var objRefPattern = regexp.MustCompile(`^(\d+) (\d+) R$`)

// arrayRefs parses the String form of an array holding only indirect
// references, "[3 0 R 4 0 R]". Any other element yields nil.
func arrayRefs(s string) []PageRef {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil
	}
	fields := strings.Fields(s[1 : len(s)-1])
	if len(fields)%3 != 0 {
		return nil
	}
	out := make([]PageRef, 0, len(fields)/3)
	for i := 0; i < len(fields); i += 3 {
		ref, ok := objectRef(strings.Join(fields[i:i+3], " "))
		if !ok {
			return nil
		}
		out = append(out, ref)
	}
	return out
}

func objectRef(s string) (PageRef, bool) {
	m := objRefPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return PageRef("obj:" + m[1] + " " + m[2]), true
}

// leadingRef reads the indirect reference that opens an explicit
// destination array such as "[5 0 R /XYZ 0 792 null]".
func leadingRef(s string) (PageRef, bool) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(s), "["))
	if len(fields) < 3 {
		return "", false
	}
	return objectRef(strings.TrimSuffix(strings.Join(fields[:3], " "), "]"))
}

// pageFingerprint hashes a page dictionary's rendering. It identifies pages
// only when the page tree's references cannot be read.
func pageFingerprint(v pdflib.Value) PageRef {
	sum := blake3.Sum256([]byte(v.String()))
	return PageRef(hex.EncodeToString(sum[:16]))
}

// safely runs fn and converts a panic from the PDF library into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	return fn()
}

// readPageLabels walks the /PageLabels number tree.
func readPageLabels(root pdflib.Value) []pagelabel.Descriptor {
	if root.IsNull() {
		return nil
	}
	var out []pagelabel.Descriptor
	var walk func(node pdflib.Value, depth int)
	walk = func(node pdflib.Value, depth int) {
		if depth > maxTreeDepth {
			return
		}
		nums := node.Key("Nums")
		for i := 0; i+1 < nums.Len(); i += 2 {
			key := nums.Index(i)
			if key.Kind() != pdflib.Integer {
				continue
			}
			val := nums.Index(i + 1)
			out = append(out, pagelabel.Descriptor{
				StartIndex: int(key.Int64()),
				Style:      pagelabel.StyleFromName(val.Key("S").Name()),
				Prefix:     val.Key("P").Text(),
				Start:      int(val.Key("St").Int64()),
			})
		}
		kids := node.Key("Kids")
		for i := 0; i < kids.Len(); i++ {
			walk(kids.Index(i), depth+1)
		}
	}
	walk(root, 0)
	if len(out) == 0 {
		return nil
	}
	return out
}

// readDestsDict reads the PDF 1.1 /Dests dictionary of the catalog.
func (d *pdfDocument) readDestsDict(dests pdflib.Value) {
	for _, name := range dests.Keys() {
		if ref, ok := d.destinationPage(dests.Key(name)); ok {
			d.dests[name] = ref
		}
	}
}

// readNameTree reads the /Names /Dests name tree.
func (d *pdfDocument) readNameTree(node pdflib.Value, depth int) {
	if node.IsNull() || depth > maxTreeDepth {
		return
	}
	names := node.Key("Names")
	for i := 0; i+1 < names.Len(); i += 2 {
		name := names.Index(i).Text()
		if _, exists := d.dests[name]; exists {
			continue
		}
		if ref, ok := d.destinationPage(names.Index(i + 1)); ok {
			d.dests[name] = ref
		}
	}
	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		d.readNameTree(kids.Index(i), depth+1)
	}
}

// destinationPage resolves a destination value, either an explicit array
// or a dictionary holding one under /D, to its page. Targets that are not
// page dictionaries in this file (remote page indexes, broken references)
// do not resolve.
func (d *pdfDocument) destinationPage(v pdflib.Value) (PageRef, bool) {
	if v.Kind() == pdflib.Dict {
		v = v.Key("D")
	}
	if v.Kind() != pdflib.Array || v.Len() == 0 {
		return "", false
	}
	page := v.Index(0)
	if page.Kind() != pdflib.Dict || page.Key("Type").Name() != "Page" {
		return "", false
	}
	if d.byObject {
		return leadingRef(v.String())
	}
	return pageFingerprint(page), true
}

// readAnnotations collects the page's link annotations. Explicit array
// destinations get a synthesized name in the destination table.
func (d *pdfDocument) readAnnotations(p pdflib.Page) []story.LinkAnnotation {
	annots := p.V.Key("Annots")
	var out []story.LinkAnnotation
	for i := 0; i < annots.Len(); i++ {
		a := annots.Index(i)
		if a.Key("Subtype").Name() != "Link" {
			continue
		}
		dest, ok := d.linkDestination(a)
		if !ok {
			continue
		}
		la := story.LinkAnnotation{Destination: dest}
		if rect := a.Key("Rect"); rect.Len() == 4 {
			la.Region = &render.Rect{
				LLX: rect.Index(0).Float64(),
				LLY: rect.Index(1).Float64(),
				URX: rect.Index(2).Float64(),
				URY: rect.Index(3).Float64(),
			}
		}
		out = append(out, la)
	}
	return out
}

// linkDestination returns the destination name of a link annotation.
// ok is false for links that are not in-document jumps (URI, launch).
func (d *pdfDocument) linkDestination(annot pdflib.Value) (string, bool) {
	dest := annot.Key("Dest")
	if dest.IsNull() {
		action := annot.Key("A")
		switch action.Key("S").Name() {
		case "GoTo":
			dest = action.Key("D")
		case "GoToR":
			return "remote:" + fileSpec(action.Key("F")) + "#" + destName(action.Key("D")), true
		default:
			return "", false
		}
	}

	switch dest.Kind() {
	case pdflib.Name, pdflib.String:
		return destName(dest), true
	case pdflib.Array:
		ref, ok := d.destinationPage(dest)
		if !ok {
			return explicitDestPrefix + "unresolved:" + strings.TrimSpace(dest.Index(0).String()), true
		}
		name := explicitDestPrefix + string(ref)
		d.dests[name] = ref
		return name, true
	}
	return "", true
}

func destName(v pdflib.Value) string {
	switch v.Kind() {
	case pdflib.Name:
		return v.Name()
	case pdflib.String:
		return v.Text()
	}
	return v.String()
}

func fileSpec(v pdflib.Value) string {
	if v.Kind() == pdflib.Dict {
		if uf := v.Key("UF"); !uf.IsNull() {
			return uf.Text()
		}
		return v.Key("F").Text()
	}
	return v.Text()
}
