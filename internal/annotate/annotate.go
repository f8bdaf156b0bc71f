package annotate

import (
	"regexp"
	"strings"
)

// HideBlock is the marker name that suppresses enclosed lines without
// capturing them.
const HideBlock = "hide"

// markerPattern matches annotation markers such as
// "<!-- @Gist(hide) -->" or "<!-- @Gist(excerpt) -->".
var markerPattern = regexp.MustCompile(`(?i)^\s*<!--+\s*@Gist\(([_a-zA-Z0-9]+)\)\s*--+>\s*$`)

// Match returns the lower-cased block name if line is an annotation marker.
func Match(line string) (string, bool) {
	m := markerPattern.FindStringSubmatch(line)
	if len(m) < 2 {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// blockKind distinguishes the two pending block variants
type blockKind int

const (
	kindHide blockKind = iota
	kindCapture
)

// block is a pending annotation region opened by a marker
type block struct {
	kind  blockKind
	lines []string
}

// Processor streams gist content line by line and produces cleaned content
// plus the named fields captured from annotation blocks. A Processor is
// single-use and must not be shared between documents.
type Processor struct {
	lines   []string
	pending map[string]*block
	fields  map[string]string
}

// NewProcessor creates an empty processor
func NewProcessor() *Processor {
	return &Processor{
		pending: make(map[string]*block),
		fields:  make(map[string]string),
	}
}

// Process feeds a single line to the processor.
func (p *Processor) Process(line string) {
	if name, ok := Match(line); ok {
		if b, open := p.pending[name]; open {
			p.close(name, b)
			delete(p.pending, name)
			return
		}
		p.pending[name] = newBlock(name)
		return
	}

	show := true
	for _, b := range p.pending {
		switch b.kind {
		case kindHide:
			show = false
		case kindCapture:
			b.lines = append(b.lines, line)
			show = false
		}
	}

	if show {
		p.lines = append(p.lines, line)
	}
}

// ProcessText splits text on newlines and feeds every line.
func (p *Processor) ProcessText(text string) {
	for _, line := range strings.Split(text, "\n") {
		p.Process(line)
	}
}

// Finish returns the cleaned content and the captured fields that are not
// already present in defaults. Blocks still pending are discarded.
func (p *Processor) Finish(defaults map[string]bool) (string, map[string]string) {
	out := make(map[string]string, len(p.fields))
	for name, value := range p.fields {
		if defaults[name] {
			continue
		}
		out[name] = value
	}
	return strings.Join(p.lines, "\n"), out
}

// Pending returns the names of blocks opened but not yet closed
func (p *Processor) Pending() []string {
	names := make([]string, 0, len(p.pending))
	for name := range p.pending {
		names = append(names, name)
	}
	return names
}

func (p *Processor) close(name string, b *block) {
	if b.kind != kindCapture {
		return
	}
	if text := strings.Join(b.lines, "\n"); text != "" {
		p.fields[name] = text
	}
}

func newBlock(name string) *block {
	if name == HideBlock {
		return &block{kind: kindHide}
	}
	return &block{kind: kindCapture}
}

// Apply runs a fresh processor over text. It is a convenience for callers
// that don't need to stream.
func Apply(text string, defaults map[string]bool) (string, map[string]string) {
	p := NewProcessor()
	p.ProcessText(text)
	return p.Finish(defaults)
}
