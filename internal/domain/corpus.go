package domain

import "strings"

// SlideTextLabel separates the spoken transcript of a video from the text
// recognized on its frames.
const SlideTextLabel = "Texto extraído de diapositivas:"

type SegmentKind string

const (
	SegmentSpec   SegmentKind = "spec"
	SegmentFile   SegmentKind = "file"
	SegmentManual SegmentKind = "manual"
)

type Segment struct {
	Source string      `json:"source"`
	Kind   SegmentKind `json:"kind"`
	Text   string      `json:"text"`
}

// Corpus is the ordered text assembled for one run. The spec segment is
// always first and manual text, when present, is always last.
type Corpus struct {
	segments []Segment
}

func NewCorpus(specText string) *Corpus {
	return &Corpus{segments: []Segment{{Source: "spec", Kind: SegmentSpec, Text: specText}}}
}

func (c *Corpus) AppendFile(source, text string) {
	c.segments = append(c.segments, Segment{Source: source, Kind: SegmentFile, Text: text})
}

func (c *Corpus) AppendManual(text string) {
	c.segments = append(c.segments, Segment{Source: "manual", Kind: SegmentManual, Text: text})
}

// Segments returns a copy.
func (c *Corpus) Segments() []Segment {
	if c == nil {
		return nil
	}
	out := make([]Segment, len(c.segments))
	copy(out, c.segments)
	return out
}

// String renders the corpus: spec text and a blank line, one block per file
// each closed by a newline, then the manual text verbatim.
func (c *Corpus) String() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	for _, s := range c.segments {
		switch s.Kind {
		case SegmentSpec:
			b.WriteString(s.Text)
			b.WriteString("\n\n")
		case SegmentFile:
			b.WriteString(s.Text)
			b.WriteString("\n")
		case SegmentManual:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// VideoBlock joins a transcript and frame OCR text. The label is written even
// when the OCR text is empty.
func VideoBlock(transcript, slideText string) string {
	return transcript + "\n\n" + SlideTextLabel + "\n" + slideText
}

// Entity is one named-entity span over the corpus. Start and End are byte
// offsets; Label uses the spaCy vocabulary (ORG, CARDINAL, ...).
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

const (
	LabelOrg      = "ORG"
	LabelCardinal = "CARDINAL"
)
