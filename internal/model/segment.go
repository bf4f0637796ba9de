package model

// Delimiter wraps every persisted segment line. Chunking strips it from the
// source text so it never appears inside a segment.
const Delimiter = '"'

// Segment is one bounded unit of classifiable text.
type Segment struct {
	Entity  string `json:"entity"`
	Period  string `json:"period,omitempty"`
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// Quoted returns the segment content wrapped in exactly one delimiter at
// each end.
func (s Segment) Quoted() string {
	return string(Delimiter) + s.Content + string(Delimiter)
}

// Document is the ordered segment sequence for one entity and reporting period.
type Document struct {
	Entity   string    `json:"entity"`
	Period   string    `json:"period,omitempty"`
	Source   string    `json:"source,omitempty"`
	Segments []Segment `json:"segments"`
}

// Texts returns the segment contents in order.
func (d Document) Texts() []string {
	out := make([]string, len(d.Segments))
	for i, s := range d.Segments {
		out[i] = s.Content
	}
	return out
}
