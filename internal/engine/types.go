package engine

// Kind classifies a mapping entry by how it was resolved.
type Kind string

// Entry kinds.
const (
	KindKeyword Kind = "keyword"
	KindNumeric Kind = "numeric"
)

// Entry is a single original → pseudonym assignment.
type Entry struct {
	Original    string `json:"original"`
	Pseudonym   string `json:"pseudonym"`
	Kind        Kind   `json:"kind"`
	Occurrences int    `json:"occurrences"`
}

// NumberSpan is a numeric literal located in the source text.
type NumberSpan struct {
	Literal string
	Start   int
	End     int
}

// Config controls how the engine matches and builds mappings.
type Config struct {
	CaseInsensitive  bool `yaml:"case_insensitive" mapstructure:"case_insensitive"`
	AnonymizeNumbers bool `yaml:"anonymize_numbers" mapstructure:"anonymize_numbers"`
}

// Mapping is an ordered original → pseudonym table with occurrence counts.
// Entry order is order of first resolution: keywords in target order, then
// numeric literals in lexicographic order. Setting an existing key updates
// the entry in place without changing its position.
type Mapping struct {
	entries []*Entry
	byKey   map[string]*Entry
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{byKey: make(map[string]*Entry)}
}

// Set inserts or overwrites the entry for key. A later phase resolving the
// same key (a target string that is also a bare number) replaces the earlier
// assignment but keeps the entry's position.
func (m *Mapping) Set(key, pseudonym string, kind Kind, occurrences int) {
	if e, ok := m.byKey[key]; ok {
		e.Pseudonym = pseudonym
		e.Kind = kind
		e.Occurrences = occurrences
		return
	}
	e := &Entry{Original: key, Pseudonym: pseudonym, Kind: kind, Occurrences: occurrences}
	m.entries = append(m.entries, e)
	m.byKey[key] = e
}

// Get returns the entry for key, or nil.
func (m *Mapping) Get(key string) *Entry {
	return m.byKey[key]
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	return len(m.entries)
}

// Entries returns entries in insertion order. The returned slice shares
// backing entries with the mapping; callers must treat it as read-only.
func (m *Mapping) Entries() []*Entry {
	return m.entries
}

// KeywordCount returns how many entries were resolved as keywords.
func (m *Mapping) KeywordCount() int {
	n := 0
	for _, e := range m.entries {
		if e.Kind == KindKeyword {
			n++
		}
	}
	return n
}

// NumericCount returns how many entries were resolved as numeric literals.
func (m *Mapping) NumericCount() int {
	return len(m.entries) - m.KeywordCount()
}

// Merge folds other into m for cross-file accumulation within one run.
// Keys already present keep their first-seen pseudonym and kind and only sum
// occurrence counts; new keys are appended as-is.
func (m *Mapping) Merge(other *Mapping) {
	for _, e := range other.entries {
		if existing, ok := m.byKey[e.Original]; ok {
			existing.Occurrences += e.Occurrences
			continue
		}
		copied := *e
		m.entries = append(m.entries, &copied)
		m.byKey[copied.Original] = &copied
	}
}
