package engine

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Engine builds anonymization mappings and applies them to text.
type Engine struct {
	config Config
	logger *zap.Logger
}

// New creates an engine with the given matching configuration.
func New(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{config: cfg, logger: logger}
}

// Config returns the matching configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.config
}

// countOccurrences counts non-overlapping literal occurrences of target in
// text, folding case when the engine is case-insensitive.
func (e *Engine) countOccurrences(target, text string) int {
	if e.config.CaseInsensitive {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(target))
		return len(re.FindAllStringIndex(text, -1))
	}
	return strings.Count(text, target)
}

// BuildMapping resolves targets and, when enabled, numeric literals against
// text and returns the combined mapping.
//
// Targets are deduplicated by exact value preserving input order. A target
// that never occurs in text is skipped; pseudonym indices advance only for
// targets actually added, so the first resolved target is always "A". In
// case-insensitive mode the stored key is the lower-cased target.
//
// The numeric phase assigns NUM_n pseudonyms to distinct extracted literals
// in ascending lexicographic order of the literal text. A key resolved by
// both phases ends up with the numeric assignment.
func (e *Engine) BuildMapping(targets []string, text string) *Mapping {
	mapping := NewMapping()

	index := 0
	seen := make(map[string]struct{})
	for _, target := range targets {
		if target == "" {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		// A raw target equal to an already-folded key is also a duplicate,
		// so "kim" after "Kim" resolves nothing in case-insensitive mode.
		if mapping.Get(target) != nil {
			continue
		}

		count := e.countOccurrences(target, text)
		if count == 0 {
			continue
		}

		key := target
		if e.config.CaseInsensitive {
			key = strings.ToLower(target)
		}
		mapping.Set(key, Pseudonym(index, ""), KindKeyword, count)
		index++
	}

	if e.config.AnonymizeNumbers {
		spans := ExtractNumbers(text)

		counts := make(map[string]int)
		for _, span := range spans {
			counts[span.Literal]++
		}

		literals := make([]string, 0, len(counts))
		for literal := range counts {
			literals = append(literals, literal)
		}
		sort.Strings(literals)

		for i, literal := range literals {
			mapping.Set(literal, Pseudonym(i, "NUM_"), KindNumeric, counts[literal])
		}
	}

	e.logger.Debug("mapping built",
		zap.Int("targets", len(targets)),
		zap.Int("keywords", mapping.KeywordCount()),
		zap.Int("numbers", mapping.NumericCount()),
	)

	return mapping
}
