package engine

import (
	"testing"

	"go.uber.org/zap"
)

func TestBuildMapping(t *testing.T) {
	logger := zap.NewNop()

	t.Run("OccurrenceCountingFoldsCase", func(t *testing.T) {
		e := New(Config{CaseInsensitive: true}, logger)
		m := e.BuildMapping([]string{"Kim"}, "Kim met Kim and kim")

		entry := m.Get("kim")
		if entry == nil {
			t.Fatal("expected entry for folded key kim")
		}
		if entry.Pseudonym != "A" {
			t.Errorf("pseudonym = %q, want A", entry.Pseudonym)
		}
		if entry.Occurrences != 3 {
			t.Errorf("occurrences = %d, want 3", entry.Occurrences)
		}
		if entry.Kind != KindKeyword {
			t.Errorf("kind = %q, want keyword", entry.Kind)
		}
	})

	t.Run("AbsentTargetsSkippedWithoutBurningIndex", func(t *testing.T) {
		e := New(Config{CaseInsensitive: true}, logger)
		m := e.BuildMapping([]string{"Alice", "Bob"}, "Bob was here")

		if m.Len() != 1 {
			t.Fatalf("len = %d, want 1", m.Len())
		}
		if entry := m.Get("bob"); entry == nil || entry.Pseudonym != "A" {
			t.Errorf("first resolved target should get A, got %+v", entry)
		}
	})

	t.Run("CaseSensitiveMatching", func(t *testing.T) {
		e := New(Config{CaseInsensitive: false}, logger)
		m := e.BuildMapping([]string{"Kim"}, "kim only, lowercase")

		if m.Len() != 0 {
			t.Errorf("case-sensitive Kim should not match kim, got %d entries", m.Len())
		}
	})

	t.Run("DuplicateTargetsResolvedOnce", func(t *testing.T) {
		e := New(Config{CaseInsensitive: true}, logger)
		m := e.BuildMapping([]string{"Kim", "Kim", "kim"}, "Kim here")

		if m.Len() != 1 {
			t.Fatalf("len = %d, want 1", m.Len())
		}
		if entry := m.Get("kim"); entry.Pseudonym != "A" {
			t.Errorf("first occurrence should win, got %q", entry.Pseudonym)
		}
	})

	t.Run("NumericLexicographicOrder", func(t *testing.T) {
		e := New(Config{CaseInsensitive: true, AnonymizeNumbers: true}, logger)
		m := e.BuildMapping(nil, "values 100 and 20 and 3")

		want := map[string]string{"100": "NUM_1", "20": "NUM_2", "3": "NUM_3"}
		for literal, pseudonym := range want {
			entry := m.Get(literal)
			if entry == nil {
				t.Fatalf("missing entry for %s", literal)
			}
			if entry.Pseudonym != pseudonym {
				t.Errorf("%s = %s, want %s", literal, entry.Pseudonym, pseudonym)
			}
			if entry.Kind != KindNumeric {
				t.Errorf("%s kind = %q, want numeric", literal, entry.Kind)
			}
		}
	})

	t.Run("NumericOccurrencesTotalled", func(t *testing.T) {
		e := New(Config{CaseInsensitive: true, AnonymizeNumbers: true}, logger)
		m := e.BuildMapping(nil, "7 and 7 and 42")

		if entry := m.Get("7"); entry == nil || entry.Occurrences != 2 {
			t.Errorf("entry for 7 = %+v, want 2 occurrences", entry)
		}
		if entry := m.Get("42"); entry == nil || entry.Occurrences != 1 {
			t.Errorf("entry for 42 = %+v, want 1 occurrence", entry)
		}
	})

	t.Run("NumbersDisabled", func(t *testing.T) {
		e := New(Config{CaseInsensitive: true}, logger)
		m := e.BuildMapping(nil, "only 500 here")

		if m.Len() != 0 {
			t.Errorf("numeric phase disabled, got %d entries", m.Len())
		}
	})

	t.Run("KeywordsPrecedeNumbers", func(t *testing.T) {
		e := New(Config{CaseInsensitive: true, AnonymizeNumbers: true}, logger)
		m := e.BuildMapping([]string{"Kim"}, "Kim paid 500")

		entries := m.Entries()
		if len(entries) != 2 {
			t.Fatalf("len = %d, want 2", len(entries))
		}
		if entries[0].Kind != KindKeyword || entries[1].Kind != KindNumeric {
			t.Errorf("order = [%s %s], want [keyword numeric]", entries[0].Kind, entries[1].Kind)
		}
	})
}

func TestMappingMerge(t *testing.T) {
	first := NewMapping()
	first.Set("kim", "A", KindKeyword, 2)
	first.Set("500", "NUM_1", KindNumeric, 1)

	second := NewMapping()
	second.Set("kim", "B", KindKeyword, 3)
	second.Set("lee", "A", KindKeyword, 1)

	first.Merge(second)

	if first.Len() != 3 {
		t.Fatalf("len = %d, want 3", first.Len())
	}
	kim := first.Get("kim")
	if kim.Pseudonym != "A" {
		t.Errorf("first-seen pseudonym must not be reassigned, got %q", kim.Pseudonym)
	}
	if kim.Occurrences != 5 {
		t.Errorf("occurrences = %d, want 5", kim.Occurrences)
	}
	if lee := first.Get("lee"); lee == nil || lee.Occurrences != 1 {
		t.Errorf("new key lee = %+v", lee)
	}
}
