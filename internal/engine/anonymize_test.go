package engine

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestApply(t *testing.T) {
	logger := zap.NewNop()

	t.Run("LongestMatchFirst", func(t *testing.T) {
		e := New(Config{CaseInsensitive: false}, logger)
		m := NewMapping()
		m.Set("Jo", "A", KindKeyword, 1)
		m.Set("John", "B", KindKeyword, 1)

		if got := e.Apply("John left", m); got != "B left" {
			t.Errorf("got %q, want \"B left\"", got)
		}
	})

	t.Run("ProtectionIsIdempotentWithEmptyMapping", func(t *testing.T) {
		e := New(Config{CaseInsensitive: true}, logger)
		texts := []string{
			"",
			"no times here",
			"meeting at 9:30",
			"9:30 then 14:05 then 23:59",
			"edge 1:23 start and end 9:05",
			"회의는 10:30, 점심은 12:00",
		}
		for _, text := range texts {
			if got := e.Apply(text, NewMapping()); got != text {
				t.Errorf("empty mapping changed %q into %q", text, got)
			}
		}
	})

	t.Run("TimeSpansSurviveNumericSubstitution", func(t *testing.T) {
		e := New(Config{CaseInsensitive: true}, logger)
		m := NewMapping()
		m.Set("9", "NUM_1", KindNumeric, 1)
		m.Set("30", "NUM_2", KindNumeric, 1)

		got := e.Apply("at 9:30 bring 9 and 30", m)
		if !strings.Contains(got, "9:30") {
			t.Errorf("time value altered: %q", got)
		}
		if got != "at 9:30 bring NUM_1 and NUM_2" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("CaseInsensitiveSubstitution", func(t *testing.T) {
		e := New(Config{CaseInsensitive: true}, logger)
		m := NewMapping()
		m.Set("kim", "A", KindKeyword, 3)

		if got := e.Apply("Kim met KIM and kim", m); got != "A met A and A" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("BytesOutsideMatchesUnchanged", func(t *testing.T) {
		e := New(Config{CaseInsensitive: true}, logger)
		m := NewMapping()
		m.Set("kim", "A", KindKeyword, 1)

		text := "  Kim,\tpunctuation! and 한글 stay\n"
		want := "  A,\tpunctuation! and 한글 stay\n"
		if got := e.Apply(text, m); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("ManyTimeSpansRestoreByIndex", func(t *testing.T) {
		e := New(Config{CaseInsensitive: true}, logger)

		var b strings.Builder
		for i := 0; i < 30; i++ {
			b.WriteString("slot 9:")
			b.WriteByte(byte('0' + i%6))
			b.WriteByte(byte('0' + i%10))
			b.WriteString(" ")
		}
		text := b.String()
		if got := e.Apply(text, NewMapping()); got != text {
			t.Errorf("restoration broke past 26 placeholders:\n got %q\nwant %q", got, text)
		}
	})

	t.Run("RoundTripAgainstBuiltMapping", func(t *testing.T) {
		e := New(Config{CaseInsensitive: true, AnonymizeNumbers: true}, logger)
		text := "Minji and Yeeun met at 9:30, Minji paid 12,000 won"
		m := e.BuildMapping([]string{"Minji", "Yeeun"}, text)

		got := e.Apply(text, m)
		for _, entry := range m.Entries() {
			if !strings.Contains(got, entry.Pseudonym) {
				t.Errorf("pseudonym %q missing from output %q", entry.Pseudonym, got)
			}
		}
		if strings.Contains(strings.ToLower(got), "minji") || strings.Contains(strings.ToLower(got), "yeeun") {
			t.Errorf("original keyword survived: %q", got)
		}
		if !strings.Contains(got, "9:30") {
			t.Errorf("time value lost: %q", got)
		}
	})
}
