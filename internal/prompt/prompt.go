// Package prompt implements the interactive console session that drives a
// batch run: input path, target list, numeric anonymization choice.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/scmtools/textveil/internal/runner"
)

const divider = "======================================================================"

// Session reads answers from in and writes questions and results to out.
type Session struct {
	in     *bufio.Scanner
	out    io.Writer
	runner *runner.Runner
}

// New creates an interactive session around a runner.
func New(in io.Reader, out io.Writer, r *runner.Runner) *Session {
	return &Session{
		in:     bufio.NewScanner(in),
		out:    out,
		runner: r,
	}
}

// ParseTargets splits a comma-separated target list, trimming whitespace
// and dropping empty and duplicate items while preserving order.
func ParseTargets(raw string) []string {
	var targets []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		t := strings.TrimSpace(part)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		targets = append(targets, t)
	}
	return targets
}

// ask prints a question and returns the trimmed answer line.
func (s *Session) ask(question string) string {
	fmt.Fprintln(s.out, question)
	fmt.Fprint(s.out, ">> ")
	if !s.in.Scan() {
		return ""
	}
	return strings.TrimSpace(s.in.Text())
}

// Run walks the user through one anonymization run.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, divider)
	fmt.Fprintln(s.out, "textveil - text pseudonymization tool")
	fmt.Fprintln(s.out, divider)
	fmt.Fprintln(s.out)

	inputPath := s.ask("Path to the file or directory to anonymize (e.g. /data/sample.txt):")
	if inputPath == "" {
		fmt.Fprintln(s.out, "No input path given.")
		return nil
	}
	if _, err := os.Stat(inputPath); err != nil {
		fmt.Fprintf(s.out, "Cannot access %s: %v\n", inputPath, err)
		return nil
	}
	fmt.Fprintln(s.out)

	targetsRaw := s.ask("Keywords to anonymize, comma-separated (e.g. Kim,Lee,Park):")
	targets := ParseTargets(targetsRaw)
	if len(targets) > 0 {
		fmt.Fprintf(s.out, "Targets: %d (%s)\n", len(targets), strings.Join(targets, ", "))
	} else {
		fmt.Fprintln(s.out, "No keywords given.")
	}
	fmt.Fprintln(s.out)

	answer := strings.ToUpper(s.ask("Also anonymize numbers? Time values like 9:30 are kept. (Y/N, default Y):"))
	anonymizeNumbers := answer != "N"
	fmt.Fprintln(s.out)

	if len(targets) == 0 && !anonymizeNumbers {
		fmt.Fprintln(s.out, "Nothing to anonymize.")
		return nil
	}

	summary, err := s.runner.Run(ctx, runner.Options{
		InputPath:        inputPath,
		Targets:          targets,
		AnonymizeNumbers: anonymizeNumbers,
	})
	if err != nil {
		fmt.Fprintf(s.out, "Run failed: %v\n", err)
		return err
	}

	PrintSummary(s.out, summary)
	return nil
}

// PrintSummary reports run results the way the console tool always has.
// The non-interactive CLI path shares it.
func PrintSummary(out io.Writer, summary *runner.Summary) {
	fmt.Fprintln(out, divider)
	fmt.Fprintln(out, "Anonymization complete")
	fmt.Fprintln(out, divider)
	fmt.Fprintln(out)

	for _, skipped := range summary.SkippedFiles {
		fmt.Fprintf(out, "  (skipped, nothing to anonymize) %s\n", skipped)
	}
	for _, fe := range summary.Errors {
		fmt.Fprintf(out, "  (error) %s: %v\n", fe.Path, fe.Err)
	}

	if summary.Mapping.Len() == 0 {
		fmt.Fprintln(out, "No words were replaced.")
		return
	}

	fmt.Fprintf(out, "Keywords anonymized: %d\n", summary.Keywords)
	fmt.Fprintf(out, "Numbers anonymized:  %d\n", summary.Numbers)
	fmt.Fprintf(out, "Mapping entries:     %d\n", summary.Mapping.Len())
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Created files:")
	for _, path := range summary.OutputFiles {
		fmt.Fprintf(out, "  %s\n", path)
	}
	if summary.CSVPath != "" {
		fmt.Fprintf(out, "  %s (mapping table)\n", summary.CSVPath)
	}
}
