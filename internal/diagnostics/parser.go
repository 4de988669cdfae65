package diagnostics

import (
	"regexp"
	"strconv"
	"strings"
)

// Severity classifies one diagnostic record.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Record is one parsed assembler error or warning. Line and Column are
// zero-based for editor consumption; the assembler reports them one-based.
type Record struct {
	FilePath string
	Line     int
	Column   int
	Severity Severity
	Message  string
}

// The assembler's error output is not one consistent grammar across versions
// and build modes, so lines are tried against a fallback chain of patterns in
// priority order. A line that matches nothing contributes nothing.
var (
	// (main.asm 19:1) Error: Too few arguments
	primaryRe = regexp.MustCompile(`^\((\S+)\s+(\d+):(\d+)\)\s+(\w+):\s*(.*)$`)
	// at line 19, column 1 in main.asm
	continuationRe = regexp.MustCompile(`^\s*at line (\d+), column (\d+)\b`)
	// main.asm:19: Too few arguments
	genericRe = regexp.MustCompile(`^(\S+?):(\d+):\s*(.*)$`)
)

// Parse converts the combined stdout+stderr of one build invocation into an
// ordered list of records. It never fails: unrecognizable input yields an
// empty or partial list. All records are attributed to sourceFilePath, since
// multi-file assembler output is not decomposed further.
func Parse(sourceFilePath, rawOutput string) []Record {
	records := []Record{}
	lastMessage := ""

	for _, line := range strings.Split(rawOutput, "\n") {
		line = strings.TrimRight(line, "\r")

		if m := primaryRe.FindStringSubmatch(line); m != nil {
			lineNo := atoiOr(m[2], 1)
			colNo := atoiOr(m[3], 1)
			msg := m[5]
			records = append(records, Record{
				FilePath: sourceFilePath,
				Line:     lineNo - 1,
				Column:   colNo - 1,
				Severity: severityOf(m[4]),
				Message:  msg,
			})
			lastMessage = msg
			continue
		}

		if m := continuationRe.FindStringSubmatch(line); m != nil {
			lineNo := atoiOr(m[1], 1)
			colNo := atoiOr(m[2], 1)
			msg := lastMessage
			if msg == "" {
				msg = strings.TrimSpace(line)
			}
			// Continuation lines never carry a severity marker of their
			// own; they are always errors.
			records = append(records, Record{
				FilePath: sourceFilePath,
				Line:     lineNo - 1,
				Column:   colNo - 1,
				Severity: SeverityError,
				Message:  msg,
			})
			continue
		}

		if m := genericRe.FindStringSubmatch(line); m != nil {
			lineNo := atoiOr(m[2], 1)
			records = append(records, Record{
				FilePath: sourceFilePath,
				Line:     lineNo - 1,
				Column:   0,
				Severity: SeverityError,
				Message:  m[3],
			})
			continue
		}
	}

	return records
}

// severityOf maps the assembler's severity token to a Severity. Only the
// literal token "warning" (any case) yields a warning; everything else is an
// error.
func severityOf(token string) Severity {
	if strings.EqualFold(token, "warning") {
		return SeverityWarning
	}
	return SeverityError
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
