package audit

import (
	"fmt"
	"strings"

	"github.com/wegman-software/poimatch-go/internal/tagger"
)

const diffHeader = "\nKey\t\t\t\tStatus\t\tNew value\t\tOSM value\n"

// DiffLine is one row of the tag diff table. New and Old hold the raw tag values.
type DiffLine struct {
	Key    string
	Status Status
	New    string
	Old    string // empty for StatusNew
}

// Diff classifies every final tag in key order
func Diff(cmp Comparator, final, live tagger.Tags) []DiffLine {
	keys := final.Keys()
	lines := make([]DiffLine, 0, len(keys))
	for _, k := range keys {
		newValue := final[k]
		oldValue, ok := live[k]
		if !ok {
			lines = append(lines, DiffLine{Key: k, Status: StatusNew, New: newValue})
			continue
		}
		lines = append(lines, DiffLine{
			Key:    k,
			Status: cmp.Compare(escapeValue(newValue), escapeValue(oldValue)),
			New:    newValue,
			Old:    oldValue,
		})
	}
	return lines
}

// RenderDiff formats the table used as one document comment
func RenderDiff(lines []DiffLine) string {
	var b strings.Builder
	b.WriteString(diffHeader)
	for _, l := range lines {
		if l.Status == StatusNew {
			fmt.Fprintf(&b, "%-32s NEW\t\t'%s'\n", l.Key, escapeValue(l.New))
			continue
		}
		fmt.Fprintf(&b, "%-32s %s\t\t'%s'\t\t\t'%s'\n", l.Key, l.Status, escapeValue(l.New), escapeValue(l.Old))
	}
	return b.String()
}

// escapeValue keeps values comment-safe: hyphens escaped, newlines dropped
func escapeValue(v string) string {
	v = strings.ReplaceAll(v, "-", `\-`)
	return strings.ReplaceAll(v, "\n", "")
}
