package dispatch

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/nextlevelbuilder/mcpgate/internal/drive"
)

const maxNameWidth = 60

func displayName(name string) string {
	return runewidth.Truncate(name, maxNameWidth, "…")
}

// describe is the one-line summary used after uploads.
func describe(f *drive.File) string {
	s := fmt.Sprintf("%s (id: %s", displayName(f.Name), f.ID)
	if f.Size > 0 {
		s += fmt.Sprintf(", size: %d", f.Size)
	}
	if f.WebViewLink != "" {
		s += ", link: " + f.WebViewLink
	}
	return s + ")"
}

func listing(files []drive.File) string {
	lines := make([]string, 0, len(files))
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("- %s [%s] (id: %s)", displayName(f.Name), f.Kind(), f.ID))
	}
	return strings.Join(lines, "\n")
}

// ambiguous enumerates candidates when a name resolves to several items.
func ambiguous(noun, name string, matches []drive.File, hint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Multiple %ss named '%s' found (%d). Nothing was changed; use '%s' with one of:\n", noun, name, len(matches), hint)
	for _, f := range matches {
		created := f.CreatedTime
		if created == "" {
			created = "unknown"
		}
		fmt.Fprintf(&b, "- %s (id: %s, created: %s)\n", displayName(f.Name), f.ID, created)
	}
	return strings.TrimRight(b.String(), "\n")
}
