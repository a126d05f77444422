// Package digest renders an owner's memories into a text block for prompt
// injection and memoizes the result per owner.
package digest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/memdigest/internal/model"
)

// NoMemories is the digest of an owner with nothing to show.
const NoMemories = "No memories available."

// Options controls digest rendering.
type Options struct {
	Header            string `mapstructure:"header"`
	Footer            string `mapstructure:"footer"`
	IncludeID         bool   `mapstructure:"include_id"`
	IncludeImportance bool   `mapstructure:"include_importance"`
	IncludeMetadata   bool   `mapstructure:"include_metadata"`
	MinImportance     int    `mapstructure:"min_importance"`
	MaxChars          int    `mapstructure:"max_chars"` // body budget; 0 means unlimited
}

// DefaultOptions returns default rendering options.
func DefaultOptions() Options {
	return Options{
		Header:            "=== USER MEMORIES ===",
		Footer:            "=== END OF MEMORIES ===",
		IncludeImportance: true,
	}
}

// Formatter renders memories. It is deterministic: the same input always
// produces the same bytes.
type Formatter struct {
	opts Options
}

// NewFormatter creates a formatter.
func NewFormatter(opts Options) *Formatter {
	return &Formatter{opts: opts}
}

// Format renders memories in the order given, one line each. Lines are
// packed greedily into MaxChars; whatever does not fit is summarized by a
// trailing marker.
func (f *Formatter) Format(memories []model.Memory) string {
	var body []string
	used, total := 0, 0
	full := false

	for _, m := range memories {
		if m.Importance < f.opts.MinImportance {
			continue
		}
		total++
		if full {
			continue
		}
		line := f.Line(m)
		if f.opts.MaxChars > 0 && used+len(line)+1 > f.opts.MaxChars {
			// budget full; later lines are counted but not rendered
			full = true
			continue
		}
		body = append(body, line)
		used += len(line) + 1
	}

	if total == 0 {
		return NoMemories
	}
	if omitted := total - len(body); omitted > 0 {
		body = append(body, fmt.Sprintf("... (%d more memories omitted)", omitted))
	}

	lines := make([]string, 0, len(body)+2)
	if f.opts.Header != "" {
		lines = append(lines, f.opts.Header)
	}
	lines = append(lines, body...)
	if f.opts.Footer != "" {
		lines = append(lines, f.opts.Footer)
	}
	return strings.Join(lines, "\n")
}

// Line renders a single memory.
func (f *Formatter) Line(m model.Memory) string {
	var b strings.Builder
	b.WriteString("- ")
	if f.opts.IncludeID {
		fmt.Fprintf(&b, "[%s] ", m.ID)
	}
	if f.opts.IncludeImportance {
		fmt.Fprintf(&b, "(importance: %d) ", m.Importance)
	}
	b.WriteString(strings.Join(strings.Fields(m.Content), " "))
	if len(m.Tags) > 0 {
		fmt.Fprintf(&b, " [tags: %s]", strings.Join(m.Tags, ", "))
	}
	if f.opts.IncludeMetadata && len(m.Metadata) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, m.Metadata); err == nil {
			b.WriteString(" ")
			b.Write(buf.Bytes())
		}
	}
	return b.String()
}
