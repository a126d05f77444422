package digest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcliao/memdigest/internal/model"
)

func sample() []model.Memory {
	return []model.Memory{
		{ID: "2", Content: "Works remotely", Importance: 3, Tags: []string{}},
		{ID: "1", Content: "Likes coffee", Importance: 8, Tags: []string{"preference"}, Metadata: model.Metadata(`{ "source": "chat" }`)},
	}
}

func TestFormatEmpty(t *testing.T) {
	f := NewFormatter(DefaultOptions())
	assert.Equal(t, NoMemories, f.Format(nil))
	assert.Equal(t, NoMemories, f.Format([]model.Memory{}))
}

func TestFormatDefault(t *testing.T) {
	got := NewFormatter(DefaultOptions()).Format(sample())
	want := strings.Join([]string{
		"=== USER MEMORIES ===",
		"- (importance: 3) Works remotely",
		"- (importance: 8) Likes coffee [tags: preference]",
		"=== END OF MEMORIES ===",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestFormatBare(t *testing.T) {
	got := NewFormatter(Options{}).Format(sample())
	assert.Equal(t, "- Works remotely\n- Likes coffee [tags: preference]", got)
}

func TestFormatIDAndMetadata(t *testing.T) {
	f := NewFormatter(Options{IncludeID: true, IncludeMetadata: true})
	assert.Equal(t, `- [1] Likes coffee [tags: preference] {"source":"chat"}`, f.Line(sample()[1]))
}

func TestFormatSingleLine(t *testing.T) {
	line := NewFormatter(Options{}).Line(model.Memory{Content: "multi\nline\r\n  content"})
	assert.Equal(t, "- multi line content", line)
}

func TestFormatMinImportance(t *testing.T) {
	f := NewFormatter(Options{MinImportance: 5})
	assert.Equal(t, "- Likes coffee [tags: preference]", f.Format(sample()))

	f = NewFormatter(Options{MinImportance: 9})
	assert.Equal(t, NoMemories, f.Format(sample()))
}

func TestFormatBudget(t *testing.T) {
	f := NewFormatter(Options{MaxChars: len("- Works remotely") + 1})
	got := f.Format(sample())
	assert.Equal(t, "- Works remotely\n... (1 more memories omitted)", got)

	f = NewFormatter(Options{MaxChars: 3})
	assert.Equal(t, "... (2 more memories omitted)", f.Format(sample()))
}

func TestFormatDeterministic(t *testing.T) {
	f := NewFormatter(Options{IncludeMetadata: true, IncludeImportance: true})
	assert.Equal(t, f.Format(sample()), f.Format(sample()))
}
