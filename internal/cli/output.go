package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/memdigest/internal/model"
)

// encode writes v in the given format. Text renders memories one per line
// and falls back to JSON for anything else.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		switch t := v.(type) {
		case []model.Memory:
			for _, m := range t {
				fmt.Fprintln(w, textLine(m))
			}
			return nil
		case *model.Memory:
			_, err := fmt.Fprintln(w, textLine(*t))
			return err
		}
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func textLine(m model.Memory) string {
	line := fmt.Sprintf("%s\t%d\t%s", m.ID, m.Importance, strings.Join(strings.Fields(m.Content), " "))
	if len(m.Tags) > 0 {
		line += "\t" + strings.Join(m.Tags, ",")
	}
	return line
}

// decodeMemories parses an export. Input starting with '[' is read as JSON,
// anything else as YAML.
func decodeMemories(data []byte) ([]model.Memory, error) {
	var memories []model.Memory
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return memories, nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &memories); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return memories, nil
	}
	if err := yaml.Unmarshal(trimmed, &memories); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return memories, nil
}
