// Package model defines the core memory data types.
package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	MinImportance     = 1
	MaxImportance     = 10
	DefaultImportance = 5

	// MaxTagLen is the longest tag accepted, in bytes.
	MaxTagLen = 64
)

// Memory represents a stored memory entry.
type Memory struct {
	ID             string    `json:"id" yaml:"id"`
	Owner          string    `json:"owner" yaml:"owner"`
	Content        string    `json:"content" yaml:"content"`
	Importance     int       `json:"importance" yaml:"importance"`
	Tags           []string  `json:"tags" yaml:"tags"`
	Metadata       Metadata  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"updated_at"`
	UpdatedAtEpoch int64     `json:"updated_at_epoch" yaml:"updated_at_epoch"`
}

// Patch is a partial update. A nil field leaves the stored value unchanged.
// A non-nil pointer to an empty tag list or empty metadata clears that field.
type Patch struct {
	Content    *string   `json:"content,omitempty"`
	Importance *int      `json:"importance,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
	Metadata   *Metadata `json:"metadata,omitempty"`
}

// IsEmpty reports whether the patch changes no field.
func (p Patch) IsEmpty() bool {
	return p.Content == nil && p.Importance == nil && p.Tags == nil && p.Metadata == nil
}

// Apply returns a copy of m with the patch applied.
func (p Patch) Apply(m Memory) Memory {
	if p.Content != nil {
		m.Content = strings.TrimSpace(*p.Content)
	}
	if p.Importance != nil {
		m.Importance = *p.Importance
	}
	if p.Tags != nil {
		m.Tags = NormalizeTags(*p.Tags)
	}
	if p.Metadata != nil {
		m.Metadata = p.Metadata.Clone()
	}
	return m
}

// ValidateContent rejects empty or whitespace-only content.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content must not be empty", ErrValidation)
	}
	return nil
}

// ValidateImportance rejects importance outside [MinImportance, MaxImportance].
// Out-of-range values are never clamped.
func ValidateImportance(importance int) error {
	if importance < MinImportance || importance > MaxImportance {
		return fmt.Errorf("%w: importance %d out of range [%d, %d]",
			ErrValidation, importance, MinImportance, MaxImportance)
	}
	return nil
}

// ValidateOwner rejects an empty owner identifier.
func ValidateOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return fmt.Errorf("%w: owner is required", ErrValidation)
	}
	return nil
}

// ValidateTags rejects tags longer than MaxTagLen.
func ValidateTags(tags []string) error {
	for _, t := range tags {
		if len(t) > MaxTagLen {
			return fmt.Errorf("%w: tag longer than %d bytes", ErrValidation, MaxTagLen)
		}
	}
	return nil
}

// NormalizeTags trims tags, drops empty ones and collapses duplicates while
// keeping first-seen order. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ParseTags splits a comma-separated tag list.
func ParseTags(s string) []string {
	if s == "" {
		return nil
	}
	return NormalizeTags(strings.Split(s, ","))
}
