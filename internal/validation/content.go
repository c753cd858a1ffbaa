package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Story field limits.
const (
	StoryTitleMin       = 5
	StoryDescriptionMin = 10
	StoryDescriptionMax = 300
	StoryBodyMin        = 100
)

// Team field limits.
const (
	TeamNameMin        = 3
	TeamDescriptionMin = 10
	TeamDescriptionMax = 300
)

// MessageMaxLength caps a single chat message.
const MessageMaxLength = 10000

// StoryFields are the user-supplied parts of a story.
type StoryFields struct {
	Title         string
	Description   string
	Story         string
	ProjectURL    string
	SourceCodeURL string
	ImageURL      string
	VideoURL      string
}

// ValidateStory checks lengths and optional links of a new story.
func ValidateStory(f StoryFields) error {
	if runes(f.Title) < StoryTitleMin {
		return fmt.Errorf("title must be at least %d characters", StoryTitleMin)
	}
	if err := lengthBetween("description", f.Description, StoryDescriptionMin, StoryDescriptionMax); err != nil {
		return err
	}
	if runes(f.Story) < StoryBodyMin {
		return fmt.Errorf("story must be at least %d characters", StoryBodyMin)
	}
	links := []struct{ field, value string }{
		{"project_url", f.ProjectURL},
		{"source_code_url", f.SourceCodeURL},
		{"image_url", f.ImageURL},
		{"video_url", f.VideoURL},
	}
	for _, l := range links {
		if err := ValidateOptionalURL(l.field, l.value); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTeam checks a new team's name and description.
func ValidateTeam(name, description string) error {
	if runes(name) < TeamNameMin {
		return fmt.Errorf("team name must be at least %d characters", TeamNameMin)
	}
	return lengthBetween("description", description, TeamDescriptionMin, TeamDescriptionMax)
}

// ValidateOptionalURL accepts an empty string or an absolute http(s) URL.
func ValidateOptionalURL(field, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be a valid URL", field)
	}
	return nil
}

// NormalizeTags splits a comma separated list, trims and lowercases each tag,
// drops empty entries and keeps the first occurrence of duplicates.
func NormalizeTags(raw string) []string {
	return NormalizeTagList(strings.Split(raw, ","))
}

// NormalizeTagList applies the tag rules to an already split list.
func NormalizeTagList(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func lengthBetween(field, value string, min, max int) error {
	n := runes(value)
	if n < min {
		return fmt.Errorf("%s must be at least %d characters", field, min)
	}
	if n > max {
		return fmt.Errorf("%s must be less than %d characters", field, max)
	}
	return nil
}

func runes(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
