// Package ai generates writing prompts and draft project stories through a
// hosted text generation model.
package ai

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"struggles/internal/models"
)

// Flow names, used as metric labels.
const (
	FlowStoryPrompt  = "story_prompt"
	FlowProjectStory = "project_story"
)

// StoryPromptInput describes the project a writing prompt is generated for.
type StoryPromptInput struct {
	ProjectName      string `json:"projectName"`
	ProjectType      string `json:"projectType"`
	DevelopmentStage string `json:"developmentStage"`
}

type StoryPromptOutput struct {
	Prompt string `json:"prompt"`
}

// ProjectStoryInput carries the details woven into a generated story.
type ProjectStoryInput struct {
	ProjectName    string `json:"projectName"`
	ProjectType    string `json:"projectType"`
	UserRole       string `json:"userRole"`
	KeyChallenge   string `json:"keyChallenge"`
	KeySolution    string `json:"keySolution"`
	TargetAudience string `json:"targetAudience"`
}

type ProjectStoryOutput struct {
	Story string `json:"story"`
}

// Generator produces free text for the two writing aids.
type Generator interface {
	GenerateStoryPrompt(ctx context.Context, in StoryPromptInput) (*StoryPromptOutput, error)
	GenerateProjectStory(ctx context.Context, in ProjectStoryInput) (*ProjectStoryOutput, error)
}

// Normalize trims every field and validates the result.
func (in *StoryPromptInput) Normalize() error {
	in.ProjectName = strings.TrimSpace(in.ProjectName)
	in.ProjectType = strings.TrimSpace(in.ProjectType)
	in.DevelopmentStage = strings.TrimSpace(in.DevelopmentStage)

	if err := minLength("Project name", in.ProjectName, 2); err != nil {
		return err
	}
	if in.ProjectType == "" {
		return models.NewInvalidArgumentError("Please select a project type")
	}
	if in.DevelopmentStage == "" {
		return models.NewInvalidArgumentError("Please select a development stage")
	}
	return nil
}

// Normalize trims every field and validates the result.
func (in *ProjectStoryInput) Normalize() error {
	in.ProjectName = strings.TrimSpace(in.ProjectName)
	in.ProjectType = strings.TrimSpace(in.ProjectType)
	in.UserRole = strings.TrimSpace(in.UserRole)
	in.KeyChallenge = strings.TrimSpace(in.KeyChallenge)
	in.KeySolution = strings.TrimSpace(in.KeySolution)
	in.TargetAudience = strings.TrimSpace(in.TargetAudience)

	if err := minLength("Project name", in.ProjectName, 2); err != nil {
		return err
	}
	if in.ProjectType == "" {
		return models.NewInvalidArgumentError("Please select a project type")
	}
	if in.UserRole == "" {
		return models.NewInvalidArgumentError("Please select your role")
	}
	if err := minLength("Challenge", in.KeyChallenge, 10); err != nil {
		return err
	}
	if err := minLength("Solution", in.KeySolution, 10); err != nil {
		return err
	}
	if in.TargetAudience == "" {
		return models.NewInvalidArgumentError("Please select a target audience")
	}
	return nil
}

func minLength(field, value string, n int) error {
	if utf8.RuneCountInString(value) < n {
		return models.NewInvalidArgumentError(fmt.Sprintf("%s must be at least %d characters", field, n))
	}
	return nil
}
