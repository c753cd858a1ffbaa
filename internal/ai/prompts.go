package ai

import (
	"strings"
	"text/template"
)

var storyPromptTemplate = template.Must(template.New(FlowStoryPrompt).Parse(
	`You are a creative prompt engineer who helps developers share the stories behind their projects. ` +
		`Write one prompt that invites the developer to reflect on how the project began, the problems ` +
		`they ran into, the turning points, and what they learned along the way. Reply with the prompt only.

Project Name: {{.ProjectName}}
Project Type: {{.ProjectType}}
Development Stage: {{.DevelopmentStage}}
`))

var projectStoryTemplate = template.Must(template.New(FlowProjectStory).Parse(
	`You are a storyteller for people who build software. Write a short story about the project below ` +
		`that puts the people and their struggle first. Use Markdown and keep it to three or four paragraphs.

The readers are {{.TargetAudience}}.

- Project Name: {{.ProjectName}}
- Project Type: {{.ProjectType}}
- Protagonist's Role: {{.UserRole}}
- The obstacle: "{{.KeyChallenge}}"
- The breakthrough: "{{.KeySolution}}"

Open by setting the scene. Treat the obstacle as a real adversary, show the struggle, then the ` +
		`breakthrough, and close with what the project meant to the people who built it.
`))

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
