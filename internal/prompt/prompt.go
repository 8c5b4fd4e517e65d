// Package prompt provides interactive terminal prompts.
package prompt

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/localdeck/localdeck/internal/validate"
	"github.com/localdeck/localdeck/internal/workspace"
)

// ProjectAnswers holds everything init needs to create a project.
type ProjectAnswers struct {
	Name         string
	Stack        string
	Domain       string
	BackendRepo  string
	FrontendRepo string
}

// CollectProject prompts for any project field left empty. Fields
// already filled from flags are not asked again.
func CollectProject(a *ProjectAnswers) error {
	var fields []huh.Field

	if a.Name == "" {
		fields = append(fields, huh.NewInput().
			Title("Project name").
			Description("Lowercase letters, digits, and hyphens").
			Value(&a.Name).
			Validate(func(s string) error {
				return validate.ProjectName(strings.TrimSpace(s))
			}))
	}

	if a.Stack == "" {
		fields = append(fields, huh.NewSelect[string]().
			Title("Stack").
			Options(
				huh.NewOption("Laravel + Vue", string(workspace.StackLaravelVue)),
				huh.NewOption("Spring Boot + Vue", string(workspace.StackSpringBootVue)),
			).
			Value(&a.Stack))
	}

	if a.Domain == "" {
		fields = append(fields, huh.NewInput().
			Title("Local domain").
			Description("e.g. myapp.local").
			Value(&a.Domain).
			Validate(func(s string) error {
				return validate.Domain(strings.TrimSpace(s))
			}))
	}

	if a.BackendRepo == "" {
		fields = append(fields, huh.NewInput().
			Title("Backend repository URL").
			Value(&a.BackendRepo).
			Validate(func(s string) error {
				return validate.RepoURL(strings.TrimSpace(s))
			}))
	}

	if a.FrontendRepo == "" {
		fields = append(fields, huh.NewInput().
			Title("Frontend repository URL").
			Value(&a.FrontendRepo).
			Validate(func(s string) error {
				return validate.RepoURL(strings.TrimSpace(s))
			}))
	}

	if len(fields) == 0 {
		return nil
	}

	form := huh.NewForm(huh.NewGroup(fields...))
	if err := form.Run(); err != nil {
		return fmt.Errorf("init cancelled: %w", err)
	}

	a.Name = strings.TrimSpace(a.Name)
	a.Domain = strings.TrimSpace(a.Domain)
	a.BackendRepo = strings.TrimSpace(a.BackendRepo)
	a.FrontendRepo = strings.TrimSpace(a.FrontendRepo)
	return nil
}

// ConfirmAction asks a yes/no question. Returns true when confirmed.
func ConfirmAction(title, description string) (bool, error) {
	var confirmed bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Value(&confirmed).
				Affirmative("Yes").
				Negative("No"),
		),
	)

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}
