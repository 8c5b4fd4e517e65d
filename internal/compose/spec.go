package compose

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"

	"github.com/localdeck/localdeck/internal/errors"
)

// ServiceSpec describes one service declared in a compose file.
type ServiceSpec struct {
	Name            string
	Image           string
	HasHealthcheck  bool
	DependsOn       []string
	PublishedPorts  []string
	HasBuildContext bool
}

// ServiceSet is the set of services declared in a compose file.
// It is derived from the file on every call, never cached, so edits
// to the compose file are always picked up.
type ServiceSet struct {
	services map[string]ServiceSpec
}

// LoadServices parses the compose file at path and returns its service set.
func LoadServices(ctx context.Context, path string) (*ServiceSet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrComposeFileNotFound, path)
	}
	return ParseServices(ctx, content)
}

// ParseServices parses raw compose YAML into a service set.
func ParseServices(ctx context.Context, content []byte) (*ServiceSet, error) {
	// Parse YAML into a map first; compose-go wants both forms.
	var dict map[string]interface{}
	if err := yaml.Unmarshal(content, &dict); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrComposeInvalid, err)
	}
	if dict == nil {
		return nil, fmt.Errorf("%w: empty file", errors.ErrComposeInvalid)
	}

	project, err := loader.LoadWithContext(ctx, types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{Content: content, Config: dict},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("localdeck-parse", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = true // env substitution happens at docker compose time
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrComposeInvalid, err)
	}
	if len(project.Services) == 0 {
		return nil, fmt.Errorf("%w: no services defined", errors.ErrComposeInvalid)
	}

	set := &ServiceSet{services: make(map[string]ServiceSpec, len(project.Services))}
	for _, svc := range project.Services {
		spec := ServiceSpec{
			Name:            svc.Name,
			Image:           svc.Image,
			HasBuildContext: svc.Build != nil,
			HasHealthcheck:  svc.HealthCheck != nil && !svc.HealthCheck.Disable,
		}
		for dep := range svc.DependsOn {
			spec.DependsOn = append(spec.DependsOn, dep)
		}
		sort.Strings(spec.DependsOn)
		for _, p := range svc.Ports {
			if p.Published != "" {
				spec.PublishedPorts = append(spec.PublishedPorts, p.Published)
			}
		}
		set.services[svc.Name] = spec
	}
	return set, nil
}

// Names returns all service names, sorted.
func (s *ServiceSet) Names() []string {
	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the named service is declared.
func (s *ServiceSet) Has(name string) bool {
	_, ok := s.services[name]
	return ok
}

// Get returns the spec for the named service.
func (s *ServiceSet) Get(name string) (ServiceSpec, bool) {
	spec, ok := s.services[name]
	return spec, ok
}

// Healthchecked returns the names of services that declare a healthcheck,
// sorted.
func (s *ServiceSet) Healthchecked() []string {
	var names []string
	for name, spec := range s.services {
		if spec.HasHealthcheck {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of declared services.
func (s *ServiceSet) Len() int {
	return len(s.services)
}
