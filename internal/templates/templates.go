// Package templates renders the per-stack deployment files
// (docker-compose.yml, nginx.conf, Dockerfiles) into the workspace.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/localdeck/localdeck/internal/workspace"
)

//go:embed laravel-vue springboot-vue
var files embed.FS

// Data is the rendering context for every template.
type Data struct {
	Project     *workspace.Project
	Credentials *workspace.Credentials
}

// Render writes all templates of the project's stack into destDir,
// stripping the .tmpl suffix from each file name.
func Render(p *workspace.Project, c *workspace.Credentials, destDir string) error {
	stackDir := string(p.Stack)
	entries, err := fs.ReadDir(files, stackDir)
	if err != nil {
		return fmt.Errorf("no templates for stack %s: %w", p.Stack, err)
	}

	data := Data{Project: p, Credentials: c}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tmpl") {
			continue
		}
		content, err := renderOne(stackDir+"/"+entry.Name(), data)
		if err != nil {
			return err
		}
		out := filepath.Join(destDir, strings.TrimSuffix(entry.Name(), ".tmpl"))
		if err := os.WriteFile(out, content, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
	}
	return nil
}

// renderOne executes a single embedded template.
func renderOne(path string, data Data) ([]byte, error) {
	raw, err := files.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}

	tmpl, err := template.New(filepath.Base(path)).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", path, err)
	}
	return buf.Bytes(), nil
}
