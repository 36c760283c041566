// Package dashboard renders a Grafana dashboard over the GreptimeDB tables
// the simulator writes.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"intrusion-sim/internal/stage"
	"intrusion-sim/internal/telemetry"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

// Data is what the templates can reference besides env.
type Data struct {
	StageTable string
	RunTable   string
	Stages     []stage.Name
}

// DefaultData points the dashboard at the configured table names.
func DefaultData() Data {
	return Data{
		StageTable: telemetry.StageTableName,
		RunTable:   telemetry.RunTableName,
		Stages:     stage.Order,
	}
}

// Render executes every dashboard template with data and writes the results
// to outDir. Templates read datasource UIDs through the env function, which
// fails on unset variables.
func Render(outDir string, data Data) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
		"last": func(i int, s []stage.Name) bool { return i == len(s)-1 },
	}

	t, err := template.New("dashboards").Funcs(funcMap).ParseFS(templates, "templates/*.json.tmpl")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, tpl := range t.Templates() {
		name := tpl.Name()
		if !strings.HasSuffix(name, ".tmpl") {
			continue
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := tpl.Execute(f, data); err != nil {
			f.Close()
			return fmt.Errorf("render %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
