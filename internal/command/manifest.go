package command

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"recapbot/internal/domain"

	"gopkg.in/yaml.v3"
)

// Manifest carries per-deployment command overrides: commands to leave out
// of the registry and extra aliases per command. Together with the built-in
// command list it forms the registry's re-registration source.
type Manifest struct {
	Disabled []string            `yaml:"disabled"`
	Aliases  map[string][]string `yaml:"aliases"`
}

// LoadManifest reads a YAML manifest. A missing file is not an error; it
// just means no overrides.
func LoadManifest(path string, logger *slog.Logger) (*Manifest, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Debug("command manifest does not exist, skipping", "path", path)
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read command manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse command manifest %s: %w", path, err)
	}

	logger.Info("loaded command manifest", "path", path,
		"disabled", len(m.Disabled), "alias_overrides", len(m.Aliases))
	return &m, nil
}

// Apply filters out disabled commands and appends extra aliases. A nil
// manifest returns the input unchanged.
func (m *Manifest) Apply(cmds []domain.Command) []domain.Command {
	if m == nil {
		return cmds
	}

	disabled := make(map[string]bool, len(m.Disabled))
	for _, name := range m.Disabled {
		disabled[strings.ToLower(name)] = true
	}

	out := make([]domain.Command, 0, len(cmds))
	for _, cmd := range cmds {
		name := strings.ToLower(cmd.Name)
		if disabled[name] {
			continue
		}
		if extra, ok := m.Aliases[name]; ok {
			cmd.Aliases = append(append([]string{}, cmd.Aliases...), extra...)
		}
		out = append(out, cmd)
	}
	return out
}
