package command

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"recapbot/internal/domain"
)

// Registry holds all registered commands and resolves tokens (names or
// aliases) to them. Registration is case-insensitive; later registrations
// override earlier ones, aliases included.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]domain.Command
	aliases  map[string]string // alias -> command name
	source   func() []domain.Command
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		commands: make(map[string]domain.Command),
		aliases:  make(map[string]string),
		logger:   logger,
	}
}

// SetSource sets the re-registration source used by Reload.
func (r *Registry) SetSource(source func() []domain.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.source = source
}

// Register adds a command and its aliases. Invalid commands (empty name or
// description, nil handler) are rejected with a warning and leave the
// registry untouched. Returns true if the command was registered.
func (r *Registry) Register(cmd domain.Command) bool {
	if cmd.Name == "" || cmd.Description == "" || cmd.Execute == nil {
		r.logger.Warn("rejecting invalid command registration",
			"name", cmd.Name,
			"has_handler", cmd.Execute != nil,
		)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(cmd.Name)
	r.commands[name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[strings.ToLower(alias)] = name
	}
	r.logger.Debug("registered command", "name", name, "aliases", len(cmd.Aliases))
	return true
}

// Resolve maps a token (command name or alias, any casing) to a command.
func (r *Registry) Resolve(token string) (domain.Command, bool) {
	token = strings.ToLower(token)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.aliases[token]; ok {
		token = name
	}
	cmd, ok := r.commands[token]
	return cmd, ok
}

// Clear removes all commands and aliases.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = make(map[string]domain.Command)
	r.aliases = make(map[string]string)
}

// Reload clears the registry and re-registers from the configured source.
func (r *Registry) Reload() {
	r.mu.RLock()
	source := r.source
	r.mu.RUnlock()

	r.Clear()
	if source == nil {
		return
	}
	loaded := 0
	for _, cmd := range source() {
		if r.Register(cmd) {
			loaded++
		}
	}
	r.logger.Info("commands loaded", "count", loaded)
}

// Count returns the number of registered commands.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// All returns registered commands sorted by name.
func (r *Registry) All() []domain.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]domain.Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// ByCategory returns registered commands with the given category tag,
// sorted by name.
func (r *Registry) ByCategory(category string) []domain.Command {
	var cmds []domain.Command
	for _, cmd := range r.All() {
		if cmd.Category == category {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}
