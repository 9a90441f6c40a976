// Package commands provides the built-in command set: help, ping, time,
// random, groups, and info. Everything is store-backed so the commands
// behave the same on every platform adapter.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"recapbot/internal/command"
	"recapbot/internal/domain"
)

// Deps are the collaborators shared by the built-in commands.
type Deps struct {
	Store    domain.Store
	Registry *command.Registry
	Prefix   string
	Now      func() time.Time // override for tests
	Intn     func(n int) int  // override for tests
	Logger   *slog.Logger
}

// Set is the built-in command set bound to its dependencies.
type Set struct {
	store    domain.Store
	registry *command.Registry
	prefix   string
	now      func() time.Time
	intn     func(n int) int
	logger   *slog.Logger
}

func New(deps Deps) *Set {
	if deps.Prefix == "" {
		deps.Prefix = "!"
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Intn == nil {
		deps.Intn = rand.Intn
	}
	return &Set{
		store:    deps.Store,
		registry: deps.Registry,
		prefix:   deps.Prefix,
		now:      deps.Now,
		intn:     deps.Intn,
		logger:   deps.Logger,
	}
}

// All returns every built-in command.
func (s *Set) All() []domain.Command {
	return []domain.Command{
		s.Help(),
		s.Ping(),
		s.Time(),
		s.Random(),
		s.Groups(),
		s.Info(),
	}
}

func (s *Set) Help() domain.Command {
	return domain.Command{
		Name:        "help",
		Description: "Show all available commands or get help for a specific command",
		Aliases:     []string{"h", "commands"},
		Category:    domain.CategoryGeneral,
		Execute:     s.help,
	}
}

var categoryTitles = map[string]string{
	domain.CategoryGeneral:   "General Commands",
	domain.CategoryGroup:     "Group Commands",
	domain.CategoryUtility:   "Utility Commands",
	domain.CategoryRecording: "Recording Commands",
}

func (s *Set) help(ctx context.Context, ev domain.ChatEvent, args []string, r domain.Responder) error {
	if len(args) > 0 {
		return s.helpFor(ctx, args[0], r)
	}

	var sb strings.Builder
	sb.WriteString("🤖 *Bot Commands*\n")

	for _, cat := range []string{
		domain.CategoryGeneral, domain.CategoryGroup,
		domain.CategoryUtility, domain.CategoryRecording,
	} {
		cmds := s.registry.ByCategory(cat)
		if len(cmds) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n*%s:*\n", categoryTitles[cat]))
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
		for _, c := range cmds {
			sb.WriteString(fmt.Sprintf("• %s%s - %s\n", s.prefix, c.Name, c.Description))
		}
	}

	sb.WriteString(fmt.Sprintf("\n*Usage:* Use `%shelp [command]` for detailed help on a specific command.\n", s.prefix))
	sb.WriteString("\n🔧 *Tip:* Commands are case-insensitive and you can use aliases!")
	return r.Reply(ctx, sb.String())
}

func (s *Set) helpFor(ctx context.Context, token string, r domain.Responder) error {
	cmd, ok := s.registry.Resolve(token)
	if !ok {
		return r.Reply(ctx, fmt.Sprintf("ℹ️ Unknown command: *%s*\n\nUse `%shelp` to see all available commands.",
			strings.ToLower(token), s.prefix))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ℹ️ *%s%s*\n\n%s\n", s.prefix, cmd.Name, cmd.Description))
	if len(cmd.Aliases) > 0 {
		sb.WriteString(fmt.Sprintf("\n*Aliases:* %s", strings.Join(cmd.Aliases, ", ")))
	}
	return r.Reply(ctx, sb.String())
}

func (s *Set) Ping() domain.Command {
	return domain.Command{
		Name:        "ping",
		Description: "Test if the bot is working",
		Aliases:     []string{"pong"},
		Category:    domain.CategoryGeneral,
		Execute: func(ctx context.Context, ev domain.ChatEvent, args []string, r domain.Responder) error {
			return r.Reply(ctx, "🏓 Pong!")
		},
	}
}

func (s *Set) Time() domain.Command {
	return domain.Command{
		Name:        "time",
		Description: "Show current date and time",
		Aliases:     []string{"date", "now"},
		Category:    domain.CategoryUtility,
		Execute: func(ctx context.Context, ev domain.ChatEvent, args []string, r domain.Responder) error {
			now := s.now()
			zone, _ := now.Zone()
			text := fmt.Sprintf("🕒 *Current Time*\n\n"+
				"*Date:* %s\n"+
				"*Time:* %s\n"+
				"*Timezone:* %s\n"+
				"*UTC:* %s\n"+
				"*Timestamp:* %d",
				now.Format("Mon Jan 02 2006"),
				now.Format("15:04:05"),
				zone,
				now.UTC().Format(time.RFC1123),
				now.Unix())
			return r.Reply(ctx, text)
		},
	}
}

func (s *Set) Random() domain.Command {
	return domain.Command{
		Name:        "random",
		Description: "Randomly selects and resends one of the last 10 messages in the group",
		Aliases:     []string{"rand", "randomsg"},
		Category:    domain.CategoryUtility,
		Execute:     s.random,
	}
}

func (s *Set) random(ctx context.Context, ev domain.ChatEvent, _ []string, r domain.Responder) error {
	if !ev.IsGroup {
		return r.Reply(ctx, "❌ This command only works in groups!")
	}

	recent, err := s.store.RecentMessages(ctx, ev.ChatID, 10)
	if err != nil {
		return fmt.Errorf("load recent messages: %w", err)
	}
	if len(recent) == 0 {
		return r.Reply(ctx, "❌ No recent messages found in this group!")
	}

	picked := recent[s.intn(len(recent))]
	author := picked.Author
	if author == "" {
		author = picked.From
	}
	displayName, _, _ := strings.Cut(author, "@")

	age := timeAgo(s.now(), time.Unix(picked.Timestamp, 0))
	text := fmt.Sprintf("🎲 *Random Message from %s:*\n\n👤 *%s:* %s", age, displayName, picked.Body)
	return r.Reply(ctx, text)
}

// timeAgo renders the coarse relative age of a past instant: minutes under
// an hour, hours under a day, days beyond that.
func timeAgo(now, then time.Time) string {
	diff := now.Sub(then)
	switch {
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	default:
		return plural(int(diff.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func (s *Set) Groups() domain.Command {
	return domain.Command{
		Name:        "groups",
		Description: "List all groups the bot is currently in",
		Aliases:     []string{"grouplist", "gl"},
		Category:    domain.CategoryGroup,
		Execute:     s.groups,
	}
}

func (s *Set) groups(ctx context.Context, ev domain.ChatEvent, _ []string, r domain.Responder) error {
	chats, err := s.store.KnownChats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	if len(chats) == 0 {
		return r.Reply(ctx, "📋 I'm not in any groups currently.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 *Groups I'm in (%d):*\n\n", len(chats)))
	for i, c := range chats {
		name := c.ChatName
		if name == "" {
			name = c.ChatID
		}
		sb.WriteString(fmt.Sprintf("%d. *%s*\n", i+1, name))
		sb.WriteString(fmt.Sprintf("   💬 %d messages\n", c.MessageCount))
		sb.WriteString(fmt.Sprintf("   🆔 `%s`\n\n", c.ChatID))
	}

	text := sb.String()
	if len(text) > 4000 {
		text = text[:3900] + "\n\n... and more groups"
	}
	return r.Reply(ctx, text)
}

func (s *Set) Info() domain.Command {
	return domain.Command{
		Name:        "info",
		Description: "Show information about the current group",
		Aliases:     []string{"groupinfo", "gi"},
		Category:    domain.CategoryGroup,
		Execute:     s.info,
	}
}

func (s *Set) info(ctx context.Context, ev domain.ChatEvent, _ []string, r domain.Responder) error {
	if !ev.IsGroup {
		return r.Reply(ctx, "❌ This command can only be used in groups!")
	}

	stat, err := s.store.ChatStats(ctx, ev.ChatID)
	if err != nil {
		return fmt.Errorf("load chat stats: %w", err)
	}

	name := ev.ChatName
	if name == "" {
		name = ev.ChatID
	}
	if stat == nil {
		return r.Reply(ctx, fmt.Sprintf("📊 *Group Information*\n\n*Name:* %s\n*Group ID:* `%s`\n\nNo stored history for this group yet.", name, ev.ChatID))
	}

	text := fmt.Sprintf("📊 *Group Information*\n\n"+
		"*Name:* %s\n"+
		"*Messages stored:* %d\n"+
		"*First seen:* %s\n"+
		"*Last seen:* %s\n"+
		"*Group ID:* `%s`",
		name,
		stat.MessageCount,
		time.Unix(stat.FirstSeen, 0).Format("2006-01-02 15:04"),
		time.Unix(stat.LastSeen, 0).Format("2006-01-02 15:04"),
		ev.ChatID)
	return r.Reply(ctx, text)
}
