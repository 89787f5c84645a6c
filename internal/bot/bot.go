// Package bot runs the Telegram admin console: approving accounts, reviewing
// the activity feed and receiving new approval requests.
package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"kidzone/internal/config"
	"kidzone/internal/model"
	"kidzone/internal/service"
)

const pollTimeout = 10 * time.Second

// Bot is the admin console bound to a Telegram bot account.
type Bot struct {
	bot      *tele.Bot
	cfg      *config.Config
	console  *Console
	notifier *Notifier
}

// Dependencies holds everything the admin console needs.
type Dependencies struct {
	Config    *config.Config
	Approvals *service.ApprovalService
	Activity  *service.ActivityService
}

// command is one console command and its menu description.
type command struct {
	name        string
	description string
	handle      tele.HandlerFunc
}

// New logs in to Telegram and registers the console commands.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, errors.New("bot token is required")
	}
	if deps.Config.Bot.AdminPrincipal == "" {
		log.Warn().Msg("bot.admin_principal is empty; approval commands will be refused")
	}

	teleBot, err := tele.NewBot(tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:      teleBot,
		cfg:      deps.Config,
		console:  NewConsole(deps.Approvals, deps.Activity, model.ParsePrincipal(deps.Config.Bot.AdminPrincipal)),
		notifier: NewNotifier(teleBot, deps.Config.Bot.AdminChatIDs),
	}

	teleBot.Use(RecoveryMiddleware(), LoggingMiddleware(), AdminMiddleware(b.cfg))

	cmds := b.commands()
	menu := make([]tele.Command, 0, len(cmds))
	for _, cmd := range cmds {
		teleBot.Handle("/"+cmd.name, cmd.handle)
		if cmd.description != "" {
			menu = append(menu, tele.Command{Text: cmd.name, Description: cmd.description})
		}
	}
	if err := teleBot.SetCommands(menu); err != nil {
		log.Warn().Err(err).Msg("Failed to publish console command menu")
	}

	return b, nil
}

func (b *Bot) commands() []command {
	return []command{
		{"start", "", b.console.HandleHelp},
		{"help", "Show console commands", b.console.HandleHelp},
		{"pending", "List accounts awaiting approval", b.console.HandlePending},
		{"approve", "Approve an account", b.console.HandleApprove},
		{"reject", "Reject an account", b.console.HandleReject},
		{"activity", "Show recent activity", b.console.HandleActivity},
	}
}

// Notifier returns the push notifier for admin chats.
func (b *Bot) Notifier() *Notifier {
	return b.notifier
}

// Start polls for console commands until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Admin console is starting...")
	b.bot.Start()
}

// Stop stops polling.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping admin console...")
	b.bot.Stop()
}
