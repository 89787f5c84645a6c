package bot

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"kidzone/internal/config"
)

// commandOf returns the console command in c without the @botname suffix.
func commandOf(c tele.Context) string {
	fields := strings.Fields(c.Text())
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return cmd
}

// AdminMiddleware lets only configured Telegram users through. Everyone else
// is ignored without a reply so the console stays invisible to them.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || !cfg.IsBotAdmin(sender.ID) {
				ev := log.Warn().Str("command", commandOf(c))
				if sender != nil {
					ev = ev.Int64("user_id", sender.ID)
				}
				ev.Msg("Console command from non-admin ignored")
				return nil
			}
			return next(c)
		}
	}
}

// LoggingMiddleware logs each console command once it has been handled.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)

			ev := log.Debug()
			if err != nil {
				ev = log.Warn().Err(err)
			}
			if sender := c.Sender(); sender != nil {
				ev = ev.Int64("user_id", sender.ID)
			}
			if chat := c.Chat(); chat != nil {
				ev = ev.Int64("chat_id", chat.ID)
			}
			ev.Str("command", commandOf(c)).
				Dur("latency", time.Since(start)).
				Msg("Console command handled")
			return err
		}
	}
}

// RecoveryMiddleware turns a handler panic into an error reply.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("command", commandOf(c)).
						Msg("Console handler panicked")
					err = c.Reply("❌ Internal error, please try again")
				}
			}()
			return next(c)
		}
	}
}
