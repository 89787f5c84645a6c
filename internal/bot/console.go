package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
)

const (
	consoleTimeout  = 10 * time.Second
	defaultActivity = 10
	timeLayout      = "2006-01-02 15:04:05"
)

// ApprovalAdmin is the slice of the approval service the console drives.
type ApprovalAdmin interface {
	Pending(ctx context.Context) ([]*model.UserApproval, error)
	SetApproval(ctx context.Context, caller, user model.Principal, status model.ApprovalStatus) (*model.UserApproval, error)
}

// ActivityReader reads the admin activity feed.
type ActivityReader interface {
	GetRecentActivityEvents(ctx context.Context, caller model.Principal, limit int) ([]*model.ActivityEvent, error)
}

// Console handles the admin commands. Every decision is made as the
// configured admin principal, so the services' admin checks still apply.
type Console struct {
	approvals ApprovalAdmin
	activity  ActivityReader
	actor     model.Principal
}

// NewConsole creates a new Console.
func NewConsole(approvals ApprovalAdmin, activity ActivityReader, actor model.Principal) *Console {
	return &Console{approvals: approvals, activity: activity, actor: actor}
}

// HandleHelp handles /start and /help.
func (h *Console) HandleHelp(c tele.Context) error {
	return c.Reply("🛠 kidzone admin console\n\n" +
		"/pending - accounts waiting for approval\n" +
		"/approve <principal> - approve an account\n" +
		"/reject <principal> - reject an account\n" +
		"/activity [n] - latest activity events")
}

// HandlePending handles /pending.
func (h *Console) HandlePending(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), consoleTimeout)
	defer cancel()

	recs, err := h.approvals.Pending(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list pending approvals")
		return c.Reply("❌ Could not load pending approvals")
	}
	return c.Reply(formatPending(recs))
}

// HandleApprove handles /approve <principal>.
func (h *Console) HandleApprove(c tele.Context) error {
	return h.decide(c, model.ApprovalApproved)
}

// HandleReject handles /reject <principal>.
func (h *Console) HandleReject(c tele.Context) error {
	return h.decide(c, model.ApprovalRejected)
}

func (h *Console) decide(c tele.Context, status model.ApprovalStatus) error {
	user, err := parsePrincipalArg(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), consoleTimeout)
	defer cancel()

	rec, err := h.approvals.SetApproval(ctx, h.actor, user, status)
	if err != nil {
		return c.Reply(describeError(err))
	}

	log.Info().
		Str("admin", h.actor.String()).
		Str("principal", user.String()).
		Str("status", string(rec.Status)).
		Str("operation", "console_set_approval").
		Msg("Admin operation executed")

	icon := "✅"
	if rec.Status == model.ApprovalRejected {
		icon = "🚫"
	}
	return c.Reply(fmt.Sprintf("%s %s is now %s", icon, rec.Principal, rec.Status))
}

// HandleActivity handles /activity [n].
func (h *Console) HandleActivity(c tele.Context) error {
	limit, err := parseLimitArg(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), consoleTimeout)
	defer cancel()

	events, err := h.activity.GetRecentActivityEvents(ctx, h.actor, limit)
	if err != nil {
		return c.Reply(describeError(err))
	}
	return c.Reply(formatActivity(events))
}

func parsePrincipalArg(args []string) (model.Principal, error) {
	if len(args) != 1 {
		return "", errors.New("❌ Usage: /approve <principal> or /reject <principal>")
	}
	p := model.ParsePrincipal(args[0])
	if p.IsAnonymous() {
		return "", errors.New("❌ Principal cannot be empty")
	}
	return p, nil
}

func parseLimitArg(args []string) (int, error) {
	if len(args) == 0 {
		return defaultActivity, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, errors.New("❌ Usage: /activity [n], n must be a positive number")
	}
	return n, nil
}

func describeError(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindUnauthorized, apperr.KindUnauthenticated:
		return "❌ The console principal is not an admin, check bot.admin_principal"
	case apperr.KindInvalid:
		return "❌ " + err.Error()
	default:
		log.Error().Err(err).Msg("Console command failed")
		return "❌ Operation failed, please try again"
	}
}

func formatPending(recs []*model.UserApproval) string {
	if len(recs) == 0 {
		return "🎉 No accounts are waiting for approval"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "⏳ %d pending approval(s)\n", len(recs))
	for _, rec := range recs {
		fmt.Fprintf(&sb, "\n• %s (since %s)", rec.Principal, rec.UpdatedAt.UTC().Format(timeLayout))
	}
	return sb.String()
}

func formatActivity(events []*model.ActivityEvent) string {
	if len(events) == 0 {
		return "📭 No activity yet"
	}

	var sb strings.Builder
	sb.WriteString("📋 Latest activity")
	for _, e := range events {
		at := model.NanosToTime(e.Timestamp).UTC().Format(timeLayout)
		switch e.Type {
		case model.ActivityGamePlayed:
			fmt.Fprintf(&sb, "\n%s  🎮 %s played %s", at, e.Principal, e.GameName)
		case model.ActivityUserCreated:
			fmt.Fprintf(&sb, "\n%s  👋 %s joined", at, e.Principal)
		default:
			fmt.Fprintf(&sb, "\n%s  %s %s", at, e.Type, e.Principal)
		}
	}
	return sb.String()
}
