// Package notify delivers one message per (user, matched posting) pair
// through the configured transport. There is no retry loop here: exactly one
// attempt per pair per scan, with cross-scan duplicates suppressed by the
// scan watermark.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/avergara/jobwatch/lib/models"
	"github.com/avergara/jobwatch/senders"
	"go.uber.org/zap"
)

type Dispatcher struct {
	log     *zap.Logger
	senders senders.Registry
}

func NewDispatcher(log *zap.Logger, registry senders.Registry) *Dispatcher {
	return &Dispatcher{log: log, senders: registry}
}

// Notify sends the posting to every matched user. A failure for one
// recipient is logged with the (user, posting) pair and never aborts the
// rest. Returns how many deliveries succeeded.
func (d *Dispatcher) Notify(ctx context.Context, posting models.Posting, matches map[int64][]string, users map[int64]models.User) int {
	userIDs := make([]int64, 0, len(matches))
	for userID := range matches {
		userIDs = append(userIDs, userID)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	delivered := 0
	for _, userID := range userIDs {
		user, ok := users[userID]
		if !ok {
			continue
		}
		if d.deliverOne(ctx, posting, user, matches[userID]) {
			delivered++
		}
	}
	return delivered
}

func (d *Dispatcher) deliverOne(ctx context.Context, posting models.Posting, user models.User, overlap []string) bool {
	platform := user.NotifyVia
	if platform == "" {
		platform = models.NotifyViaTelegram
	}

	sender, ok := d.senders[platform]
	if !ok {
		d.log.Sugar().Warnw("No sender for platform",
			"platform", platform, "user", user.TelegramID, "posting_id", posting.ID)
		return false
	}

	recipient := strconv.FormatInt(user.TelegramID, 10)
	if platform == models.NotifyViaEmail {
		if user.Email == "" {
			d.log.Sugar().Warnw("User has no email address",
				"user", user.TelegramID, "posting_id", posting.ID)
			return false
		}
		recipient = user.Email
	}

	id, err := sender.Deliver(ctx, recipient, FormatMessage(posting, overlap))
	if err != nil {
		d.log.Sugar().Errorw("Failed to notify user",
			"user", user.TelegramID, "posting_id", posting.ID, "url", posting.URL, "err", err)
		return false
	}
	d.log.Sugar().Infow("Notified user",
		"user", user.TelegramID, "posting_id", posting.ID, "message_id", id)
	return true
}

// FormatMessage renders the notification text: title, link and the skills
// that matched.
func FormatMessage(posting models.Posting, overlap []string) string {
	return fmt.Sprintf(
		"New project posted - %s\n%s\nMatched skills: %s",
		posting.Title, posting.URL, strings.Join(overlap, ", "),
	)
}
