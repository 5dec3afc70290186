// Package services: Notifier
//
// This file implements the best-effort notification side channel. Notify
// formats a message from a static per-event template and hands delivery to a
// background goroutine that writes the in-app notification store. It never
// blocks the caller and never fails the enclosing operation: store errors
// are logged and counted, not propagated. Bursts of identical notifications
// are deduplicated opportunistically; that is an optimization, not a
// correctness requirement.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/vlockster/vlockster-backend/internal/domain"
	"github.com/vlockster/vlockster-backend/internal/repo"
)

// Event types with a registered template.
const (
	EventModerationApproved = "moderation_approved"
	EventModerationRejected = "moderation_rejected"
	EventRoleUpdated        = "role_updated"
	EventBackingCredited    = "backing_credited"
)

// DefaultTemplates returns the static per-event message templates. Named
// fields are substituted with {field} placeholders from the Notify data map.
func DefaultTemplates() map[string]string {
	return map[string]string{
		EventModerationApproved: `Your film "{film_title}" was approved and is now live.`,
		EventModerationRejected: `Your film "{film_title}" was rejected: {reason}`,
		EventRoleUpdated:        `Your account role is now {role}.`,
		EventBackingCredited:    `Your pledge of {amount} was received. Thank you for backing this project!`,
	}
}

// Notifier delivers formatted event notifications, fire and forget.
type Notifier struct {
	// DB is the in-app notification store.
	DB *gorm.DB
	// Templates is the immutable event→template table, set at construction.
	Templates map[string]string
	// DedupeWindow is how long an identical (identity, event, message)
	// burst is suppressed. Zero disables deduplication.
	DedupeWindow time.Duration

	titler cases.Caser

	mu     sync.Mutex
	recent map[string]time.Time

	wg sync.WaitGroup
}

// NewNotifier constructs a Notifier with the default templates and a short
// burst-dedupe window.
func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{
		DB:           db,
		Templates:    DefaultTemplates(),
		DedupeWindow: 30 * time.Second,
		titler:       cases.Title(language.English),
		recent:       make(map[string]time.Time),
	}
}

// Notify formats and delivers one notification to identityID. It returns
// immediately; delivery happens on a background goroutine and its failure is
// logged, never surfaced to the caller.
func (n *Notifier) Notify(identityID, eventType string, data map[string]string) {
	msg := n.Format(eventType, data)

	if n.suppress(identityID, eventType, msg) {
		notifierDrops.WithLabelValues("dedupe").Inc()
		return
	}

	n.wg.Add(1)
	go n.deliver(identityID, eventType, msg)
}

// Format renders the template registered for eventType by substituting
// {field} placeholders from data. Events without a template fall back to a
// generic title-cased message so an unregistered event still says something.
func (n *Notifier) Format(eventType string, data map[string]string) string {
	tpl, ok := n.Templates[eventType]
	if !ok {
		return n.titler.String(strings.ReplaceAll(eventType, "_", " "))
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// suppress reports whether an identical notification was sent within the
// dedupe window, recording this one when not. Entries are pruned lazily.
func (n *Notifier) suppress(identityID, eventType, msg string) bool {
	if n.DedupeWindow <= 0 {
		return false
	}
	key := identityID + "\x00" + eventType + "\x00" + msg
	now := time.Now()

	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.recent[key]; ok && now.Sub(last) < n.DedupeWindow {
		return true
	}
	for k, at := range n.recent {
		if now.Sub(at) >= n.DedupeWindow {
			delete(n.recent, k)
		}
	}
	n.recent[key] = now
	return false
}

// deliver writes the notification row with its own timeout, detached from
// the request that triggered it.
func (n *Notifier) deliver(identityID, eventType, msg string) {
	defer n.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := repo.CreateNotification(ctx, n.DB, identityID, eventType, msg); err != nil {
		notifierDrops.WithLabelValues("store_error").Inc()
		log.Warn().Err(err).
			Str("identity_id", identityID).
			Str("event_type", eventType).
			Msg("notification dropped")
	}
}

// ListPage returns a page of identityID's notifications, newest first, along
// with the total count for pagination.
func (n *Notifier) ListPage(ctx context.Context, identityID string, page, pageSize int) ([]domain.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	total, err := repo.CountNotifications(ctx, n.DB, identityID)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListNotificationsPage(ctx, n.DB, identityID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MarkRead flags one of identityID's notifications as read. A notification
// owned by someone else is indistinguishable from a missing one.
func (n *Notifier) MarkRead(ctx context.Context, identityID, notificationID string) error {
	err := repo.MarkNotificationRead(ctx, n.DB, notificationID, identityID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

// Flush waits for in-flight deliveries to settle. Used on shutdown and in
// tests; normal request paths never call it.
func (n *Notifier) Flush() { n.wg.Wait() }
