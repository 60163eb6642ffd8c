package workflow

import (
	"fmt"

	"deedflow/internal/domain"
)

// notify upserts a notification by dedupe key. A repeated key refreshes the
// message, marks it unread again and moves it to the newest position, so the
// slice stays ordered by CreatedAt.
func (e *Engine) notify(d *domain.Deal, sev domain.Severity, message, dedupeKey string) {
	n := domain.Notification{ID: e.id(), DedupeKey: dedupeKey}
	for i, existing := range d.Notifications {
		if dedupeKey != "" && existing.DedupeKey == dedupeKey {
			n.ID = existing.ID
			d.Notifications = append(d.Notifications[:i:i], d.Notifications[i+1:]...)
			break
		}
	}
	n.Severity = sev
	n.Message = message
	n.CreatedAt = e.now()
	d.Notifications = append(d.Notifications, n)
}

// MarkNotificationRead stamps readAt on a notification. Marking an already
// read notification keeps the first timestamp. Reading is not a deal
// mutation: status and UpdatedAt are left alone.
func (e *Engine) MarkNotificationRead(d *domain.Deal, notificationID string) (domain.Notification, error) {
	for i := range d.Notifications {
		n := &d.Notifications[i]
		if n.ID != notificationID {
			continue
		}
		if n.ReadAt == nil {
			at := e.now()
			n.ReadAt = &at
		}
		return *n, nil
	}
	return domain.Notification{}, domain.WithMeta(domain.KindNotificationNotFound, fmt.Sprintf("notification %s not found", notificationID), map[string]string{"notification_id": notificationID})
}

// Notifications returns the deal's notifications newest first.
func Notifications(d domain.Deal, unreadOnly bool) []domain.Notification {
	out := []domain.Notification{}
	for i := len(d.Notifications) - 1; i >= 0; i-- {
		n := d.Notifications[i]
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Notify upserts a notification outside of a step transition.
func (e *Engine) Notify(d *domain.Deal, sev domain.Severity, message, dedupeKey string) error {
	if message == "" {
		return domain.WithMeta(domain.KindValidation, "notification message is required", map[string]string{"field": "message"})
	}
	return e.mutate(d, func(stage *domain.Deal) error {
		e.notify(stage, sev, message, dedupeKey)
		return nil
	})
}
