// notification.go
//
// Business process backend for immigration and company formation services
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of bizflow.
// bizflow is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// bizflow is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with bizflow.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"errors"
	"time"

	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/types"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// Notice is a notification request for one user
type Notice struct {
	UserID   string
	Type     models.NotificationType
	Title    string
	Message  string
	Priority models.Priority
	Event    string
	Payload  interface{}
}

// Dispatcher persists notifications and hands them to the outbox for delivery
type Dispatcher struct {
	db     *gorm.DB
	outbox *Outbox
	log    zerolog.Logger
}

// NewDispatcher creates a dispatcher; outbox may be nil to persist only
func NewDispatcher(db *gorm.DB, outbox *Outbox, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{db: db, outbox: outbox, log: log}
}

// Notify stores a notification for n.UserID and queues its delivery.
// Only the store can fail; delivery problems are logged by the outbox.
func (d *Dispatcher) Notify(ctx context.Context, n Notice) (*models.Notification, error) {
	if n.Type == "" {
		n.Type = models.NotifyInfo
	}
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}

	payload, err := models.NewJSON(n.Payload)
	if err != nil {
		return nil, err
	}

	record := &models.Notification{
		UserID:   n.UserID,
		Type:     n.Type,
		Title:    n.Title,
		Message:  n.Message,
		Priority: n.Priority,
		Event:    n.Event,
		Payload:  payload,
	}
	if err := d.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}

	if d.outbox != nil {
		delivery := Delivery{Notification: *record}
		if n.Priority == models.PriorityHigh {
			d.addContacts(ctx, &delivery)
		}
		d.outbox.Enqueue(delivery)
	}

	return record, nil
}

// NotifyAll sends the same notice to every id once, logging and skipping failures
func (d *Dispatcher) NotifyAll(ctx context.Context, userIDs []string, n Notice) int {
	sent := 0
	for _, id := range uniqueIDs(userIDs) {
		n.UserID = id
		if _, err := d.Notify(ctx, n); err != nil {
			d.log.Error().Err(err).Str("user_id", id).Str("event", n.Event).Msg("failed to store notification")
			continue
		}
		sent++
	}
	return sent
}

// addContacts fills email and phone for the side channels, honoring user settings
func (d *Dispatcher) addContacts(ctx context.Context, delivery *Delivery) {
	var user models.User
	if err := d.db.WithContext(ctx).Where("id = ?", delivery.Notification.UserID).First(&user).Error; err != nil {
		d.log.Warn().Err(err).Str("user_id", delivery.Notification.UserID).Msg("no contact details for notification")
		return
	}

	settings := user.Settings.Data()
	if settings.EmailNotifications {
		delivery.Email = user.Email
	}
	if settings.SMSNotifications && user.Phone != "" {
		delivery.Phone = user.Phone
	}
}

// NotificationList is a page of notifications plus the unread count
type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
	Total         int64                 `json:"total"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
}

// List returns a user's notifications newest first; callers may read their own unless admin
func (d *Dispatcher) List(ctx context.Context, caller Identity, userID string, unreadOnly bool, page Page) (*NotificationList, error) {
	if caller.ID != userID && !caller.IsAdmin() {
		return nil, types.Forbidden("Not allowed to read these notifications")
	}
	page = page.normalize()

	db := d.db.WithContext(ctx)
	base := db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		base = base.Where("is_read = ?", false)
	}

	out := &NotificationList{Page: page.Page, Limit: page.Limit}
	if err := base.Session(&gorm.Session{}).Count(&out.Total).Error; err != nil {
		return nil, types.Internal("count notifications", err)
	}

	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&out.UnreadCount).Error; err != nil {
		return nil, types.Internal("count unread notifications", err)
	}

	out.Notifications = make([]models.Notification, 0)
	if err := base.Session(&gorm.Session{}).
		Scopes(inboxIndex).
		Order("created_at DESC").
		Scopes(paginate(page)).
		Find(&out.Notifications).Error; err != nil {
		return nil, types.Internal("list notifications", err)
	}

	return out, nil
}

// inboxIndex pins MySQL to the (user_id, is_read) index for inbox pages
func inboxIndex(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() != "mysql" {
		return db
	}
	return db.Clauses(hints.UseIndex("idx_notifications_user"))
}

// MarkRead flags one notification as read
func (d *Dispatcher) MarkRead(ctx context.Context, caller Identity, id string) (*models.Notification, error) {
	n, err := d.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}

	now := time.Now().UTC()
	if err := d.db.WithContext(ctx).Model(n).Updates(map[string]interface{}{
		"is_read": true,
		"read_at": now,
	}).Error; err != nil {
		return nil, types.Internal("mark notification read", err)
	}
	n.Read = true
	n.ReadAt = &now
	return n, nil
}

// MarkAllRead flags every unread notification of the caller and returns how many changed
func (d *Dispatcher) MarkAllRead(ctx context.Context, caller Identity) (int64, error) {
	result := d.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", caller.ID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, types.Internal("mark notifications read", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes one notification
func (d *Dispatcher) Delete(ctx context.Context, caller Identity, id string) error {
	n, err := d.owned(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := d.db.WithContext(ctx).Delete(n).Error; err != nil {
		return types.Internal("delete notification", err)
	}
	return nil
}

func (d *Dispatcher) owned(ctx context.Context, caller Identity, id string) (*models.Notification, error) {
	if !validID(id) {
		return nil, types.NotFound("Notification not found")
	}

	var n models.Notification
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("Notification not found")
		}
		return nil, types.Internal("load notification", err)
	}
	if n.UserID != caller.ID && !caller.IsAdmin() {
		return nil, types.Forbidden("Not allowed to modify this notification")
	}
	return &n, nil
}
