// outbox.go
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
	"sync"
	"time"

	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/realtime"
	"github.com/rs/zerolog"
)

const sendTimeout = 10 * time.Second

// Delivery is one stored notification waiting to be pushed
type Delivery struct {
	Notification models.Notification
	Email        string
	Phone        string
}

// Outbox is a bounded queue drained by a single delivery goroutine.
// Deliveries are at-most-once: a full queue drops, a failed push is not retried.
type Outbox struct {
	queue   chan Delivery
	emitter realtime.Emitter
	email   EmailSender
	sms     SMSSender
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewOutbox creates an outbox; email and sms may be nil
func NewOutbox(size int, emitter realtime.Emitter, email EmailSender, sms SMSSender, log zerolog.Logger) *Outbox {
	if size < 1 {
		size = 1
	}
	return &Outbox{
		queue:   make(chan Delivery, size),
		emitter: emitter,
		email:   email,
		sms:     sms,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Start launches the delivery goroutine
func (o *Outbox) Start() {
	go o.run()
}

// Enqueue queues d without blocking; it reports false when d was dropped
func (o *Outbox) Enqueue(d Delivery) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		OutboxDropped.Inc()
		o.log.Warn().Str("notification_id", d.Notification.ID).Msg("outbox closed, dropping delivery")
		return false
	}

	select {
	case o.queue <- d:
		return true
	default:
		OutboxDropped.Inc()
		o.log.Warn().Str("notification_id", d.Notification.ID).Msg("outbox full, dropping delivery")
		return false
	}
}

// Close stops intake and waits for queued deliveries to drain or ctx to end
func (o *Outbox) Close(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Outbox) run() {
	defer close(o.done)
	for d := range o.queue {
		o.deliver(d)
	}
}

func (o *Outbox) deliver(d Delivery) {
	n := d.Notification
	room := realtime.UserRoom(n.UserID)

	if err := o.emitter.Emit(room, "notification", n); err != nil {
		o.failed("realtime", n, err)
	} else {
		NotificationDeliveries.WithLabelValues("realtime", "ok").Inc()
	}

	if n.Event != "" && n.Event != "notification" {
		if err := o.emitter.Emit(room, n.Event, n); err != nil {
			o.failed("realtime", n, err)
		}
	}

	if n.Priority != models.PriorityHigh {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if o.email != nil && d.Email != "" {
		if err := o.email.SendEmail(ctx, d.Email, n.Title, n.Message); err != nil {
			o.failed("email", n, err)
		} else {
			NotificationDeliveries.WithLabelValues("email", "ok").Inc()
		}
	}

	if o.sms != nil && d.Phone != "" {
		if err := o.sms.SendSMS(ctx, d.Phone, n.Title+": "+n.Message); err != nil {
			o.failed("sms", n, err)
		} else {
			NotificationDeliveries.WithLabelValues("sms", "ok").Inc()
		}
	}
}

func (o *Outbox) failed(channel string, n models.Notification, err error) {
	NotificationDeliveries.WithLabelValues(channel, "error").Inc()
	o.log.Error().
		Err(err).
		Str("channel", channel).
		Str("notification_id", n.ID).
		Str("user_id", n.UserID).
		Str("event", n.Event).
		Msg("notification delivery failed")
}
