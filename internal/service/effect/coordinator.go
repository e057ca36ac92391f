// Package effect runs the side effects of committed lifecycle transitions:
// channel publish and retract, user notifications, emails. Effects fire
// only after the transition is durable, and every dispatch is keyed so a
// crash between commit and effect resolves to at-most-once on retry.
package effect

import (
	"context"
	"fmt"
	"time"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/FayezAlshami/DTC/internal/platform/metrics"
	"github.com/FayezAlshami/DTC/internal/repository"
)

// Notification is one outbound user-facing event handed to the delivery
// queue. Kind is a stable code the delivery worker renders from.
type Notification struct {
	UserID  string            `json:"user_id"`
	Kind    string            `json:"kind"`
	Payload map[string]string `json:"payload,omitempty"`
}

type ChannelGateway interface {
	PublishListing(ctx context.Context, listing *entity.Listing) (string, error)
	RetractPost(ctx context.Context, postRef string) error
}

type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Key identifies one effect of one committed transition. The version is
// the listing or negotiation version after the transition, so each
// transition gets its own key even when the same effect repeats later in
// the entity's life.
func Key(entityType, id string, version int, effectName string) string {
	return fmt.Sprintf("%s:%s:%d:%s", entityType, id, version, effectName)
}

type Coordinator struct {
	store    repository.EffectStore
	channel  ChannelGateway
	notifier Notifier
	email    EmailSender
	metrics  *metrics.Manager
	logger   logger.Logger
	ttl      time.Duration
}

func NewCoordinator(
	store repository.EffectStore,
	channel ChannelGateway,
	notifier Notifier,
	email EmailSender,
	m *metrics.Manager,
	log logger.Logger,
	ttl time.Duration,
) *Coordinator {
	return &Coordinator{
		store:    store,
		channel:  channel,
		notifier: notifier,
		email:    email,
		metrics:  m,
		logger:   log,
		ttl:      ttl,
	}
}

// PublishListing posts the listing to the public channel and returns the
// post reference. A replayed dispatch returns the recorded reference
// without touching the channel again.
func (c *Coordinator) PublishListing(ctx context.Context, listing *entity.Listing) (string, error) {
	key := Key("listing", listing.ID, listing.Version, "publish")

	recorded, done, err := c.store.Done(ctx, key)
	if err != nil {
		return "", err
	}
	if done {
		c.metrics.EffectDispatchesTotal.WithLabelValues("publish", "deduplicated").Inc()
		c.logger.Infof("Publish effect already performed for listing %s, reusing post ref", listing.ID)
		return recorded, nil
	}

	postRef, err := c.channel.PublishListing(ctx, listing)
	if err != nil {
		c.metrics.EffectDispatchesTotal.WithLabelValues("publish", "failed").Inc()
		return "", err
	}

	if err := c.store.MarkDone(ctx, key, postRef, c.ttl); err != nil {
		// The post is live but the ledger write failed. A retry would
		// duplicate the post, so surface the ref anyway and log loudly.
		c.logger.Errorf("Effect ledger write failed after publishing listing %s (post %s): %v", listing.ID, postRef, err)
	}
	c.metrics.EffectDispatchesTotal.WithLabelValues("publish", "performed").Inc()
	return postRef, nil
}

// RetractListing removes the public post of a listing that left
// PUBLISHED. postRef is the reference captured before the transition
// cleared it.
func (c *Coordinator) RetractListing(ctx context.Context, listing *entity.Listing, postRef string) error {
	if postRef == "" {
		return nil
	}
	key := Key("listing", listing.ID, listing.Version, "retract")

	_, done, err := c.store.Done(ctx, key)
	if err != nil {
		return err
	}
	if done {
		c.metrics.EffectDispatchesTotal.WithLabelValues("retract", "deduplicated").Inc()
		return nil
	}

	if err := c.channel.RetractPost(ctx, postRef); err != nil {
		c.metrics.EffectDispatchesTotal.WithLabelValues("retract", "failed").Inc()
		return err
	}
	if err := c.store.MarkDone(ctx, key, "", c.ttl); err != nil {
		c.logger.Errorf("Effect ledger write failed after retracting post %s: %v", postRef, err)
	}
	c.metrics.EffectDispatchesTotal.WithLabelValues("retract", "performed").Inc()
	return nil
}

// NotifyUser queues one notification under the given dedup key.
func (c *Coordinator) NotifyUser(ctx context.Context, key string, notification Notification) error {
	_, done, err := c.store.Done(ctx, key)
	if err != nil {
		return err
	}
	if done {
		c.metrics.EffectDispatchesTotal.WithLabelValues("notify", "deduplicated").Inc()
		return nil
	}

	if err := c.notifier.Notify(ctx, notification); err != nil {
		c.metrics.EffectDispatchesTotal.WithLabelValues("notify", "failed").Inc()
		return err
	}
	if err := c.store.MarkDone(ctx, key, "", c.ttl); err != nil {
		c.logger.Errorf("Effect ledger write failed after notification %s: %v", key, err)
	}
	c.metrics.EffectDispatchesTotal.WithLabelValues("notify", "performed").Inc()
	return nil
}

// EmailUser sends one email under the given dedup key. Email failures are
// logged and swallowed: mail is best effort on top of the notification
// queue, never a reason to fail the operation.
func (c *Coordinator) EmailUser(ctx context.Context, key, to, subject, body string) {
	if to == "" {
		return
	}
	_, done, err := c.store.Done(ctx, key)
	if err != nil {
		c.logger.Errorf("Effect ledger read failed for email %s: %v", key, err)
		return
	}
	if done {
		c.metrics.EffectDispatchesTotal.WithLabelValues("email", "deduplicated").Inc()
		return
	}

	if err := c.email.Send(ctx, to, subject, body); err != nil {
		c.metrics.EffectDispatchesTotal.WithLabelValues("email", "failed").Inc()
		c.logger.Warnf("Failed to send email for effect %s: %v", key, err)
		return
	}
	if err := c.store.MarkDone(ctx, key, "", c.ttl); err != nil {
		c.logger.Errorf("Effect ledger write failed after email %s: %v", key, err)
	}
	c.metrics.EffectDispatchesTotal.WithLabelValues("email", "performed").Inc()
}
