package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FayezAlshami/DTC/internal/app/config"
	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/nats-io/nats.go"
)

// ChannelGateway talks to the channel worker that owns the public feed.
// Publishing is request/reply because the worker assigns the post
// reference; retraction is fire-and-forget.
type ChannelGateway struct {
	conn   *nats.Conn
	cfg    config.NATSConfig
	logger logger.Logger
}

func NewChannelGateway(conn *nats.Conn, cfg config.NATSConfig, log logger.Logger) *ChannelGateway {
	return &ChannelGateway{conn: conn, cfg: cfg, logger: log}
}

type publishRequest struct {
	ListingID      string         `json:"listing_id"`
	Kind           string         `json:"kind"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Pricing        entity.Pricing `json:"pricing"`
	Specialization string         `json:"specialization,omitempty"`
	MediaObjectKey string         `json:"media_object_key,omitempty"`
	MediaType      string         `json:"media_type,omitempty"`
}

type publishReply struct {
	PostRef string `json:"post_ref"`
	Error   string `json:"error,omitempty"`
}

type retractMessage struct {
	PostRef string `json:"post_ref"`
}

func (g *ChannelGateway) PublishListing(ctx context.Context, listing *entity.Listing) (string, error) {
	req := publishRequest{
		ListingID:      listing.ID,
		Kind:           string(listing.Kind),
		Title:          listing.Title,
		Description:    listing.Description,
		Pricing:        listing.Pricing,
		Specialization: listing.Specialization,
	}
	if listing.Media != nil {
		req.MediaObjectKey = listing.Media.ObjectKey
		req.MediaType = string(listing.Media.Type)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal publish request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()

	msg, err := g.conn.RequestWithContext(reqCtx, g.cfg.PublishSubject, data)
	if err != nil {
		g.logger.Errorf("Channel publish request failed for listing %s: %v", listing.ID, err)
		return "", entity.NewPublishError(err)
	}

	var reply publishReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return "", entity.NewPublishError(fmt.Errorf("malformed publish reply: %w", err))
	}
	if reply.Error != "" {
		return "", entity.NewPublishError(fmt.Errorf("channel worker refused listing: %s", reply.Error))
	}
	if reply.PostRef == "" {
		return "", entity.NewPublishError(fmt.Errorf("channel worker returned empty post ref"))
	}
	return reply.PostRef, nil
}

func (g *ChannelGateway) RetractPost(ctx context.Context, postRef string) error {
	data, err := json.Marshal(retractMessage{PostRef: postRef})
	if err != nil {
		return fmt.Errorf("failed to marshal retract message: %w", err)
	}
	if err := g.conn.Publish(g.cfg.RetractSubject, data); err != nil {
		g.logger.Errorf("Failed to publish retract for post %s: %v", postRef, err)
		return fmt.Errorf("failed to publish retract: %w", err)
	}
	return nil
}
