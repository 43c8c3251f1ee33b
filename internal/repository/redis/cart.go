package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/partsquote/internal/domain"
	apperrors "github.com/utafrali/partsquote/pkg/errors"
)

const keyPrefix = "quote_cart:"

// CartRepository implements repository.CartRepository using Redis. Each
// cart is one JSON blob under quote_cart:<session> with a sliding TTL.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration, logger *slog.Logger) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// envelope mirrors domain.QuoteCart with items left undecoded so that one
// bad line cannot poison the whole cart.
type envelope struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Schema    int               `json:"schema"`
	Version   int               `json:"version"`
	Items     []json.RawMessage `json:"items"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Get loads the cart for sessionID.
func (r *CartRepository) Get(ctx context.Context, sessionID string) (*domain.QuoteCart, error) {
	data, err := r.client.Get(ctx, key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("quote cart", sessionID)
		}
		return nil, fmt.Errorf("redis get quote cart: %w", err)
	}

	cart, dropped, err := decodeCart(data)
	if err != nil {
		r.logger.WarnContext(ctx, "discarding unreadable quote cart",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.NotFound("quote cart", sessionID)
	}
	if dropped > 0 {
		r.logger.WarnContext(ctx, "dropped unreadable quote cart lines",
			slog.String("session_id", sessionID),
			slog.Int("dropped", dropped),
			slog.Int("kept", len(cart.Items)),
		)
	}

	cart.SessionID = sessionID
	return cart, nil
}

// decodeCart parses a stored blob. A broken envelope or an unknown schema
// fails the whole blob; a broken or invalid line is skipped and counted.
func decodeCart(data []byte) (*domain.QuoteCart, int, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", domain.ErrRehydration, err)
	}
	if env.Schema > domain.CartSchemaVersion {
		return nil, 0, fmt.Errorf("%w: unsupported schema %d", domain.ErrRehydration, env.Schema)
	}

	cart := &domain.QuoteCart{
		ID:        env.ID,
		SessionID: env.SessionID,
		Schema:    domain.CartSchemaVersion,
		Version:   env.Version,
		Items:     make([]domain.QuoteItem, 0, len(env.Items)),
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
		ExpiresAt: env.ExpiresAt,
	}

	dropped := 0
	for _, raw := range env.Items {
		var item domain.QuoteItem
		if err := json.Unmarshal(raw, &item); err != nil {
			dropped++
			continue
		}
		if err := item.Validate(); err != nil {
			dropped++
			continue
		}
		cart.Items = append(cart.Items, item)
	}

	return cart, dropped, nil
}

// storedVersion reads the optimistic-lock counter and cart ID inside a
// WATCH. A missing blob, or one Get would discard, counts as version 0.
func storedVersion(ctx context.Context, tx *redis.Tx, k string) (int, string, error) {
	data, err := tx.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, "", nil
		}
		return 0, "", err
	}
	stored, _, err := decodeCart(data)
	if err != nil {
		return 0, "", nil
	}
	return stored.Version, stored.ID, nil
}

// Save writes cart when the stored version and cart ID match cart. On success
// cart.Version is incremented and ExpiresAt pushed out by the TTL.
func (r *CartRepository) Save(ctx context.Context, cart *domain.QuoteCart) error {
	k := key(cart.SessionID)
	now := r.now().UTC()

	next := *cart
	next.Schema = domain.CartSchemaVersion
	next.Version = cart.Version + 1
	next.ExpiresAt = now.Add(r.ttl)
	if next.Items == nil {
		next.Items = []domain.QuoteItem{}
	}

	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal quote cart: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, storedID, err := storedVersion(ctx, tx, k)
		if err != nil {
			return fmt.Errorf("redis read quote cart version: %w", err)
		}
		// A cart deleted and recreated under the session can reach the same
		// version, so the ID has to match too.
		if current != cart.Version || (current > 0 && storedID != cart.ID) {
			return versionConflict(cart.SessionID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, r.ttl)
			return nil
		})
		return err
	}, k)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return versionConflict(cart.SessionID)
		}
		if errors.Is(err, apperrors.ErrConflict) {
			return err
		}
		return fmt.Errorf("redis set quote cart: %w", err)
	}

	cart.Schema = next.Schema
	cart.Version = next.Version
	cart.ExpiresAt = next.ExpiresAt
	return nil
}

func versionConflict(sessionID string) error {
	return apperrors.Conflict("CONFLICT", fmt.Sprintf("quote cart for session %s was modified concurrently", sessionID))
}

// Delete removes the cart for sessionID.
func (r *CartRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del quote cart: %w", err)
	}
	return nil
}
