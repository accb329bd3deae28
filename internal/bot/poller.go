package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"push-service/internal/store"
	"push-service/internal/telegram"
	"push-service/internal/transport"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const startPrefix = "/start "

const confirmationText = "Your Telegram transport has been configured. " +
	"You can now receive notifications from simple push service."

// BindStore is the slice of the repository the inbound binder needs.
type BindStore interface {
	UserByOpenID(ctx context.Context, openID uuid.UUID) (*store.User, error)
	TransportByUserIDAndType(ctx context.Context, userID int64, transportType string) (*store.Transport, error)
	BindTransportChat(ctx context.Context, userID int64, transportType, chatID string, username *string) error
	CreateTransport(ctx context.Context, transport *store.Transport) (int64, error)
}

// Poller long-polls the bot provider for "/start <open_id>" messages and
// binds the sending chat to the matching user's telegram transport. A broken
// update is logged and swallowed; the loop never dies on one.
type Poller struct {
	client  *telegram.Client
	store   BindStore
	driver  transport.Driver
	logger  *zap.Logger
	offset  int64
	running atomic.Bool
	done    chan struct{}
}

func NewPoller(client *telegram.Client, bindStore BindStore, driver transport.Driver, logger *zap.Logger) *Poller {
	return &Poller{
		client: client,
		store:  bindStore,
		driver: driver,
		logger: logger,
	}
}

func (p *Poller) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("already running")
	}

	p.done = make(chan struct{})
	go p.poll(ctx)
	return nil
}

func (p *Poller) Stop(ctx context.Context) error {
	if !p.running.CompareAndSwap(true, false) {
		return nil
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) poll(ctx context.Context) {
	defer close(p.done)

	p.logger.Info("bot poller started")

	for p.running.Load() && ctx.Err() == nil {
		updates, err := p.client.GetUpdates(ctx, &telegram.GetUpdatesRequest{
			Offset:         p.offset,
			Limit:          100,
			Timeout:        5,
			AllowedUpdates: []string{"message"},
		})
		if err != nil {
			p.logger.Error("getUpdates failed", zap.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
			continue
		}

		for i := range updates {
			update := &updates[i]
			if update.UpdateID >= p.offset {
				p.offset = update.UpdateID + 1
			}
			if update.Message == nil {
				continue
			}
			if err := p.handleMessage(ctx, update.Message); err != nil {
				p.logger.Error("failed to handle update",
					zap.Int64("update_id", update.UpdateID), zap.Error(err))
			}
		}
	}

	p.logger.Info("bot poller stopped")
}

func (p *Poller) handleMessage(ctx context.Context, message *telegram.Message) error {
	if message.Text == nil || !strings.HasPrefix(*message.Text, startPrefix) {
		return nil
	}

	openID, err := uuid.Parse(strings.TrimSpace((*message.Text)[len(startPrefix):]))
	if err != nil {
		// Not one of ours; ignore.
		return nil
	}

	user, err := p.store.UserByOpenID(ctx, openID)
	if errors.Is(err, store.ErrNotFound) {
		p.logger.Warn("start command for unknown open_id", zap.String("open_id", openID.String()))
		return nil
	}
	if err != nil {
		return err
	}

	chatID := strconv.FormatInt(message.Chat.ID, 10)

	_, err = p.store.TransportByUserIDAndType(ctx, user.ID, store.TransportTelegram)
	switch {
	case err == nil:
		if err := p.store.BindTransportChat(ctx, user.ID, store.TransportTelegram, chatID, message.Chat.Username); err != nil {
			return err
		}
	case errors.Is(err, store.ErrNotFound):
		_, err := p.store.CreateTransport(ctx, &store.Transport{
			UserID:       user.ID,
			Type:         store.TransportTelegram,
			ChatID:       &chatID,
			Username:     message.Chat.Username,
			Connected:    true,
			CreationTime: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
	default:
		return err
	}

	return p.driver.Push(ctx, chatID, "", confirmationText)
}
