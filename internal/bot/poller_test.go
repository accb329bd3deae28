package bot

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"push-service/internal/store"
	"push-service/internal/telegram"
)

type bindCall struct {
	userID   int64
	chatID   string
	username *string
}

type fakeBindStore struct {
	users      map[uuid.UUID]*store.User
	transports map[int64]*store.Transport
	bound      []bindCall
	created    []*store.Transport
}

func (f *fakeBindStore) UserByOpenID(ctx context.Context, openID uuid.UUID) (*store.User, error) {
	user, ok := f.users[openID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeBindStore) TransportByUserIDAndType(ctx context.Context, userID int64, transportType string) (*store.Transport, error) {
	transport, ok := f.transports[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return transport, nil
}

func (f *fakeBindStore) BindTransportChat(ctx context.Context, userID int64, transportType, chatID string, username *string) error {
	f.bound = append(f.bound, bindCall{userID, chatID, username})
	return nil
}

func (f *fakeBindStore) CreateTransport(ctx context.Context, transport *store.Transport) (int64, error) {
	f.created = append(f.created, transport)
	return int64(len(f.created)), nil
}

type fakeDriver struct {
	pushes []string
}

func (f *fakeDriver) Push(ctx context.Context, chat, title, body string) error {
	f.pushes = append(f.pushes, chat+"|"+body)
	return nil
}

func strPtr(s string) *string { return &s }

func startMessage(text string, chatID int64) *telegram.Message {
	return &telegram.Message{
		MessageID: 1,
		Chat:      telegram.Chat{ID: chatID, Type: "private", Username: strPtr("alice")},
		Text:      &text,
	}
}

func newTestPoller(bindStore *fakeBindStore, driver *fakeDriver) *Poller {
	return NewPoller(nil, bindStore, driver, zap.NewNop())
}

func TestHandleMessageCreatesTransport(t *testing.T) {
	openID := uuid.New()
	bindStore := &fakeBindStore{
		users:      map[uuid.UUID]*store.User{openID: {ID: 5, OpenID: openID}},
		transports: map[int64]*store.Transport{},
	}
	driver := &fakeDriver{}
	p := newTestPoller(bindStore, driver)

	err := p.handleMessage(context.Background(), startMessage("/start "+openID.String(), 42))
	if err != nil {
		t.Fatal(err)
	}

	if len(bindStore.created) != 1 {
		t.Fatalf("expected a new transport, got %d", len(bindStore.created))
	}
	created := bindStore.created[0]
	if created.UserID != 5 || created.Type != store.TransportTelegram || !created.Connected {
		t.Errorf("unexpected transport: %+v", created)
	}
	if created.ChatID == nil || *created.ChatID != "42" {
		t.Errorf("expected chat id 42, got %v", created.ChatID)
	}
	if len(driver.pushes) != 1 || driver.pushes[0] != "42|"+confirmationText {
		t.Errorf("expected confirmation push, got %v", driver.pushes)
	}
}

func TestHandleMessageRebindsExistingTransport(t *testing.T) {
	openID := uuid.New()
	old := "7"
	bindStore := &fakeBindStore{
		users: map[uuid.UUID]*store.User{openID: {ID: 5, OpenID: openID}},
		transports: map[int64]*store.Transport{
			5: {ID: 1, UserID: 5, Type: store.TransportTelegram, ChatID: &old, Connected: true},
		},
	}
	driver := &fakeDriver{}
	p := newTestPoller(bindStore, driver)

	err := p.handleMessage(context.Background(), startMessage("/start "+openID.String(), 42))
	if err != nil {
		t.Fatal(err)
	}

	if len(bindStore.created) != 0 {
		t.Errorf("existing transport must be rebound, not duplicated")
	}
	if len(bindStore.bound) != 1 || bindStore.bound[0].chatID != "42" {
		t.Errorf("expected rebind to chat 42, got %v", bindStore.bound)
	}
	if len(driver.pushes) != 1 {
		t.Errorf("expected confirmation push, got %v", driver.pushes)
	}
}

func TestHandleMessageUnknownOpenID(t *testing.T) {
	bindStore := &fakeBindStore{users: map[uuid.UUID]*store.User{}}
	driver := &fakeDriver{}
	p := newTestPoller(bindStore, driver)

	err := p.handleMessage(context.Background(), startMessage("/start "+uuid.NewString(), 42))
	if err != nil {
		t.Fatal(err)
	}
	if len(bindStore.created) != 0 || len(bindStore.bound) != 0 || len(driver.pushes) != 0 {
		t.Errorf("unknown open_id must be dropped silently")
	}
}

func TestHandleMessageIgnoresNoise(t *testing.T) {
	bindStore := &fakeBindStore{users: map[uuid.UUID]*store.User{}}
	driver := &fakeDriver{}
	p := newTestPoller(bindStore, driver)

	for _, text := range []string{"hello", "/start", "/start not-a-uuid"} {
		if err := p.handleMessage(context.Background(), startMessage(text, 42)); err != nil {
			t.Errorf("text %q: %v", text, err)
		}
	}
	if err := p.handleMessage(context.Background(), &telegram.Message{Chat: telegram.Chat{ID: 42}}); err != nil {
		t.Errorf("nil text: %v", err)
	}
	if len(driver.pushes) != 0 {
		t.Errorf("noise must not trigger pushes, got %v", driver.pushes)
	}
}
