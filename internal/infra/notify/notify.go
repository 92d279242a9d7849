// Package notify шлёт текстовые уведомления администратору барбершопа.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var ErrUnavailable = errors.New("notify: telegram client unavailable")

const (
	// SendTimeout ограничивает одно уведомление вместе с ленивой инициализацией.
	SendTimeout = 10 * time.Second
	apiTimeout  = 15 * time.Second
)

// Nop — уведомления выключены (нет токена).
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

type state int

const (
	stateUninitialized state = iota
	stateInitializing
	stateReady
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateInitializing:
		return "initializing"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Sender — часть *tgbotapi.BotAPI, которой мы пользуемся.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Dialer создаёт клиента Bot API. NewBotAPI ходит в getMe, поэтому зовём его лениво.
type Dialer func(token string) (Sender, error)

func DialBotAPI(token string) (Sender, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: apiTimeout})
	if err != nil {
		return nil, err
	}
	return api, nil
}

// Telegram создаёт клиента при первой отправке, ровно один раз.
// Неудачная инициализация запоминается: дальше отправки не делаются.
type Telegram struct {
	token  string
	chatID int64
	dial   Dialer
	log    *slog.Logger

	timeout time.Duration

	mu      sync.Mutex
	cond    *sync.Cond
	state   state
	api     Sender
	initErr error
}

func NewTelegram(token string, chatID int64, dial Dialer, log *slog.Logger) *Telegram {
	if dial == nil {
		dial = DialBotAPI
	}
	t := &Telegram{token: token, chatID: chatID, dial: dial, log: log, timeout: SendTimeout}
	t.cond = sync.NewCond(&t.mu)
	return t
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// New выбирает реализацию по конфигу.
func New(token string, chatID int64, log *slog.Logger) Notifier {
	if token == "" || chatID == 0 {
		log.Info("telegram notifier disabled")
		return Nop{}
	}
	return NewTelegram(token, chatID, nil, log)
}

// Notify ждёт отправку не дольше timeout. Зависший запрос к Bot API
// дорабатывает в фоне и обрывается таймаутом HTTP-клиента.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- t.send(text) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		t.log.Warn("telegram send timed out", "chat_id", t.chatID, "err", ctx.Err())
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}

func (t *Telegram) send(text string) error {
	api, err := t.client()
	if err != nil {
		return err
	}
	if _, err := api.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (t *Telegram) client() (Sender, error) {
	t.mu.Lock()
	for t.state == stateInitializing {
		t.cond.Wait()
	}
	switch t.state {
	case stateReady:
		api := t.api
		t.mu.Unlock()
		return api, nil
	case stateFailed:
		err := t.initErr
		t.mu.Unlock()
		return nil, err
	}
	t.state = stateInitializing
	t.mu.Unlock()

	api, err := t.dial(t.token)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.state = stateFailed
		t.initErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
		t.log.Error("telegram init failed, notifications disabled", "err", err)
	} else {
		t.state = stateReady
		t.api = api
		t.log.Info("telegram notifier ready", "chat_id", t.chatID)
	}
	t.cond.Broadcast()
	return t.api, t.initErr
}

func (t *Telegram) currentState() state {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
