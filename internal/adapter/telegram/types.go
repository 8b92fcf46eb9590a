package telegram

import (
	"time"

	"github.com/solislegal/leadbot/internal/domain"
)

// Update is the webhook payload shape delivered by the Bot API.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
	Date      int64  `json:"date"`
}

// CallbackQuery is an inline-keyboard tap.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from"`
	Data    string   `json:"data"`
	Message *Message `json:"message"`
}

// User identifies the caller.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

// Chat identifies where to reply.
type Chat struct {
	ID int64 `json:"id"`
}

// Event converts an Update into the dispatcher's inbound event. A second
// return of false means the update carries nothing dispatchable.
func (u Update) Event() (domain.Event, bool) {
	switch {
	case u.Message != nil && u.Message.From != nil:
		ev := domain.Event{
			CallerID:   u.Message.From.ID,
			ChatID:     u.Message.Chat.ID,
			Username:   u.Message.From.Username,
			Lang:       u.Message.From.LanguageCode,
			Text:       u.Message.Text,
			ReceivedAt: time.Unix(u.Message.Date, 0),
		}
		if ev.ReceivedAt.Before(time.Unix(1, 0)) {
			ev.ReceivedAt = time.Now()
		}
		return ev, true
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		ev := domain.Event{
			CallerID:   u.CallbackQuery.From.ID,
			Username:   u.CallbackQuery.From.Username,
			Lang:       u.CallbackQuery.From.LanguageCode,
			CallbackID: u.CallbackQuery.ID,
			Data:       u.CallbackQuery.Data,
			ReceivedAt: time.Now(),
		}
		if u.CallbackQuery.Message != nil {
			ev.ChatID = u.CallbackQuery.Message.Chat.ID
		}
		return ev, true
	default:
		return domain.Event{}, false
	}
}
