package bot

import (
	"context"
	"fmt"

	"AviaxMusic/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramMessenger implements the caller's messaging contract on the Bot
// API. Announce photos carry the stream control keyboard.
type TelegramMessenger struct {
	api *tgbotapi.BotAPI
}

// NewTelegramMessenger wraps an authorized Bot API client.
func NewTelegramMessenger(api *tgbotapi.BotAPI) *TelegramMessenger {
	return &TelegramMessenger{api: api}
}

// streamMarkup is the inline keyboard attached to now-playing messages.
// Callback data embeds the voice-chat ID so a control pressed in the
// announce chat reaches the right call.
func streamMarkup(voiceChatID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏸", fmt.Sprintf("cb_pause|%d", voiceChatID)),
			tgbotapi.NewInlineKeyboardButtonData("▶️", fmt.Sprintf("cb_resume|%d", voiceChatID)),
			tgbotapi.NewInlineKeyboardButtonData("⏭", fmt.Sprintf("cb_skip|%d", voiceChatID)),
			tgbotapi.NewInlineKeyboardButtonData("⏹", fmt.Sprintf("cb_stop|%d", voiceChatID)),
		),
	)
}

// SendText sends a plain message and returns its handle.
func (m *TelegramMessenger) SendText(ctx context.Context, chatID int64, text string) (model.MessageRef, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := m.api.Send(msg)
	if err != nil {
		return model.MessageRef{}, fmt.Errorf("send message: %w", err)
	}
	return model.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// EditText replaces the text of a previously sent message.
func (m *TelegramMessenger) EditText(ctx context.Context, ref model.MessageRef, text string) error {
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	if _, err := m.api.Send(edit); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// Delete removes a previously sent message.
func (m *TelegramMessenger) Delete(ctx context.Context, ref model.MessageRef) error {
	del := tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)
	if _, err := m.api.Request(del); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// SendPhoto sends an announce photo with the control keyboard and returns
// its handle.
func (m *TelegramMessenger) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, voiceChatID int64) (model.MessageRef, error) {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	msg.Caption = caption
	msg.ReplyMarkup = streamMarkup(voiceChatID)
	sent, err := m.api.Send(msg)
	if err != nil {
		return model.MessageRef{}, fmt.Errorf("send photo: %w", err)
	}
	return model.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}
