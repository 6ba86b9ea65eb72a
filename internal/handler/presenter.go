// Package handler provides Telegram bot command and callback handlers.
package handler

import (
	"context"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"telegram-trivia-bot/internal/game"
)

// TelegramPresenter delivers engine output through telebot. It is the
// engine's injected presentation capability; the engine itself never
// touches the transport.
type TelegramPresenter struct {
	bot *tele.Bot
}

// NewTelegramPresenter creates a presenter bound to a bot instance.
func NewTelegramPresenter(bot *tele.Bot) *TelegramPresenter {
	return &TelegramPresenter{bot: bot}
}

// Present sends content to a chat and returns the message reference for
// later edits or removal.
func (p *TelegramPresenter) Present(_ context.Context, chatID int64, content game.Content) (game.MessageRef, error) {
	recipient := tele.ChatID(chatID)
	opts := sendOptions(content)

	var (
		msg *tele.Message
		err error
	)
	if content.ImageURL != "" {
		photo := &tele.Photo{File: tele.FromURL(content.ImageURL), Caption: content.Text}
		msg, err = p.bot.Send(recipient, photo, opts)
		if err != nil {
			// Fall back to plain text when the image cannot be delivered;
			// the question must still reach the chat.
			msg, err = p.bot.Send(recipient, content.Text, opts)
		}
	} else {
		msg, err = p.bot.Send(recipient, content.Text, opts)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return game.MessageRef(msg.ID), nil
}

// Update edits a previously presented message in place.
func (p *TelegramPresenter) Update(_ context.Context, chatID int64, ref game.MessageRef, content game.Content) error {
	stored := &tele.StoredMessage{
		MessageID: strconv.Itoa(int(ref)),
		ChatID:    chatID,
	}
	if _, err := p.bot.Edit(stored, content.Text, sendOptions(content)); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// Remove deletes a previously presented message.
func (p *TelegramPresenter) Remove(_ context.Context, chatID int64, ref game.MessageRef) error {
	msg := &tele.Message{
		ID:   int(ref),
		Chat: &tele.Chat{ID: chatID},
	}
	if err := p.bot.Delete(msg); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// sendOptions converts engine buttons to an inline keyboard.
func sendOptions(content game.Content) *tele.SendOptions {
	opts := &tele.SendOptions{}
	if len(content.Buttons) > 0 {
		keyboard := make([][]tele.InlineButton, 0, len(content.Buttons))
		for _, row := range content.Buttons {
			teleRow := make([]tele.InlineButton, 0, len(row))
			for _, btn := range row {
				teleRow = append(teleRow, tele.InlineButton{
					Text: btn.Label,
					Data: btn.Data,
				})
			}
			keyboard = append(keyboard, teleRow)
		}
		opts.ReplyMarkup = &tele.ReplyMarkup{InlineKeyboard: keyboard}
	}
	return opts
}
