package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Linker привязывает чат к аккаунту по одноразовому коду
type Linker interface {
	LinkTelegram(ctx context.Context, code string, chatID int64) (*model.User, error)
}

const helpText = "Tutor Market notifications bot\n\n" +
	"1. Open your profile in the app and request a Telegram link code.\n" +
	"2. Send /start <code> here.\n\n" +
	"After that you will receive messages about bookings, cancellations and reviews.\n\n" +
	"/start <code> - link this chat to your account\n" +
	"/help - show this message"

type BotController struct {
	bot    *bot.Bot
	linker Linker
	logger *zap.Logger
}

func NewBotController(b *bot.Bot, linker Linker, logger *zap.Logger) *BotController {
	return &BotController{bot: b, linker: linker, logger: logger}
}

// RegisterHandlers регистрирует команды и меню бота
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handleHelp)

	return c.setCommands(ctx)
}

func (c *BotController) setCommands(ctx context.Context) error {
	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: []models.BotCommand{
			{Command: "start", Description: "Link this chat: /start <code>"},
			{Command: "help", Description: "How notifications work"},
		},
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting telegram bot")
	c.bot.Start(ctx)
}

func (c *BotController) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	c.send(ctx, b, chatID, c.startReply(ctx, chatID, update.Message.Text))
}

func (c *BotController) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	c.send(ctx, b, update.Message.Chat.ID, helpText)
}

// startReply разбирает "/start <code>" и возвращает текст ответа
func (c *BotController) startReply(ctx context.Context, chatID int64, text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return helpText
	}

	user, err := c.linker.LinkTelegram(ctx, fields[1], chatID)
	switch {
	case err == nil:
		c.logger.Debug("Linked from bot", zap.Int64("user_id", user.ID), zap.Int64("chat_id", chatID))
		return fmt.Sprintf("Hi, %s! This chat is now linked to your account (%s).", user.FullName(), user.Role)
	case errors.Is(err, apperror.ErrValidation):
		return "This code is invalid or has expired. Request a new one in your profile."
	default:
		c.logger.Error("Failed to link telegram chat", zap.Int64("chat_id", chatID), zap.Error(err))
		return "Something went wrong, please try again later."
	}
}

func (c *BotController) send(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		c.logger.Warn("Failed to send telegram message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
