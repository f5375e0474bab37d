package tg

import (
	"context"
	"errors"
	"log/slog"

	"toughturtle/app/storage/models"
	"toughturtle/app/utils"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
)

const leaderboardSize = 10

func (tg *Telegram) startHandler(ctx context.Context, _ *bot.Bot, update *botModels.Update) {
	chatID := update.Message.Chat.ID
	slog.Debug("received start command", "chatID", chatID)
	token, ok := parseStartCommand(update.Message.Text)
	if !ok {
		tg.SendMessage(ctx, chatID, welcomeMessage)
		return
	}
	userId, err := tg.JWT.GetUserIdFromToken(token, utils.PurposeTelegramLink)
	if err != nil {
		slog.Info("rejected telegram link token", "err", err, "chatID", chatID)
		tg.SendMessage(ctx, chatID, invalidLinkMessage)
		return
	}
	owner, err := tg.Tracker.UserByTelegramChat(ctx, chatID)
	switch {
	case err == nil && owner.ID != userId:
		slog.Info("chat already linked to another user", "chatID", chatID, "userID", userId)
		tg.SendMessage(ctx, chatID, chatAlreadyLinkedMessage)
		return
	case err == nil:
		tg.SendMessage(ctx, chatID, linkedMessage(owner.Username))
		return
	case !errors.Is(err, utils.ErrNotFound):
		slog.Error("failed to get user by chat", "err", err, "chatID", chatID)
		tg.SendMessage(ctx, chatID, defaultBotErrorMessage)
		return
	}
	claimed, err := tg.Ledger.Claim(ctx, token)
	if err != nil {
		slog.Error("failed to claim link token", "err", err, "chatID", chatID)
		tg.SendMessage(ctx, chatID, defaultBotErrorMessage)
		return
	}
	if !claimed {
		slog.Info("link token replayed", "chatID", chatID, "userID", userId)
		tg.SendMessage(ctx, chatID, invalidLinkMessage)
		return
	}
	if err := tg.Tracker.LinkTelegram(ctx, userId, chatID); err != nil {
		slog.Error("failed to link telegram chat", "err", err, "userID", userId, "chatID", chatID)
		tg.SendMessage(ctx, chatID, defaultBotErrorMessage)
		return
	}
	usr, err := tg.Tracker.User(ctx, userId)
	if err != nil {
		slog.Error("failed to load linked user", "err", err, "userID", userId)
		tg.SendMessage(ctx, chatID, defaultBotErrorMessage)
		return
	}
	tg.SendMessage(ctx, chatID, linkedMessage(usr.Username))
}

// linkedUser resolves the account behind a chat and answers the chat itself when there is none.
func (tg *Telegram) linkedUser(ctx context.Context, chatID int64) (*models.User, bool) {
	usr, err := tg.Tracker.UserByTelegramChat(ctx, chatID)
	if errors.Is(err, utils.ErrNotFound) {
		tg.SendMessage(ctx, chatID, notLinkedMessage)
		return nil, false
	}
	if err != nil {
		slog.Error("failed to get user by chat", "err", err, "chatID", chatID)
		tg.SendMessage(ctx, chatID, defaultBotErrorMessage)
		return nil, false
	}
	return usr, true
}

func (tg *Telegram) statsHandler(ctx context.Context, _ *bot.Bot, update *botModels.Update) {
	chatID := update.Message.Chat.ID
	usr, ok := tg.linkedUser(ctx, chatID)
	if !ok {
		return
	}
	profile, err := tg.Tracker.Profile(ctx, usr.ID)
	if err != nil {
		slog.Error("failed to build profile", "err", err, "userID", usr.ID)
		tg.SendMessage(ctx, chatID, defaultBotErrorMessage)
		return
	}
	tg.SendMessage(ctx, chatID, formatProfile(profile))
}

func (tg *Telegram) challengesHandler(ctx context.Context, _ *bot.Bot, update *botModels.Update) {
	chatID := update.Message.Chat.ID
	usr, ok := tg.linkedUser(ctx, chatID)
	if !ok {
		return
	}
	challenges, err := tg.Tracker.Challenges(ctx, usr.ID)
	if err != nil {
		slog.Error("failed to list challenges", "err", err, "userID", usr.ID)
		tg.SendMessage(ctx, chatID, defaultBotErrorMessage)
		return
	}
	tg.SendMessage(ctx, chatID, formatChallenges(challenges))
}

func (tg *Telegram) leaderboardHandler(ctx context.Context, _ *bot.Bot, update *botModels.Update) {
	chatID := update.Message.Chat.ID
	entries, err := tg.Tracker.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		slog.Error("failed to load leaderboard", "err", err)
		tg.SendMessage(ctx, chatID, defaultBotErrorMessage)
		return
	}
	tg.SendMessage(ctx, chatID, formatLeaderboard(entries))
}
