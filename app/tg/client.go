package tg

import (
	"context"
	"log/slog"
	"time"

	"toughturtle/app/events"
	"toughturtle/app/strava"
	"toughturtle/app/tracker"
	"toughturtle/app/utils"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// BotSender is the part of *bot.Bot the handlers need.
type BotSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// linkTokenTTL bounds how long a redeemed link token is remembered. It must outlive the token itself.
const linkTokenTTL = time.Hour

type Telegram struct {
	APIKey  string
	Bot     BotSender
	Tracker *tracker.Tracker
	JWT     utils.JWT
	Events  <-chan events.Event
	// Ledger makes every link token single use.
	Ledger  strava.CodeLedger
}

func NewTelegramClient(apiKey string, tr *tracker.Tracker, jwt utils.JWT, updates <-chan events.Event) *Telegram {
	return &Telegram{
		APIKey:  apiKey,
		Tracker: tr,
		JWT:     jwt,
		Events:  updates,
		Ledger:  strava.NewMemoryLedger(linkTokenTTL),
	}
}

// Start runs the bot and the notification loop until ctx is cancelled.
func (tg *Telegram) Start(ctx context.Context) error {
	b, err := bot.New(tg.APIKey, bot.WithDefaultHandler(tg.defaultHandler))
	if err != nil {
		slog.Error("error occured when spinning up the bot", "err", err)
		return err
	}
	tg.Bot = b
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, tg.startHandler)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact, tg.statsHandler)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/challenges", bot.MatchTypeExact, tg.challengesHandler)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/leaderboard", bot.MatchTypeExact, tg.leaderboardHandler)
	go b.Start(ctx)

	slog.Info("telegram bot started")
	tg.Notify(ctx)
	return nil
}

// Notify forwards tracker events to linked chats until ctx is done or the channel closes.
func (tg *Telegram) Notify(ctx context.Context) {
	if tg.Events == nil {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-tg.Events:
			if !ok {
				return
			}
			tg.notify(ctx, e)
		}
	}
}

func (tg *Telegram) notify(ctx context.Context, e events.Event) {
	text, ok := notificationText(e)
	if !ok {
		return
	}
	usr, err := tg.Tracker.User(ctx, e.UserID)
	if err != nil {
		slog.Error("failed to load user for notification", "err", err, "userID", e.UserID, "type", e.Type)
		return
	}
	if usr.TelegramChatId == nil {
		return
	}
	tg.SendMessage(ctx, *usr.TelegramChatId, text)
}

func (tg *Telegram) defaultHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	tg.SendMessage(ctx, update.Message.Chat.ID, helpMessage)
}

func (tg *Telegram) SendMessage(ctx context.Context, chatID int64, msg string) {
	_, err := tg.Bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   msg,
	})
	if err != nil {
		slog.Error("error while sending a message", "err", err, "chatID", chatID)
	}
}
