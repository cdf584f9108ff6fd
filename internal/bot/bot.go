package bot

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"customs-calc/internal/intake"
	"customs-calc/internal/service"
	"customs-calc/internal/tariff"
	"customs-calc/pkg/config"
	"customs-calc/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const updateTimeout = 30 * time.Second

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot is the Telegram transport over the dialogue service.
type Bot struct {
	api               API
	dialogue          *service.DialogueService
	calc              *service.CalculationService
	developerID       int64
	developerUsername string
	historyLimit      int
	now               func() time.Time
	logger            *zap.Logger
	wg                sync.WaitGroup
}

func New(
	api API,
	dialogue *service.DialogueService,
	calc *service.CalculationService,
	cfg *config.TelegramConfig,
	historyLimit int,
	logger *zap.Logger,
) *Bot {
	return &Bot{
		api:               api,
		dialogue:          dialogue,
		calc:              calc,
		developerID:       cfg.DeveloperID,
		developerUsername: cfg.DeveloperUsername,
		historyLimit:      historyLimit,
		now:               time.Now,
		logger:            logger,
	}
}

// Run long-polls for updates until ctx is cancelled, handling each update
// in its own goroutine. In-flight updates are drained before Run returns.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot started polling")
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("Bot stopped polling")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer b.wg.Done()
				uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), updateTimeout)
				defer cancel()
				b.HandleUpdate(uctx, update)
			}(update)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic while handling update", zap.Int("update_id", update.UpdateID), zap.Any("panic", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func userOf(u *tgbotapi.User) service.User {
	if u == nil {
		return service.User{}
	}
	return service.User{ID: u.ID, Username: u.UserName}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user := userOf(msg.From)
	chatID := msg.Chat.ID
	log := logger.ForUser(b.logger, user.ID, user.Username)

	if msg.IsCommand() {
		log.Debug("Command received", zap.String("command", msg.Command()))
		switch msg.Command() {
		case "start":
			b.dialogue.Start(user)
			b.send(chatID, htmlMessage(chatID, welcomeText, mainMenu()))
		case "pension":
			b.send(chatID, htmlMessage(chatID, pensionText, nil))
		case "rates":
			b.sendReply(chatID, b.dialogue.LookupRates(user))
		case "history":
			b.sendHistory(ctx, chatID, user)
		case "stats":
			b.sendStats(ctx, chatID, user)
		case "export":
			b.sendExport(ctx, chatID, user)
		default:
			b.send(chatID, htmlMessage(chatID, menuText, mainMenu()))
		}
		return
	}

	switch msg.Text {
	case menuCar:
		b.startCategory(ctx, chatID, user, tariff.GroupCar)
	case menuTruck:
		b.startCategory(ctx, chatID, user, tariff.GroupTruck)
	case menuMoto:
		b.startCategory(ctx, chatID, user, tariff.GroupMotorcycle)
	case menuRates:
		b.sendReply(chatID, b.dialogue.LookupRates(user))
	case menuContact:
		b.send(chatID, htmlMessage(chatID, contactText(b.developerUsername), nil))
	case menuHistory:
		b.sendHistory(ctx, chatID, user)
	default:
		b.sendReply(chatID, b.dialogue.Reply(ctx, user, msg.Text))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback", zap.String("callback_id", cb.ID), zap.Error(err))
	}
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	user := userOf(cb.From)
	b.sendReply(cb.Message.Chat.ID, b.dialogue.Reply(ctx, user, cb.Data))
}

func (b *Bot) startCategory(ctx context.Context, chatID int64, user service.User, group tariff.Group) {
	b.dialogue.Start(user)
	b.sendReply(chatID, b.dialogue.Reply(ctx, user, string(group)))
}

func (b *Bot) sendReply(chatID int64, r service.Reply) {
	for _, msg := range b.messagesFor(chatID, r) {
		b.send(chatID, msg)
	}
}

// messagesFor renders one dialogue turn. A rejected answer on a free-text
// prompt gets only the error; choice prompts are repeated with their keyboard.
func (b *Bot) messagesFor(chatID int64, r service.Reply) []tgbotapi.MessageConfig {
	switch {
	case r.Result != nil:
		return []tgbotapi.MessageConfig{htmlMessage(chatID, resultText(r.Result.Breakdown, b.now()), mainMenu())}
	case r.Rates != nil:
		return []tgbotapi.MessageConfig{htmlMessage(chatID, ratesText(*r.Rates), mainMenu())}
	}

	var out []tgbotapi.MessageConfig
	if r.Err != nil {
		out = append(out, htmlMessage(chatID, errorText(r.Err), nil))
		if r.Prompt.Kind != intake.KindChoice {
			return out
		}
	}
	return append(out, promptMessage(chatID, r.Prompt))
}

func promptMessage(chatID int64, p intake.Prompt) tgbotapi.MessageConfig {
	if p.State == intake.StateChoosingCategory {
		return htmlMessage(chatID, promptText(p), mainMenu())
	}
	if p.Kind == intake.KindChoice {
		return htmlMessage(chatID, promptText(p), optionsKeyboard(p.Options))
	}
	return htmlMessage(chatID, promptText(p), nil)
}

func htmlMessage(chatID int64, text string, markup interface{}) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	return msg
}

func (b *Bot) send(chatID int64, c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendHistory(ctx context.Context, chatID int64, user service.User) {
	rows, err := b.calc.History(ctx, user.ID, b.historyLimit)
	if err != nil {
		logger.ForUser(b.logger, user.ID, user.Username).Error("Failed to read history", zap.Error(err))
		b.send(chatID, htmlMessage(chatID, historyFailed, nil))
		return
	}
	b.send(chatID, htmlMessage(chatID, historyText(rows), nil))
}

func (b *Bot) isDeveloper(user service.User) bool {
	return b.developerID != 0 && user.ID == b.developerID
}

func (b *Bot) sendStats(ctx context.Context, chatID int64, user service.User) {
	if !b.isDeveloper(user) {
		b.send(chatID, htmlMessage(chatID, noAccessText, nil))
		return
	}
	stats, err := b.calc.Stats(ctx)
	if err != nil {
		b.logger.Error("Failed to read stats", zap.Error(err))
		b.send(chatID, htmlMessage(chatID, statsFailed, nil))
		return
	}
	b.send(chatID, htmlMessage(chatID, statsText(stats), nil))
}

func (b *Bot) sendExport(ctx context.Context, chatID int64, user service.User) {
	if !b.isDeveloper(user) {
		return
	}
	var buf bytes.Buffer
	n, err := b.calc.Export(ctx, &buf)
	if err != nil {
		b.logger.Error("Failed to export calculations", zap.Error(err))
		b.send(chatID, htmlMessage(chatID, exportFailed, nil))
		return
	}
	if n == 0 {
		b.send(chatID, htmlMessage(chatID, emptyExport, nil))
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("calculations_%s.csv", b.now().UTC().Format("20060102_150405")),
		Bytes: buf.Bytes(),
	})
	doc.Caption = exportCaption
	b.send(chatID, doc)
	b.logger.Info("Calculations exported", zap.Int("rows", n))
}
