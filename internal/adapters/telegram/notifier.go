package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"futuresbot/internal/domain"
	"futuresbot/internal/ports"
)

// Notifier pushes engine events to Telegram. Signals, trades and fatal errors
// each go to their own chat so subscribers can pick what they care about.
// With no bot token configured the notifier degrades to log-only mode.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	logger ports.Logger

	signalsChatID     int64
	tradesChatID      int64
	fatalErrorsChatID int64
}

// Config holds the Telegram notifier settings.
type Config struct {
	BotToken string
	Logger   ports.Logger

	SignalsChatID     int64
	TradesChatID      int64
	FatalErrorsChatID int64
}

// New creates a Telegram notifier. An empty bot token is not an error; the
// notifier then only logs what it would have sent.
func New(cfg Config) (*Notifier, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Telegram notifier")
	}

	n := &Notifier{
		logger:            cfg.Logger,
		signalsChatID:     cfg.SignalsChatID,
		tradesChatID:      cfg.TradesChatID,
		fatalErrorsChatID: cfg.FatalErrorsChatID,
	}
	if cfg.BotToken == "" {
		cfg.Logger.Warn(context.Background(), "Telegram bot token not set, notifications will only be logged")
		return n, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	n.bot = bot
	cfg.Logger.Info(context.Background(), "Telegram notifier ready", map[string]interface{}{
		"botUser": bot.Self.UserName,
	})
	return n, nil
}

// NotifySignal announces a newly recorded market signal on the signals chat.
func (n *Notifier) NotifySignal(ctx context.Context, signal *domain.MarketSignal) error {
	return n.send(ctx, n.signalsChatID, formatSignal(signal))
}

// NotifyTrade announces the outcome of an open-position attempt.
func (n *Notifier) NotifyTrade(ctx context.Context, message string) error {
	return n.send(ctx, n.tradesChatID, message)
}

// NotifyFatalError routes an uncaught per-currency failure to operators.
func (n *Notifier) NotifyFatalError(ctx context.Context, err error) error {
	return n.send(ctx, n.fatalErrorsChatID, fmt.Sprintf("FATAL ERROR\n%s", err.Error()))
}

func (n *Notifier) send(ctx context.Context, chatID int64, text string) error {
	if n.bot == nil || chatID == 0 {
		n.logger.Info(ctx, "Notification (not sent)", map[string]interface{}{"text": text})
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message to chat %d: %w", chatID, err)
	}
	return nil
}

func formatSignal(signal *domain.MarketSignal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s [%s]\n", signal.Currency, signal.Type, signal.Timeframe)
	fmt.Fprintf(&b, "Time: %s\n", signal.Timestamp.UTC().Format("2006-01-02 15:04:05"))
	if signal.Action() == domain.ActionEntry {
		fmt.Fprintf(&b, "Entry: %.8g\n", signal.EntryPrice)
		fmt.Fprintf(&b, "Stop loss: %.8g (%.2f%%)\n", signal.StopLossPrice, signal.StopLossPercent)
		fmt.Fprintf(&b, "Take profit: %.8g (%.2f%%)\n", signal.TakeProfitPrice, signal.TakeProfitPercent)
		fmt.Fprintf(&b, "Break even: %.8g", signal.BreakEvenPrice)
	}
	return strings.TrimRight(b.String(), "\n")
}
