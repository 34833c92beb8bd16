package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

// Min interval between any two Telegram messages to avoid 429 Too Many
// Requests (~30/min limit).
const telegramSendInterval = 2 * time.Second

var hundred = decimal.NewFromInt(100)

// Deduper decides whether an opportunity was already announced recently.
// Backed by redis in production; nil means announce everything.
type Deduper interface {
	SeenRecently(ctx context.Context, key string) (bool, error)
}

// TelegramNotifier sends arbitrage alerts to the configured chats. Sends
// are queued and rate limited on a background goroutine so a slow Telegram
// API never delays the pipeline.
type TelegramNotifier struct {
	chatIDs  []int64
	dedup    Deduper
	send     func(chatID int64, text string) error
	interval time.Duration

	queue  chan string
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewTelegramNotifier creates and starts a notifier. Returns nil when the
// bot cannot be created; callers treat a nil notifier as "notifications
// disabled".
func NewTelegramNotifier(token string, chatIDs []int64, dedup Deduper) *TelegramNotifier {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("Failed to create telegram bot", "error", err)
		return nil
	}
	bot.Debug = false

	ctx, cancel := context.WithCancel(context.Background())
	n := &TelegramNotifier{
		chatIDs: chatIDs,
		dedup:   dedup,
		send: func(chatID int64, text string) error {
			_, err := bot.Send(tgbotapi.NewMessage(chatID, text))
			return err
		},
		interval: telegramSendInterval,
		queue:    make(chan string, 128),
		ctx:      ctx,
		cancel:   cancel,
	}
	n.wg.Add(1)
	go n.sender()
	return n
}

// NotifyReport queues one message per newly seen profitable opportunity.
func (n *TelegramNotifier) NotifyReport(ctx context.Context, r *CycleReport) {
	if n == nil {
		return
	}
	for _, opp := range r.Profitable() {
		key := fmt.Sprintf("%s|%s|%s|%s|%s",
			opp.BackSource, opp.HomeName, opp.AwayName, opp.Outcome, opp.Spread.StringFixed(3))
		if n.dedup != nil {
			seen, err := n.dedup.SeenRecently(ctx, key)
			if err != nil {
				slog.Warn("Notifier: dedup check failed, sending anyway", "error", err)
			} else if seen {
				continue
			}
		}

		var b strings.Builder
		fmt.Fprintf(&b, "⚽ %s vs %s\n", opp.HomeName, opp.AwayName)
		fmt.Fprintf(&b, "Outcome: %s\n", opp.Outcome)
		fmt.Fprintf(&b, "Lay %s @ %s | Back %s @ %s\n",
			opp.LaySource, opp.LayPrice.StringFixed(2), opp.BackSource, opp.BackPrice.StringFixed(2))
		spreadPct := opp.Spread.Mul(hundred)
		fmt.Fprintf(&b, "Spread: %s%%\n", spreadPct.StringFixed(1))
		if opp.LayLink != "" {
			fmt.Fprintf(&b, "%s\n", opp.LayLink)
		}
		if opp.BackLink != "" {
			fmt.Fprintf(&b, "%s\n", opp.BackLink)
		}

		select {
		case n.queue <- b.String():
		default:
			slog.Warn("Notifier: queue full, dropping alert", "match", opp.HomeName+" vs "+opp.AwayName)
		}
	}
}

// sender drains the queue with the minimum interval between any two sends.
// The interval applies per message, not per queue entry: fanning one alert
// out to N chats is N paced sends, staying under the API rate limit.
func (n *TelegramNotifier) sender() {
	defer n.wg.Done()
	var lastSend time.Time
	for {
		select {
		case <-n.ctx.Done():
			return
		case text := <-n.queue:
			for _, chatID := range n.chatIDs {
				if wait := n.interval - time.Since(lastSend); wait > 0 {
					select {
					case <-n.ctx.Done():
						return
					case <-time.After(wait):
					}
				}
				if err := n.send(chatID, text); err != nil {
					slog.Error("Notifier: telegram send failed", "chat_id", chatID, "error", err)
				}
				lastSend = time.Now()
			}
		}
	}
}

// Close stops the sender goroutine. Queued but unsent messages are dropped.
func (n *TelegramNotifier) Close() {
	if n == nil {
		return
	}
	n.cancel()
	n.wg.Wait()
}
