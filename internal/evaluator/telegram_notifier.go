package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vodeneev/propline/internal/pkg/config"
	"github.com/Vodeneev/propline/internal/pkg/performance"
)

// Min interval between any two Telegram messages to the same chat to avoid 429 Too Many Requests (~30/min limit).
const telegramSendInterval = 2 * time.Second

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type alertKey struct {
	bookmaker string
	league    string
	subject   string
	market    string
	label     string
	line      float64
}

// TelegramNotifier sends Telegram alerts for lines at or above the alert
// threshold. A line is alerted at most once per cooldown.
type TelegramNotifier struct {
	bot      messageSender
	chatID   int64
	minEV    float64
	cooldown time.Duration
	interval time.Duration
	metrics  *performance.Metrics

	mu       sync.Mutex
	lastSend time.Time
	alerted  map[alertKey]time.Time

	// Async queue for sending messages
	queue     chan string
	queueDone chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc

	now func() time.Time
}

// NewTelegramNotifier connects the bot and starts the send loop.
func NewTelegramNotifier(cfg config.TelegramConfig, metrics *performance.Metrics) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = false

	n := newTelegramNotifier(bot, cfg, metrics, telegramSendInterval)
	slog.Info("Telegram notifier initialized", "chat_id", cfg.ChatID, "alert_min_ev", cfg.AlertMinEV)
	return n, nil
}

func newTelegramNotifier(bot messageSender, cfg config.TelegramConfig, metrics *performance.Metrics, interval time.Duration) *TelegramNotifier {
	ctx, cancel := context.WithCancel(context.Background())
	n := &TelegramNotifier{
		bot:       bot,
		chatID:    cfg.ChatID,
		minEV:     cfg.AlertMinEV,
		cooldown:  cfg.Cooldown,
		interval:  interval,
		metrics:   metrics,
		alerted:   make(map[alertKey]time.Time),
		queue:     make(chan string, 100),
		queueDone: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
	go n.messageSender()
	return n
}

// Notify queues alerts for qualifying lines (non-blocking) and returns how
// many were queued.
func (n *TelegramNotifier) Notify(ctx context.Context, lines []EvaluatedLine) int {
	if n == nil {
		return 0
	}
	now := n.now()
	queued := 0

	n.mu.Lock()
	defer n.mu.Unlock()
	for k, at := range n.alerted {
		if now.Sub(at) >= n.cooldown {
			delete(n.alerted, k)
		}
	}

	for _, l := range lines {
		if l.EV == nil || l.ev < n.minEV {
			continue
		}
		key := alertKey{bookmaker: l.Bookmaker, league: l.League, subject: l.Subject, market: l.Market, label: l.Label, line: l.Line}
		if _, seen := n.alerted[key]; seen {
			continue
		}
		select {
		case <-n.ctx.Done():
			return queued
		case <-ctx.Done():
			return queued
		case n.queue <- formatAlert(l):
			n.alerted[key] = now
			queued++
			slog.Debug("Telegram alert queued", "subject", l.Subject, "bookmaker", l.Bookmaker, "queue_len", n.QueueLen())
		default:
			// Queue is full, log warning but don't block
			slog.Warn("Telegram message queue is full, dropping alert", "subject", l.Subject, "bookmaker", l.Bookmaker)
			return queued
		}
	}
	return queued
}

// QueueLen returns current number of messages in the send queue (for logging).
func (n *TelegramNotifier) QueueLen() int {
	if n == nil {
		return 0
	}
	return len(n.queue)
}

// Stop stops the notifier after the queued messages are sent
func (n *TelegramNotifier) Stop() {
	if n == nil {
		return
	}
	n.cancel()
	<-n.queueDone
}

// messageSender runs in background and sends queued messages with proper intervals
func (n *TelegramNotifier) messageSender() {
	defer close(n.queueDone)
	for {
		select {
		case <-n.ctx.Done():
			// Drain remaining messages before exit
			for {
				select {
				case text := <-n.queue:
					n.send(text, false)
				default:
					return
				}
			}
		case text := <-n.queue:
			n.send(text, true)
		}
	}
}

func (n *TelegramNotifier) send(text string, wait bool) {
	if wait {
		if elapsed := time.Since(n.lastSend); elapsed < n.interval {
			select {
			case <-n.ctx.Done():
			case <-time.After(n.interval - elapsed):
			}
		}
	}
	n.lastSend = time.Now()

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := n.bot.Send(msg); err != nil {
		slog.Error("Telegram send: failed", "error", err, "message_preview", truncateString(text, 50))
		return
	}
	n.metrics.IncAlerts()
	slog.Debug("Telegram send: success", "queue_length", len(n.queue))
}

func formatAlert(l EvaluatedLine) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("*EV %s*\n\n", escapeMarkdown(fmt.Sprintf("%+.1f%%", *l.EV*100))))
	if l.Game != "" {
		b.WriteString(fmt.Sprintf("*%s* \\(%s\\)\n", escapeMarkdown(l.Game), escapeMarkdown(l.League)))
	}
	b.WriteString(escapeMarkdown(fmt.Sprintf("%s | %s %s %g", l.Subject, l.Market, l.Label, l.Line)))
	b.WriteString("\n")
	b.WriteString(escapeMarkdown(fmt.Sprintf("%s @ %.2f", l.Bookmaker, l.Odds)))
	if l.FairProb != nil {
		b.WriteString(escapeMarkdown(fmt.Sprintf(" | fair %.3f", *l.FairProb)))
	}
	if l.Boosted {
		b.WriteString(" \\(boosted\\)")
	}
	if !l.GameTime.IsZero() {
		b.WriteString("\n")
		b.WriteString(escapeMarkdown("Start: " + l.GameTime.UTC().Format("2006-01-02 15:04 UTC")))
	}
	return b.String()
}

// truncateString truncates a string to maxLen runes
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)
	return replacer.Replace(text)
}
