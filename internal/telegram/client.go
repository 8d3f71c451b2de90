// Package telegram announces finished analyses through the Telegram Bot API.
// Messages list the strongest peaks of a recording with their timestamps so they
// can be jumped to directly, and delivery is retried with a linear backoff.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/chatpeaks/internal/models"
)

// sender is the part of the bot API the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	topN           int
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client. topN limits how many peaks a message lists.
func NewClient(botToken, chatID string, topN, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, topN, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, topN, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if topN <= 0 {
		topN = 5
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		topN:           topN,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendAnalysis posts a summary of a finished analysis.
func (c *Client) SendAnalysis(result *models.AnalysisResult) error {
	msg := tgbotapi.NewMessage(c.chatID, c.formatMessage(result))
	msg.ParseMode = "MarkdownV2"
	msg.DisableWebPagePreview = true

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatMessage formats the strongest peaks of an analysis into a MarkdownV2 message.
func (c *Client) formatMessage(result *models.AnalysisResult) string {
	var b strings.Builder
	stats := result.SummaryStats

	fmt.Fprintf(&b, "🎬 *%s*\n", escapeMarkdownV2(result.RecordingTitle))
	fmt.Fprintf(&b, "💬 %s messages from %s chatters, %s peaks\n\n",
		escapeMarkdownV2(humanize.Comma(int64(stats.TotalMessages))),
		escapeMarkdownV2(humanize.Comma(int64(stats.UniqueUsers))),
		escapeMarkdownV2(humanize.Comma(int64(len(result.Peaks)))),
	)

	peaks := result.Peaks
	if len(peaks) > c.topN {
		peaks = peaks[:c.topN]
	}
	for i, p := range peaks {
		fmt.Fprintf(&b, "%d\\. `%s` %s *%s*\n",
			i+1, formatTimestamp(p.TimestampSeconds), classEmoji(p.Classification), escapeMarkdownV2(string(p.Classification)))

		details := fmt.Sprintf("%s msgs, intensity %.1f", humanize.Comma(int64(p.MessageCount)), p.Intensity)
		if p.MultiWindowSupported {
			details += fmt.Sprintf(", confidence %.0f%%", p.Confidence*100)
		}
		fmt.Fprintf(&b, "   %s\n", escapeMarkdownV2(details))
	}

	if len(stats.TopEmotes) > 0 {
		names := make([]string, 0, 3)
		for _, e := range stats.TopEmotes[:min(3, len(stats.TopEmotes))] {
			names = append(names, e.Emote)
		}
		fmt.Fprintf(&b, "\n😂 Top emotes: %s\n", escapeMarkdownV2(strings.Join(names, ", ")))
	}

	return b.String()
}

func classEmoji(c models.PeakClass) string {
	switch c {
	case models.PeakEpic:
		return "🔥"
	case models.PeakMassive:
		return "🚀"
	case models.PeakMajor:
		return "⚡"
	default:
		return "📈"
	}
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

// formatTimestamp renders a recording offset as H:MM:SS.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, total%3600/60, total%60)
}
