package twitch

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/rewired-gh/chatpeaks/internal/models"
)

// ChatExport is a downloaded VOD chat in the v5 comment format.
type ChatExport struct {
	Video    ExportVideo     `json:"video"`
	Comments []ChatComment   `json:"comments"`
	Emotes   ExportEmoteSets `json:"emotes"`
}

// ExportVideo describes the exported section of the recording, in seconds.
type ExportVideo struct {
	Title string  `json:"title"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ExportEmoteSets lists emotes embedded in the export. Third-party emotes
// (BTTV, FFZ, 7TV) only appear in message text, so their names are needed to spot them.
type ExportEmoteSets struct {
	ThirdParty []ExportEmote `json:"thirdParty"`
}

// ExportEmote is an embedded emote image.
type ExportEmote struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChatComment is one chat message of the export.
type ChatComment struct {
	ContentOffsetSeconds float64     `json:"content_offset_seconds"`
	Commenter            Commenter   `json:"commenter"`
	Message              ChatMessage `json:"message"`
}

// Commenter identifies the chatter.
type Commenter struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// ChatMessage is the message body split into text and emote fragments.
type ChatMessage struct {
	Body       string            `json:"body"`
	Fragments  []MessageFragment `json:"fragments"`
	UserBadges []Badge           `json:"user_badges,omitempty"`
}

// MessageFragment is a run of text, or a first-party emote when Emoticon is set.
type MessageFragment struct {
	Text     string    `json:"text"`
	Emoticon *Emoticon `json:"emoticon,omitempty"`
}

// Emoticon references a Twitch emote.
type Emoticon struct {
	EmoticonID string `json:"emoticon_id,omitempty"`
}

// Badge is a chat badge such as subscriber or moderator.
type Badge struct {
	ID      string `json:"_id"`
	Version string `json:"version"`
}

var (
	subscriberBadges = map[string]bool{"subscriber": true, "founder": true}
	moderatorBadges  = map[string]bool{"moderator": true, "broadcaster": true}
)

// DecodeExport reads a chat export.
func DecodeExport(r io.Reader) (*ChatExport, error) {
	var export ChatExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode chat export: %w", err)
	}
	return &export, nil
}

// ChatLog converts the export to a chat log. Offsets are made relative to the
// exported section start; comments before it are skipped. When the export has no
// usable end, the duration extends one second past the last comment.
func (e *ChatExport) ChatLog(recordingID string) *models.ChatLog {
	thirdParty := make(map[string]bool, len(e.Emotes.ThirdParty))
	for _, em := range e.Emotes.ThirdParty {
		if em.Name != "" {
			thirdParty[em.Name] = true
		}
	}

	// Comments outside the video's [start, end) range are not part of the recording.
	end := math.Inf(1)
	if e.Video.End > e.Video.Start {
		end = e.Video.End - e.Video.Start
	}

	events := make([]models.ChatEvent, 0, len(e.Comments))
	last := 0.0
	for _, c := range e.Comments {
		ts := c.ContentOffsetSeconds - e.Video.Start
		if ts < 0 || ts >= end {
			continue
		}
		if ts > last {
			last = ts
		}

		userID := c.Commenter.ID
		if userID == "" {
			userID = c.Commenter.Name
		}
		ev := models.ChatEvent{
			TimestampSeconds: ts,
			UserID:           userID,
			Text:             c.Message.text(),
			EmoteTokens:      c.Message.emotes(thirdParty),
		}
		for _, b := range c.Message.UserBadges {
			if subscriberBadges[b.ID] {
				ev.IsSubscriber = true
			}
			if moderatorBadges[b.ID] {
				ev.IsModerator = true
			}
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimestampSeconds < events[j].TimestampSeconds
	})

	duration := end
	if math.IsInf(end, 1) {
		duration = last + 1
	}
	return &models.ChatLog{RecordingID: recordingID, Events: events, DurationSeconds: duration}
}

func (m ChatMessage) text() string {
	if m.Body != "" || len(m.Fragments) == 0 {
		return m.Body
	}
	var b strings.Builder
	for _, f := range m.Fragments {
		b.WriteString(f.Text)
	}
	return b.String()
}

// emotes returns the message's emotes in order: first-party fragments, plus words
// of plain fragments that name a known third-party emote.
func (m ChatMessage) emotes(thirdParty map[string]bool) []string {
	var tokens []string
	fragments := m.Fragments
	if len(fragments) == 0 && m.Body != "" {
		fragments = []MessageFragment{{Text: m.Body}}
	}
	for _, f := range fragments {
		if f.Emoticon != nil {
			tokens = append(tokens, strings.TrimSpace(f.Text))
			continue
		}
		if len(thirdParty) == 0 {
			continue
		}
		for _, word := range strings.Fields(f.Text) {
			if thirdParty[word] {
				tokens = append(tokens, word)
			}
		}
	}
	return tokens
}
