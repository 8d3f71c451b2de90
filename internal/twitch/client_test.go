package twitch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nicklaw5/helix"
	"github.com/rewired-gh/chatpeaks/internal/models"
)

const sampleExport = `{
  "video": {"title": "Grand Final", "start": 10, "end": 130},
  "emotes": {"thirdParty": [{"id": "bttv-1", "name": "OMEGALUL"}]},
  "comments": [
    {
      "content_offset_seconds": 75.5,
      "commenter": {"_id": "2", "name": "bob", "display_name": "Bob"},
      "message": {
        "body": "Kappa OMEGALUL that was close",
        "fragments": [
          {"text": "Kappa", "emoticon": {"emoticon_id": "25"}},
          {"text": " OMEGALUL that was close"}
        ],
        "user_badges": [{"_id": "moderator", "version": "1"}]
      }
    },
    {
      "content_offset_seconds": 5,
      "commenter": {"_id": "3", "name": "early"},
      "message": {"body": "before the cut"}
    },
    {
      "content_offset_seconds": 12,
      "commenter": {"_id": "1", "name": "alice"},
      "message": {
        "body": "LETS GO",
        "fragments": [{"text": "LETS GO"}],
        "user_badges": [{"_id": "subscriber", "version": "12"}]
      }
    },
    {
      "content_offset_seconds": 40,
      "commenter": {"name": "anon"},
      "message": {"body": "", "fragments": [{"text": "hi "}, {"text": "PogChamp", "emoticon": {"emoticon_id": "88"}}]}
    }
  ]
}`

func writeExport(t *testing.T, dir, id, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, id+".json"), []byte(body), 0644); err != nil {
		t.Fatalf("failed to write export: %v", err)
	}
}

func TestChatExport_ChatLog(t *testing.T) {
	export, err := DecodeExport(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("DecodeExport failed: %v", err)
	}
	log := export.ChatLog("v1")

	if log.RecordingID != "v1" || log.DurationSeconds != 120 {
		t.Errorf("unexpected log header: %s %v", log.RecordingID, log.DurationSeconds)
	}
	if len(log.Events) != 3 {
		t.Fatalf("expected 3 events after the cut, got %d", len(log.Events))
	}

	first, second, third := log.Events[0], log.Events[1], log.Events[2]
	if first.TimestampSeconds != 2 || first.UserID != "1" || !first.IsSubscriber || first.Text != "LETS GO" {
		t.Errorf("first event = %+v", first)
	}
	if second.UserID != "anon" || second.Text != "hi PogChamp" || !reflect.DeepEqual(second.EmoteTokens, []string{"PogChamp"}) {
		t.Errorf("second event = %+v", second)
	}
	if third.TimestampSeconds != 65.5 || !third.IsModerator || third.IsSubscriber {
		t.Errorf("third event = %+v", third)
	}
	if !reflect.DeepEqual(third.EmoteTokens, []string{"Kappa", "OMEGALUL"}) {
		t.Errorf("EmoteTokens = %v, want [Kappa OMEGALUL]", third.EmoteTokens)
	}
	if err := log.Validate(); err != nil {
		t.Errorf("converted log is invalid: %v", err)
	}
}

func TestChatExport_DurationFallback(t *testing.T) {
	export := &ChatExport{Comments: []ChatComment{
		{ContentOffsetSeconds: 30, Commenter: Commenter{ID: "a"}, Message: ChatMessage{Body: "x"}},
		{ContentOffsetSeconds: 90, Commenter: Commenter{ID: "b"}, Message: ChatMessage{Body: "y"}},
	}}
	if got := export.ChatLog("v").DurationSeconds; got != 91 {
		t.Errorf("DurationSeconds = %v, want 91", got)
	}
}

func TestChatExport_ClipsCommentsPastVideoEnd(t *testing.T) {
	export := &ChatExport{
		Video: ExportVideo{Start: 10, End: 70},
		Comments: []ChatComment{
			{ContentOffsetSeconds: 20, Commenter: Commenter{ID: "a"}, Message: ChatMessage{Body: "in"}},
			{ContentOffsetSeconds: 70, Commenter: Commenter{ID: "b"}, Message: ChatMessage{Body: "at the end"}},
			{ContentOffsetSeconds: 140, Commenter: Commenter{ID: "c"}, Message: ChatMessage{Body: "after"}},
		},
	}
	log := export.ChatLog("v")
	if log.DurationSeconds != 60 {
		t.Errorf("DurationSeconds = %v, want 60", log.DurationSeconds)
	}
	if len(log.Events) != 1 || log.Events[0].UserID != "a" {
		t.Errorf("expected only the comment inside the video, got %+v", log.Events)
	}
	if err := log.Validate(); err != nil {
		t.Errorf("converted log is invalid: %v", err)
	}
}

func TestSource_FetchChatLogFromDisk(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "v1", sampleExport)
	s := NewSource(Config{ChatDir: dir}, nil)

	log, err := s.FetchChatLog(context.Background(), "v1")
	if err != nil {
		t.Fatalf("FetchChatLog failed: %v", err)
	}
	if len(log.Events) != 3 {
		t.Errorf("expected 3 events, got %d", len(log.Events))
	}

	if _, err := s.FetchChatLog(context.Background(), "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.FetchChatLog(context.Background(), "../etc/passwd"); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for a path-like ID, got %v", err)
	}

	writeExport(t, dir, "broken", "{not json")
	if _, err := s.FetchChatLog(context.Background(), "broken"); err == nil {
		t.Error("expected a decode error")
	}
}

func TestSource_FetchChatLogOverHTTP(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch r.URL.Path {
		case "/v1.json":
			if n == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(sampleExport))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s := NewSource(Config{ChatBaseURL: server.URL, Timeout: 5 * time.Second, MaxRetries: 3, RetryDelayBase: time.Millisecond}, nil)

	log, err := s.FetchChatLog(context.Background(), "v1")
	if err != nil {
		t.Fatalf("FetchChatLog failed: %v", err)
	}
	if len(log.Events) != 3 {
		t.Errorf("expected 3 events, got %d", len(log.Events))
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected one retry after a 502, got %d calls", got)
	}

	if _, err := s.FetchChatLog(context.Background(), "gone"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound on 404, got %v", err)
	}
}

func TestSource_RetriesExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := NewSource(Config{ChatBaseURL: server.URL, Timeout: time.Second, MaxRetries: 2, RetryDelayBase: time.Millisecond}, nil)
	_, err := s.FetchChatLog(context.Background(), "v1")
	if err == nil || !strings.Contains(err.Error(), "max retries exceeded") {
		t.Errorf("expected max retries error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

type fakeVideos struct {
	resp *helix.VideosResponse
	err  error
	ids  []string
}

func (f *fakeVideos) GetVideos(params *helix.VideosParams) (*helix.VideosResponse, error) {
	f.ids = append(f.ids, params.IDs...)
	return f.resp, f.err
}

func videosResponse(status int, videos ...helix.Video) *helix.VideosResponse {
	resp := &helix.VideosResponse{Data: helix.ManyVideos{Videos: videos}}
	resp.StatusCode = status
	return resp
}

func TestSource_FetchMetadataFromHelix(t *testing.T) {
	videos := &fakeVideos{resp: videosResponse(http.StatusOK, helix.Video{
		ID:       "v1",
		Title:    "Grand Final",
		UserName: "SomeChannel",
		URL:      "https://www.twitch.tv/videos/v1",
		Duration: "1h2m3s",
	})}
	s := NewSource(Config{}, videos)

	meta, err := s.FetchMetadata(context.Background(), "v1")
	if err != nil {
		t.Fatalf("FetchMetadata failed: %v", err)
	}
	want := models.RecordingMetadata{
		ID:              "v1",
		Title:           "Grand Final",
		Channel:         "SomeChannel",
		URL:             "https://www.twitch.tv/videos/v1",
		DurationSeconds: 3723,
	}
	if *meta != want {
		t.Errorf("metadata = %+v, want %+v", *meta, want)
	}
	if !reflect.DeepEqual(videos.ids, []string{"v1"}) {
		t.Errorf("requested IDs = %v", videos.ids)
	}
}

func TestSource_FetchMetadataErrors(t *testing.T) {
	tests := []struct {
		name   string
		videos *fakeVideos
		want   error
	}{
		{"no such video", &fakeVideos{resp: videosResponse(http.StatusOK)}, models.ErrNotFound},
		{"404", &fakeVideos{resp: videosResponse(http.StatusNotFound)}, models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSource(Config{}, tt.videos).FetchMetadata(context.Background(), "v1")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	cause := errors.New("dial tcp: refused")
	_, err := NewSource(Config{}, &fakeVideos{err: cause}).FetchMetadata(context.Background(), "v1")
	if !errors.Is(err, cause) {
		t.Errorf("expected the transport error, got %v", err)
	}

	_, err = NewSource(Config{}, &fakeVideos{resp: videosResponse(http.StatusUnauthorized)}).FetchMetadata(context.Background(), "v1")
	if err == nil || errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected an API error, got %v", err)
	}
}

func TestSource_FetchMetadataFromExport(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "v1", sampleExport)
	meta, err := NewSource(Config{ChatDir: dir}, nil).FetchMetadata(context.Background(), "v1")
	if err != nil {
		t.Fatalf("FetchMetadata failed: %v", err)
	}
	if meta.Title != "Grand Final" || meta.DurationSeconds != 120 {
		t.Errorf("metadata = %+v", meta)
	}
}
