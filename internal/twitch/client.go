// Package twitch fetches recorded chat and recording metadata.
//
// Chat comes from v5-format exports, either on local disk or from an HTTP
// archive. Metadata comes from the Helix API when credentials are configured,
// and from the export itself otherwise.
package twitch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/nicklaw5/helix"
	"github.com/rewired-gh/chatpeaks/internal/logger"
	"github.com/rewired-gh/chatpeaks/internal/models"
)

var recordingIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// VideoAPI is the part of the Helix client the source uses.
type VideoAPI interface {
	GetVideos(params *helix.VideosParams) (*helix.VideosResponse, error)
}

// Config holds source settings. When ChatBaseURL is set, exports are fetched from
// <ChatBaseURL>/<id>.json; otherwise they are read from <ChatDir>/<id>.json.
type Config struct {
	ChatDir        string
	ChatBaseURL    string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelayBase time.Duration
}

// Source provides chat logs and metadata for recordings.
type Source struct {
	cfg        Config
	httpClient *http.Client
	videos     VideoAPI
}

// NewSource creates a Source. videos may be nil, in which case metadata is read
// from the chat export.
func NewSource(cfg Config, videos VideoAPI) *Source {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	return &Source{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		videos:     videos,
	}
}

// NewHelixClient creates a Helix client authenticated with an app access token.
func NewHelixClient(clientID, clientSecret string) (*helix.Client, error) {
	client, err := helix.NewClient(&helix.Options{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}

	resp, err := client.RequestAppAccessToken([]string{})
	if err != nil {
		return nil, fmt.Errorf("failed to request app access token: %w", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Data.AccessToken == "" {
		return nil, fmt.Errorf("app access token request rejected: %d %s", resp.StatusCode, resp.ErrorMessage)
	}
	client.SetAppAccessToken(resp.Data.AccessToken)
	return client, nil
}

// FetchChatLog loads and converts the chat export of a recording.
func (s *Source) FetchChatLog(ctx context.Context, recordingID string) (*models.ChatLog, error) {
	export, err := s.loadExport(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	log := export.ChatLog(recordingID)
	logger.Debug("Loaded chat of %s: %d comments, %.0fs", recordingID, len(log.Events), log.DurationSeconds)
	return log, nil
}

// FetchMetadata returns the recording's title and details.
func (s *Source) FetchMetadata(ctx context.Context, recordingID string) (*models.RecordingMetadata, error) {
	if err := validateID(recordingID); err != nil {
		return nil, err
	}
	if s.videos == nil {
		export, err := s.loadExport(ctx, recordingID)
		if err != nil {
			return nil, err
		}
		return &models.RecordingMetadata{
			ID:              recordingID,
			Title:           export.Video.Title,
			DurationSeconds: export.Video.End - export.Video.Start,
		}, nil
	}

	resp, err := s.videos.GetVideos(&helix.VideosParams{IDs: []string{recordingID}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video %s: %w", recordingID, err)
	}
	if resp.StatusCode == http.StatusNotFound || (resp.StatusCode < 400 && len(resp.Data.Videos) == 0) {
		return nil, fmt.Errorf("video %s: %w", recordingID, models.ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("helix error for video %s: %d %s", recordingID, resp.StatusCode, resp.ErrorMessage)
	}

	v := resp.Data.Videos[0]
	meta := &models.RecordingMetadata{
		ID:      v.ID,
		Title:   v.Title,
		Channel: v.UserName,
		URL:     v.URL,
	}
	if d, err := time.ParseDuration(v.Duration); err == nil {
		meta.DurationSeconds = d.Seconds()
	} else {
		logger.Debug("Unparseable duration %q for video %s", v.Duration, recordingID)
	}
	return meta, nil
}

func (s *Source) loadExport(ctx context.Context, recordingID string) (*ChatExport, error) {
	if err := validateID(recordingID); err != nil {
		return nil, err
	}
	if s.cfg.ChatBaseURL != "" {
		return s.fetchExport(ctx, fmt.Sprintf("%s/%s.json", s.cfg.ChatBaseURL, recordingID))
	}

	path := filepath.Join(s.cfg.ChatDir, recordingID+".json")
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("chat export %s: %w", path, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open chat export: %w", err)
	}
	defer func() { _ = f.Close() }()
	return DecodeExport(f)
}

func (s *Source) fetchExport(ctx context.Context, url string) (*ChatExport, error) {
	resp, err := s.doRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat export: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	return DecodeExport(resp.Body)
}

// doRequest performs a GET with retries on transport errors and 5xx responses.
// A 404 is reported as models.ErrNotFound without retrying.
func (s *Source) doRequest(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < s.cfg.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i) * s.cfg.RetryDelayBase):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
			logger.Debug("GET %s failed (attempt %d/%d): %v", url, i+1, s.cfg.MaxRetries, err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%s: %w", url, models.ErrNotFound)
		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			logger.Debug("GET %s returned %d (attempt %d/%d)", url, resp.StatusCode, i+1, s.cfg.MaxRetries)
			continue
		case resp.StatusCode >= 400:
			_ = resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}
		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func validateID(recordingID string) error {
	if !recordingIDPattern.MatchString(recordingID) {
		return models.InvalidInputf("invalid recording ID %q", recordingID)
	}
	return nil
}
