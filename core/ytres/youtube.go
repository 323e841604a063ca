// Package ytres resolves YouTube identifiers into playable sources: direct
// stream URLs for live tracks, downloaded files for on-demand tracks, and
// search results for inline queries.
package ytres

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"AviaxMusic/logger"

	ytdl "github.com/kkdai/youtube/v2"
)

// Archive is an optional object store checked before re-downloading a video
// and fed after a successful download.
type Archive interface {
	Fetch(ctx context.Context, vidID, dest string) (bool, error)
	Put(ctx context.Context, vidID, path string) error
}

// Resolver downloads and resolves YouTube sources.
type Resolver struct {
	client       ytdl.Client
	httpClient   *http.Client
	apiKey       string
	downloadsDir string
	archive      Archive
}

// NewResolver creates a resolver. archive may be nil.
func NewResolver(apiKey, downloadsDir string, archive Archive) *Resolver {
	return &Resolver{
		client:       ytdl.Client{},
		httpClient:   &http.Client{},
		apiKey:       apiKey,
		downloadsDir: downloadsDir,
		archive:      archive,
	}
}

// Video resolves a video ID into a direct stream URL without downloading.
// Used for live tracks, where the returned URL is handed straight to the
// engine.
func (r *Resolver) Video(ctx context.Context, vidID string) (string, error) {
	vinfo, err := r.client.GetVideoContext(ctx, vidID)
	if err != nil {
		return "", fmt.Errorf("GetVideoContext: %w", err)
	}

	if vinfo.HLSManifestURL != "" {
		return vinfo.HLSManifestURL, nil
	}

	formats := vinfo.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return "", fmt.Errorf("no playable formats for %s", vidID)
	}
	streamURL, err := r.client.GetStreamURLContext(ctx, vinfo, &formats[0])
	if err != nil {
		return "", fmt.Errorf("GetStreamURLContext: %w", err)
	}
	return streamURL, nil
}

// Download fetches a video's media to the downloads dir and returns the
// local path. The archive, when configured, short-circuits the download.
func (r *Resolver) Download(ctx context.Context, vidID string, video bool) (string, error) {
	ext := "m4a"
	if video {
		ext = "mp4"
	}
	dest := filepath.Join(r.downloadsDir, fmt.Sprintf("%s.%s", vidID, ext))

	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	if r.archive != nil {
		ok, err := r.archive.Fetch(ctx, vidID, dest)
		if err != nil {
			logger.Warn("archive fetch failed", logger.String("vidid", vidID), logger.ErrorField(err))
		} else if ok {
			return dest, nil
		}
	}

	vinfo, err := r.client.GetVideoContext(ctx, vidID)
	if err != nil {
		return "", fmt.Errorf("GetVideoContext: %w", err)
	}

	format, err := pickFormat(vinfo, video)
	if err != nil {
		return "", err
	}

	ytstream, ytstreamsize, err := r.client.GetStreamContext(ctx, vinfo, format)
	if err != nil {
		return "", fmt.Errorf("GetStreamContext: %w", err)
	}
	defer ytstream.Close()
	if ytstreamsize == 0 {
		return "", fmt.Errorf("GetStreamContext: stream size is zero")
	}

	if err := os.MkdirAll(r.downloadsDir, 0755); err != nil {
		return "", fmt.Errorf("create downloads dir: %w", err)
	}

	f, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return "", fmt.Errorf("os.OpenFile: %w", err)
	}
	if _, err := io.Copy(f, ytstream); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("download youtu.be/%s: %w", vidID, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("os.File.Close: %w", err)
	}

	if r.archive != nil {
		if err := r.archive.Put(ctx, vidID, dest); err != nil {
			logger.Warn("archive put failed", logger.String("vidid", vidID), logger.ErrorField(err))
		}
	}

	return dest, nil
}

// pickFormat chooses the highest-bitrate format of the wanted kind.
func pickFormat(vinfo *ytdl.Video, video bool) (*ytdl.Format, error) {
	var best *ytdl.Format
	for i := range vinfo.Formats {
		f := &vinfo.Formats[i]
		if video {
			if !strings.HasPrefix(f.MimeType, "video/mp4") || f.AudioChannels == 0 {
				continue
			}
		} else {
			if !strings.HasPrefix(f.MimeType, "audio/mp4") {
				continue
			}
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no suitable format for %s", vinfo.ID)
	}
	return best, nil
}

// SearchResult is one hit from a Data API search.
type SearchResult struct {
	VidID     string
	Title     string
	Channel   string
	Thumbnail string
}

// Search queries the YouTube Data API v3 for videos matching q.
// https://developers.google.com/youtube/v3/docs/search
func (r *Resolver) Search(ctx context.Context, q string, limit int) ([]SearchResult, error) {
	if r.apiKey == "" {
		return nil, fmt.Errorf("no YouTube API key configured")
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	searchURL := fmt.Sprintf(
		"https://www.googleapis.com/youtube/v3/search?part=snippet&type=video&maxResults=%d&q=%s&key=%s",
		limit, url.QueryEscape(q), r.apiKey,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("youtube search: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
				Thumbnails   struct {
					Medium struct {
						URL string `json:"url"`
					} `json:"medium"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode youtube search response: %w", err)
	}

	results := make([]SearchResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.ID.VideoID == "" {
			continue
		}
		results = append(results, SearchResult{
			VidID:     item.ID.VideoID,
			Title:     item.Snippet.Title,
			Channel:   item.Snippet.ChannelTitle,
			Thumbnail: item.Snippet.Thumbnails.Medium.URL,
		})
	}
	return results, nil
}
