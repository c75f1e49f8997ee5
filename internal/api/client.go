// Package api is the REST consumer for the platform backend. It maps
// HTTP outcomes onto the failure taxonomy the rest of the viewer reacts
// to: NotFound, Transient, Unauthenticated, DomainRejected.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pixelcast/viewer/internal/config"
	"github.com/pixelcast/viewer/internal/domain"
	"github.com/pixelcast/viewer/internal/session"
)

type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
}

func NewClient(cfg config.APIConfig, sess *session.Session) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		session: sess,
	}
}

// StreamStatus fetches broadcast metadata and liveness for a channel.
func (c *Client) StreamStatus(ctx context.Context, username string) (domain.StreamSession, error) {
	var out struct {
		IsLive    bool   `json:"is_live"`
		StreamKey string `json:"stream_key"`
		Title     string `json:"stream_title"`
		Category  string `json:"stream_category"`
		Thumbnail string `json:"stream_thumbnail"`
		User      struct {
			Username        string `json:"username"`
			ProfileImage    string `json:"profile_image"`
			SubscriberCount int    `json:"subscriber_count"`
		} `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/streams/"+url.PathEscape(username), nil, &out)
	if err != nil {
		return domain.StreamSession{}, err
	}
	return domain.StreamSession{
		Username:        out.User.Username,
		IsLive:          out.IsLive,
		StreamKey:       out.StreamKey,
		Title:           out.Title,
		Category:        out.Category,
		Thumbnail:       out.Thumbnail,
		ProfileImage:    out.User.ProfileImage,
		SubscriberCount: out.User.SubscriberCount,
	}, nil
}

// LikeResult is the server-declared like state after a toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// LikeBroadcast toggles the caller's like on a live broadcast.
func (c *Client) LikeBroadcast(ctx context.Context, username string) (LikeResult, error) {
	var out LikeResult
	if err := c.requireAuth(); err != nil {
		return out, err
	}
	err := c.do(ctx, http.MethodPost, "/live/"+url.PathEscape(username)+"/like", nil, &out)
	return out, err
}

// SubscribeResult is the server-declared subscription state.
type SubscribeResult struct {
	Subscribed      bool `json:"subscribed"`
	SubscriberCount int  `json:"subscriber_count"`
}

// Subscribe follows a channel.
func (c *Client) Subscribe(ctx context.Context, username string) (SubscribeResult, error) {
	var out SubscribeResult
	if err := c.requireAuth(); err != nil {
		return out, err
	}
	err := c.do(ctx, http.MethodPost, "/subscriptions/"+url.PathEscape(username), nil, &out)
	return out, err
}

// Unsubscribe unfollows a channel.
func (c *Client) Unsubscribe(ctx context.Context, username string) (SubscribeResult, error) {
	var out SubscribeResult
	if err := c.requireAuth(); err != nil {
		return out, err
	}
	err := c.do(ctx, http.MethodDelete, "/subscriptions/"+url.PathEscape(username), nil, &out)
	return out, err
}

// ChatHistory fetches the last 50 chat messages for prefill.
func (c *Client) ChatHistory(ctx context.Context, username string) ([]domain.ChatMessage, error) {
	var out []struct {
		ID        string `json:"id"`
		User      string `json:"user"`
		Text      string `json:"text"`
		Timestamp int64  `json:"timestamp"`
		IsMod     bool   `json:"isMod"`
	}
	if err := c.do(ctx, http.MethodGet, "/chat/history/"+url.PathEscape(username), nil, &out); err != nil {
		return nil, err
	}
	msgs := make([]domain.ChatMessage, 0, len(out))
	for _, m := range out {
		msgs = append(msgs, domain.ChatMessage{
			ID:          m.ID,
			Kind:        domain.KindChat,
			User:        m.User,
			Text:        m.Text,
			Timestamp:   m.Timestamp,
			IsModerator: m.IsMod,
		})
	}
	return msgs, nil
}

// ActivityHistory fetches the last 10 like/subscribe alerts for prefill.
func (c *Client) ActivityHistory(ctx context.Context, username string) ([]domain.ActivityEntry, error) {
	var out []struct {
		ID           string `json:"id"`
		ActivityType string `json:"activity_type"`
		User         string `json:"user"`
		Timestamp    int64  `json:"timestamp"`
	}
	if err := c.do(ctx, http.MethodGet, "/live/activity/history/"+url.PathEscape(username), nil, &out); err != nil {
		return nil, err
	}
	entries := make([]domain.ActivityEntry, 0, len(out))
	for _, a := range out {
		entries = append(entries, domain.ActivityEntry{
			ID:        a.ID,
			Type:      a.ActivityType,
			User:      a.User,
			Timestamp: a.Timestamp,
		})
	}
	return entries, nil
}

// Recommended fetches catalog entries for the offline endscreen.
func (c *Client) Recommended(ctx context.Context) ([]domain.Video, error) {
	var out []domain.Video
	err := c.do(ctx, http.MethodGet, "/recommendations", nil, &out)
	return out, err
}

// requireAuth blocks mutating calls locally when no usable credential
// is present. No network write happens for an unauthenticated action.
func (c *Client) requireAuth() error {
	if c.session.Authenticated() {
		return nil
	}
	return &Error{Kind: KindUnauthenticated, Detail: "sign in required"}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindTransient, cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindTransient, cause: err}
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return classifyStatus(res)
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return &Error{Kind: KindTransient, cause: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func classifyStatus(res *http.Response) error {
	// The backend reports business rejections as {"detail": "..."}.
	var body struct {
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(res.Body).Decode(&body)

	e := &Error{StatusCode: res.StatusCode, Detail: body.Detail}
	switch {
	case res.StatusCode == http.StatusNotFound:
		e.Kind = KindNotFound
	case res.StatusCode == http.StatusUnauthorized:
		e.Kind = KindUnauthenticated
	case res.StatusCode == http.StatusRequestTimeout || res.StatusCode == http.StatusTooManyRequests:
		e.Kind = KindTransient
	case res.StatusCode >= 500:
		e.Kind = KindTransient
	default:
		e.Kind = KindDomainRejected
	}
	return e
}
