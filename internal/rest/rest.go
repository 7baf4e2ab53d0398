package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/ip-05/quizzus-client/internal/protocol"
)

// Client talks to the quiz server's REST side: room CRUD and identity.
// The realtime core only needs CreateGame (for create-and-join) and Me
// (to know which roster entry is us).
type Client struct {
	base  string
	token string
	http  *http.Client
	log   *zap.Logger
}

type Option struct {
	ID      uint   `json:"id,omitempty"`
	Name    string `json:"name"`
	Correct bool   `json:"correct"`
}

type Question struct {
	ID      uint     `json:"id,omitempty"`
	Name    string   `json:"name"`
	Options []Option `json:"options"`
}

type Game struct {
	ID         uint       `json:"id"`
	InviteCode string     `json:"inviteCode"`
	Topic      string     `json:"topic"`
	RoundTime  int        `json:"roundTime"`
	Points     float64    `json:"points"`
	Questions  []Question `json:"questions"`
	Owner      string     `json:"ownerId"`
}

type GameBody struct {
	Topic     string     `json:"topic"`
	RoundTime int        `json:"roundTime"`
	Points    float64    `json:"points"`
	Questions []Question `json:"questions"`
}

func New(base, token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
		log:   logger.Named("rest"),
	}
}

func (c *Client) CreateGame(ctx context.Context, body GameBody) (*Game, error) {
	var game Game
	if err := c.do(ctx, http.MethodPost, "/games", nil, body, &game); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return &game, nil
}

func (c *Client) GetGame(ctx context.Context, inviteCode string) (*Game, error) {
	var game Game
	q := url.Values{"invite_code": {inviteCode}}
	if err := c.do(ctx, http.MethodGet, "/games", q, nil, &game); err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return &game, nil
}

func (c *Client) UpdateGame(ctx context.Context, inviteCode string, body GameBody) (*Game, error) {
	var game Game
	q := url.Values{"invite_code": {inviteCode}}
	if err := c.do(ctx, http.MethodPatch, "/games", q, body, &game); err != nil {
		return nil, fmt.Errorf("update game: %w", err)
	}
	return &game, nil
}

func (c *Client) DeleteGame(ctx context.Context, inviteCode string) error {
	q := url.Values{"invite_code": {inviteCode}}
	if err := c.do(ctx, http.MethodDelete, "/games", q, nil, nil); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return nil
}

// Me resolves the authenticated user behind the bearer token.
func (c *Client) Me(ctx context.Context) (*protocol.User, error) {
	var user protocol.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, fmt.Errorf("auth me: %w", err)
	}
	return &user, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, into any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("request", zap.String("method", method), zap.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		if eb.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, eb.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if into == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
