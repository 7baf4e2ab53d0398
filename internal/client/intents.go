package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/ip-05/quizzus-client/internal/game"
	"github.com/ip-05/quizzus-client/internal/rest"
)

var ErrNoRestClient = errors.New("no rest client configured")

// The intent API. Each call runs its precondition check and any optimistic
// update inside the actor loop, then reports the outcome. A rejected intent
// never mutates state and never panics the session.

func (c *Client) JoinRoom(inviteCode string) error {
	return c.intent(game.Command{Type: game.CmdJoinRoom, InviteCode: inviteCode})
}

func (c *Client) StartGame() error {
	return c.intent(game.Command{Type: game.CmdStartGame})
}

func (c *Client) SubmitAnswer(option int) error {
	return c.intent(game.Command{Type: game.CmdSubmitAnswer, Option: option})
}

func (c *Client) AdvanceRound() error {
	return c.intent(game.Command{Type: game.CmdAdvanceRound})
}

func (c *Client) LeaveRoom() error {
	return c.intent(game.Command{Type: game.CmdLeaveRoom})
}

func (c *Client) RefreshRoom() error {
	return c.intent(game.Command{Type: game.CmdRefreshRoom})
}

// CreateAndJoinRoom creates the room over REST, then joins the returned
// invite code over the socket.
func (c *Client) CreateAndJoinRoom(ctx context.Context, body rest.GameBody) (string, error) {
	if c.api == nil {
		return "", ErrNoRestClient
	}
	created, err := c.api.CreateGame(ctx, body)
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	if err := c.JoinRoom(created.InviteCode); err != nil {
		return "", err
	}
	return created.InviteCode, nil
}

func (c *Client) intent(cmd game.Command) error {
	reply := make(chan error, 1)
	select {
	case c.inbox <- intentMsg{cmd: cmd, reply: reply}:
	case <-c.ctx.Done():
		return context.Canceled
	}
	select {
	case err := <-reply:
		return err
	case <-c.ctx.Done():
		return context.Canceled
	}
}
