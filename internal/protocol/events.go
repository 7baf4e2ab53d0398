package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownMessage = errors.New("unknown message tag")

// Event is the closed set of inbound server events. Decode is the only
// constructor; consumers switch over the concrete types and ignore
// anything they don't care about.
type Event interface{ isEvent() }

type JoinedGame struct{ Room Room }

type UserJoined struct{ User User }

type UserLeft struct{ User User }

type GameStarting struct{ Seconds int }

type GameInProgress struct{}

type RoundInProgress struct {
	Timer    int
	Question Question
}

type RoundWaiting struct{}

type RoundFinished struct {
	Correct     bool
	Options     []Option
	Leaderboard map[uint]float64
}

type AnswerAccepted struct{}

type UserAnswered struct {
	UserID uint
	Option int
}

type GameFinished struct{ Leaderboard map[uint]float64 }

type GameDeleted struct{}

type NotOwner struct{}

type Pong struct{}

func (JoinedGame) isEvent()      {}
func (UserJoined) isEvent()      {}
func (UserLeft) isEvent()        {}
func (GameStarting) isEvent()    {}
func (GameInProgress) isEvent()  {}
func (RoundInProgress) isEvent() {}
func (RoundWaiting) isEvent()    {}
func (RoundFinished) isEvent()   {}
func (AnswerAccepted) isEvent()  {}
func (UserAnswered) isEvent()    {}
func (GameFinished) isEvent()    {}
func (GameDeleted) isEvent()     {}
func (NotOwner) isEvent()        {}
func (Pong) isEvent()            {}

// Decode parses one inbound frame into a typed event. A tag outside the
// known set returns ErrUnknownMessage; a payload that doesn't match its
// tag returns a wrapped unmarshal error. Neither is fatal to the caller.
func Decode(frame []byte) (Event, error) {
	var env ServerMessage
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Message {
	case TagJoinedGame:
		var room Room
		if err := decodeData(env, &room); err != nil {
			return nil, err
		}
		return JoinedGame{Room: room}, nil

	case TagUserJoined:
		var u User
		if err := decodeData(env, &u); err != nil {
			return nil, err
		}
		return UserJoined{User: u}, nil

	case TagUserLeft:
		var u User
		if err := decodeData(env, &u); err != nil {
			return nil, err
		}
		return UserLeft{User: u}, nil

	case TagGameStarting:
		var n int
		if err := decodeData(env, &n); err != nil {
			return nil, err
		}
		return GameStarting{Seconds: n}, nil

	case TagGameInProgress:
		return GameInProgress{}, nil

	case TagRoundInProgress:
		var rd RoundData
		if err := decodeData(env, &rd); err != nil {
			return nil, err
		}
		return RoundInProgress{Timer: rd.Timer, Question: rd.Question}, nil

	case TagRoundWaiting:
		return RoundWaiting{}, nil

	case TagRoundFinished:
		var fd FinishedData
		if err := decodeData(env, &fd); err != nil {
			return nil, err
		}
		return RoundFinished{Correct: fd.Correct, Options: fd.Options, Leaderboard: fd.Leaderboard}, nil

	case TagAnswerAccepted:
		return AnswerAccepted{}, nil

	case TagUserAnswered:
		var ar AnswerResponse
		if err := decodeData(env, &ar); err != nil {
			return nil, err
		}
		return UserAnswered{UserID: ar.UserID, Option: ar.Option}, nil

	case TagGameFinished:
		var lb map[uint]float64
		if err := decodeData(env, &lb); err != nil {
			return nil, err
		}
		return GameFinished{Leaderboard: lb}, nil

	case TagGameDeleted:
		return GameDeleted{}, nil

	case TagNotOwner:
		return NotOwner{}, nil

	case TagPong:
		return Pong{}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Message)
	}
}

func decodeData(env ServerMessage, into any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("decode %s: empty data", env.Message)
	}
	if err := json.Unmarshal(env.Data, into); err != nil {
		return fmt.Errorf("decode %s: %w", env.Message, err)
	}
	return nil
}
