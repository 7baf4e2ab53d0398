package game

import (
	"errors"

	"github.com/ip-05/quizzus-client/internal/protocol"
)

var ErrNotInRoom = errors.New("not in a room")
var ErrWrongPhase = errors.New("invalid phase for action")
var ErrNotOwner = errors.New("not the room owner")
var ErrCannotAdvance = errors.New("round still running")
var ErrNoSuchOption = errors.New("option out of range")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseWaitOwner       Phase = "waitingRoomOwner"
	PhaseWaitParticipant Phase = "waitingRoomParticipant"
	PhaseCountdown       Phase = "roundCountdown"
	PhaseRound           Phase = "roundInProgress"
	PhaseGraph           Phase = "roundAdminGraph"
	PhaseRevealCorrect   Phase = "roundRevealCorrect"
	PhaseRevealIncorrect Phase = "roundRevealIncorrect"
	PhaseOverOwner       Phase = "gameOverAdmin"
	PhaseOverParticipant Phase = "gameOverClient"
	PhaseForbidden       Phase = "forbidden"
)

// NoSelection marks an unset option index (answers are indexes into the
// current question's options).
const NoSelection = -1

type Entry struct {
	UserID uint
	Name   string
	Points float64
}

// State mirrors one room membership. Phase decides which optional fields
// mean anything: Question only in round phases, Countdown only while
// counting down, CorrectOption only at reveal.
type State struct {
	Phase Phase

	LocalUser protocol.User

	RoomID        uint
	InviteCode    string
	OwnerID       uint
	Topic         string
	Points        float64
	RoundTime     int
	QuestionCount int

	Participants map[uint]protocol.User

	Question       *protocol.Question
	TimerRemaining int
	CorrectOption  int
	Pending        int          // optimistic local selection, server unaware
	Answers        map[uint]int // per-round tally: user -> option index

	Leaderboard []Entry // kept sorted, see SortLeaderboard
	Countdown   int
	CanAdvance  bool
}

func NewState(local protocol.User) State {
	return State{
		Phase:         PhaseIdle,
		LocalUser:     local,
		Participants:  map[uint]protocol.User{},
		Answers:       map[uint]int{},
		CorrectOption: NoSelection,
		Pending:       NoSelection,
		Countdown:     -1,
	}
}

func (s State) IsOwner() bool {
	return s.Phase != PhaseIdle && s.OwnerID == s.LocalUser.ID
}

func (s State) inRoom() bool {
	return s.Phase != PhaseIdle && s.Phase != PhaseForbidden
}

func (s State) inRound() bool {
	switch s.Phase {
	case PhaseRound, PhaseGraph, PhaseRevealCorrect, PhaseRevealIncorrect:
		return true
	}
	return false
}

type CommandType string

const (
	CmdJoinRoom     CommandType = "JoinRoom"
	CmdStartGame    CommandType = "StartGame"
	CmdSubmitAnswer CommandType = "SubmitAnswer"
	CmdAdvanceRound CommandType = "AdvanceRound"
	CmdLeaveRoom    CommandType = "LeaveRoom"
	CmdRefreshRoom  CommandType = "RefreshRoom"
)

type Command struct {
	Type       CommandType
	InviteCode string
	Option     int
}

// Apply validates a local intent against the current phase and returns the
// frames to put on the wire plus the optimistically updated state. A
// precondition failure returns the state untouched; nothing here panics.
func Apply(s State, cmd Command) ([]protocol.ClientMessage, State, error) {
	newState := s

	switch cmd.Type {
	case CmdJoinRoom:
		if s.Phase != PhaseIdle {
			return nil, s, ErrWrongPhase
		}
		// Session is created on the JOINED_GAME acknowledgment, not here.
		msgs := []protocol.ClientMessage{
			protocol.WithData(protocol.TagJoinGame, protocol.JoinGameData{GameID: cmd.InviteCode}),
		}
		return msgs, s, nil

	case CmdStartGame:
		if s.Phase == PhaseWaitParticipant {
			return nil, s, ErrNotOwner
		}
		if s.Phase != PhaseWaitOwner {
			return nil, s, ErrWrongPhase
		}
		// Phase changes only on GAME_STARTING.
		return []protocol.ClientMessage{protocol.MessageOnly(protocol.TagStartGame)}, s, nil

	case CmdSubmitAnswer:
		if s.Phase != PhaseRound {
			return nil, s, ErrWrongPhase
		}
		if s.Question == nil || cmd.Option < 0 || cmd.Option >= len(s.Question.Options) {
			return nil, s, ErrNoSuchOption
		}
		// Last write wins locally; the server stays authoritative for scoring.
		newState.Pending = cmd.Option
		msgs := []protocol.ClientMessage{
			protocol.WithData(protocol.TagAnswerQuestion, protocol.AnswerData{Option: cmd.Option}),
		}
		return msgs, newState, nil

	case CmdAdvanceRound:
		if s.Phase == PhaseWaitParticipant {
			return nil, s, ErrNotOwner
		}
		if s.Phase != PhaseWaitOwner {
			return nil, s, ErrWrongPhase
		}
		if !s.CanAdvance {
			return nil, s, ErrCannotAdvance
		}
		newState.CanAdvance = false
		return []protocol.ClientMessage{protocol.MessageOnly(protocol.TagNextRound)}, newState, nil

	case CmdLeaveRoom:
		if s.Phase == PhaseIdle {
			return nil, s, ErrNotInRoom
		}
		// The only way out of terminal phases.
		msgs := []protocol.ClientMessage{protocol.MessageOnly(protocol.TagLeaveGame)}
		return msgs, NewState(s.LocalUser), nil

	case CmdRefreshRoom:
		if !s.inRoom() {
			return nil, s, ErrNotInRoom
		}
		return []protocol.ClientMessage{protocol.MessageOnly(protocol.TagGetGame)}, s, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}
