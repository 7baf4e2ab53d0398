package game

import (
	"github.com/ip-05/quizzus-client/internal/protocol"
)

// HandleEvent folds one inbound server event into the session state. It is
// total over the event union: anything that doesn't apply in the current
// phase falls through untouched. The second return reports whether the
// state actually changed, so callers can skip redundant notifications.
func HandleEvent(s State, ev protocol.Event) (State, bool) {
	switch e := ev.(type) {
	case protocol.JoinedGame:
		return applyJoined(s, e.Room), true

	case protocol.UserJoined:
		if !s.inRoom() {
			return s, false
		}
		ns := s
		ns.Participants = cloneRoster(s.Participants)
		ns.Participants[e.User.ID] = e.User
		return ns, true

	case protocol.UserLeft:
		if !s.inRoom() {
			return s, false
		}
		if _, ok := s.Participants[e.User.ID]; !ok {
			return s, false
		}
		ns := s
		ns.Participants = cloneRoster(s.Participants)
		delete(ns.Participants, e.User.ID)
		ns.Answers = cloneAnswers(s.Answers)
		delete(ns.Answers, e.User.ID)
		return ns, true

	case protocol.GameStarting:
		switch s.Phase {
		case PhaseWaitOwner, PhaseWaitParticipant, PhaseCountdown:
		default:
			return s, false
		}
		ns := s
		ns.Phase = PhaseCountdown
		ns.Countdown = e.Seconds
		return ns, true

	case protocol.GameInProgress:
		if s.Phase != PhaseCountdown {
			return s, false
		}
		ns := s
		ns.Phase = PhaseRound
		ns.Countdown = -1
		return ns, true

	case protocol.RoundInProgress:
		if !s.inRoom() {
			return s, false
		}
		// The server re-sends this once per second while the round runs.
		// Same question, round still live: refresh the timer and nothing
		// else, or the local selection and the live tally get wiped mid-round.
		if (s.Phase == PhaseRound || s.Phase == PhaseGraph) &&
			s.Question != nil && sameQuestion(*s.Question, e.Question) {
			if s.TimerRemaining == e.Timer {
				return s, false
			}
			ns := s
			ns.TimerRemaining = e.Timer
			return ns, true
		}
		q := e.Question
		ns := s
		ns.Question = &q
		ns.TimerRemaining = e.Timer
		ns.Answers = map[uint]int{}
		ns.Pending = NoSelection
		ns.CorrectOption = NoSelection
		ns.Countdown = -1
		if s.IsOwner() {
			ns.Phase = PhaseGraph
		} else {
			ns.Phase = PhaseRound
		}
		return ns, true

	case protocol.RoundFinished:
		if !s.inRound() {
			return s, false
		}
		ns := s
		ns.CorrectOption = correctIndex(e.Options)
		if ns.Question != nil {
			// Replace the withheld options with the revealed ones.
			q := *ns.Question
			q.Options = e.Options
			ns.Question = &q
		}
		ns.Leaderboard = BuildLeaderboard(e.Leaderboard, s.Participants)
		ns.Answers = map[uint]int{}
		if s.IsOwner() {
			ns.Phase = PhaseWaitOwner
			ns.CanAdvance = true
		} else if s.Pending != NoSelection && s.Pending == ns.CorrectOption {
			ns.Phase = PhaseRevealCorrect
		} else {
			ns.Phase = PhaseRevealIncorrect
		}
		ns.Pending = NoSelection
		return ns, true

	case protocol.UserAnswered:
		if !s.inRound() {
			return s, false
		}
		ns := s
		ns.Answers = cloneAnswers(s.Answers)
		ns.Answers[e.UserID] = e.Option
		return ns, true

	case protocol.GameFinished:
		if !s.inRoom() {
			return s, false
		}
		ns := s
		ns.Leaderboard = BuildLeaderboard(e.Leaderboard, s.Participants)
		ns.Answers = map[uint]int{}
		ns.Pending = NoSelection
		if s.IsOwner() {
			ns.Phase = PhaseOverOwner
		} else {
			ns.Phase = PhaseOverParticipant
		}
		return ns, true

	case protocol.GameDeleted:
		if !s.inRoom() {
			return s, false
		}
		// Owner is gone, everyone gets evicted.
		return NewState(s.LocalUser), true

	case protocol.NotOwner:
		// A join attempted before the owner's room exists. Mid-game
		// rejections of misfired intents don't tear the session down.
		if s.Phase != PhaseIdle {
			return s, false
		}
		ns := s
		ns.Phase = PhaseForbidden
		return ns, true

	default:
		// ROUND_WAITING, ANSWER_ACCEPTED, PONG and anything newer.
		return s, false
	}
}

func applyJoined(s State, room protocol.Room) State {
	ns := NewState(s.LocalUser)
	ns.RoomID = room.ID
	ns.InviteCode = room.InviteCode
	ns.OwnerID = room.Owner.ID
	ns.Topic = room.Topic
	ns.Points = room.Points
	ns.RoundTime = room.RoundTime
	ns.QuestionCount = room.QuestionCount

	ns.Participants = cloneRoster(room.Members)
	ns.Leaderboard = BuildLeaderboard(room.Leaderboard, ns.Participants)

	if room.Owner.ID == s.LocalUser.ID {
		ns.Phase = PhaseWaitOwner
	} else {
		ns.Phase = PhaseWaitParticipant
	}
	return ns
}

// sameQuestion compares by name and option names; the correct flags are
// withheld during the round, so they take no part here.
func sameQuestion(a, b protocol.Question) bool {
	if a.Name != b.Name || len(a.Options) != len(b.Options) {
		return false
	}
	for i := range a.Options {
		if a.Options[i].Name != b.Options[i].Name {
			return false
		}
	}
	return true
}

func correctIndex(options []protocol.Option) int {
	for i, o := range options {
		if o.Correct {
			return i
		}
	}
	return NoSelection
}

func cloneRoster(in map[uint]protocol.User) map[uint]protocol.User {
	out := make(map[uint]protocol.User, len(in))
	for id, u := range in {
		out[id] = u
	}
	return out
}

func cloneAnswers(in map[uint]int) map[uint]int {
	out := make(map[uint]int, len(in))
	for id, opt := range in {
		out[id] = opt
	}
	return out
}
