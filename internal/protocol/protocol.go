package protocol

import "encoding/json"

// Client -> Server tags.
const (
	TagJoinGame       = "JOIN_GAME"
	TagGetGame        = "GET_GAME"
	TagLeaveGame      = "LEAVE_GAME"
	TagStartGame      = "START_GAME"
	TagNextRound      = "NEXT_ROUND"
	TagAnswerQuestion = "ANSWER_QUESTION"
	TagPing           = "PING"
)

// Server -> Client tags.
const (
	TagJoinedGame      = "JOINED_GAME"
	TagUserJoined      = "USER_JOINED"
	TagUserLeft        = "USER_LEFT"
	TagGameStarting    = "GAME_STARTING"
	TagGameInProgress  = "GAME_IN_PROGRESS"
	TagRoundInProgress = "ROUND_IN_PROGRESS"
	TagRoundWaiting    = "ROUND_WAITING"
	TagRoundFinished   = "ROUND_FINISHED"
	TagAnswerAccepted  = "ANSWER_ACCEPTED"
	TagUserAnswered    = "USER_ANSWERED"
	TagGameFinished    = "GAME_FINISHED"
	TagGameDeleted     = "GAME_DELETED"
	TagNotOwner        = "NOT_OWNER"
	TagPong            = "PONG"
)

// ClientMessage is the outbound envelope.
type ClientMessage struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ServerMessage is the inbound envelope. Data stays raw until the tag
// tells us which payload to expect.
type ServerMessage struct {
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func MessageOnly(tag string) ClientMessage {
	return ClientMessage{Message: tag}
}

func WithData(tag string, data any) ClientMessage {
	return ClientMessage{Message: tag, Data: data}
}

type JoinGameData struct {
	GameID string `json:"game_id"`
}

type AnswerData struct {
	Option int `json:"option"`
}

// User is a room member as the server serializes it.
type User struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture"`
}

// Option carries the correct flag only in frames the server addresses to
// the owner or sends at reveal; participant round frames leave it false.
type Option struct {
	Name    string `json:"name"`
	Correct bool   `json:"correct,omitempty"`
}

type Question struct {
	Name    string   `json:"name"`
	Options []Option `json:"options"`
}

// Room is the JOINED_GAME payload: the server's view of one game instance.
type Room struct {
	ID            uint             `json:"id"`
	Status        string           `json:"status"`
	RoundStatus   string           `json:"round_status"`
	CurrentRound  int              `json:"current_round"`
	Points        float64          `json:"points"`
	Topic         string           `json:"topic"`
	RoundTime     int              `json:"round_time"`
	QuestionCount int              `json:"question_count"`
	InviteCode    string           `json:"invite_code"`
	Members       map[uint]User    `json:"members"`
	Owner         User             `json:"owner"`
	Leaderboard   map[uint]float64 `json:"leaderboard"`
}

type RoundData struct {
	Timer    int      `json:"timer"`
	Question Question `json:"question"`
}

type FinishedData struct {
	Correct     bool             `json:"correct"`
	Options     []Option         `json:"options"`
	Leaderboard map[uint]float64 `json:"leaderboard"`
}

type AnswerResponse struct {
	UserID uint `json:"user"`
	Option int  `json:"option"`
}
