package entity

const (
	BoardSize  = 15
	MaxPlayers = 2
)

const (
	ColorBlack = "black"
	ColorWhite = "white"

	EmptyCell = ""
)

const (
	StageAuthentication = "authentication"
	StageWaitingJoin    = "waiting_join"
	StageColorSelection = "color_selection"
	StageWaitingReady   = "waiting_ready"
	StagePlaying        = "playing"
	StageGameOver       = "game_over"
)

// Board is the 15x15 grid. A cell holds ColorBlack, ColorWhite or EmptyCell.
type Board [BoardSize][BoardSize]string

// Game is the single authoritative game record shared by both sessions.
// The JSON field names are the wire contract: every broadcast is this
// struct, optionally extended per recipient by the transport.
type Game struct {
	Board         Board                    `json:"board"`
	CurrentPlayer string                   `json:"current_player"`
	GameOver      bool                     `json:"game_over"`
	Winner        string                   `json:"winner"`
	GameStarted   bool                     `json:"game_started"`
	ReadyPlayers  int                      `json:"ready_players"`
	Players       map[string]*PlayerStatus `json:"players"`
	Stage         string                   `json:"stage"`
	RestartVotes  int                      `json:"restart_votes"`
}

func NewGame() *Game {
	return &Game{
		CurrentPlayer: ColorBlack,
		Stage:         StageWaitingJoin,
		Players:       make(map[string]*PlayerStatus),
	}
}

// ResetRound clears the board and the per-round flags. Stage, colors and
// ready flags are untouched; callers decide those per transition.
func (that *Game) ResetRound() {
	that.Board = Board{}
	that.CurrentPlayer = ColorBlack
	that.GameOver = false
	that.Winner = ""
	that.GameStarted = false
	that.RestartVotes = 0
}

func (that *Game) IsPlaying() bool {
	return that.Stage == StagePlaying
}

func (that *Game) IsGameOver() bool {
	return that.Stage == StageGameOver
}

// Snapshot returns a deep copy safe to serialize after the room lock is
// released. Board is an array and copies by value; Players must be cloned.
func (that *Game) Snapshot() *Game {
	snapshot := *that

	snapshot.Players = make(map[string]*PlayerStatus, len(that.Players))
	for username, status := range that.Players {
		statusCopy := *status
		snapshot.Players[username] = &statusCopy
	}

	return &snapshot
}

func (that *Game) InBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

func OppositeColor(color string) string {
	if color == ColorBlack {
		return ColorWhite
	}
	return ColorBlack
}

func IsValidColor(color string) bool {
	return color == ColorBlack || color == ColorWhite
}
