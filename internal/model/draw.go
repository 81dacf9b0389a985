package model

// Outbound broadcast message kinds. Every round-scoped message carries the
// session's monotonic round sequence number so clients can discard stale or
// duplicate frames.
const (
	EventConnectionEstablished = "connection_established"
	EventSessionStarting       = "session_starting"
	EventRoundCommit           = "round_commit"
	EventRoundStart            = "round_start"
	EventRoundReveal           = "round_reveal"
	EventRoundComplete         = "round_complete"
	EventSessionComplete       = "session_complete"
	EventError                 = "error"
	EventPong                  = "pong"
)

// Inbound viewer message kinds.
const (
	EventPing = "ping"
	// EventClientSeed contributes participant-visible entropy to a round's
	// reveal. Optional; absence never stalls a round.
	EventClientSeed = "client_seed"
	// EventWinnerSelected is the legacy client acknowledgment. It is
	// accepted and logged but never trusted as a source of truth.
	EventWinnerSelected = "winner_selected"
)

type DrawUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type RaffleState struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
	DrawStarted bool   `json:"draw_started"`
}

type ConnectionEstablishedEvent struct {
	Type     string      `json:"type"`
	Raffle   RaffleState `json:"raffle"`
	RoundSeq int64       `json:"round_seq"`
}

type SessionStartingEvent struct {
	Type              string `json:"type"`
	TotalParticipants int    `json:"total_participants"`
	TotalPrizes       int    `json:"total_prizes"`
}

type RoundCommitEvent struct {
	Type                  string     `json:"type"`
	Position              int        `json:"position"`
	Prize                 string     `json:"prize"`
	CommitHash            string     `json:"commit_hash"`
	ParticipantsCount     int        `json:"participants_count"`
	RemainingParticipants []DrawUser `json:"remaining_participants"`
	RoundSeq              int64      `json:"round_seq"`
}

type RoundStartEvent struct {
	Type     string `json:"type"`
	Position int    `json:"position"`
	// AnimationEndTimestamp is unix milliseconds; every client stops its
	// wheel at the same wall-clock moment.
	AnimationEndTimestamp int64 `json:"animation_end_timestamp"`
	RoundSeq              int64 `json:"round_seq"`
}

type FairnessProof struct {
	ServerSeed  string `json:"server_seed"`
	ClientSeed  string `json:"client_seed"`
	WinnerIndex int    `json:"winner_index"`
	CommitHash  string `json:"commit_hash"`
}

type RoundRevealEvent struct {
	Type     string        `json:"type"`
	Position int           `json:"position"`
	Winner   DrawUser      `json:"winner"`
	Prize    string        `json:"prize"`
	Proof    FairnessProof `json:"proof"`
	RoundSeq int64         `json:"round_seq"`
}

type RoundCompleteEvent struct {
	Type     string `json:"type"`
	Position int    `json:"position"`
	RoundSeq int64  `json:"round_seq"`
}

type SessionWinner struct {
	Position int      `json:"position"`
	User     DrawUser `json:"user"`
	Prize    string   `json:"prize"`
}

type SessionCompleteEvent struct {
	Type    string          `json:"type"`
	Winners []SessionWinner `json:"winners"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type PongEvent struct {
	Type string `json:"type"`
}

// ViewerMessage is the envelope of every inbound viewer frame.
type ViewerMessage struct {
	Type     string    `json:"type"`
	Position int       `json:"position,omitempty"`
	Seed     string    `json:"seed,omitempty"`
	Winner   *DrawUser `json:"winner,omitempty"`
	Prize    string    `json:"prize,omitempty"`
}
