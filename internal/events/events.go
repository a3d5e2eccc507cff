// Package events defines the closed set of inbound commands and outbound
// events that cross the socket boundary, per the wire contract. The wire
// format is camelCase JSON; the source's mixed snake_case/camelCase keys are
// not supported — SessionRouter rejects anything that doesn't parse into one
// of these types ("unknown event" is a bug, not a degrade path).
package events

// ErrorKind is the closed taxonomy of error events sent to a client.
type ErrorKind string

const (
	ErrorValidation    ErrorKind = "validation"
	ErrorAuthorization ErrorKind = "authorization"
	ErrorNotFound      ErrorKind = "not_found"
	ErrorConflict      ErrorKind = "conflict"
	ErrorTransient     ErrorKind = "transient"
	ErrorFatal         ErrorKind = "fatal"
)

// ErrorEvent is the sole shape for every "error" event sent to a client.
type ErrorEvent struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Inbound commands (client -> server).

type JoinGame struct {
	GameID string `json:"gameId"`
}

type ActionType string

const (
	ActionFold   ActionType = "fold"
	ActionCheck  ActionType = "check"
	ActionCall   ActionType = "call"
	ActionBet    ActionType = "bet"
	ActionRaise  ActionType = "raise"
	ActionAllIn  ActionType = "allin"
	ActionReveal ActionType = "reveal"
)

type PlayerAction struct {
	GameID string     `json:"gameId"`
	Type   ActionType `json:"type"`
	Amount int64      `json:"amount,omitempty"`
	Index  int        `json:"index,omitempty"`
	Seat   int        `json:"seat"`
}

type JoinQueue struct {
	QueueType string `json:"queueType"`
}

type LeaveQueue struct {
	QueueType string `json:"queueType"`
}

type CheckQueueStatus struct{}

type CheckActiveSession struct{}

type CheckActiveStatus struct{}

type RequestSeat struct {
	GameID string `json:"gameId"`
}

type HostSelfSeat struct {
	GameID    string `json:"gameId"`
	SeatIndex *int   `json:"seatIndex,omitempty"`
}

type AdminActionType string

const (
	AdminPause        AdminActionType = "ADMIN_PAUSE"
	AdminResume       AdminActionType = "ADMIN_RESUME"
	AdminStartGame    AdminActionType = "ADMIN_START_GAME"
	AdminKick         AdminActionType = "ADMIN_KICK"
	AdminApprove      AdminActionType = "ADMIN_APPROVE"
	AdminReject       AdminActionType = "ADMIN_REJECT"
	AdminSetStack     AdminActionType = "ADMIN_SET_STACK"
	AdminSetBlinds    AdminActionType = "ADMIN_SET_BLINDS"
)

type AdminAction struct {
	GameID  string                 `json:"gameId"`
	Type    AdminActionType        `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

type RegisterTournament struct {
	TournamentID string `json:"tournamentId"`
}

type UnregisterTournament struct{}

type TournamentAdminActionType string

const (
	TournamentUpdateSettings  TournamentAdminActionType = "UPDATE_SETTINGS"
	TournamentOpenRegistration TournamentAdminActionType = "OPEN_REGISTRATION"
	TournamentStart           TournamentAdminActionType = "START_TOURNAMENT"
	TournamentPause           TournamentAdminActionType = "PAUSE_TOURNAMENT"
	TournamentResume          TournamentAdminActionType = "RESUME_TOURNAMENT"
	TournamentCancel          TournamentAdminActionType = "CANCEL_TOURNAMENT"
	TournamentBanPlayer       TournamentAdminActionType = "BAN_PLAYER"
	TournamentRegisterPlayer  TournamentAdminActionType = "REGISTER_PLAYER"
	TournamentTransferPlayer  TournamentAdminActionType = "TRANSFER_PLAYER"
)

type TournamentAdminAction struct {
	TournamentID string                     `json:"tournamentId"`
	Type         TournamentAdminActionType   `json:"type"`
	Settings     map[string]interface{}      `json:"settings,omitempty"`
}

type GetTournamentState struct {
	TournamentID string `json:"tournamentId"`
}

type JoinTournamentRoom struct {
	TournamentID string `json:"tournamentId"`
}

type JoinTable struct {
	TableID string `json:"tableId"`
}

// Outbound events (server -> client).

type PlayerView struct {
	UserID           string  `json:"userId"`
	Seat             int     `json:"seat"`
	Chips            int64   `json:"chips"`
	CurrentBet       int64   `json:"currentBet"`
	HoleCards        []CardView `json:"holeCards"` // nil unless self or showdown-revealed
	Folded           bool    `json:"folded"`
	AllIn            bool    `json:"allIn"`
	Status           string  `json:"status"`
}

type CardView struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

type PotView struct {
	Amount      int64    `json:"amount"`
	EligibleSet []string `json:"eligibleSet"`
}

type GameState struct {
	GameID           string       `json:"gameId"`
	Players          []PlayerView `json:"players"`
	CommunityCards   []CardView   `json:"communityCards"`
	Pots             []PotView    `json:"pots"`
	ButtonSeat       int          `json:"buttonSeat"`
	SBSeat           int          `json:"sbSeat"`
	BBSeat           int          `json:"bbSeat"`
	CurrentPhase     string       `json:"currentPhase"`
	CurrentActorSeat int          `json:"currentActorSeat"`
	MinRaise         int64        `json:"minRaise"`
	LastRaiseAmount  int64        `json:"lastRaiseAmount"`
	HandNumber       int          `json:"handNumber"`
	SmallBlind       int64        `json:"smallBlind"`
	BigBlind         int64        `json:"bigBlind"`
	HighBet          int64        `json:"highBet"`
}

type SyncGame struct {
	GameState GameState `json:"gameState"`
}

type DealStreet struct {
	Round          string     `json:"round"`
	Cards          []CardView `json:"cards"`
	CommunityCards []CardView `json:"communityCards"`
}

type HandRunout struct {
	WinnerID string     `json:"winnerId"`
	Board    []CardView `json:"board"`
}

type TurnTimerStarted struct {
	Deadline   int64 `json:"deadline"`
	Duration   int64 `json:"duration"`
	ActiveSeat int   `json:"activeSeat"`
}

type PlayerStatusUpdate struct {
	PlayerID  string `json:"playerId"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Action    string `json:"action,omitempty"`
}

type PlayerMovedToSpectator struct {
	PlayerID string `json:"playerId"`
}

type PlayerEliminated struct {
	PlayerID string `json:"playerId"`
}

type SeatVacated struct {
	SeatIndex int `json:"seatIndex"`
}

type MatchFound struct {
	GameID       string  `json:"gameId"`
	TournamentID *string `json:"tournamentId,omitempty"`
}

type QueueInfo struct {
	QueueType string `json:"queueType"`
	Count     int    `json:"count"`
	Needed    int    `json:"needed"`
	Target    int    `json:"target"`
}

type QueueUpdate struct {
	QueueType string `json:"queueType"`
	Count     int    `json:"count"`
}

type QueueStatus struct {
	InQueue   bool   `json:"inQueue"`
	QueueType string `json:"queueType,omitempty"`
}

type HandStats struct {
	TotalHands     int              `json:"totalHands"`
	StartingStacks map[string]int64 `json:"startingStacks"`
	FinalStacks    map[string]int64 `json:"finalStacks"`
	ChipChanges    map[string]int64 `json:"chipChanges"`
}

// GameFinished is the canonical event name; the source also emitted
// GAME_ENDED with an overlapping payload, which is kept only as the
// gameEnded alias below (§9 open question resolution).
type GameFinished struct {
	Reason    string     `json:"reason"`
	WinnerID  string     `json:"winnerId"`
	Timestamp int64      `json:"timestamp"`
	Stats     *HandStats `json:"stats,omitempty"`
}

type GameEnded GameFinished

type GameReconnected struct {
	GameID string `json:"gameId"`
}

type TournamentStatusChanged struct {
	TournamentID string `json:"tournamentId"`
	Status       string `json:"status"`
}

type TournamentPlayerRegistered struct {
	TournamentID string `json:"tournamentId"`
	UserID       string `json:"userId"`
}

type TournamentPlayerUnregistered struct {
	TournamentID string `json:"tournamentId"`
	UserID       string `json:"userId"`
}

type TournamentParticipantCountChanged struct {
	TournamentID string `json:"tournamentId"`
	Count        int    `json:"count"`
}

type TournamentBlindLevelAdvanced struct {
	Level       int   `json:"level"`
	SmallBlind  int64 `json:"smallBlind"`
	BigBlind    int64 `json:"bigBlind"`
	LevelEndsAt int64 `json:"levelEndsAt"`
}

type TournamentLevelWarning struct {
	TimeRemainingMs int64 `json:"timeRemainingMs"`
	CurrentLevel    int   `json:"currentLevel"`
}

type TournamentPlayerEliminated struct {
	TournamentID   string `json:"tournamentId"`
	UserID         string `json:"userId"`
	FinishPosition int    `json:"finishPosition"`
}

type TournamentPlayerTransferred struct {
	UserID       string `json:"userId"`
	SourceTableID string `json:"sourceTableId"`
	TargetTableID string `json:"targetTableId"`
	TargetSeat    int    `json:"targetSeat"`
}

type TournamentTablesBalanced struct {
	TournamentID string `json:"tournamentId"`
}

type TournamentTablesMerged struct {
	TournamentID string `json:"tournamentId"`
}

type TournamentResult struct {
	UserID         string `json:"userId"`
	FinishPosition int    `json:"finishPosition"`
}

type TournamentCompleted struct {
	TournamentID string              `json:"tournamentId"`
	WinnerID     string              `json:"winnerId"`
	Results      []TournamentResult  `json:"results"`
}

type TournamentCancelled struct {
	TournamentID string `json:"tournamentId"`
}

type TournamentPlayerBanned struct {
	TournamentID string `json:"tournamentId"`
	UserID       string `json:"userId"`
}

type TournamentPlayerLeft struct {
	TournamentID string `json:"tournamentId"`
	UserID       string `json:"userId"`
}

// SessionStatus answers CheckActiveSession.
type SessionStatus struct {
	InGame bool    `json:"inGame"`
	GameID *string `json:"gameId,omitempty"`
	Status string  `json:"status,omitempty"`
}

// ActiveStatus answers CheckActiveStatus, consolidating game, tournament and
// queue membership in one payload.
type ActiveStatus struct {
	Game       *string `json:"game,omitempty"`
	Tournament *string `json:"tournament,omitempty"`
	Queue      *string `json:"queue,omitempty"`
}

// TournamentStateView is the outbound payload for GetTournamentState.
type TournamentStateView struct {
	TournamentID string                     `json:"tournamentId"`
	Status       string                     `json:"status"`
	CurrentLevel int                        `json:"currentLevel"`
	Participants []TournamentParticipantView `json:"participants"`
}

type TournamentParticipantView struct {
	UserID         string `json:"userId"`
	Status         string `json:"status"`
	CurrentStack   int64  `json:"currentStack"`
	CurrentTableID string `json:"currentTableId,omitempty"`
	FinishPosition int    `json:"finishPosition,omitempty"`
}
