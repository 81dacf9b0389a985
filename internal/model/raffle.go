package model

type Prize struct {
	Position    int    `json:"position"`
	Description string `json:"description"`
}

type Raffle struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	PhotoURL    string  `json:"photo_url"`
	Prizes      []Prize `json:"prizes"`
	WheelSpeed  string  `json:"wheel_speed"`
	IsActive    bool    `json:"is_active"`
	IsCompleted bool    `json:"is_completed"`
	DrawStarted bool    `json:"draw_started"`
}

type GetRaffleRequest struct {
	RaffleID string `json:"raffle_id"`
}

type GetRaffleResponse struct {
	Raffle Raffle `json:"raffle"`
}

type GetWinnersRequest struct {
	RaffleID string `json:"raffle_id"`
}

type GetWinnersResponse struct {
	Winners []SessionWinner `json:"winners"`
}

type VerifyFairnessRequest struct {
	RaffleID          string `json:"raffle_id"`
	Position          int    `json:"position"`
	CommitHash        string `json:"commit_hash"`
	ServerSeed        string `json:"server_seed"`
	ClientSeed        string `json:"client_seed"`
	ParticipantsCount int    `json:"participants_count"`
	WinnerIndex       int    `json:"winner_index"`
}

type VerifyFairnessResponse struct {
	Valid bool `json:"valid"`
}
