package entity

import "time"

const (
	WheelSpeedFast   = "fast"
	WheelSpeedMedium = "medium"
	WheelSpeedSlow   = "slow"
)

type Prize struct {
	// Position 1 is the grand prize. The draw runs positions in descending
	// order, last place first.
	Position    int    `json:"position"`
	Description string `json:"description"`
}

type Raffle struct {
	Base

	Title       string
	Description string
	PhotoURL    string

	Prizes Array[Prize] `gorm:"type:text"`

	StartTime time.Time
	EndTime   time.Time

	// DrawDelay is how long after EndTime the live draw begins.
	DrawDelay  time.Duration
	WheelSpeed string

	IsActive    bool
	IsCompleted bool
	DrawStarted bool
}

func (r *Raffle) PrizeAt(position int) (Prize, bool) {
	for _, p := range r.Prizes {
		if p.Position == position {
			return p, true
		}
	}

	return Prize{}, false
}
