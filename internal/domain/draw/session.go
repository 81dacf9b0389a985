package draw

import (
	"context"
	"sync"

	"github.com/rafflelive/backend/internal/entity"
	"github.com/rafflelive/backend/internal/model"
)

// session is the in-memory state of one live draw. It exists only while
// the draw runs and is never persisted: a restarted orchestrator rebuilds
// the remaining list from the winner store instead of trusting memory.
type session struct {
	raffleID string

	ctx    context.Context
	cancel context.CancelFunc

	// mutex guards everything below. The orchestrator's sequential loop and
	// inbound viewer messages both touch this state.
	mutex sync.Mutex

	seq       int64
	remaining []entity.User
	completed map[int]bool
	winners   []model.SessionWinner

	// awaiting is the one position whose commit window is open right now,
	// zero between rounds. Seeds for any other position are refused: no
	// client entropy may exist before that round's commitment is fixed.
	awaiting int
	seeds    map[int]chan string
}

func newSession(ctx context.Context, raffleID string) *session {
	sctx, cancel := context.WithCancel(ctx)
	return &session{
		raffleID:  raffleID,
		ctx:       sctx,
		cancel:    cancel,
		completed: map[int]bool{},
		seeds:     map[int]chan string{},
	}
}

// restore seeds the session from the fixed participant order and the
// already-persisted winners, preserving the relative order of everyone
// still in the running.
func (s *session) restore(ordered []entity.User, winners []entity.Winner) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	wonUsers := map[string]bool{}
	for _, w := range winners {
		s.completed[w.Position] = true
		s.winners = append(s.winners, model.SessionWinner{
			Position: w.Position,
			User:     toDrawUser(w.User),
			Prize:    w.Prize,
		})
		wonUsers[w.UserID] = true
	}

	s.remaining = make([]entity.User, 0, len(ordered))
	for _, u := range ordered {
		if !wonUsers[u.ID] {
			s.remaining = append(s.remaining, u)
		}
	}
}

func (s *session) nextSeq() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.seq++
	return s.seq
}

func (s *session) roundSeq() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.seq
}

func (s *session) remainingUsers() []entity.User {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make([]entity.User, len(s.remaining))
	copy(out, s.remaining)
	return out
}

func (s *session) isCompleted(position int) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.completed[position]
}

func (s *session) completedCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.completed)
}

// markWon records a confirmed round: the position joins the completed set
// and the winner leaves the remaining list, order of the rest untouched.
func (s *session) markWon(position int, winner entity.User, prize string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.completed[position] = true
	s.winners = append(s.winners, model.SessionWinner{
		Position: position,
		User:     toDrawUser(winner),
		Prize:    prize,
	})

	kept := s.remaining[:0]
	for _, u := range s.remaining {
		if u.ID != winner.ID {
			kept = append(kept, u)
		}
	}
	s.remaining = kept
}

// openSeedWindow starts accepting client seeds for the position. Called
// only after the round's commitment exists.
func (s *session) openSeedWindow(position int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.awaiting = position
}

func (s *session) closeSeedWindow() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.awaiting = 0
}

// seedChan returns the one-slot channel a viewer-supplied client seed for
// the position arrives on.
func (s *session) seedChan(position int) chan string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.seedChanLocked(position)
}

func (s *session) seedChanLocked(position int) chan string {
	c, ok := s.seeds[position]
	if !ok {
		c = make(chan string, 1)
		s.seeds[position] = c
	}

	return c
}

// submitSeed accepts the first client seed offered for the position whose
// commit window is open and reports whether it was taken.
func (s *session) submitSeed(position int, seed string) bool {
	s.mutex.Lock()
	if s.awaiting != position {
		s.mutex.Unlock()
		return false
	}
	c := s.seedChanLocked(position)
	s.mutex.Unlock()

	select {
	case c <- seed:
		return true
	default:
		return false
	}
}

func toDrawUser(u entity.User) model.DrawUser {
	return model.DrawUser{
		ID:        u.TelegramID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func toDrawUsers(users []entity.User) []model.DrawUser {
	out := make([]model.DrawUser, 0, len(users))
	for _, u := range users {
		out = append(out, toDrawUser(u))
	}

	return out
}
