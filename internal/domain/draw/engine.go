package draw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rafflelive/backend/internal/entity"
	"github.com/rafflelive/backend/internal/model"
	"github.com/rafflelive/backend/pkg/crypto"
	"github.com/rafflelive/backend/pkg/pubsub"
	"github.com/rafflelive/backend/pkg/xcontext"
	"golang.org/x/exp/slices"
)

// errLockTimeout marks a round whose persistence lock could not be taken in
// time. The round is skipped, never silently duplicated; a later session
// picks the position up again.
var errLockTimeout = errors.New("round lock timeout")

const clientSeedBytes = 16

// run drives one raffle's full draw from start to completion or failure.
// Rounds are strictly sequential; every wait is a timer select on the
// session context so cancellation lands between rounds.
func (m *Manager) run(ctx context.Context, sess *session, raffle *entity.Raffle) {
	defer m.teardown(sess)
	defer func() {
		if r := recover(); r != nil {
			xcontext.Logger(ctx).Errorf("Draw session for raffle %s panicked: %v", raffle.ID, r)
			m.broadcastError(ctx, raffle.ID)
		}
	}()

	ordered, err := m.participantRepo.GetOrderedUsersByRaffleID(ctx, raffle.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get participants of raffle %s: %v", raffle.ID, err)
		m.broadcastError(ctx, raffle.ID)
		return
	}

	if len(ordered) < len(raffle.Prizes) {
		xcontext.Logger(ctx).Warnf("Raffle %s aborted: %d participants for %d prizes",
			raffle.ID, len(ordered), len(raffle.Prizes))

		if err := m.raffleRepo.Deactivate(ctx, raffle.ID); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot deactivate raffle %s: %v", raffle.ID, err)
		}

		m.hub.Broadcast(ctx, raffle.ID, model.EventError, 0, model.ErrorEvent{
			Type:    model.EventError,
			Message: "Not enough participants to run the draw",
		})
		return
	}

	// Winners persisted by an earlier, interrupted session stay won. The
	// remaining pool is always the fixed order minus the winner store.
	persisted, err := m.winnerRepo.GetByRaffleID(ctx, raffle.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get persisted winners of raffle %s: %v", raffle.ID, err)
		m.broadcastError(ctx, raffle.ID)
		return
	}
	sess.restore(ordered, persisted)

	m.hub.ResetSession(raffle.ID)
	m.hub.Broadcast(ctx, raffle.ID, model.EventSessionStarting, 0, model.SessionStartingEvent{
		Type:              model.EventSessionStarting,
		TotalParticipants: len(ordered),
		TotalPrizes:       len(raffle.Prizes),
	})

	xcontext.Logger(ctx).Infof("Draw session for raffle %s started with %d participants",
		raffle.ID, len(ordered))

	cfg := xcontext.Configs(ctx).Draw
	if err := sleep(ctx, cfg.AnnouncementDelay); err != nil {
		m.finalize(ctx, sess, raffle)
		return
	}

	// Last place first, grand prize last.
	positions := make([]int, 0, len(raffle.Prizes))
	for _, p := range raffle.Prizes {
		positions = append(positions, p.Position)
	}
	slices.SortFunc(positions, func(a, b int) bool { return a > b })

	for _, position := range positions {
		if ctx.Err() != nil {
			break
		}

		if sess.isCompleted(position) {
			continue
		}

		if len(sess.remainingUsers()) == 0 {
			xcontext.Logger(ctx).Warnf(
				"Raffle %s ran out of participants before position %d", raffle.ID, position)
			break
		}

		err := m.runRound(ctx, sess, raffle, position)
		switch {
		case err == nil:
		case errors.Is(err, errLockTimeout):
			m.fairEngine.Drop(raffle.ID, position)
			xcontext.Logger(ctx).Warnf(
				"Skipped position %d of raffle %s: lock not acquired", position, raffle.ID)
			continue
		case errors.Is(err, context.Canceled):
			m.finalize(ctx, sess, raffle)
			return
		default:
			xcontext.Logger(ctx).Errorf(
				"Round %d of raffle %s failed: %v", position, raffle.ID, err)
			m.broadcastError(ctx, raffle.ID)
			return
		}

		if err := sleep(ctx, cfg.InterRoundPause); err != nil {
			break
		}
	}

	m.finalize(ctx, sess, raffle)
}

func (m *Manager) runRound(
	ctx context.Context, sess *session, raffle *entity.Raffle, position int,
) error {
	cfg := xcontext.Configs(ctx).Draw

	prize, ok := raffle.PrizeAt(position)
	if !ok {
		return fmt.Errorf("no prize at position %d", position)
	}

	remaining := sess.remainingUsers()

	serverSeed, err := m.fairEngine.GenerateServerSeed()
	if err != nil {
		return err
	}

	commitment, err := m.fairEngine.Commit(raffle.ID, position, serverSeed, len(remaining))
	if err != nil {
		return err
	}

	// The commitment is fixed before any client entropy is accepted; the
	// server seed itself never leaves the engine until the reveal.
	sess.openSeedWindow(position)
	m.hub.Broadcast(ctx, raffle.ID, model.EventRoundCommit, position, model.RoundCommitEvent{
		Type:                  model.EventRoundCommit,
		Position:              position,
		Prize:                 prize.Description,
		CommitHash:            commitment.CommitHash,
		ParticipantsCount:     commitment.ParticipantsCount,
		RemainingParticipants: toDrawUsers(remaining),
		RoundSeq:              sess.nextSeq(),
	})

	clientSeed, err := m.waitClientSeed(ctx, sess, position, cfg.CommitWindow)
	sess.closeSeedWindow()
	if err != nil {
		return err
	}

	animation := cfg.AnimationDuration(raffle.WheelSpeed)
	m.hub.Broadcast(ctx, raffle.ID, model.EventRoundStart, position, model.RoundStartEvent{
		Type:                  model.EventRoundStart,
		Position:              position,
		AnimationEndTimestamp: time.Now().Add(animation).UnixMilli(),
		RoundSeq:              sess.nextSeq(),
	})

	if err := sleep(ctx, animation); err != nil {
		return err
	}

	reveal, err := m.fairEngine.Reveal(raffle.ID, position, clientSeed)
	if err != nil {
		return err
	}

	winner := remaining[reveal.WinnerIndex]

	key := roundLockKey(raffle.ID, position)
	acquired, err := m.locker.Acquire(ctx, key, cfg.LockWait, cfg.LockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		return errLockTimeout
	}
	defer m.locker.Release(ctx, key)

	created, err := m.winnerRepo.TryAward(ctx, raffle.ID, position, winner.ID, prize.Description)
	if err != nil {
		return err
	}

	if !created {
		// Another attempt got there first; the award stands, confirm it
		// anyway so viewers converge.
		xcontext.Logger(ctx).Warnf(
			"Position %d of raffle %s was already awarded", position, raffle.ID)
	}

	sess.markWon(position, winner, prize.Description)

	m.hub.Broadcast(ctx, raffle.ID, model.EventRoundReveal, position, model.RoundRevealEvent{
		Type:     model.EventRoundReveal,
		Position: position,
		Winner:   toDrawUser(winner),
		Prize:    prize.Description,
		Proof: model.FairnessProof{
			ServerSeed:  reveal.ServerSeed,
			ClientSeed:  reveal.ClientSeed,
			WinnerIndex: reveal.WinnerIndex,
			CommitHash:  reveal.CommitHash,
		},
		RoundSeq: sess.nextSeq(),
	})

	m.hub.Broadcast(ctx, raffle.ID, model.EventRoundComplete, position, model.RoundCompleteEvent{
		Type:     model.EventRoundComplete,
		Position: position,
		RoundSeq: sess.nextSeq(),
	})

	return nil
}

// waitClientSeed holds the round open for viewer entropy until the commit
// window closes, then synthesizes a seed locally. Fairness holds either
// way; a client seed only adds participant-visible unpredictability.
func (m *Manager) waitClientSeed(
	ctx context.Context, sess *session, position int, window time.Duration,
) (string, error) {
	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case seed := <-sess.seedChan(position):
		return seed, nil
	case <-timer.C:
		return crypto.RandomHex(clientSeedBytes)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// finalize closes the session out against the winner store, not the
// in-memory state, so a resumed process counts rounds persisted by its
// predecessor.
func (m *Manager) finalize(ctx context.Context, sess *session, raffle *entity.Raffle) {
	// Runs on the cancellation path too, so detach from the session's
	// lifetime while keeping the database and logger.
	ctx = context.WithoutCancel(ctx)

	count, err := m.winnerRepo.CountByRaffleID(ctx, raffle.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count winners of raffle %s: %v", raffle.ID, err)
		return
	}

	if count < int64(len(raffle.Prizes)) {
		// Some positions were skipped or the session was cancelled early.
		// The raffle keeps draw_started so a later pass resumes it.
		xcontext.Logger(ctx).Warnf("Raffle %s finalized with %d of %d positions awarded",
			raffle.ID, count, len(raffle.Prizes))
		return
	}

	// The completion flag and the winner list commit together; if the read
	// fails the flag rolls back and the raffle stays resumable.
	txCtx := xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(txCtx)

	if err := m.raffleRepo.SetCompleted(txCtx, raffle.ID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot complete raffle %s: %v", raffle.ID, err)
		return
	}

	winners, err := m.winnerRepo.GetByRaffleID(txCtx, raffle.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get winners of raffle %s: %v", raffle.ID, err)
		return
	}

	xcontext.WithCommitDBTransaction(txCtx)

	finalWinners := make([]model.SessionWinner, 0, len(winners))
	for _, w := range winners {
		finalWinners = append(finalWinners, model.SessionWinner{
			Position: w.Position,
			User:     toDrawUser(w.User),
			Prize:    w.Prize,
		})
	}

	m.hub.Broadcast(ctx, raffle.ID, model.EventSessionComplete, 0, model.SessionCompleteEvent{
		Type:    model.EventSessionComplete,
		Winners: finalWinners,
	})

	m.notifyWinners(ctx, raffle.ID, finalWinners)

	xcontext.Logger(ctx).Infof("Raffle %s completed with %d winners", raffle.ID, len(finalWinners))
}

func (m *Manager) notifyWinners(ctx context.Context, raffleID string, winners []model.SessionWinner) {
	if m.publisher == nil {
		return
	}

	b, err := json.Marshal(winners)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal winners of raffle %s: %v", raffleID, err)
		return
	}

	topic := xcontext.Configs(ctx).Notification.WinnersTopic
	err = m.publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(raffleID), Msg: b})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot publish winners of raffle %s: %v", raffleID, err)
	}
}

func (m *Manager) broadcastError(ctx context.Context, raffleID string) {
	m.hub.Broadcast(ctx, raffleID, model.EventError, 0, model.ErrorEvent{
		Type:    model.EventError,
		Message: "An error occurred while running the draw",
	})
}

func roundLockKey(raffleID string, position int) string {
	return fmt.Sprintf("draw:raffle:%s:pos:%d", raffleID, position)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
