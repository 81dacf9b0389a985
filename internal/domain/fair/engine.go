// Package fair implements the commit-reveal protocol that makes a draw
// round verifiable after the fact. The server commits to a secret seed
// before any client input is known; once the client seed is fixed, the
// winner index is a pure function of both seeds, so the server cannot pick
// a winner late and a client cannot target one early.
package fair

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/puzpuzpuz/xsync"
	"github.com/rafflelive/backend/pkg/crypto"
)

var ErrNoSuchCommitment = errors.New("no commitment for this round")

const serverSeedBytes = 32

type Commitment struct {
	CommitHash        string
	ParticipantsCount int
	Timestamp         int64
}

type Reveal struct {
	ServerSeed       string
	ClientSeed       string
	WinnerIndex      int
	CommitHash       string
	VerificationHash string
	RevealedAt       int64
}

type commitRecord struct {
	commitHash        string
	serverSeed        string
	participantsCount int
	timestamp         int64
}

// Engine stores one pending commitment per (raffle, position). Records are
// single-use: Reveal consumes them.
type Engine struct {
	commits *xsync.MapOf[string, *commitRecord]
}

func NewEngine() *Engine {
	return &Engine{commits: xsync.NewMapOf[*commitRecord]()}
}

func (e *Engine) GenerateServerSeed() (string, error) {
	return crypto.RandomHex(serverSeedBytes)
}

// Commit binds the server to serverSeed for this round and returns the
// publishable commitment. The hash is keyed by the seed itself, so it is
// not invertible before the reveal, yet any third party can recompute it
// once the seed is disclosed.
func (e *Engine) Commit(
	raffleID string, position int, serverSeed string, participantsCount int,
) (Commitment, error) {
	if participantsCount <= 0 {
		return Commitment{}, fmt.Errorf("invalid participants count %d", participantsCount)
	}

	record := &commitRecord{
		commitHash:        commitHash(raffleID, position, serverSeed, participantsCount),
		serverSeed:        serverSeed,
		participantsCount: participantsCount,
		timestamp:         time.Now().UnixMilli(),
	}

	e.commits.Store(commitKey(raffleID, position), record)

	return Commitment{
		CommitHash:        record.commitHash,
		ParticipantsCount: participantsCount,
		Timestamp:         record.timestamp,
	}, nil
}

// Reveal consumes the round's commitment and resolves the winner index from
// both seeds. Calling it before Commit, or twice, is an ordering bug and
// fails with ErrNoSuchCommitment.
func (e *Engine) Reveal(raffleID string, position int, clientSeed string) (Reveal, error) {
	record, ok := e.commits.LoadAndDelete(commitKey(raffleID, position))
	if !ok {
		return Reveal{}, ErrNoSuchCommitment
	}

	return Reveal{
		ServerSeed:       record.serverSeed,
		ClientSeed:       clientSeed,
		WinnerIndex:      WinnerIndex(record.serverSeed, clientSeed, record.participantsCount),
		CommitHash:       record.commitHash,
		VerificationHash: commitHash(raffleID, position, record.serverSeed, record.participantsCount),
		RevealedAt:       time.Now().UnixMilli(),
	}, nil
}

// Drop discards any pending commitment for the round. Used on session
// teardown so an aborted round cannot leak a consumable record.
func (e *Engine) Drop(raffleID string, position int) {
	e.commits.Delete(commitKey(raffleID, position))
}

// WinnerIndex is a pure function of the two seeds and the remaining
// participant count: the first four bytes of SHA-256(serverSeed+clientSeed)
// taken modulo the count.
func WinnerIndex(serverSeed, clientSeed string, participantsCount int) int {
	digest := crypto.SHA256Hex([]byte(serverSeed + clientSeed))
	n, err := strconv.ParseUint(digest[:8], 16, 32)
	if err != nil {
		// Unreachable: the digest is hex by construction.
		panic(err)
	}

	return int(n % uint64(participantsCount))
}

// VerifyFairness lets any observer recompute a published result. It holds
// only if the commit hash matches the disclosed seed and the claimed index
// matches the seed-derived one.
func VerifyFairness(
	raffleID string, position int,
	commitHash_, serverSeed, clientSeed string,
	participantsCount, claimedIndex int,
) bool {
	if participantsCount <= 0 {
		return false
	}

	if commitHash(raffleID, position, serverSeed, participantsCount) != commitHash_ {
		return false
	}

	return WinnerIndex(serverSeed, clientSeed, participantsCount) == claimedIndex
}

func commitKey(raffleID string, position int) string {
	return fmt.Sprintf("%s_%d", raffleID, position)
}

func commitHash(raffleID string, position int, serverSeed string, participantsCount int) string {
	data := fmt.Sprintf("%s:%d:%s:%d", raffleID, position, serverSeed, participantsCount)
	return crypto.HMAC(sha256.New, []byte(data), []byte(serverSeed))
}
