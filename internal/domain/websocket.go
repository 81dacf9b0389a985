package domain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rafflelive/backend/internal/domain/draw"
	"github.com/rafflelive/backend/internal/model"
	"github.com/rafflelive/backend/internal/repository"
	"github.com/rafflelive/backend/pkg/ws"
	"github.com/rafflelive/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type WsDomain interface {
	ServeViewer(w http.ResponseWriter, r *http.Request)
}

type wsDomain struct {
	raffleRepo  repository.RaffleRepository
	drawManager *draw.Manager
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func NewWsDomain(
	raffleRepo repository.RaffleRepository,
	drawManager *draw.Manager,
) *wsDomain {
	return &wsDomain{
		raffleRepo:  raffleRepo,
		drawManager: drawManager,
	}
}

// ServeViewer upgrades a viewer connection, replays the raffle's current
// flags and round sequence so a mid-session joiner can reconcile, then
// bridges the hub and the socket until either side goes away. Every
// outbound frame is zlib-compressed; inbound frames are plain JSON.
func (d *wsDomain) ServeViewer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raffleID := r.URL.Query().Get("raffle_id")
	raffle, err := d.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Raffle is not valid", http.StatusBadRequest)
			return
		}

		xcontext.Logger(ctx).Errorf("Cannot get raffle: %v", err)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "Unable to connect server", http.StatusInternalServerError)
		return
	}

	viewerID := uuid.NewString()
	hub := d.drawManager.Hub()

	outbound, err := hub.Connect(raffleID, viewerID)
	if err != nil {
		conn.Close()
		return
	}

	client := ws.NewClient(conn)
	defer func() {
		hub.Disconnect(raffleID, viewerID)
		client.Close()
	}()

	snapshot, err := json.Marshal(model.ConnectionEstablishedEvent{
		Type: model.EventConnectionEstablished,
		Raffle: model.RaffleState{
			ID:          raffle.ID,
			Title:       raffle.Title,
			IsCompleted: raffle.IsCompleted,
			DrawStarted: raffle.DrawStarted,
		},
		RoundSeq: d.drawManager.RoundSeq(raffleID),
	})
	if err == nil {
		if err := client.Write(snapshot, true); err != nil {
			xcontext.Logger(ctx).Debugf("Cannot send snapshot to viewer %s: %v", viewerID, err)
		}
	}

	go func() {
		for msg := range outbound {
			if err := client.Write(msg, true); err != nil {
				xcontext.Logger(ctx).Debugf("Viewer %s write failed: %v", viewerID, err)
				return
			}
		}
	}()

	for raw := range client.R {
		d.handleViewerMessage(ctx, client, raffleID, raw)
	}
}

func (d *wsDomain) handleViewerMessage(
	ctx context.Context, client *ws.Client, raffleID string, raw []byte,
) {
	var msg model.ViewerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		xcontext.Logger(ctx).Debugf("Cannot parse viewer message: %v", err)
		return
	}

	switch msg.Type {
	case model.EventPing:
		b, err := json.Marshal(model.PongEvent{Type: model.EventPong})
		if err == nil {
			if err := client.Write(b, true); err != nil {
				xcontext.Logger(ctx).Debugf("Cannot send pong: %v", err)
			}
		}

	case model.EventClientSeed:
		d.drawManager.SubmitClientSeed(ctx, raffleID, msg.Position, msg.Seed)

	case model.EventWinnerSelected:
		if msg.Winner != nil {
			d.drawManager.SubmitWinnerAck(ctx, raffleID, msg.Position, msg.Winner.ID)
		}

	default:
		xcontext.Logger(ctx).Debugf("Unknown viewer message type %q", msg.Type)
	}
}
