package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/infrastructure/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// cashoutMessage is the client-to-server frame on the cashout socket
type cashoutMessage struct {
	Type          string `json:"type"`
	WagerID       int64  `json:"wagerId,omitempty"`
	OfferedAmount int64  `json:"offeredAmount,omitempty"`
}

// cashoutSession holds one connection's negotiation state. Offers are
// session-local quotes; acceptance always re-validates against the
// canonical wager status, so losing the session just voids the quote.
type cashoutSession struct {
	conn   *websocket.Conn
	offers map[int64]*entities.CashoutOffer
}

// handleCashoutSocket runs the cashout negotiation protocol over a websocket
func (s *Server) handleCashoutSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Error("Failed to upgrade cashout connection")
		return
	}
	defer conn.Close()

	session := &cashoutSession{
		conn:   conn,
		offers: make(map[int64]*entities.CashoutOffer),
	}

	for {
		var msg cashoutMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("Cashout socket closed unexpectedly")
			}
			return
		}

		s.handleCashoutMessage(c.Request.Context(), session, &msg)
	}
}

func (s *Server) handleCashoutMessage(ctx context.Context, session *cashoutSession, msg *cashoutMessage) {
	switch msg.Type {
	case "ping":
		session.send(gin.H{"type": "pong"})
	case "cashout.request":
		s.handleCashoutRequest(ctx, session, msg.WagerID)
	case "cashout.accept":
		s.handleCashoutAccept(ctx, session, msg.WagerID, msg.OfferedAmount)
	default:
		session.send(gin.H{
			"type":   "cashout.error",
			"reason": "unknown message type",
		})
	}
}

func (s *Server) handleCashoutRequest(ctx context.Context, session *cashoutSession, wagerID int64) {
	if wagerID == 0 {
		session.sendError(wagerID, "wagerId is required")
		return
	}

	offer, err := s.cashoutService.RequestCashout(ctx, wagerID)
	if err != nil {
		session.sendError(wagerID, err.Error())
		return
	}

	session.offers[wagerID] = offer

	if m := observability.GetMetrics(); m != nil {
		m.RecordCashoutOffer()
	}

	session.send(gin.H{
		"type":        "cashout.offered",
		"wagerId":     wagerID,
		"offer":       offer.Amount,
		"expiresInMs": offer.ExpiresInMs(time.Now()),
	})
}

func (s *Server) handleCashoutAccept(ctx context.Context, session *cashoutSession, wagerID, offeredAmount int64) {
	offer, ok := session.offers[wagerID]
	if !ok {
		session.sendError(wagerID, "no active offer for wager")
		return
	}

	newBalance, err := s.cashoutService.AcceptCashout(ctx, offer, offeredAmount)
	if err != nil {
		// Spent offers are dropped either way; a fresh quote needs a
		// fresh request.
		delete(session.offers, wagerID)
		session.sendError(wagerID, err.Error())
		return
	}

	delete(session.offers, wagerID)

	if m := observability.GetMetrics(); m != nil {
		m.RecordCashoutAccept()
	}

	session.send(gin.H{
		"type":       "cashout.success",
		"wagerId":    wagerID,
		"amount":     offer.Amount,
		"newBalance": newBalance,
	})
}

func (sess *cashoutSession) send(payload gin.H) {
	if err := sess.conn.WriteJSON(payload); err != nil {
		log.WithError(err).Warn("Failed to write cashout frame")
	}
}

func (sess *cashoutSession) sendError(wagerID int64, reason string) {
	sess.send(gin.H{
		"type":    "cashout.error",
		"wagerId": wagerID,
		"reason":  reason,
	})
}
