package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"bookie/settlement-engine/domain/entities"
	"bookie/settlement-engine/domain/interfaces"
	"bookie/settlement-engine/infrastructure/observability"
)

type settleWagerRequest struct {
	Result string `json:"result" binding:"required"`
}

type settleMatchRequest struct {
	Result string `json:"result" binding:"required"`
}

type batchItemResponse struct {
	WagerID int64  `json:"wagerId"`
	Status  string `json:"status"`
	Payout  int64  `json:"payout"`
	Error   string `json:"error,omitempty"`
}

// handleSettleWager settles a single wager with an admin-supplied result
func (s *Server) handleSettleWager(c *gin.Context) {
	wagerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wager id"})
		return
	}

	var req settleWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "result is required"})
		return
	}

	status, ok := parseWagerResult(req.Result)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "result must be won, lost or void"})
		return
	}

	result, err := s.settlementService.SettleWager(c.Request.Context(), wagerID, status)
	if err != nil {
		respondError(c, err)
		return
	}

	if m := observability.GetMetrics(); m != nil {
		m.RecordSettlement(string(result.Status))
	}

	c.JSON(http.StatusOK, gin.H{
		"wagerId": result.WagerID,
		"status":  string(result.Status),
		"payout":  result.Payout,
	})
}

// handleSettleMatch settles every wager with a pending leg on the event.
// Partial failure is reported per item, never as a batch-level error.
func (s *Server) handleSettleMatch(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var req settleMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "result is required"})
		return
	}

	selResult, ok := parseSelectionResult(req.Result)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "result must be won, lost or void"})
		return
	}

	items, err := s.settlementService.SettleMatch(c.Request.Context(), eventID, selResult)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"eventId": eventID,
		"items":   toBatchItemResponses(items),
	})
}

// handleSettlementSweep settles all pending wagers whose legs are resolved
func (s *Server) handleSettlementSweep(c *gin.Context) {
	items, err := s.settlementService.AutoSettle(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	var settled int
	var payoutTotal int64
	for _, item := range items {
		if item.Err != nil {
			log.WithFields(log.Fields{
				"wagerId": item.WagerID,
				"error":   item.Err,
			}).Warn("Sweep item failed")
			continue
		}
		settled++
		payoutTotal += item.Payout
		if m := observability.GetMetrics(); m != nil {
			m.RecordSettlement(string(item.Status))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"settled":     settled,
		"payoutTotal": payoutTotal,
	})
}

func parseWagerResult(raw string) (entities.WagerStatus, bool) {
	switch entities.WagerStatus(raw) {
	case entities.WagerStatusWon, entities.WagerStatusLost, entities.WagerStatusVoid:
		return entities.WagerStatus(raw), true
	default:
		return "", false
	}
}

func parseSelectionResult(raw string) (entities.SelectionResult, bool) {
	switch entities.SelectionResult(raw) {
	case entities.SelectionResultWon, entities.SelectionResultLost, entities.SelectionResultVoid:
		return entities.SelectionResult(raw), true
	default:
		return "", false
	}
}

func toBatchItemResponses(items []interfaces.BatchItemResult) []batchItemResponse {
	responses := make([]batchItemResponse, 0, len(items))
	for _, item := range items {
		resp := batchItemResponse{
			WagerID: item.WagerID,
			Status:  string(item.Status),
			Payout:  item.Payout,
		}
		if item.Err != nil {
			resp.Error = item.Err.Error()
		}
		responses = append(responses, resp)
	}
	return responses
}
