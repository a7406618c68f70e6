package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"solana-presale/internal/domain"
	"solana-presale/internal/solana"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	snap := s.sale.Snapshot()
	cfg := s.sale.Config()
	dust, err := s.sale.Dust()
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		SaleID:             snap.SaleID,
		Owner:              snap.Owner,
		Phase:              s.sale.Phase(),
		HasStarted:         s.sale.HasStarted(),
		HasEnded:           s.sale.HasEnded(),
		RemainingTime:      s.sale.RemainingTime(),
		StartTime:          cfg.StartTime,
		EndTime:            cfg.EndTime,
		ContributionAsset:  cfg.ContributionAsset,
		SettlementAsset:    cfg.SettlementAsset,
		DistributionTarget: cfg.DistributionTarget,
		TotalRaised:        snap.TotalRaised,
		Participants:       len(snap.Participants),
		Pool:               snap.Pool,
		LPBuilt:            snap.LPBuilt(),
		LPTotalAmount:      snap.LPTotalAmount,
		Distributed:        snap.Distributed,
		ClaimedTotal:       snap.ClaimedTotal,
		Dust:               dust,
		LastSeq:            snap.LastSeq,
		JournalBacklog:     s.sale.JournalBacklog(),
	})
}

// handleVerify replays the journal up to the live seq and compares. A
// mismatch answers 409 so the route can back an alert.
func (s *Server) handleVerify(c *gin.Context) {
	live := s.sale.Snapshot()
	result, err := s.verifier.VerifyLive(c.Request.Context(), live)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := VerifyResponse{
		SaleID:         result.SaleID,
		Match:          result.Match,
		LiveSeq:        live.LastSeq,
		ReplayedSeq:    result.LastSeq,
		JournalBacklog: s.sale.JournalBacklog(),
	}
	for _, v := range result.Violations {
		resp.Violations = append(resp.Violations, ViolationBody{Invariant: v.Invariant, Detail: v.Detail})
	}
	for _, d := range result.Divergences {
		resp.Divergences = append(resp.Divergences, DivergenceBody{Field: d.Field, Live: d.Expected, Replayed: d.Actual})
	}

	status := http.StatusOK
	if !result.Match {
		status = http.StatusConflict
		s.log.Warn().
			Int("violations", len(resp.Violations)).
			Int("divergences", len(resp.Divergences)).
			Msg("live ledger diverges from journal")
	}
	c.JSON(status, resp)
}

func (s *Server) handleUser(c *gin.Context) {
	addr := c.Param("address")
	if err := solana.ValidateAddress(addr); err != nil {
		abortWithError(c, err)
		return
	}

	entitlement, err := s.sale.Entitlement(addr)
	if err != nil {
		abortWithError(c, err)
		return
	}
	share := s.sale.GetUserShare(addr)

	c.JSON(http.StatusOK, UserResponse{
		Address:     addr,
		UserInfo:    s.sale.GetUserInfo(addr),
		Share:       share,
		SharePct:    share.Float64() * 100,
		Entitlement: entitlement,
	})
}

func (s *Server) handleBuy(c *gin.Context) {
	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	if err := s.sale.Buy(c.Request.Context(), req.Caller, req.Referrer, req.Amount); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, UserResponse{
		Address:  req.Caller,
		UserInfo: s.sale.GetUserInfo(req.Caller),
		Share:    s.sale.GetUserShare(req.Caller),
	})
}

func (s *Server) handleClaim(c *gin.Context) {
	var req CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	amount, err := s.sale.Claim(c.Request.Context(), req.Caller)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, AmountResponse{Amount: amount})
}

func (s *Server) handleBuildLP(c *gin.Context) {
	var req CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	res, err := s.sale.BuildLP(c.Request.Context(), req.Caller)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, BuildLPResponse{LPAmount: res.LPAmount, Distributed: res.Distributed})
}

func (s *Server) handleTransferOwnership(c *gin.Context) {
	var req TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	if err := s.sale.TransferOwnership(c.Request.Context(), req.Caller, req.NewOwner); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": s.sale.Owner()})
}

func (s *Server) handleSweepDust(c *gin.Context) {
	var req SweepDustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	amount, err := s.sale.SweepDust(c.Request.Context(), req.Caller, req.Recipient)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, AmountResponse{Amount: amount})
}

func (s *Server) handleEvents(c *gin.Context) {
	var q EventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortBadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	saleID := s.sale.Vault()

	var (
		events []*domain.LedgerEvent
		err    error
	)
	switch {
	case q.Account != "":
		events, err = s.journal.GetByAccount(ctx, saleID, q.Account)
	case q.Kind != "":
		events, err = s.journal.GetByKind(ctx, saleID, domain.EventKind(q.Kind))
	default:
		events, err = s.journal.GetBySale(ctx, saleID)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	limit := q.Limit
	if limit == 0 {
		limit = 100
	}
	out := make([]*domain.LedgerEvent, 0, limit)
	for _, e := range events {
		if e.Seq <= q.After {
			continue
		}
		if q.Kind != "" && string(e.Kind) != q.Kind {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	c.JSON(http.StatusOK, EventsResponse{Events: out})
}
