package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drop-live/internal/launch"
	"drop-live/internal/launchpad"
)

type confirmConfigRequest struct {
	ConfigKey string `json:"configKey"`
}

type confirmLaunchRequest struct {
	Signature string `json:"signature"`
}

type thresholdRequest struct {
	ThresholdRaw string `json:"thresholdRaw"`
}

type pollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type claimRequest struct {
	Wallet     string   `json:"wallet"`
	Signatures []string `json:"signatures"`
}

func (s *Server) createDrop(c *gin.Context) {
	var spec launch.DraftSpec
	if !s.bind(c, &spec) {
		return
	}
	d, err := s.launches.CreateDraft(c.Request.Context(), identity(c).UserID, spec)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, s.dropView(d))
}

func (s *Server) listDrops(c *gin.Context) {
	drops, err := s.launches.ListMine(c.Request.Context(), identity(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	views := make([]DropView, 0, len(drops))
	for _, d := range drops {
		views = append(views, s.dropView(d))
	}
	respond(c, http.StatusOK, views)
}

func (s *Server) getDrop(c *gin.Context) {
	d, err := s.launches.Get(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, s.dropView(d))
}

func (s *Server) createTokenInfo(c *gin.Context) {
	d, err := s.launches.AdvanceToTokenInfo(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, s.dropView(d))
}

func (s *Server) prepareFeeConfig(c *gin.Context) {
	id := identity(c)
	pending, err := s.launches.AdvanceToConfigPending(c.Request.Context(), id.UserID, c.Param("id"), id.Wallet)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, pending)
}

func (s *Server) confirmFeeConfig(c *gin.Context) {
	var req confirmConfigRequest
	if !s.bind(c, &req) {
		return
	}
	d, err := s.launches.ConfirmConfig(c.Request.Context(), identity(c).UserID, c.Param("id"), req.ConfigKey)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, s.dropView(d))
}

func (s *Server) prepareLaunch(c *gin.Context) {
	id := identity(c)
	tx, err := s.launches.PrepareLaunchTransaction(c.Request.Context(), id.UserID, c.Param("id"), id.Wallet)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"transaction": tx})
}

func (s *Server) confirmLaunch(c *gin.Context) {
	var req confirmLaunchRequest
	if !s.bind(c, &req) {
		return
	}
	d, err := s.launches.ConfirmLaunch(c.Request.Context(), identity(c).UserID, c.Param("id"), req.Signature)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, s.dropView(d))
}

func (s *Server) updateThreshold(c *gin.Context) {
	var req thresholdRequest
	if !s.bind(c, &req) {
		return
	}
	d, err := s.launches.UpdateThreshold(c.Request.Context(), identity(c).UserID, c.Param("id"), req.ThresholdRaw)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, s.dropView(d))
}

func (s *Server) createPoll(c *gin.Context) {
	var req pollRequest
	if !s.bind(c, &req) {
		return
	}
	p, err := s.ledger.CreatePoll(c.Request.Context(), identity(c).UserID, c.Param("id"), req.Question, req.Options)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, pollView(p))
}

func (s *Server) closePoll(c *gin.Context) {
	p, err := s.ledger.ClosePoll(c.Request.Context(), identity(c).UserID, c.Param("id"), c.Param("pollId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, pollView(p))
}

// claimWallet defaults to the caller's own wallet.
func claimWallet(c *gin.Context, wallet string) string {
	if wallet != "" {
		return wallet
	}
	return identity(c).Wallet
}

func (s *Server) claimablePositions(c *gin.Context) {
	wallet := claimWallet(c, c.Query("wallet"))
	positions, err := s.launches.ClaimablePositions(c.Request.Context(), identity(c).UserID, c.Param("id"), wallet)
	if err != nil {
		s.fail(c, err)
		return
	}
	if positions == nil {
		positions = []launchpad.ClaimablePosition{}
	}
	respond(c, http.StatusOK, positions)
}

func (s *Server) prepareClaim(c *gin.Context) {
	var req claimRequest
	if !s.bind(c, &req) {
		return
	}
	txs, err := s.launches.PrepareClaim(c.Request.Context(), identity(c).UserID, c.Param("id"), claimWallet(c, req.Wallet))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"transactions": txs})
}

func (s *Server) recordClaim(c *gin.Context) {
	var req claimRequest
	if !s.bind(c, &req) {
		return
	}
	claim, err := s.launches.RecordClaim(c.Request.Context(), identity(c).UserID, c.Param("id"), claimWallet(c, req.Wallet), req.Signatures)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, claimView(claim))
}

func (s *Server) listClaims(c *gin.Context) {
	claims, err := s.launches.ListClaims(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	views := make([]ClaimView, 0, len(claims))
	for _, cl := range claims {
		views = append(views, claimView(cl))
	}
	respond(c, http.StatusOK, views)
}
