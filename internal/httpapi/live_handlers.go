package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"drop-live/internal/apperr"
	"drop-live/internal/events"
)

type messageRequest struct {
	Text string `json:"text"`
}

type voteRequest struct {
	PollID      string `json:"pollId"`
	OptionIndex *int   `json:"optionIndex"`
}

func (s *Server) snapshot(c *gin.Context) {
	snap, err := s.ledger.Snapshot(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, s.snapshotView(snap))
}

// listMessages serves the polling fallback. since is unix milliseconds.
func (s *Server) listMessages(c *gin.Context) {
	d, err := s.launches.PublicBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			s.fail(c, apperr.InvalidField("limit", "must be a non-negative integer"))
			return
		}
	}

	var messages []events.Message
	if raw := c.Query("since"); raw != "" {
		ms, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || ms < 0 {
			s.fail(c, apperr.InvalidField("since", "must be unix milliseconds"))
			return
		}
		messages, err = s.ledger.MessagesSince(c.Request.Context(), d.ID, time.UnixMilli(ms), limit)
	} else {
		messages, err = s.ledger.RecentMessages(c.Request.Context(), d.ID, limit)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	if messages == nil {
		messages = []events.Message{}
	}
	respond(c, http.StatusOK, messages)
}

func (s *Server) holding(c *gin.Context) {
	h, err := s.ledger.CheckHolding(c.Request.Context(), c.Param("slug"), identity(c).Wallet)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, h)
}

func (s *Server) submitMessage(c *gin.Context) {
	var req messageRequest
	if !s.bind(c, &req) {
		return
	}
	action, err := s.ledger.SubmitMessage(c.Request.Context(), c.Param("slug"), identity(c).Wallet, req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	msg, _ := action.Message()
	respond(c, http.StatusCreated, gin.H{
		"id":        action.ID,
		"text":      msg.Text,
		"createdAt": action.CreatedAt.UnixMilli(),
	})
}

func (s *Server) submitVote(c *gin.Context) {
	var req voteRequest
	if !s.bind(c, &req) {
		return
	}
	if req.OptionIndex == nil {
		s.fail(c, apperr.InvalidField("optionIndex", "required"))
		return
	}
	action, counts, err := s.ledger.SubmitVote(c.Request.Context(), c.Param("slug"), identity(c).Wallet, req.PollID, *req.OptionIndex)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"id":          action.ID,
		"pollId":      req.PollID,
		"optionIndex": *req.OptionIndex,
		"voteCounts":  counts,
	})
}

// overlay upgrades to the live websocket of a drop.
func (s *Server) overlay(c *gin.Context) {
	d, err := s.launches.PublicBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}

	// The upgrader has already written the HTTP error when this fails.
	if err := s.hub.ServeWS(c.Writer, c.Request, d.Slug); err != nil {
		s.logger.Debug().Err(err).Str("session_key", d.Slug).Msg("websocket upgrade failed")
	}
}
