package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type challengeRequest struct {
	Wallet string `json:"wallet"`
}

type verifyRequest struct {
	Wallet    string `json:"wallet"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

type userResponse struct {
	ID     string `json:"id"`
	Wallet string `json:"wallet"`
}

type verifyResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (s *Server) issueChallenge(c *gin.Context) {
	var req challengeRequest
	if !s.bind(c, &req) {
		return
	}
	ch, err := s.auth.IssueChallenge(c.Request.Context(), req.Wallet)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, ch)
}

func (s *Server) verify(c *gin.Context) {
	var req verifyRequest
	if !s.bind(c, &req) {
		return
	}
	credential, id, err := s.auth.VerifyAndCreateSession(c.Request.Context(), req.Wallet, req.Signature, req.Message)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, credential, int(s.cfg.SessionTTL.Seconds()), "/", "", s.cfg.CookieSecure, true)

	respond(c, http.StatusOK, verifyResponse{
		Token: credential,
		User:  userResponse{ID: id.UserID, Wallet: id.Wallet},
	})
}

func (s *Server) logout(c *gin.Context) {
	if credential := credentialFrom(c); credential != "" {
		if err := s.auth.DestroySession(c.Request.Context(), credential); err != nil {
			s.fail(c, err)
			return
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", s.cfg.CookieSecure, true)
	respond(c, http.StatusOK, gin.H{"loggedOut": true})
}

func (s *Server) me(c *gin.Context) {
	id := identity(c)
	user, err := s.auth.LookupUser(c.Request.Context(), id.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"id":        user.ID,
		"wallet":    user.Wallet,
		"createdAt": user.CreatedAt,
	})
}
