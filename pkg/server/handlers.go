package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alantheprice/council/pkg/consensus"
	"github.com/alantheprice/council/pkg/projects"
)

type consensusRequest struct {
	Task       string   `json:"task" binding:"required"`
	Models     []string `json:"models"`
	Extended   bool     `json:"extended"`
	Screenshot string   `json:"screenshot"`
	MaxTokens  int      `json:"max_tokens"`
}

func (s *Server) startConsensus(c *gin.Context) {
	var req consensusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	models := req.Models
	if len(models) == 0 {
		models = s.cfg.Models
	}

	// The run outlives this request, so it cannot inherit the request context.
	sessionID, err := s.engine.Start(context.Background(), req.Task, models, consensus.RunOptions{
		Extended:      req.Extended,
		ScreenshotRef: req.Screenshot,
		MaxTokens:     req.MaxTokens,
	})
	if err != nil {
		var verr *consensus.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "status": "running"})
}

func (s *Server) getConsensus(c *gin.Context) {
	sess, err := s.engine.Session(c.Param("id"))
	if err != nil {
		if errors.Is(err, consensus.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess)
}

type pingRequest struct {
	Model string `json:"model" binding:"required"`
}

func (s *Server) pingModel(c *gin.Context) {
	var req pingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.client.Ping(c.Request.Context(), req.Model, ""); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"model":  req.Model,
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": req.Model, "status": "working"})
}

func (s *Server) listModels(c *gin.Context) {
	raw, err := s.client.ListModels(c.Request.Context(), "")
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

type projectRequest struct {
	Name     string              `json:"name" binding:"required"`
	Task     string              `json:"task"`
	Files    map[string]string   `json:"files"`
	Messages []consensus.Message `json:"messages"`
}

// projectView is the wire shape of a project; the JSON text columns are
// decoded so clients never see double-encoded strings.
type projectView struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Task      string              `json:"task"`
	Files     map[string]string   `json:"files"`
	Messages  []consensus.Message `json:"messages,omitempty"`
	Runs      []runView           `json:"runs,omitempty"`
	CreatedAt string              `json:"created_at"`
	UpdatedAt string              `json:"updated_at"`
}

type runView struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Task      string            `json:"task"`
	Phase     string            `json:"phase"`
	Status    string            `json:"status"`
	Passed    bool              `json:"passed"`
	Error     string            `json:"error,omitempty"`
	Files     map[string]string `json:"files"`
	CreatedAt string            `json:"created_at"`
}

func toProjectView(p *projects.Project) projectView {
	files, _ := p.Files()
	messages, _ := p.Messages()
	view := projectView{
		ID:        p.ID,
		Name:      p.Name,
		Task:      p.Task,
		Files:     files,
		Messages:  messages,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
	for i := range p.Runs {
		view.Runs = append(view.Runs, toRunView(&p.Runs[i]))
	}
	return view
}

func toRunView(r *projects.RunRecord) runView {
	files, _ := r.Files()
	return runView{
		ID:        r.ID,
		SessionID: r.SessionID,
		Task:      r.Task,
		Phase:     r.Phase,
		Status:    r.Status,
		Passed:    r.Passed,
		Error:     r.Error,
		Files:     files,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) upsertProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := s.projects.UpsertProject(req.Name, req.Task, req.Files, req.Messages)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toProjectView(project))
}

func (s *Server) listProjects(c *gin.Context) {
	list, err := s.projects.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	views := make([]projectView, 0, len(list))
	for i := range list {
		views = append(views, toProjectView(&list[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getProject(c *gin.Context) {
	project, err := s.projects.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toProjectView(project))
}
