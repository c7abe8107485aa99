package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alantheprice/council/pkg/consensus"
	"github.com/alantheprice/council/pkg/llm"
	"github.com/alantheprice/council/pkg/parser"
	"github.com/alantheprice/council/pkg/prompts"
)

// chatMaxTokens is higher than the consensus generation cap because a chat
// answer has to fit explanation and complete files into a single reply.
const chatMaxTokens = 4000

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message string     `json:"message" binding:"required"`
	Models  []string   `json:"models"`
	History []chatTurn `json:"history"`
}

type agentReply struct {
	Agent   string `json:"agent"`
	Content string `json:"content"`
}

type chatResult struct {
	Responses []agentReply      `json:"responses"`
	Files     map[string]string `json:"files"`
}

// chat answers a single message outside the full pipeline. One model answers
// directly; with a second model the reply is reviewed and, when the review
// flags problems, the coder gets exactly one corrective pass.
func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	models := req.Models
	if len(models) == 0 {
		models = s.cfg.Models
	}
	if len(models) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no models configured"})
		return
	}

	result, err := s.runChat(c.Request.Context(), req.Message, models, req.History)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) runChat(ctx context.Context, message string, models []string, history []chatTurn) (*chatResult, error) {
	opts := llm.Options{MaxTokens: chatMaxTokens, Timeout: s.cfg.CallTimeout()}
	coder := models[0]

	conversation := []prompts.Message{{Role: "system", Content: prompts.CodeExpertSystemPrompt()}}
	for _, turn := range history {
		conversation = append(conversation, prompts.Message{Role: turn.Role, Content: turn.Content})
	}
	conversation = append(conversation, prompts.Message{Role: "user", Content: message})

	coderResult, err := s.client.Invoke(ctx, coder, conversation, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", llm.ShortName(coder), err)
	}
	reply := llm.StripThinkTags(coderResult.Content)
	files := parser.ExtractFiles(reply)

	result := &chatResult{
		Responses: []agentReply{{Agent: llm.ShortName(coder), Content: reply}},
		Files:     files,
	}
	if len(models) < 2 {
		return result, nil
	}

	// A reviewer failure downgrades to a single-model answer rather than
	// discarding a reply we already have.
	reviewer := models[1]
	reviewMessages := []prompts.Message{
		{Role: "system", Content: prompts.ChatReviewerSystemPrompt()},
		{Role: "user", Content: fmt.Sprintf("The user asked: %s\n\nReview this code:\n\n%s", message, reply)},
	}
	reviewResult, err := s.client.Invoke(ctx, reviewer, reviewMessages, opts)
	if err != nil {
		s.logger.Logf("chat review by %s failed: %v", reviewer, err)
		return result, nil
	}
	review := llm.StripThinkTags(reviewResult.Content)
	result.Responses = append(result.Responses, agentReply{Agent: llm.ShortName(reviewer), Content: review})

	if !consensus.NeedsFix(review) {
		return result, nil
	}

	fixConversation := append(conversation,
		prompts.Message{Role: "assistant", Content: reply},
		prompts.Message{Role: "user", Content: prompts.ChatFixRequestPrompt(review)},
	)
	fixResult, err := s.client.Invoke(ctx, coder, fixConversation, opts)
	if err != nil {
		s.logger.Logf("chat fix pass by %s failed: %v", coder, err)
		return result, nil
	}
	fixed := llm.StripThinkTags(fixResult.Content)
	result.Responses = append(result.Responses, agentReply{Agent: llm.ShortName(coder), Content: fixed})
	for name, content := range parser.ExtractFiles(fixed) {
		result.Files[name] = content
	}
	return result, nil
}
