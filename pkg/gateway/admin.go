package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/voss/swarmtool/pkg/approval"
)

// ProposalAdmin is the decision side of the approval pipeline, implemented by
// the runtime. The gateway exposes it on /proposals so an operator process
// can decide on proposals queued in the running daemon.
type ProposalAdmin interface {
	Pending() []approval.Proposal
	Approve(name, senderID string) error
	Reject(name, senderID string) error
}

// DecisionRequest is the wire shape for /proposals/approve and
// /proposals/reject. An empty Sender matches the earliest pending proposal
// with that name.
type DecisionRequest struct {
	Name   string `json:"name"`
	Sender string `json:"sender,omitempty"`
}

func (s *Server) handleProposalList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pending := s.admin.Pending()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pending)
}

func (s *Server) handleProposalDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var req DecisionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "malformed JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	decision := "approved"
	if strings.HasSuffix(r.URL.Path, "/reject") {
		decision = "rejected"
		err = s.admin.Reject(req.Name, req.Sender)
	} else {
		err = s.admin.Approve(req.Name, req.Sender)
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("tool", req.Name).
			Str("decision", decision).
			Msg("Proposal decision failed")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	s.logger.Info().Str("tool", req.Name).Str("decision", decision).Msg("Proposal decided")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": decision,
		"name":   req.Name,
	})
}

// PendingProposals fetches the daemon's pending proposals from its
// /proposals endpoint.
func (c *Client) PendingProposals(baseURL string) ([]approval.Proposal, error) {
	resp, err := c.httpClient.Get(strings.TrimSuffix(baseURL, "/") + "/proposals")
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("failed to fetch proposals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from proposals endpoint", resp.StatusCode)
	}

	var pending []approval.Proposal
	if err := json.NewDecoder(resp.Body).Decode(&pending); err != nil {
		return nil, fmt.Errorf("failed to decode proposals: %w", err)
	}
	return pending, nil
}

// ApproveProposal asks the daemon to approve a pending proposal.
func (c *Client) ApproveProposal(baseURL, name, sender string) error {
	return c.decide(baseURL, "/proposals/approve", name, sender)
}

// RejectProposal asks the daemon to reject a pending proposal.
func (c *Client) RejectProposal(baseURL, name, sender string) error {
	return c.decide(baseURL, "/proposals/reject", name, sender)
}

func (c *Client) decide(baseURL, path, name, sender string) error {
	payload, err := json.Marshal(DecisionRequest{Name: name, Sender: sender})
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	body, err := c.post(strings.TrimSuffix(baseURL, "/")+path, payload)
	if err != nil {
		return err
	}

	var result map[string]string
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return fmt.Errorf("failed to decode decision response: %w", err)
	}
	if result["status"] == "error" {
		return fmt.Errorf("daemon refused decision: %s", result["error"])
	}
	return nil
}
