package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voss/swarmtool/pkg/approval"
	"github.com/voss/swarmtool/pkg/safety"
)

type stubAdmin struct {
	pending   []approval.Proposal
	approved  [][2]string
	rejected  [][2]string
	decideErr error
}

func (a *stubAdmin) Pending() []approval.Proposal {
	return a.pending
}

func (a *stubAdmin) Approve(name, senderID string) error {
	if a.decideErr != nil {
		return a.decideErr
	}
	a.approved = append(a.approved, [2]string{name, senderID})
	return nil
}

func (a *stubAdmin) Reject(name, senderID string) error {
	if a.decideErr != nil {
		return a.decideErr
	}
	a.rejected = append(a.rejected, [2]string{name, senderID})
	return nil
}

func newAdminServer(t *testing.T, admin ProposalAdmin) *Server {
	t.Helper()
	srv, err := NewServer(Config{
		Port:      8080,
		Proposals: &stubSink{},
		Admin:     admin,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	return srv
}

func TestServer_ProposalList(t *testing.T) {
	admin := &stubAdmin{pending: []approval.Proposal{
		{ID: "p1", Name: "square", SenderID: "peer1", Risk: safety.Safe, ReceivedAt: time.Now()},
		{ID: "p2", Name: "wiper", SenderID: "peer2", Risk: safety.HighRisk, ReceivedAt: time.Now()},
	}}
	srv := newAdminServer(t, admin)

	rec := httptest.NewRecorder()
	srv.handleProposalList(rec, httptest.NewRequest(http.MethodGet, "/proposals", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got []approval.Proposal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "square", got[0].Name)
	assert.Equal(t, safety.HighRisk, got[1].Risk)
}

func TestServer_ProposalList_PostRejected(t *testing.T) {
	srv := newAdminServer(t, &stubAdmin{})

	rec := httptest.NewRecorder()
	srv.handleProposalList(rec, httptest.NewRequest(http.MethodPost, "/proposals", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_ProposalDecision_Approve(t *testing.T) {
	admin := &stubAdmin{}
	srv := newAdminServer(t, admin)

	req := httptest.NewRequest(http.MethodPost, "/proposals/approve",
		strings.NewReader(`{"name":"square","sender":"peer1"}`))
	rec := httptest.NewRecorder()
	srv.handleProposalDecision(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, admin.approved, 1)
	assert.Equal(t, [2]string{"square", "peer1"}, admin.approved[0])
	assert.Empty(t, admin.rejected)
}

func TestServer_ProposalDecision_Reject(t *testing.T) {
	admin := &stubAdmin{}
	srv := newAdminServer(t, admin)

	req := httptest.NewRequest(http.MethodPost, "/proposals/reject",
		strings.NewReader(`{"name":"wiper"}`))
	rec := httptest.NewRecorder()
	srv.handleProposalDecision(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, admin.rejected, 1)
	assert.Equal(t, [2]string{"wiper", ""}, admin.rejected[0])
}

func TestServer_ProposalDecision_Errors(t *testing.T) {
	t.Run("missing name", func(t *testing.T) {
		srv := newAdminServer(t, &stubAdmin{})
		req := httptest.NewRequest(http.MethodPost, "/proposals/approve", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		srv.handleProposalDecision(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		srv := newAdminServer(t, &stubAdmin{})
		req := httptest.NewRequest(http.MethodPost, "/proposals/approve", strings.NewReader(`{nope`))
		rec := httptest.NewRecorder()
		srv.handleProposalDecision(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("decision refused", func(t *testing.T) {
		srv := newAdminServer(t, &stubAdmin{decideErr: errors.New("proposal not found")})
		req := httptest.NewRequest(http.MethodPost, "/proposals/approve",
			strings.NewReader(`{"name":"ghost"}`))
		rec := httptest.NewRecorder()
		srv.handleProposalDecision(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestClient_ProposalAdminRoundTrip(t *testing.T) {
	admin := &stubAdmin{pending: []approval.Proposal{
		{ID: "p1", Name: "square", SenderID: "peer1", Risk: safety.LowRisk, ReceivedAt: time.Now()},
	}}
	srv := newAdminServer(t, admin)

	mux := http.NewServeMux()
	mux.HandleFunc("/proposals", srv.handleProposalList)
	mux.HandleFunc("/proposals/approve", srv.handleProposalDecision)
	mux.HandleFunc("/proposals/reject", srv.handleProposalDecision)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := NewClient(5 * time.Second)

	pending, err := client.PendingProposals(ts.URL)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "square", pending[0].Name)

	require.NoError(t, client.ApproveProposal(ts.URL, "square", "peer1"))
	require.Len(t, admin.approved, 1)

	require.NoError(t, client.RejectProposal(ts.URL, "square", ""))
	require.Len(t, admin.rejected, 1)
}

func TestClient_DecisionRefusedSurfacesError(t *testing.T) {
	admin := &stubAdmin{decideErr: errors.New("proposal not found")}
	srv := newAdminServer(t, admin)

	mux := http.NewServeMux()
	mux.HandleFunc("/proposals/approve", srv.handleProposalDecision)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	err := NewClient(5*time.Second).ApproveProposal(ts.URL, "ghost", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proposal not found")
}
