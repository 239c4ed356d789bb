package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/solace-ai/solace/pkg/domain"
)

// proposeRequest is the POST /v1/governance/proposals payload.
type proposeRequest struct {
	Kind    domain.ProposalKind `json:"kind"`
	Payload map[string]any      `json:"payload,omitempty"`
}

func (s *Server) handlePropose(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	switch req.Kind {
	case domain.ProposalRotateBaseline, domain.ProposalUpdateValues:
	default:
		s.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "unknown proposal kind")
		return
	}

	proposal := s.quorum.Propose(req.Kind, req.Payload)
	s.writeJSON(w, http.StatusCreated, proposal)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	proposal, err := s.quorum.Get(id)
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, "PROPOSAL_NOT_FOUND", err.Error())
		return
	}
	tally, err := s.quorum.Tally(id)
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, "PROPOSAL_NOT_FOUND", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, struct {
		Proposal domain.Proposal           `json:"proposal"`
		Tally    map[domain.VoterClass]int `json:"tally"`
	}{proposal, tally})
}

// ballotRequest is the POST /v1/governance/proposals/{id}/ballots payload.
type ballotRequest struct {
	Voter   string            `json:"voter"`
	Class   domain.VoterClass `json:"class"`
	Approve bool              `json:"approve"`
}

func (s *Server) handleBallot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req ballotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Voter == "" {
		s.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	state, err := s.quorum.Cast(id, domain.Ballot{
		Voter:   req.Voter,
		Class:   req.Class,
		Approve: req.Approve,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProposalNotFound):
			s.writeError(w, r, http.StatusNotFound, "PROPOSAL_NOT_FOUND", err.Error())
		case errors.Is(err, domain.ErrProposalExpired):
			s.writeError(w, r, http.StatusConflict, "PROPOSAL_EXPIRED", err.Error())
		case errors.Is(err, domain.ErrProposalDecided):
			s.writeError(w, r, http.StatusConflict, "PROPOSAL_DECIDED", err.Error())
		case errors.Is(err, domain.ErrUnknownVoterClass):
			s.writeError(w, r, http.StatusBadRequest, "UNKNOWN_CLASS", err.Error())
		default:
			s.writeError(w, r, http.StatusInternalServerError, "BALLOT_FAILED", "ballot could not be recorded")
		}
		return
	}

	if state == domain.ProposalApproved {
		if err := s.applyProposal(r, id); err != nil {
			s.logger.Error().Err(err).Str("proposal_id", id).Msg("approved proposal could not be applied")
			// Keep the ballots and reopen so a repeat ballot retries the
			// application once the failure is resolved.
			if reopenErr := s.quorum.Reopen(id); reopenErr != nil {
				s.logger.Error().Err(reopenErr).Str("proposal_id", id).Msg("reopen failed proposal")
			}
			s.writeError(w, r, http.StatusInternalServerError, "APPLY_FAILED", "proposal approved but not applied; ballots remain open")
			return
		}
		if s.dash != nil {
			s.dash.ObserveProposal(domain.ProposalApproved)
		}
	}

	s.writeJSON(w, http.StatusOK, struct {
		State domain.ProposalState `json:"state"`
	}{state})
}

// applyProposal executes the mutation an approved proposal authorises.
func (s *Server) applyProposal(r *http.Request, id string) error {
	proposal, err := s.quorum.Get(id)
	if err != nil {
		return err
	}
	if proposal.State != domain.ProposalApproved {
		return domain.ErrQuorumNotMet
	}

	switch proposal.Kind {
	case domain.ProposalRotateBaseline:
		name, _ := proposal.Payload["baseline"].(string)
		if name == "" {
			// Pin the live fingerprint under the proposal ID, then rotate to it.
			fp := s.pipeline.CurrentFingerprint(0)
			if err := s.pipeline.PinBaseline(r.Context(), proposal.ID, fp); err != nil {
				return err
			}
			name = proposal.ID
		}
		return s.pipeline.RotateBaseline(r.Context(), name)
	case domain.ProposalUpdateValues:
		values := s.pipeline.Snapshot().CoreValues
		if v, ok := proposal.Payload["max_tension"].(float64); ok && v > 0 {
			values.MaxTension = v
		}
		if v, ok := proposal.Payload["max_debt"].(float64); ok && v > 0 {
			values.MaxDebt = v
		}
		s.pipeline.UpdateValues(values)
		return nil
	}
	return nil
}
