package election

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ballotbox/server/internal/docstore"
	"github.com/ballotbox/server/internal/model"
	"github.com/ballotbox/server/internal/repo"
	"github.com/google/uuid"
)

// Decision actions accepted by Decide.
const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

// Document is an uploaded nomination file
type Document struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Submission carries a candidate's nomination
type Submission struct {
	PositionID uuid.UUID
	Name       string
	VoterRegNo string
	Program    string
	Photo      *Document
	Manifesto  *Document
}

// NominationWorkflow handles candidate submission and the returning officer's
// approve/reject decision. SUBMITTED -> PENDING -> {APPROVED, REJECTED};
// decisions are terminal.
type NominationWorkflow struct {
	candidates repo.CandidateRepo
	ballots    repo.BallotRepo
	documents  docstore.Store
}

// NewNominationWorkflow creates a new nomination workflow
func NewNominationWorkflow(candidates repo.CandidateRepo, ballots repo.BallotRepo, documents docstore.Store) *NominationWorkflow {
	return &NominationWorkflow{
		candidates: candidates,
		ballots:    ballots,
		documents:  documents,
	}
}

// Submit stores both documents and creates a PENDING nomination. Both a photo
// and a manifesto are mandatory.
func (w *NominationWorkflow) Submit(ctx context.Context, sub Submission) (model.Candidate, error) {
	if sub.Photo == nil || sub.Manifesto == nil {
		return model.Candidate{}, ErrMissingDocument
	}

	if _, err := w.ballots.GetPosition(ctx, sub.PositionID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Candidate{}, ErrPositionNotFound
		}
		return model.Candidate{}, fmt.Errorf("lookup position: %w", err)
	}

	photoKey, err := w.documents.Put(ctx, "photos", sub.Photo.Filename, sub.Photo.Reader, sub.Photo.Size, sub.Photo.ContentType)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("store photo: %w", err)
	}
	manifestoKey, err := w.documents.Put(ctx, "manifestos", sub.Manifesto.Filename, sub.Manifesto.Reader, sub.Manifesto.Size, sub.Manifesto.ContentType)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("store manifesto: %w", err)
	}

	candidate, err := w.candidates.Create(ctx, repo.NewCandidate{
		PositionID:   sub.PositionID,
		Name:         strings.TrimSpace(sub.Name),
		VoterRegNo:   strings.TrimSpace(sub.VoterRegNo),
		Program:      strings.TrimSpace(sub.Program),
		PhotoKey:     photoKey,
		ManifestoKey: manifestoKey,
	})
	if err != nil {
		return model.Candidate{}, fmt.Errorf("create nomination: %w", err)
	}
	return candidate, nil
}

// List returns nominations, optionally filtered by status
func (w *NominationWorkflow) List(ctx context.Context, status *model.CandidateStatus) ([]model.Candidate, error) {
	candidates, err := w.candidates.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list nominations: %w", err)
	}
	return candidates, nil
}

// Decide records the officer's decision. Only PENDING nominations may be
// decided; REJECT requires a non-empty reason; re-deciding fails with
// ErrAlreadyDecided, never a silent overwrite.
func (w *NominationWorkflow) Decide(ctx context.Context, nominationID uuid.UUID, action string, reason string, officerID uuid.UUID) (model.Candidate, error) {
	var status model.CandidateStatus
	var reasonPtr *string

	switch action {
	case ActionApprove:
		status = model.CandidateApproved
	case ActionReject:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return model.Candidate{}, ErrReasonRequired
		}
		status = model.CandidateRejected
		reasonPtr = &reason
	default:
		return model.Candidate{}, fmt.Errorf("unknown decision action %q", action)
	}

	candidate, err := w.candidates.Decide(ctx, nominationID, status, reasonPtr, officerID)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return model.Candidate{}, ErrNominationNotFound
		case errors.Is(err, repo.ErrDecided):
			return model.Candidate{}, ErrAlreadyDecided
		}
		return model.Candidate{}, fmt.Errorf("decide nomination: %w", err)
	}
	return candidate, nil
}

// DocumentURLs resolves the stored photo and manifesto references
func (w *NominationWorkflow) DocumentURLs(ctx context.Context, c model.Candidate) (photoURL, manifestoURL string, err error) {
	photoURL, err = w.documents.URL(ctx, c.PhotoKey)
	if err != nil {
		return "", "", fmt.Errorf("resolve photo url: %w", err)
	}
	manifestoURL, err = w.documents.URL(ctx, c.ManifestoKey)
	if err != nil {
		return "", "", fmt.Errorf("resolve manifesto url: %w", err)
	}
	return photoURL, manifestoURL, nil
}
