// Package ai describes the optional AI helpers of the dashboard.
package ai

import (
	"context"

	"github.com/refmatch/refmatch/internal/api"
)

// DraftRequest is everything a drafter gets to write a referral request.
type DraftRequest struct {
	CandidateName string
	TargetRole    string
	Skills        string
	Tone          string
	Match         *api.MatchedEmployee
}

// Draft is a referral request message ready to be reviewed by the candidate.
type Draft struct {
	Subject string
	Message string
	Raw     string
}

type Drafter interface {
	Draft(ctx context.Context, req *DraftRequest) (*Draft, error)
}
