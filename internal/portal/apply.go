package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

const (
	applyPath  = "/apply"
	statusPath = "/status"
)

// ErrSubmitRejected marks a submission attempt the portal did not accept.
// It is a transient condition from the caller's point of view: the retry
// policy lives with the caller, not here.
var ErrSubmitRejected = errors.New("portal rejected the application")

// Application is the payload the portal apply endpoint expects. Built once
// per job right before submission and never mutated afterwards.
type Application struct {
	JobID          string `json:"job_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	Resume         string `json:"resume"`
	CoverLetter    string `json:"cover_letter,omitempty"`
	EvidencePoints string `json:"evidence_points,omitempty"`
}

type Receipt struct {
	ApplicationID string `json:"application_id"`
	Status        string `json:"status"`
}

// Submit sends one application to the portal. Only a 201 counts as success;
// any other status or a transport failure is reported as an error.
func (c *Client) Submit(ctx context.Context, app *Application) (*Receipt, error) {
	if app == nil || app.JobID == "" {
		return nil, errors.New("application with a job id is required")
	}

	var receipt Receipt
	status, err := c.postJSON(ctx, applyPath, app, &receipt)
	if err != nil {
		return nil, fmt.Errorf("submit application for job %s: %w", app.JobID, err)
	}

	if status != http.StatusCreated {
		return nil, fmt.Errorf("submit application for job %s: status %d: %w", app.JobID, status, ErrSubmitRejected)
	}

	return &receipt, nil
}

// DecisionRecord is one entry of the portal-side application status report.
type DecisionRecord struct {
	ApplicationID string `json:"application_id"`
	JobID         string `json:"job_id"`
	Email         string `json:"email"`
	Decision      string `json:"decision"`
	DecisionAt    string `json:"decision_at"`
}

type StatusReport struct {
	Accepted  []DecisionRecord `json:"accepted"`
	Rejected  []DecisionRecord `json:"rejected"`
	OnProcess []DecisionRecord `json:"on_process"`
}

// Statuses fetches the portal-side decisions for all applications submitted
// with the given email.
func (c *Client) Statuses(ctx context.Context, email string) (*StatusReport, error) {
	q := url.Values{}
	q.Set("email", email)

	var report StatusReport
	status, err := c.getJSON(ctx, statusPath, q, &report)
	if err != nil {
		return nil, fmt.Errorf("application statuses: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("application statuses: bad status: %d", status)
	}

	return &report, nil
}
