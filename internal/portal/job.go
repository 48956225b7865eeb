package portal

import "fmt"

const (
	JobIDField      = "ID"
	JobCompanyField = "Company"
)

type Jobs struct {
	Items []*Job
}

// Job is a posting as returned by the portal search endpoint. The record is
// kept loose on purpose: the portal controls the schema, we only rely on a
// handful of fields. MatchScore and MatchReason are filled in locally once
// the job has been scored.
type Job struct {
	ID             string   `json:"id,omitempty"`
	Title          string   `json:"title,omitempty"`
	Company        string   `json:"company,omitempty"`
	Description    string   `json:"description,omitempty"`
	RequiredSkills []string `json:"required_skills,omitempty"`
	Cities         []string `json:"cities,omitempty"`
	Countries      []string `json:"countries,omitempty"`
	IsRemote       bool     `json:"is_remote,omitempty"`
	IsHybrid       bool     `json:"is_hybride,omitempty"`
	Salary         int      `json:"salary,omitempty"`
	PostedAt       string   `json:"posted_at,omitempty"`

	MatchScore  int    `json:"match_score,omitempty"`
	MatchReason string `json:"match_reason,omitempty"`
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

func (j *Jobs) FindByID(id string) *Job {
	for _, job := range j.Items {
		if job.ID == id {
			return job
		}
	}
	return nil
}

func (j *Jobs) IDs() []string {
	ids := make([]string, 0, len(j.Items))
	for _, job := range j.Items {
		ids = append(ids, job.ID)
	}
	return ids
}

func (job *Job) GetStringField(name string) string {
	switch name {
	case JobIDField:
		return job.ID
	case JobCompanyField:
		return job.Company
	default:
		return ""
	}
}

// Exclude removes jobs from the list by the given field values and returns
// the ids of the removed jobs.
func (j *Jobs) Exclude(name string, targets []string) []string {
	var excluded []string
	for _, target := range targets {
		for idx, job := range j.Items {
			if job.GetStringField(name) == target {
				j.RemoveByIndex(idx)
				excluded = append(excluded, job.ID)
				break
			}
		}
	}
	return excluded
}

// RemoveByIndex removes a job from the list by index, keeping the remaining
// jobs in portal ranking order.
func (j *Jobs) RemoveByIndex(idx int) {
	j.Items = append(j.Items[:idx], j.Items[idx+1:]...)
}

// Location renders a short human-readable location string for logs and
// notifications.
func (job *Job) Location() string {
	switch {
	case job.IsRemote:
		return "remote"
	case len(job.Cities) > 0:
		return job.Cities[0]
	case len(job.Countries) > 0:
		return job.Countries[0]
	default:
		return "unknown"
	}
}

// Label is used in log lines and in the queues inspection command.
func (job *Job) Label() string {
	return fmt.Sprintf("%s %s / %s", job.ID, job.Title, job.Company)
}
