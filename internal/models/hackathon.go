package models

import "time"

// DeadlineLayout is the ISO-8601 form the API emits: UTC, millisecond precision
const DeadlineLayout = "2006-01-02T15:04:05.000Z"

// Phase is the derived stage of a hackathon
type Phase string

const (
	PhaseSubmission Phase = "submission"
	PhaseVoting     Phase = "voting"
)

// Hackathon is the normalized read model of an on-chain hackathon.
// Wide integers are decimal strings; PrizePool is in whole-token units.
type Hackathon struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Organizer   string `json:"organizer"`
	PrizePool   string `json:"prizePool"`
	Deadline    string `json:"deadline"`
	IsActive    bool   `json:"isActive"`
	TotalVotes  string `json:"totalVotes"`
}

// HackathonDetail is a hackathon with its projects in contract order.
// Projects is never nil so an empty list encodes as [].
type HackathonDetail struct {
	*Hackathon
	Projects []*Project `json:"projects"`
}

// DeadlineTime parses Deadline back into a time.Time
func (h *Hackathon) DeadlineTime() (time.Time, error) {
	return time.Parse(DeadlineLayout, h.Deadline)
}

// SubmissionOpen reports whether projects can still be submitted at now.
// It is computed on every call and never stored.
func (h *Hackathon) SubmissionOpen(now time.Time) bool {
	deadline, err := h.DeadlineTime()
	if err != nil {
		return false
	}
	return !now.After(deadline)
}

// Phase returns the derived phase at now
func (h *Hackathon) Phase(now time.Time) Phase {
	if h.SubmissionOpen(now) {
		return PhaseSubmission
	}
	return PhaseVoting
}

// Project is the normalized read model of a submitted project
type Project struct {
	ID          string `json:"id"`
	HackathonID string `json:"hackathonId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	RepoURL     string `json:"repoUrl"`
	DemoURL     string `json:"demoUrl"`
	TeamLead    string `json:"teamLead"`
	Votes       string `json:"votes"`
}

// Winner is the result of the contract's winner determination
type Winner struct {
	ProjectID string        `json:"projectId"`
	Votes     string        `json:"votes"`
	Project   WinnerProject `json:"project"`
}

// WinnerProject carries the display fields of the winning project
type WinnerProject struct {
	Title       string `json:"title"`
	TeamLead    string `json:"teamLead"`
	Description string `json:"description"`
}

// Health is the liveness payload
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
