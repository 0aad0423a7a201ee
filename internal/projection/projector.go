// Package projection turns raw contract tuples into the read model served by
// the API. Every function here is pure: the same tuple always yields the same
// record, and nothing touches the network.
package projection

import (
	"github.com/smartdevs17/hackathon-platform/internal/contract"
	"github.com/smartdevs17/hackathon-platform/internal/models"
)

// Hackathon projects a raw hackathon tuple
func Hackathon(raw contract.HackathonTuple) (*models.Hackathon, error) {
	id, err := FormatUint("id", raw.Id)
	if err != nil {
		return nil, err
	}
	prizePool, err := FormatEther(raw.PrizePool)
	if err != nil {
		return nil, err
	}
	deadline, err := FormatDeadline(raw.Deadline)
	if err != nil {
		return nil, err
	}
	totalVotes, err := FormatUint("totalVotes", raw.TotalVotes)
	if err != nil {
		return nil, err
	}

	return &models.Hackathon{
		ID:          id,
		Title:       raw.Title,
		Description: raw.Description,
		Organizer:   raw.Organizer.Hex(),
		PrizePool:   prizePool,
		Deadline:    deadline,
		IsActive:    raw.IsActive,
		TotalVotes:  totalVotes,
	}, nil
}

// Project projects a raw project tuple
func Project(raw contract.ProjectTuple) (*models.Project, error) {
	id, err := FormatUint("id", raw.Id)
	if err != nil {
		return nil, err
	}
	hackathonID, err := FormatUint("hackathonId", raw.HackathonId)
	if err != nil {
		return nil, err
	}
	votes, err := FormatUint("votes", raw.Votes)
	if err != nil {
		return nil, err
	}

	return &models.Project{
		ID:          id,
		HackathonID: hackathonID,
		Title:       raw.Title,
		Description: raw.Description,
		RepoURL:     raw.RepoUrl,
		DemoURL:     raw.DemoUrl,
		TeamLead:    raw.TeamLead.Hex(),
		Votes:       votes,
	}, nil
}

// Winner combines the getWinner pair with the winning project's display fields
func Winner(raw contract.WinnerTuple, project contract.ProjectTuple) (*models.Winner, error) {
	projectID, err := FormatUint("projectId", raw.ProjectId)
	if err != nil {
		return nil, err
	}
	votes, err := FormatUint("votes", raw.Votes)
	if err != nil {
		return nil, err
	}

	return &models.Winner{
		ProjectID: projectID,
		Votes:     votes,
		Project: models.WinnerProject{
			Title:       project.Title,
			TeamLead:    project.TeamLead.Hex(),
			Description: project.Description,
		},
	}, nil
}
