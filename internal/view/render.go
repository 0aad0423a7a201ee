package view

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// RenderHeader prints the wallet line of the shell
func RenderHeader(w io.Writer, account string) error {
	if account == "" {
		_, err := fmt.Fprintln(w, "Wallet: not connected")
		return err
	}
	_, err := fmt.Fprintf(w, "Wallet: %s\n", utils.ShortAddress(account))
	return err
}

// RenderHackathons prints the hackathon list with the phase derived at now
func RenderHackathons(w io.Writer, hackathons []*models.Hackathon, now time.Time) error {
	if len(hackathons) == 0 {
		_, err := fmt.Fprintln(w, "No hackathons yet.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tPRIZE\tDEADLINE\tPHASE\tVOTES\tORGANIZER")
	for _, h := range hackathons {
		fmt.Fprintf(tw, "%s\t%s\t%s ETH\t%s\t%s\t%s\t%s\n",
			h.ID, h.Title, h.PrizePool, h.Deadline, phaseLabel(h, now), h.TotalVotes, utils.ShortAddress(h.Organizer))
	}
	return tw.Flush()
}

// RenderDetail prints one hackathon and its projects
func RenderDetail(w io.Writer, detail *models.HackathonDetail, now time.Time) error {
	h := detail.Hackathon
	tw := newTable(w)
	fmt.Fprintf(tw, "Hackathon:\t#%s %s\n", h.ID, h.Title)
	fmt.Fprintf(tw, "Description:\t%s\n", h.Description)
	fmt.Fprintf(tw, "Organizer:\t%s\n", h.Organizer)
	fmt.Fprintf(tw, "Prize pool:\t%s ETH\n", h.PrizePool)
	fmt.Fprintf(tw, "Deadline:\t%s\n", h.Deadline)
	fmt.Fprintf(tw, "Phase:\t%s\n", phaseLabel(h, now))
	fmt.Fprintf(tw, "Active:\t%t\n", h.IsActive)
	fmt.Fprintf(tw, "Total votes:\t%s\n", h.TotalVotes)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	if len(detail.Projects) == 0 {
		_, err := fmt.Fprintln(w, "No projects submitted.")
		return err
	}

	tw = newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tTEAM LEAD\tVOTES\tREPO\tDEMO")
	for _, p := range detail.Projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Title, utils.ShortAddress(p.TeamLead), p.Votes, p.RepoURL, p.DemoURL)
	}
	return tw.Flush()
}

// RenderProject prints one project
func RenderProject(w io.Writer, p *models.Project) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Project:\t#%s %s\n", p.ID, p.Title)
	fmt.Fprintf(tw, "Hackathon:\t#%s\n", p.HackathonID)
	fmt.Fprintf(tw, "Description:\t%s\n", p.Description)
	fmt.Fprintf(tw, "Team lead:\t%s\n", p.TeamLead)
	fmt.Fprintf(tw, "Repository:\t%s\n", p.RepoURL)
	fmt.Fprintf(tw, "Demo:\t%s\n", p.DemoURL)
	fmt.Fprintf(tw, "Votes:\t%s\n", p.Votes)
	return tw.Flush()
}

// RenderWinner prints the winner of a hackathon
func RenderWinner(w io.Writer, winner *models.Winner) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Winner:\t#%s %s\n", winner.ProjectID, winner.Project.Title)
	fmt.Fprintf(tw, "Team lead:\t%s\n", winner.Project.TeamLead)
	fmt.Fprintf(tw, "Votes:\t%s\n", winner.Votes)
	fmt.Fprintf(tw, "Description:\t%s\n", winner.Project.Description)
	return tw.Flush()
}

// RenderTransactions prints the local transaction history
func RenderTransactions(w io.Writer, records []*models.TransactionRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No transactions recorded.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "SUBMITTED\tKIND\tSTATUS\tTX\tBLOCK\tACCOUNT")
	for _, r := range records {
		block := "-"
		if r.BlockNumber != nil {
			block = fmt.Sprintf("%d", *r.BlockNumber)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.UTC().Format(time.RFC3339), r.Kind, r.Status, utils.ShortAddress(r.TxHash), block, utils.ShortAddress(r.Account))
	}
	return tw.Flush()
}

func phaseLabel(h *models.Hackathon, now time.Time) string {
	if h.Phase(now) == models.PhaseSubmission {
		return "Submission open"
	}
	return "Voting"
}
