package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// HackathonTuple is the raw shape of HackathonPlatform.Hackathon. Field names
// and order mirror the ABI components so abi.ConvertType can fill it.
type HackathonTuple struct {
	Id          *big.Int
	Title       string
	Description string
	Organizer   common.Address
	PrizePool   *big.Int
	Deadline    *big.Int
	IsActive    bool
	TotalVotes  *big.Int
}

// ProjectTuple is the raw result of the projects(uint256) getter
type ProjectTuple struct {
	Id          *big.Int
	HackathonId *big.Int
	Title       string
	Description string
	RepoUrl     string
	DemoUrl     string
	TeamLead    common.Address
	Votes       *big.Int
	Exists      bool
}

// WinnerTuple is the raw result of getWinner(uint256)
type WinnerTuple struct {
	ProjectId *big.Int
	Votes     *big.Int
}

// DecodeHackathon decodes the positional outputs of hackathons(uint256)
func DecodeHackathon(values []interface{}) (HackathonTuple, error) {
	var t HackathonTuple
	if len(values) != 8 {
		return t, malformed("hackathon", fmt.Sprintf("expected 8 fields, got %d", len(values)))
	}

	d := decoder{kind: "hackathon", values: values}
	t.Id = d.bigInt(0, "id")
	t.Title = d.str(1, "title")
	t.Description = d.str(2, "description")
	t.Organizer = d.address(3, "organizer")
	t.PrizePool = d.bigInt(4, "prizePool")
	t.Deadline = d.bigInt(5, "deadline")
	t.IsActive = d.boolean(6, "isActive")
	t.TotalVotes = d.bigInt(7, "totalVotes")

	return t, d.err
}

// DecodeProject decodes the positional outputs of projects(uint256)
func DecodeProject(values []interface{}) (ProjectTuple, error) {
	var t ProjectTuple
	if len(values) != 9 {
		return t, malformed("project", fmt.Sprintf("expected 9 fields, got %d", len(values)))
	}

	d := decoder{kind: "project", values: values}
	t.Id = d.bigInt(0, "id")
	t.HackathonId = d.bigInt(1, "hackathonId")
	t.Title = d.str(2, "title")
	t.Description = d.str(3, "description")
	t.RepoUrl = d.str(4, "repoUrl")
	t.DemoUrl = d.str(5, "demoUrl")
	t.TeamLead = d.address(6, "teamLead")
	t.Votes = d.bigInt(7, "votes")
	t.Exists = d.boolean(8, "exists")

	return t, d.err
}

// DecodeWinner decodes the (projectId, votes) pair returned by getWinner
func DecodeWinner(values []interface{}) (WinnerTuple, error) {
	var t WinnerTuple
	if len(values) != 2 {
		return t, malformed("winner", fmt.Sprintf("expected 2 fields, got %d", len(values)))
	}

	d := decoder{kind: "winner", values: values}
	t.ProjectId = d.bigInt(0, "projectId")
	t.Votes = d.bigInt(1, "votes")

	return t, d.err
}

// DecodeHackathonList converts the tuple[] output of getAllHackathons
func DecodeHackathonList(values []interface{}) (list []HackathonTuple, err error) {
	if len(values) != 1 {
		return nil, malformed("hackathon list", fmt.Sprintf("expected 1 output, got %d", len(values)))
	}

	// abi.ConvertType panics when the shapes disagree
	defer func() {
		if r := recover(); r != nil {
			list, err = nil, malformed("hackathon list", fmt.Sprint(r))
		}
	}()

	converted := *abi.ConvertType(values[0], new([]HackathonTuple)).(*[]HackathonTuple)
	return converted, nil
}

// DecodeIDList converts the uint256[] output of getHackathonProjects
func DecodeIDList(values []interface{}) ([]*big.Int, error) {
	if len(values) != 1 {
		return nil, malformed("project id list", fmt.Sprintf("expected 1 output, got %d", len(values)))
	}
	ids, ok := values[0].([]*big.Int)
	if !ok {
		return nil, malformed("project id list", fmt.Sprintf("unexpected type %T", values[0]))
	}
	return ids, nil
}

type decoder struct {
	kind   string
	values []interface{}
	err    error
}

func (d *decoder) fail(field string, v interface{}) {
	if d.err == nil {
		d.err = malformed(d.kind, fmt.Sprintf("field %s has type %T", field, v))
	}
}

func (d *decoder) bigInt(i int, field string) *big.Int {
	v, ok := d.values[i].(*big.Int)
	if !ok || v == nil {
		d.fail(field, d.values[i])
		return nil
	}
	return v
}

func (d *decoder) str(i int, field string) string {
	v, ok := d.values[i].(string)
	if !ok {
		d.fail(field, d.values[i])
	}
	return v
}

func (d *decoder) address(i int, field string) common.Address {
	v, ok := d.values[i].(common.Address)
	if !ok {
		d.fail(field, d.values[i])
	}
	return v
}

func (d *decoder) boolean(i int, field string) bool {
	v, ok := d.values[i].(bool)
	if !ok {
		d.fail(field, d.values[i])
	}
	return v
}

func malformed(kind, details string) error {
	return utils.NewAppError(utils.ErrCodeMalformedTuple, "Malformed "+kind+" tuple", details)
}
