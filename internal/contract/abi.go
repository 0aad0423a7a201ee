package contract

// HackathonPlatformABI is the interface of the deployed HackathonPlatform
// contract. Only the functions listed here are reachable from this module.
const HackathonPlatformABI = `[
  {"type":"function","name":"createHackathon","stateMutability":"payable",
   "inputs":[{"name":"_title","type":"string"},{"name":"_description","type":"string"},{"name":"_durationInDays","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"submitProject","stateMutability":"nonpayable",
   "inputs":[{"name":"_hackathonId","type":"uint256"},{"name":"_title","type":"string"},{"name":"_description","type":"string"},{"name":"_repoUrl","type":"string"},{"name":"_demoUrl","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"voteForProject","stateMutability":"nonpayable",
   "inputs":[{"name":"_projectId","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"getWinner","stateMutability":"view",
   "inputs":[{"name":"_hackathonId","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"},{"name":"","type":"uint256"}]},
  {"type":"function","name":"claimPrize","stateMutability":"nonpayable",
   "inputs":[{"name":"_hackathonId","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"getAllHackathons","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"tuple[]","internalType":"struct HackathonPlatform.Hackathon[]","components":[
     {"name":"id","type":"uint256"},
     {"name":"title","type":"string"},
     {"name":"description","type":"string"},
     {"name":"organizer","type":"address"},
     {"name":"prizePool","type":"uint256"},
     {"name":"deadline","type":"uint256"},
     {"name":"isActive","type":"bool"},
     {"name":"totalVotes","type":"uint256"}]}]},
  {"type":"function","name":"getHackathonProjects","stateMutability":"view",
   "inputs":[{"name":"_hackathonId","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"hackathons","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"}],
   "outputs":[
     {"name":"id","type":"uint256"},
     {"name":"title","type":"string"},
     {"name":"description","type":"string"},
     {"name":"organizer","type":"address"},
     {"name":"prizePool","type":"uint256"},
     {"name":"deadline","type":"uint256"},
     {"name":"isActive","type":"bool"},
     {"name":"totalVotes","type":"uint256"}]},
  {"type":"function","name":"projects","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"}],
   "outputs":[
     {"name":"id","type":"uint256"},
     {"name":"hackathonId","type":"uint256"},
     {"name":"title","type":"string"},
     {"name":"description","type":"string"},
     {"name":"repoUrl","type":"string"},
     {"name":"demoUrl","type":"string"},
     {"name":"teamLead","type":"address"},
     {"name":"votes","type":"uint256"},
     {"name":"exists","type":"bool"}]}
]`

// Contract method names
const (
	MethodCreateHackathon      = "createHackathon"
	MethodSubmitProject        = "submitProject"
	MethodVoteForProject       = "voteForProject"
	MethodGetWinner            = "getWinner"
	MethodClaimPrize           = "claimPrize"
	MethodGetAllHackathons     = "getAllHackathons"
	MethodGetHackathonProjects = "getHackathonProjects"
	MethodHackathons           = "hackathons"
	MethodProjects             = "projects"
)
