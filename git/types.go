package git

import "context"

// Runner executes git with an argument vector in a working directory and
// returns stdout. Implementations classify failures into stable error
// codes (see the errors package). The production implementation is
// gitexec.Runner; tests substitute fakes.
type Runner interface {
	Git(ctx context.Context, dir string, args ...string) (string, error)
}

// ChangeKind describes how a file changed.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeRenamed  ChangeKind = "renamed"
)

// ChangedFile is one file in a status or diff listing. Path is relative to
// the repository root. Additions/Deletions are line counts from numstat;
// they stay zero for binary files and for untracked files above the size
// ceiling.
type ChangedFile struct {
	Path      string     `json:"path"`
	Kind      ChangeKind `json:"kind"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
}

// Commit is one commit in a branch comparison listing.
type Commit struct {
	Hash    string `json:"hash"`
	Subject string `json:"subject"`
	Author  string `json:"author"`
	Date    string `json:"date"`
}

// StatusSnapshot is a point-in-time view of a checkout. It is produced
// fresh per call (briefly cached per repository path) and never mutated
// once returned.
type StatusSnapshot struct {
	// Branch is the current branch name, empty in detached HEAD state.
	Branch string `json:"branch"`

	// DefaultBranch is the branch comparisons are made against.
	DefaultBranch string `json:"default_branch"`

	Staged    []ChangedFile `json:"staged"`
	Unstaged  []ChangedFile `json:"unstaged"`
	Untracked []ChangedFile `json:"untracked"`

	// Ahead/Behind count commits relative to the default branch.
	Ahead  int `json:"ahead"`
	Behind int `json:"behind"`

	// PushCount/PullCount count commits relative to the upstream tracking
	// branch. Both are zero when HasUpstream is false; absence of an
	// upstream is not an error.
	PushCount   int  `json:"push_count"`
	PullCount   int  `json:"pull_count"`
	HasUpstream bool `json:"has_upstream"`

	// Commits are the commits unique to the current branch.
	Commits []Commit `json:"commits"`

	// AgainstBase lists files changed relative to the default branch,
	// including committed changes.
	AgainstBase []ChangedFile `json:"against_base"`
}

// SafetyReport describes what a destructive transition (checkout, worktree
// removal) would put at risk. The engine never decides; the caller chooses
// to proceed, block, or prompt.
type SafetyReport struct {
	UncommittedChanges bool `json:"uncommitted_changes"`
	UnpushedCommits    bool `json:"unpushed_commits"`
	NeedsRebase        bool `json:"needs_rebase"`
}

// Safe reports whether the transition risks no work.
func (r SafetyReport) Safe() bool {
	return !r.UncommittedChanges && !r.UnpushedCommits && !r.NeedsRebase
}

// WorktreeState is the lifecycle state of an agent-session worktree.
type WorktreeState string

const (
	WorktreeRequested WorktreeState = "requested"
	WorktreeCreated   WorktreeState = "created"
	WorktreeActive    WorktreeState = "active"
	WorktreeMerging   WorktreeState = "merging"
	WorktreeRemoving  WorktreeState = "removing"
	WorktreeGone      WorktreeState = "gone"
)

// Worktree is the lifecycle descriptor for an isolated checkout created
// for a chat/agent session.
type Worktree struct {
	Path       string        `json:"path"`
	Branch     string        `json:"branch"`
	BaseBranch string        `json:"base_branch"`
	State      WorktreeState `json:"state"`
}

// WorktreeInfo is one entry of `git worktree list --porcelain`.
type WorktreeInfo struct {
	Path   string `json:"path"`
	Branch string `json:"branch"`
	Commit string `json:"commit"`
	Bare   bool   `json:"bare"`
}

// Diff is a generated patch plus its per-file stats. Lock-file noise is
// excluded from both.
type Diff struct {
	Patch string        `json:"patch"`
	Files []ChangedFile `json:"files"`
}

// RepoLayout is the result of scanning a project root for repositories.
type RepoLayout struct {
	RootIsRepo bool     `json:"root_is_repo"`
	SubRepos   []string `json:"sub_repos"`
}
