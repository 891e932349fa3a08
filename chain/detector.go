package chain

import (
	"sync"

	"github.com/gagarinchain/accountability/vote"
)

// Detector watches a stream of externally-validated commits and reports
// the first pair at different rounds whose blocks are unrelated - neither
// block an ancestor of the other, as invariant 1 requires of a session's
// two commits - so a caller can hand the pair to accountability.Registry.Open.
// It plays the role blockchain.Blockchain.OnCommit/analyze left as a TODO
// ("analyze forks and find where peers equivocated"), narrowed to exactly
// the observation step the core needs: it does not itself walk votes or
// accumulate equivocators, that is the Session's job once opened.
type Detector struct {
	mu      sync.Mutex
	tree    *Tree
	commits map[vote.RoundNumber][]*vote.Commit
}

// NewDetector builds a Detector backed by tree for ancestry checks.
func NewDetector(tree *Tree) *Detector {
	return &Detector{
		tree:    tree,
		commits: make(map[vote.RoundNumber][]*vote.Commit),
	}
}

// Observe records a newly finalized commit and checks it against every
// previously observed commit at a different round. It returns the first
// conflicting pair found, if any - commits for unrelated blocks, which by
// §2 can only arise from equivocation since honest voting is safe within
// one GRANDPA run.
func (d *Detector) Observe(c *vote.Commit) (earlier, later *vote.Commit, found bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for round, group := range d.commits {
		if round == c.Round {
			continue
		}
		for _, other := range group {
			if other.Block == c.Block {
				continue
			}
			if vote.Unrelated(d.tree.AsAncestryPredicate(), other.Block, c.Block) {
				if other.Round < c.Round {
					d.commits[c.Round] = append(d.commits[c.Round], c)
					return other, c, true
				}
				d.commits[c.Round] = append(d.commits[c.Round], c)
				return c, other, true
			}
		}
	}

	d.commits[c.Round] = append(d.commits[c.Round], c)
	return nil, nil, false
}
