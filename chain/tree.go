// Package chain adapts this codebase's blockchain package down to the one
// collaborator the accountability core actually needs: an
// AncestryPredicate over vote.BlockNumber (§4.1). Block import, fork
// choice, storage and transaction execution stay out of scope the way
// §1's Non-goals exclude them; what survives from blockchain.Blockchain is
// its parent-pointer walk, the same one IsSibling used to decide whether
// one header descends from another.
package chain

import (
	"sync"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/gagarinchain/accountability/vote"
)

var log = logging.MustGetLogger("chain")

// ErrParentMismatch is returned by Register when a block is registered
// twice with two different parents - a fork at the block number itself,
// which this tree refuses to model since vote.BlockNumber is a bare
// height, not a hash, and so cannot name two competing blocks at once.
var ErrParentMismatch = errors.New("chain: block already registered with a different parent")

// Tree is a minimal in-memory block tree: parent pointers plus the
// upward walk blockchain.Blockchain.IsSibling performed one ancestor at a
// time, generalized here to any two blocks instead of just a sibling and
// a candidate ancestor.
type Tree struct {
	mu      sync.RWMutex
	genesis vote.BlockNumber
	parent  map[vote.BlockNumber]vote.BlockNumber
}

// NewTree builds a Tree rooted at genesis. genesis is its own ancestor and
// the ancestor of every block reachable by following parent pointers back
// to it, mirroring IsGenesisBlock's special case in blockchain/header.go.
func NewTree(genesis vote.BlockNumber) *Tree {
	return &Tree{
		genesis: genesis,
		parent:  make(map[vote.BlockNumber]vote.BlockNumber),
	}
}

// Register records block's parent. Re-registering the same block with the
// same parent is a no-op; registering it with a different parent is
// rejected rather than silently overwritten.
func (t *Tree) Register(block, parent vote.BlockNumber) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.parent[block]; ok {
		if existing != parent {
			return errors.Wrapf(ErrParentMismatch, "block %d: have parent %d, got %d", block, existing, parent)
		}
		return nil
	}
	t.parent[block] = parent
	return nil
}

// IsAncestor implements vote.AncestryPredicate: b is an ancestor of other
// if b == other, or if walking other's parent pointers reaches b before
// falling off the known tree. Genesis is the ancestor of everything this
// tree has ever registered.
func (t *Tree) IsAncestor(b, other vote.BlockNumber) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cur := other
	for {
		if cur == b {
			return true
		}
		if cur == t.genesis {
			return b == t.genesis
		}
		p, ok := t.parent[cur]
		if !ok {
			return false
		}
		cur = p
	}
}

// AsAncestryPredicate adapts the tree to vote.AncestryPredicate for
// callers (Registry.Open, Commit construction) that only need the
// interface, not the registration API.
func (t *Tree) AsAncestryPredicate() vote.AncestryPredicate {
	return vote.AncestryFunc(t.IsAncestor)
}

// Height walks parent pointers from block back to genesis and reports how
// many hops it took, or ok=false if block was never registered and isn't
// genesis itself. It does not assume BlockNumber encodes height directly.
func (t *Tree) Height(block vote.BlockNumber) (height int, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cur := block
	for {
		if cur == t.genesis {
			return height, true
		}
		p, found := t.parent[cur]
		if !found {
			return 0, false
		}
		cur = p
		height++
	}
}
