package cmd

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/gagarinchain/accountability/accountability"
	"github.com/gagarinchain/accountability/chain"
	"github.com/gagarinchain/accountability/storage"
	"github.com/gagarinchain/accountability/vote"
)

// committeeEntry is one voter's weight as it appears in committee.json,
// the static file loadCommittee reads the way CommitteeLoaderImpl reads
// peers.json in this codebase's own bootstrap path.
type committeeEntry struct {
	Voter  string `json:"voter"`
	Weight uint64 `json:"weight"`
}

// ancestryEdge is one parent pointer as it appears in ancestry.json.
type ancestryEdge struct {
	Block  uint64 `json:"block"`
	Parent uint64 `json:"parent"`
}

// App bundles the collaborators every subcommand needs: the registry
// itself, its backing store, and the chain tree used as the ancestry
// predicate at open time.
type App struct {
	Registry  *accountability.Registry
	Store     *storage.SessionStore
	Tree      *chain.Tree
	Committee *vote.Committee

	ResponseDeadline time.Duration
}

func dataDir() string {
	dir := viper.GetString("storage.dir")
	if dir == "" {
		dir = "."
	}
	return dir
}

func loadApp() (*App, error) {
	dir := dataDir()

	committee, err := loadCommittee(filepath.Join(dir, "committee.json"))
	if err != nil {
		return nil, errors.Wrap(err, "loading committee.json")
	}

	tree, err := loadAncestry(filepath.Join(dir, "ancestry.json"), vote.BlockNumber(viper.GetInt64("chain.genesisBlock")))
	if err != nil {
		return nil, errors.Wrap(err, "loading ancestry.json")
	}

	db, err := storage.Open(dir)
	if err != nil {
		return nil, errors.Wrap(err, "opening session store")
	}
	store := storage.NewSessionStore(db)

	registry := accountability.NewRegistry(24 * time.Hour)
	for _, id := range store.ListIDs() {
		session, err := store.Load(id, committee, tree.AsAncestryPredicate())
		if err != nil {
			return nil, errors.Wrapf(err, "restoring session %d", id)
		}
		registry.Restore(session)
	}

	return &App{
		Registry:         registry,
		Store:            store,
		Tree:             tree,
		Committee:        committee,
		ResponseDeadline: time.Duration(viper.GetInt64("chain.responseDeadlineSeconds")) * time.Second,
	}, nil
}

func loadCommittee(path string) (*vote.Committee, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []committeeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	weights := make(map[vote.VoterID]vote.Weight, len(entries))
	for _, e := range entries {
		id, err := parseVoterID(e.Voter)
		if err != nil {
			return nil, errors.Wrapf(err, "voter %q", e.Voter)
		}
		weights[id] = vote.Weight(e.Weight)
	}
	return vote.NewCommittee(weights), nil
}

func loadAncestry(path string, genesis vote.BlockNumber) (*chain.Tree, error) {
	tree := chain.NewTree(genesis)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return tree, nil
	}
	if err != nil {
		return nil, err
	}

	var edges []ancestryEdge
	if err := json.Unmarshal(data, &edges); err != nil {
		return nil, err
	}
	for _, e := range edges {
		if err := tree.Register(vote.BlockNumber(e.Block), vote.BlockNumber(e.Parent)); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func parseVoterID(s string) (vote.VoterID, error) {
	var id vote.VoterID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.Errorf("voter id must be %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
