package cmd

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gagarinchain/accountability/vote"
)

// conflictFile is the on-disk shape `open` reads: two candidate commits,
// each a block/round pair plus the precommits backing it.
type conflictFile struct {
	Earlier conflictCommit `json:"earlier"`
	Later   conflictCommit `json:"later"`
}

type conflictCommit struct {
	Block      uint64         `json:"block"`
	Round      uint64         `json:"round"`
	Precommits []conflictVote `json:"precommits"`
}

type conflictVote struct {
	Voter string `json:"voter"`
}

func (c conflictCommit) toVoteSet(round uint64) (vote.VoteSet, error) {
	votes := vote.NewVoteSet()
	for _, v := range c.Precommits {
		id, err := parseVoterID(v.Voter)
		if err != nil {
			return nil, err
		}
		votes.Add(vote.Vote{
			Voter:  id,
			Target: vote.BlockNumber(c.Block),
			Kind:   vote.Precommit,
			Round:  vote.RoundNumber(round),
		})
	}
	return votes, nil
}

var openCmd = &cobra.Command{
	Use:   "open [conflict.json]",
	Short: "Open an accountable-safety session for a conflicting pair of commits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Store.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrap(err, "reading conflict file")
		}
		var cf conflictFile
		if err := json.Unmarshal(data, &cf); err != nil {
			return errors.Wrap(err, "parsing conflict file")
		}

		earlierVotes, err := cf.Earlier.toVoteSet(cf.Earlier.Round)
		if err != nil {
			return err
		}
		laterVotes, err := cf.Later.toVoteSet(cf.Later.Round)
		if err != nil {
			return err
		}

		ancestry := app.Tree.AsAncestryPredicate()
		earlier, err := vote.NewCommit(vote.BlockNumber(cf.Earlier.Block), vote.RoundNumber(cf.Earlier.Round), earlierVotes, app.Committee, ancestry)
		if err != nil {
			return err
		}
		later, err := vote.NewCommit(vote.BlockNumber(cf.Later.Block), vote.RoundNumber(cf.Later.Round), laterVotes, app.Committee, ancestry)
		if err != nil {
			return err
		}

		id, err := app.Registry.Open(earlier, later, app.Committee, ancestry, app.ResponseDeadline, time.Now().Unix())
		if err != nil {
			return err
		}

		session, err := app.Registry.Session(id)
		if err != nil {
			return err
		}
		if err := app.Store.Save(session); err != nil {
			return err
		}

		cmd.Printf("opened session %d\n", uint64(id))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
}
