package cmd

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gagarinchain/accountability/accountability"
	"github.com/gagarinchain/accountability/validate"
	"github.com/gagarinchain/accountability/vote"
)

// responseFile is the on-disk shape `submit-response` reads: the
// responder's id and the votes it is offering as its answer.
type responseFile struct {
	Responder string         `json:"responder"`
	Votes     []responseVote `json:"votes"`
}

type responseVote struct {
	Target uint64 `json:"target"`
	Kind   string `json:"kind"`
	Round  uint64 `json:"round"`
}

func (v responseVote) toVote(voter vote.VoterID) (vote.Vote, error) {
	var kind vote.Kind
	switch v.Kind {
	case "prevote":
		kind = vote.Prevote
	case "precommit":
		kind = vote.Precommit
	default:
		return vote.Vote{}, errors.Errorf("submit-response: unknown vote kind %q", v.Kind)
	}
	return vote.Vote{Voter: voter, Target: vote.BlockNumber(v.Target), Kind: kind, Round: vote.RoundNumber(v.Round)}, nil
}

var submitCmd = &cobra.Command{
	Use:   "submit-response [instance] [response.json]",
	Short: "Submit a responder's answer to the current outstanding query",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Store.Close()

		instance, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return errors.Wrap(err, "parsing instance id")
		}
		id := accountability.InstanceID(instance)

		data, err := os.ReadFile(args[1])
		if err != nil {
			return errors.Wrap(err, "reading response file")
		}
		var rf responseFile
		if err := json.Unmarshal(data, &rf); err != nil {
			return errors.Wrap(err, "parsing response file")
		}

		responder, err := parseVoterID(rf.Responder)
		if err != nil {
			return err
		}

		payload := vote.NewVoteSet()
		for _, rv := range rf.Votes {
			v, err := rv.toVote(responder)
			if err != nil {
				return err
			}
			payload.Add(v)
		}

		validator := validate.New(app.Committee, app.Tree.AsAncestryPredicate())
		if err := app.Registry.SubmitResponse(validator, id, responder, payload, time.Now().Unix()); err != nil {
			return err
		}

		session, err := app.Registry.Session(id)
		if err != nil {
			return err
		}
		if err := app.Store.Save(session); err != nil {
			return err
		}

		cmd.Println("response admitted")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
}
