// Package statusrpc exposes the Session Registry's read surface -
// active_instances, state, pending_queries, verdict (§6) - over net/rpc,
// the same pairing this pack's seeleteam-go-seele/rpc/httpserver.go uses
// to put a net/rpc server behind a JSON codec and CORS. It supersedes this
// codebase's own rpc/ package, which is generated gRPC-over-protobuf code
// tied to a sibling .proto pipeline this module does not carry, and whose
// gossip/transport half is exactly what §1 scopes networking-between-
// voters out of.
package statusrpc

import (
	"encoding/hex"
	"errors"

	"github.com/gagarinchain/accountability/accountability"
)

// StatusService is the net/rpc receiver registered with the server; every
// method here is one of the four read operations §6 exposes externally.
// Mutating operations (open/submit_response/tick/abort) are intentionally
// not exposed through this surface - they are driven by the detector and
// transport layers this module's Non-goals exclude, not by a status poller.
type StatusService struct {
	Registry *accountability.Registry
}

var ErrInstanceNotFound = errors.New("statusrpc: no such instance")

type Empty struct{}

type ActiveInstancesReply struct {
	Instances []uint64
}

// ActiveInstances implements active_instances() (§6).
func (s *StatusService) ActiveInstances(_ *Empty, reply *ActiveInstancesReply) error {
	for _, id := range s.Registry.ActiveInstances() {
		reply.Instances = append(reply.Instances, uint64(id))
	}
	return nil
}

type InstanceArgs struct {
	Instance uint64
}

type QueryView struct {
	Round       uint64
	Kind        string
	TargetBlock uint64
	Addressees  []string
	Responded   []string
}

type EquivocationView struct {
	Voter   string
	Round   uint64
	Kind    string
	TargetA uint64
	TargetB uint64
}

type VerdictView struct {
	Present      bool
	Reason       string
	Equivocators []string
	Byzantine    []string
}

type StateReply struct {
	Instance      uint64
	Phase         string
	BlockEarlier  uint64
	RoundEarlier  uint64
	BlockLater    uint64
	RoundLater    uint64
	Queries       []QueryView
	Equivocations []EquivocationView
	Verdict       *VerdictView
}

func hexVoter(b [32]byte) string {
	return hex.EncodeToString(b[:])
}

// State implements state(instance) (§6): the caller-facing rendering of a
// Snapshot, with voter identities hex-encoded for JSON transport.
func (s *StatusService) State(args *InstanceArgs, reply *StateReply) error {
	snap, err := s.Registry.State(accountability.InstanceID(args.Instance))
	if err != nil {
		return translate(err)
	}

	reply.Instance = args.Instance
	reply.Phase = snap.Phase.String()
	reply.BlockEarlier = uint64(snap.BlockEarlier)
	reply.RoundEarlier = uint64(snap.RoundEarlier)
	reply.BlockLater = uint64(snap.BlockLater)
	reply.RoundLater = uint64(snap.RoundLater)

	for _, q := range snap.Queries {
		qv := QueryView{Round: uint64(q.Round), Kind: q.Kind.String(), TargetBlock: uint64(q.TargetBlock)}
		for _, a := range q.Addressees {
			qv.Addressees = append(qv.Addressees, hexVoter(a))
		}
		for _, r := range q.Responded {
			qv.Responded = append(qv.Responded, hexVoter(r))
		}
		reply.Queries = append(reply.Queries, qv)
	}

	for _, eq := range snap.Equivocations {
		reply.Equivocations = append(reply.Equivocations, EquivocationView{
			Voter: hexVoter(eq.Voter), Round: uint64(eq.Round), Kind: eq.Kind.String(),
			TargetA: uint64(eq.TargetA), TargetB: uint64(eq.TargetB),
		})
	}

	if snap.Verdict != nil {
		reply.Verdict = verdictView(snap.Verdict)
	}
	return nil
}

type PendingQueriesReply struct {
	Queries []QueryView
}

// PendingQueries implements pending_queries(instance) (§6).
func (s *StatusService) PendingQueries(args *InstanceArgs, reply *PendingQueriesReply) error {
	descriptors, err := s.Registry.PendingQueries(accountability.InstanceID(args.Instance))
	if err != nil {
		return translate(err)
	}
	for _, d := range descriptors {
		qv := QueryView{Round: uint64(d.Round), Kind: d.Kind.String(), TargetBlock: uint64(d.TargetBlock)}
		for _, a := range d.Addressees {
			qv.Addressees = append(qv.Addressees, hexVoter(a))
		}
		reply.Queries = append(reply.Queries, qv)
	}
	return nil
}

// Verdict implements verdict(instance) (§6).
func (s *StatusService) Verdict(args *InstanceArgs, reply *VerdictView) error {
	v, err := s.Registry.Verdict(accountability.InstanceID(args.Instance))
	if err != nil {
		return translate(err)
	}
	if v == nil {
		reply.Present = false
		return nil
	}
	*reply = *verdictView(v)
	return nil
}

func verdictView(v *accountability.Verdict) *VerdictView {
	view := &VerdictView{Present: true, Reason: verdictReasonString(v.Reason)}
	for _, id := range v.Equivocators {
		view.Equivocators = append(view.Equivocators, hexVoter(id))
	}
	for _, id := range v.Byzantine {
		view.Byzantine = append(view.Byzantine, hexVoter(id))
	}
	return view
}

func verdictReasonString(r accountability.VerdictReason) string {
	switch r {
	case accountability.VerdictEquivocators:
		return "equivocators"
	case accountability.VerdictByzantineTimeout:
		return "byzantine_timeout"
	case accountability.VerdictAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

func translate(err error) error {
	if errors.Is(err, accountability.ErrUnknownInstance) {
		return ErrInstanceNotFound
	}
	return err
}
