package address

import (
	"context"
	"fmt"

	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// Translator translates browse paths into node ids on the server.
type Translator interface {
	// TranslateBrowsePaths sends all paths in one request. Results are returned in request
	// order.
	TranslateBrowsePaths(ctx context.Context, paths []BrowsePath) ([]PathResult, error)
}

// PathResult is the server answer for one browse path.
type PathResult struct {
	Status  uatype.StatusCode
	Targets []NodeID
}

// Resolution is the outcome of resolving one address. Node is the null node id when
// Status is not good.
type Resolution struct {
	Node   NodeID
	Status uatype.StatusCode
}

// ModeGuard enforces a single address mode. The first admitted address fixes the mode.
type ModeGuard struct {
	mode Mode
}

// Mode returns the fixed mode, ModeUnknown before the first admitted address.
func (g *ModeGuard) Mode() Mode { return g.mode }

// Admit checks a against the fixed mode and fixes it on first use.
func (g *ModeGuard) Admit(a Address) error {
	if g.mode == ModeUnknown {
		g.mode = a.Mode()
		return nil
	}
	if a.Mode() != g.mode {
		return fmt.Errorf("%w: %q is %s, session uses %s", ErrModeMismatch, a.Raw(), a.Mode(), g.mode)
	}

	return nil
}

// Resolve resolves addrs to node ids. Node id addresses resolve locally; all browse path
// addresses go to t in a single request and the results are applied in request order.
//
// On a translation failure the browse path entries carry a bad status and the error is
// returned alongside the partial result.
func Resolve(ctx context.Context, t Translator, addrs []Address) ([]Resolution, error) {
	out := make([]Resolution, len(addrs))
	paths := make([]BrowsePath, 0, len(addrs))
	pathIdx := make([]int, 0, len(addrs))

	for i, a := range addrs {
		switch a.Mode() {
		case ModeNodeID:
			out[i] = Resolution{Node: a.NodeID()}
		case ModeBrowsePath:
			paths = append(paths, a.BrowsePath())
			pathIdx = append(pathIdx, i)
		default:
			out[i] = Resolution{Status: uatype.StatusBadNodeIDInvalid}
		}
	}

	if len(paths) == 0 {
		return out, nil
	}

	results, err := t.TranslateBrowsePaths(ctx, paths)
	if err != nil {
		for _, i := range pathIdx {
			out[i] = Resolution{Status: uatype.StatusBadCommunicationError}
		}
		return out, fmt.Errorf("translate %d browse paths: %w", len(paths), err)
	}

	for n, i := range pathIdx {
		if n >= len(results) {
			out[i] = Resolution{Status: uatype.StatusBadUnexpectedError}
			continue
		}
		res := results[n]
		switch {
		case !res.Status.IsGood():
			out[i] = Resolution{Status: res.Status}
		case len(res.Targets) == 0:
			out[i] = Resolution{Status: uatype.StatusBadNoMatch}
		default:
			out[i] = Resolution{Node: res.Targets[0]}
		}
	}

	return out, nil
}
