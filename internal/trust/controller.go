package trust

import (
	"github.com/vectormesh/avrs/internal/config"
	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/routing"
)

// Controller applies spec §4.8's bounded deltas to a node's trust score in
// response to per-hop outcomes. It implements routing.TrustNotifier so the
// executor can notify it directly without either package importing a
// concrete type from the other's internals.
type Controller struct {
	deltas config.Trust
}

// NewController returns a Controller configured with the given deltas.
func NewController(cfg config.Trust) *Controller {
	return &Controller{deltas: cfg}
}

// Notify applies the delta for outcome to n's trust score. Node.AdjustTrust
// already clamps the result into [0, 1], so Notify never needs to.
func (c *Controller) Notify(n *node.Node, outcome routing.Outcome) {
	switch outcome {
	case routing.OutcomeSuccess:
		n.AdjustTrust(c.deltas.DeltaSuccess)
	case routing.OutcomeFast:
		n.AdjustTrust(c.deltas.DeltaFast)
	case routing.OutcomeFailure:
		n.AdjustTrust(c.deltas.DeltaFailure)
	case routing.OutcomeError:
		n.AdjustTrust(c.deltas.DeltaError)
	case routing.OutcomeSlow:
		n.AdjustTrust(c.deltas.DeltaSlow)
	}
}

// IsBlocked reports whether n's trust has fallen below the configured
// block threshold. Per spec §4.8, a blocked node is not hard-excluded by
// default — it is already penalized through the scorer's linear trust
// term — so this is exposed as a query for policy layers (e.g. an
// operator dashboard or a stricter selector variant) to act on if desired,
// not wired into Select itself.
func (c *Controller) IsBlocked(n *node.Node) bool {
	return n.Metrics().Trust < c.deltas.BlockBelow
}
