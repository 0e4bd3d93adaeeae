package rpc

// Osmosis LCD routes. Both can be overridden through Opts for forks that mount the modules
// elsewhere.

const (
	// Incentives module: every gauge, active and upcoming.
	gaugesPath = "/osmosis/incentives/v1beta1/gauges"

	// Pool manager: every pool of every type.
	poolsPath = "/osmosis/poolmanager/v1beta1/all-pools"

	defaultPageLimit = 500
)
