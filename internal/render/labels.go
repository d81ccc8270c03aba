package render

import "github.com/ethereum/go-ethereum/common"

// StaticLabels resolves display names from the config label map. It is
// the default name-resolution collaborator; an empty result means the
// caller falls back to shortened hex.
type StaticLabels map[common.Address]string

// NewStaticLabels builds a resolver from hex-keyed config labels.
func NewStaticLabels(labels map[string]string) StaticLabels {
	out := make(StaticLabels, len(labels))
	for hex, name := range labels {
		out[common.HexToAddress(hex)] = name
	}
	return out
}

// ResolveDisplayName returns the label for addr, or "" if unknown.
func (l StaticLabels) ResolveDisplayName(addr common.Address) string {
	return l[addr]
}
