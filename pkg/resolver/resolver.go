package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/kaspa-bridge/deposit-sender/pkg/config"
)

var ErrNoEndpoints = errors.New("no node endpoints configured for network")

// IResolver picks a node url for a network when the caller does not supply one
type IResolver interface {
	Resolve(ctx context.Context, network config.NetworkId) (string, error)
}

// StaticResolver hands out configured urls per network in round-robin order
type StaticResolver struct {
	endpoints map[string][]string
	next      atomic.Uint64
}

var _ IResolver = (*StaticResolver)(nil)

// NewStaticResolver takes urls keyed by network id string, e.g. "testnet-10"
func NewStaticResolver(endpoints map[string][]string) *StaticResolver {
	cp := make(map[string][]string, len(endpoints))
	for network, urls := range endpoints {
		cp[network] = append([]string(nil), urls...)
	}
	return &StaticResolver{endpoints: cp}
}

func (r *StaticResolver) Resolve(ctx context.Context, network config.NetworkId) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	urls := r.endpoints[network.String()]
	if len(urls) == 0 {
		return "", fmt.Errorf("%w %s", ErrNoEndpoints, network)
	}
	i := r.next.Add(1) - 1
	return urls[i%uint64(len(urls))], nil
}
