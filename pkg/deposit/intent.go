package deposit

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaspa-bridge/deposit-sender/pkg/address"
	"github.com/kaspa-bridge/deposit-sender/pkg/config"
)

// Intent is a validated deposit request. An empty Payload means the
// transaction carries no payload.
type Intent struct {
	Escrow  *address.Address
	Amount  uint64
	Payload []byte
}

// ParseNetwork validates the network selector.
func ParseNetwork(name string) (config.NetworkId, error) {
	network, err := config.ParseNetwork(name)
	if err != nil {
		return config.NetworkId{}, newError(KindInput, "parse network", err)
	}
	return network, nil
}

// ParseIntent validates the raw deposit arguments against network. It has no
// side effects.
func ParseIntent(network config.NetworkId, escrow, amount, payloadHex string) (*Intent, error) {
	if escrow == "" {
		return nil, newError(KindInput, "parse escrow address", fmt.Errorf("escrow address is required"))
	}
	escrowAddr, err := address.ParseForNetwork(escrow, network)
	if err != nil {
		return nil, newError(KindInput, "parse escrow address", err)
	}

	value, err := strconv.ParseUint(strings.TrimSpace(amount), 10, 64)
	if err != nil {
		return nil, newError(KindInput, "parse amount", fmt.Errorf("amount must be an integer number of sompi: %w", err))
	}

	payload, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(payloadHex), "0x"))
	if err != nil {
		return nil, newError(KindInput, "decode payload", err)
	}

	return &Intent{Escrow: escrowAddr, Amount: value, Payload: payload}, nil
}
