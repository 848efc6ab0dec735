package address

import (
	"fmt"

	"github.com/kaspa-bridge/deposit-sender/pkg/types"
)

const (
	opData32        = 0x20
	opData33        = 0x21
	opCheckSig      = 0xac
	opCheckSigECDSA = 0xab
	opBlake2b       = 0xaa
	opEqual         = 0x87
)

// ScriptPublicKey returns the standard locking script paying to the address.
func (a *Address) ScriptPublicKey() (types.ScriptPublicKey, error) {
	var script []byte
	switch a.Version {
	case VersionPubKey:
		script = append(append([]byte{opData32}, a.Payload...), opCheckSig)
	case VersionPubKeyECDSA:
		script = append(append([]byte{opData33}, a.Payload...), opCheckSigECDSA)
	case VersionScriptHash:
		script = append(append([]byte{opBlake2b, opData32}, a.Payload...), opEqual)
	default:
		return types.ScriptPublicKey{}, fmt.Errorf("unsupported address version %d", byte(a.Version))
	}
	return types.ScriptPublicKey{Version: 0, Script: script}, nil
}

// FromScriptPublicKey recovers the address for a standard locking script.
func FromScriptPublicKey(spk types.ScriptPublicKey, prefix string) (*Address, error) {
	s := spk.Script
	switch {
	case len(s) == 34 && s[0] == opData32 && s[33] == opCheckSig:
		return New(prefix, VersionPubKey, s[1:33])
	case len(s) == 35 && s[0] == opData33 && s[34] == opCheckSigECDSA:
		return New(prefix, VersionPubKeyECDSA, s[1:34])
	case len(s) == 35 && s[0] == opBlake2b && s[1] == opData32 && s[34] == opEqual:
		return New(prefix, VersionScriptHash, s[2:34])
	default:
		return nil, fmt.Errorf("non-standard script public key")
	}
}
