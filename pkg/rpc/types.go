package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/kaspa-bridge/deposit-sender/pkg/types"
)

// Method names of the node's JSON wRPC interface
const (
	MethodGetServerInfo       = "getServerInfo"
	MethodGetUtxosByAddresses = "getUtxosByAddresses"
	MethodGetFeeEstimate      = "getFeeEstimate"
	MethodSubmitTransaction   = "submitTransaction"
)

type request struct {
	Id     uint64      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// message is any frame read from the node. Responses carry an id,
// notifications do not.
type message struct {
	Id     *uint64         `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is an error reported by the node for a single call
type RPCError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("rpc error: %s", e.Message)
}

// Notification is an unsolicited message pushed by the node
type Notification struct {
	Method string
	Params json.RawMessage
}

type ServerInfo struct {
	RpcApiVersion   uint16 `json:"rpcApiVersion"`
	ServerVersion   string `json:"serverVersion"`
	NetworkId       string `json:"networkId"`
	HasUtxoIndex    bool   `json:"hasUtxoIndex"`
	IsSynced        bool   `json:"isSynced"`
	VirtualDaaScore uint64 `json:"virtualDaaScore"`
}

type FeerateBucket struct {
	Feerate          float64 `json:"feerate"`
	EstimatedSeconds float64 `json:"estimatedSeconds"`
}

// FeeEstimate holds feerates in sompi per gram of mass
type FeeEstimate struct {
	PriorityBucket FeerateBucket   `json:"priorityBucket"`
	NormalBuckets  []FeerateBucket `json:"normalBuckets"`
	LowBuckets     []FeerateBucket `json:"lowBuckets"`
}

// NormalFeerate returns the first normal bucket's feerate, falling back to
// the priority bucket when the node reports none.
func (f *FeeEstimate) NormalFeerate() float64 {
	if len(f.NormalBuckets) > 0 {
		return f.NormalBuckets[0].Feerate
	}
	return f.PriorityBucket.Feerate
}

type getUtxosByAddressesRequest struct {
	Addresses []string `json:"addresses"`
}

type getUtxosByAddressesResponse struct {
	Entries []types.UtxoEntryReference `json:"entries"`
}

type getFeeEstimateResponse struct {
	Estimate FeeEstimate `json:"estimate"`
}

type submitTransactionRequest struct {
	Transaction *types.Transaction `json:"transaction"`
	AllowOrphan bool               `json:"allowOrphan"`
}

type submitTransactionResponse struct {
	TransactionId types.TransactionId `json:"transactionId"`
}
