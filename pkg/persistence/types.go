package persistence

import "sort"

// AccountKind names how an account derives its keys.
type AccountKind string

const (
	// AccountKindKeypair is a single secp256k1 key with one receive address.
	AccountKindKeypair AccountKind = "keypair"
)

// WalletMetadata describes the wallet as a whole.
type WalletMetadata struct {
	// Title is the human readable wallet name.
	Title string `json:"title"`

	// CreatedAt is the Unix timestamp of wallet creation.
	CreatedAt int64 `json:"createdAt"`

	// NextAccountIndex is assigned to the next account created.
	NextAccountIndex uint32 `json:"nextAccountIndex"`
}

// AccountRecord is the public, unencrypted part of an account. Private keys
// live only in the keychain.
type AccountRecord struct {
	// Id is the opaque account identifier.
	Id string `json:"id"`

	// Name is an optional label.
	Name string `json:"name"`

	// Index orders accounts by creation; enumeration returns ascending Index.
	Index uint32 `json:"index"`

	Kind AccountKind `json:"kind"`

	// PublicKey is the hex encoded x-only Schnorr public key.
	PublicKey string `json:"publicKey"`

	// CreatedAt is the Unix timestamp of account creation.
	CreatedAt int64 `json:"createdAt"`
}

// SortAccounts orders accounts by Index, then Id.
func SortAccounts(accounts []*AccountRecord) {
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Index != accounts[j].Index {
			return accounts[i].Index < accounts[j].Index
		}
		return accounts[i].Id < accounts[j].Id
	})
}
