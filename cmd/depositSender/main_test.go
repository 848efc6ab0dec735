package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	awsutil "github.com/kaspa-bridge/deposit-sender/internal/aws"
	"github.com/kaspa-bridge/deposit-sender/pkg/address"
	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/deposit"
	"github.com/kaspa-bridge/deposit-sender/pkg/persistence"
	"github.com/kaspa-bridge/deposit-sender/pkg/rpc"
	"github.com/kaspa-bridge/deposit-sender/pkg/rpc/rpctest"
	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"github.com/kaspa-bridge/deposit-sender/pkg/testutil"
	"github.com/kaspa-bridge/deposit-sender/pkg/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testEscrow    = "kaspa:prztt2hd2txge07syjvhaz5j6l9ql6djhc9equela058rjm6vww0uwre5dulh"
	testSecret    = "correct horse battery staple"
	testKeyHex    = "0101010101010101010101010101010101010101010101010101010101010101"
	testAmount    = "4000000000"
	testPayload   = "03000000"
	testUtxoValue = 10_000_000_000
)

func fastKDF(t *testing.T) {
	t.Helper()
	prev := kdfParams
	kdfParams = testutil.FastKDFParams
	t.Cleanup(func() { kdfParams = prev })
}

func useNode(t *testing.T, node *rpctest.FakeNode) {
	t.Helper()
	prev := newNodeClient
	newNodeClient = func(*zap.Logger) rpc.INodeClient { return node }
	t.Cleanup(func() { newNodeClient = prev })
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	out := &bytes.Buffer{}
	app.Writer = out
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run(append([]string{"deposit-sender"}, args...))
	return out.String(), err
}

// createWallet runs "wallet create" and returns the receive address
func createWallet(t *testing.T, dir string) *address.Address {
	t.Helper()
	out, err := runApp(t, "wallet", "create",
		"--wallet-dir", dir,
		"--wallet-secret", testSecret,
		"--private-key", testKeyHex,
	)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(out, "\n"))

	addr, err := address.ParseForNetwork(strings.TrimSpace(out), config.Mainnet)
	require.NoError(t, err)
	return addr
}

func fundedNode(t *testing.T, addr *address.Address) *rpctest.FakeNode {
	t.Helper()
	node := rpctest.NewFakeNode("mainnet")
	testutil.Fund(t, node, addr, testUtxoValue, 7)
	return node
}

func depositArgs(dir string, extra ...string) []string {
	args := []string{
		"--wallet-dir", dir,
		"--wallet-secret", testSecret,
		"--rpc", "wss://node:17110",
		"--escrow", testEscrow,
		"--amount", testAmount,
		"--payload", testPayload,
	}
	return append(args, extra...)
}

func TestDeposit_PrintsOnlyTransactionId(t *testing.T) {
	fastKDF(t)
	dir := t.TempDir()
	addr := createWallet(t, dir)
	node := fundedNode(t, addr)
	useNode(t, node)

	out, err := runApp(t, depositArgs(dir)...)
	require.NoError(t, err)

	tx := node.LastSubmitted()
	require.NotNil(t, tx)
	assert.Equal(t, transaction.ID(tx).String()+"\n", out)
	assert.Equal(t, []byte{0x03, 0x00, 0x00, 0x00}, []byte(tx.Payload))
	assert.Equal(t, uint64(4_000_000_000), tx.Outputs[0].Value)
	assert.False(t, node.IsConnected())
}

func TestDeposit_EmptyPayloadSendsNone(t *testing.T) {
	fastKDF(t)
	dir := t.TempDir()
	node := fundedNode(t, createWallet(t, dir))
	useNode(t, node)

	args := depositArgs(dir)
	args[len(args)-1] = ""
	_, err := runApp(t, args...)
	require.NoError(t, err)
	assert.Nil(t, node.LastSubmitted().Payload)
}

func TestDeposit_InputErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"unknown network", depositArgs(dir, "--network", "devnet")},
		{"bad amount", depositArgs(dir, "--amount", "1.5")},
		{"bad payload", depositArgs(dir, "--payload", "zz")},
		{"bad escrow", depositArgs(dir, "--escrow", "kaspa:nope")},
		{"missing amount", []string{"--wallet-dir", dir, "--wallet-secret", testSecret, "--rpc", "wss://n", "--escrow", testEscrow, "--payload", ""}},
		{"missing payload", []string{"--wallet-dir", dir, "--wallet-secret", testSecret, "--rpc", "wss://n", "--escrow", testEscrow, "--amount", testAmount}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, deposit.ErrInput)
			assert.NotContains(t, err.Error(), testSecret)
		})
	}

	// nothing was opened or created
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeposit_MissingSecretIsConfigurationError(t *testing.T) {
	t.Setenv(config.EnvWalletSecret, "")
	args := depositArgs(t.TempDir())
	args[3] = ""

	_, err := runApp(t, args...)
	require.Error(t, err)
	assert.ErrorIs(t, err, deposit.ErrConfiguration)
}

func TestDeposit_NoWalletIsStoreError(t *testing.T) {
	useNode(t, rpctest.NewFakeNode("mainnet"))
	_, err := runApp(t, depositArgs(t.TempDir())...)
	require.Error(t, err)
	assert.ErrorIs(t, err, deposit.ErrStore)
	assert.ErrorIs(t, err, persistence.ErrStoreNotFound)
}

func TestDeposit_WrongSecretIsAuthenticationError(t *testing.T) {
	fastKDF(t)
	dir := t.TempDir()
	node := fundedNode(t, createWallet(t, dir))
	useNode(t, node)

	args := depositArgs(dir)
	args[3] = "not the secret"
	out, err := runApp(t, args...)
	require.Error(t, err)
	assert.ErrorIs(t, err, deposit.ErrAuthentication)
	assert.Empty(t, out)
	assert.Empty(t, node.Submitted)
}

func TestWalletCreate_RefusesExistingWallet(t *testing.T) {
	fastKDF(t)
	dir := t.TempDir()
	createWallet(t, dir)

	_, err := runApp(t, "wallet", "create", "--wallet-dir", dir, "--wallet-secret", testSecret)
	require.Error(t, err)
}

func TestWalletCreate_InvalidKeyWritesNothing(t *testing.T) {
	fastKDF(t)
	dir := t.TempDir()

	for _, key := range []string{"zz", "0102", strings.Repeat("00", 32)} {
		_, err := runApp(t, "wallet", "create",
			"--wallet-dir", dir,
			"--wallet-secret", testSecret,
			"--private-key", key,
		)
		require.Error(t, err, key)
		assert.NotContains(t, err.Error(), key)
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// a corrected key still creates the wallet
	addr := createWallet(t, dir)
	out, err := runApp(t, "wallet", "accounts", "--wallet-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, addr.String())
}

func TestWalletAccounts_ListsSelectedAccount(t *testing.T) {
	fastKDF(t)
	dir := t.TempDir()
	addr := createWallet(t, dir)

	out, err := runApp(t, "wallet", "accounts", "--wallet-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, addr.String())
	assert.Contains(t, out, "default")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestParseConfig_FileFillsUnsetFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deposit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
network: mainnet
rpcUrl: wss://from-file:17110
walletName: treasury
escrow: kaspa:from-file
timeout: 30s
store:
  backend: redis
  redis:
    address: localhost:6379
    db: 2
`), 0o600))

	var got *config.DepositConfig
	app := &cli.App{
		Flags: depositFlags(),
		Action: func(c *cli.Context) error {
			var err error
			got, err = parseConfig(c)
			return err
		},
	}
	err := app.Run([]string{"test",
		"--config", path,
		"--network", "testnet",
		"--escrow", testEscrow,
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "testnet", got.Network)
	assert.Equal(t, testEscrow, got.Escrow)
	assert.Equal(t, "wss://from-file:17110", got.RpcUrl)
	assert.Equal(t, "treasury", got.WalletName)
	assert.Equal(t, 30*time.Second, got.Timeout)
	assert.Equal(t, config.StoreBackend_Redis, got.Store.Backend)
	assert.Equal(t, "localhost:6379", got.Store.Redis.Address)
	assert.Equal(t, 2, got.Store.Redis.DB)
	assert.Equal(t, config.DefaultRedisPrefix, got.Store.Redis.KeyPrefix)
}

func TestParseConfig_MissingFile(t *testing.T) {
	_, err := runApp(t, depositArgs(t.TempDir(), "--config", "/nonexistent/deposit.yaml")...)
	require.Error(t, err)
	assert.ErrorIs(t, err, deposit.ErrConfiguration)
}

func TestStoreFactory_Badger(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := &config.DepositConfig{WalletDir: t.TempDir(), WalletName: "w1"}

	_, err := openStore(context.Background(), cfg, false, logger)
	require.ErrorIs(t, err, persistence.ErrStoreNotFound)

	store, err := openStore(context.Background(), cfg, true, logger)
	require.NoError(t, err)
	require.NoError(t, store.SetSelectedAccount("a1"))
	require.NoError(t, store.Close())

	store, err = openStore(context.Background(), cfg, false, logger)
	require.NoError(t, err)
	defer store.Close()
	selected, err := store.GetSelectedAccount()
	require.NoError(t, err)
	assert.Equal(t, "a1", selected)
}

func TestStoreFactory_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := zaptest.NewLogger(t)
	cfg := &config.DepositConfig{
		WalletDir:  "/ignored",
		WalletName: "hot",
		Store: config.StoreConfig{
			Backend: config.StoreBackend_Redis,
			Redis:   config.RedisConfig{Address: mr.Addr(), KeyPrefix: "bridge"},
		},
	}

	resolve, _ := storeFactory(cfg, false, logger)
	location, err := resolve(cfg.WalletDir)
	require.NoError(t, err)
	assert.Equal(t, "hot", location)

	_, err = openStore(context.Background(), cfg, false, logger)
	require.ErrorIs(t, err, persistence.ErrStoreNotFound)

	store, err := openStore(context.Background(), cfg, true, logger)
	require.NoError(t, err)
	defer store.Close()
	assert.True(t, mr.Exists("bridge:hot:metadata:schema_version"))
}

const (
	testCiphertext = "wrapped-wallet-secret"
	testCallerArn  = "arn:aws:iam::123456789012:role/deposit-sender"
)

type fakeKMS struct {
	calls int
}

func (f *fakeKMS) Decrypt(_ context.Context, in *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	f.calls++
	if string(in.CiphertextBlob) != testCiphertext {
		return nil, errors.New("InvalidCiphertextException")
	}
	return &kms.DecryptOutput{Plaintext: []byte(testSecret)}, nil
}

type fakeSTS struct {
	err error
}

func (f *fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Arn: aws.String(testCallerArn), Account: aws.String("123456789012")}, nil
}

func useAWS(t *testing.T, decrypter *fakeKMS, identity *fakeSTS) {
	t.Helper()
	prev := newAWSClients
	newAWSClients = func(context.Context, string) (secret.KMSDecrypter, awsutil.IdentityClient, error) {
		return decrypter, identity, nil
	}
	t.Cleanup(func() { newAWSClients = prev })
}

func TestResolveSecret_KMSLogsCallerIdentity(t *testing.T) {
	decrypter := &fakeKMS{}
	useAWS(t, decrypter, &fakeSTS{})
	core, logs := observer.New(zapcore.DebugLevel)

	cfg := &config.DepositConfig{WalletSecretKMS: base64.StdEncoding.EncodeToString([]byte(testCiphertext))}
	s, err := resolveSecret(context.Background(), cfg, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, testSecret, string(s.Bytes()))
	assert.Equal(t, 1, decrypter.calls)

	entries := logs.FilterMessage("Decrypting wallet secret with KMS").All()
	require.Len(t, entries, 1)
	assert.Equal(t, testCallerArn, entries[0].ContextMap()["principal"])
}

func TestResolveSecret_IdentityFailureIsNotFatal(t *testing.T) {
	useAWS(t, &fakeKMS{}, &fakeSTS{err: errors.New("ExpiredToken")})
	core, logs := observer.New(zapcore.DebugLevel)

	cfg := &config.DepositConfig{WalletSecretKMS: base64.StdEncoding.EncodeToString([]byte(testCiphertext))}
	s, err := resolveSecret(context.Background(), cfg, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, testSecret, string(s.Bytes()))
	assert.Equal(t, 1, logs.FilterMessage("Could not resolve AWS caller identity").Len())
}

func TestDeposit_SecretFromKMS(t *testing.T) {
	fastKDF(t)
	dir := t.TempDir()
	node := fundedNode(t, createWallet(t, dir))
	useNode(t, node)
	useAWS(t, &fakeKMS{}, &fakeSTS{})

	args := depositArgs(dir, "--wallet-secret-kms", base64.StdEncoding.EncodeToString([]byte(testCiphertext)))
	args[3] = ""
	out, err := runApp(t, args...)
	require.NoError(t, err)
	assert.Equal(t, transaction.ID(node.LastSubmitted()).String()+"\n", out)

	args = depositArgs(dir, "--wallet-secret-kms", base64.StdEncoding.EncodeToString([]byte("other")))
	args[3] = ""
	_, err = runApp(t, args...)
	require.ErrorIs(t, err, deposit.ErrConfiguration)
	assert.NotContains(t, err.Error(), testSecret)
}
