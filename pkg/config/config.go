package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kaspa-bridge/deposit-sender/pkg/secret"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the deposit sender
const (
	EnvWalletSecret    = "DEPOSIT_WALLET_SECRET"
	EnvWalletSecretKMS = "DEPOSIT_WALLET_SECRET_KMS"
	EnvWalletDir       = "DEPOSIT_WALLET_DIR"
	EnvWalletName      = "DEPOSIT_WALLET_NAME"
	EnvRPCURL          = "DEPOSIT_RPC_URL"
	EnvNetwork         = "DEPOSIT_NETWORK"
	EnvEscrow          = "DEPOSIT_ESCROW"
	EnvStoreBackend    = "DEPOSIT_STORE"
	EnvRedisAddress    = "DEPOSIT_REDIS_ADDRESS"
	EnvRedisPassword   = "DEPOSIT_REDIS_PASSWORD"
	EnvAWSRegion       = "DEPOSIT_AWS_REGION"
	EnvConfigFile      = "DEPOSIT_CONFIG"
	EnvVerbose         = "DEPOSIT_VERBOSE"
)

type NetworkType string

const (
	NetworkType_Mainnet NetworkType = "mainnet"
	NetworkType_Testnet NetworkType = "testnet"
	NetworkType_Simnet  NetworkType = "simnet"
	NetworkType_Devnet  NetworkType = "devnet"
)

func (n NetworkType) String() string {
	return string(n)
}

// DefaultTestnetSuffix is the testnet instance selected by the "testnet" name.
const DefaultTestnetSuffix uint32 = 10

var NetworkTypeToAddressPrefix = map[NetworkType]string{
	NetworkType_Mainnet: "kaspa",
	NetworkType_Testnet: "kaspatest",
	NetworkType_Simnet:  "kaspasim",
	NetworkType_Devnet:  "kaspadev",
}

var AddressPrefixToNetworkType = map[string]NetworkType{
	"kaspa":     NetworkType_Mainnet,
	"kaspatest": NetworkType_Testnet,
	"kaspasim":  NetworkType_Simnet,
	"kaspadev":  NetworkType_Devnet,
}

// NetworkId identifies a Kaspa network instance, e.g. mainnet or testnet-10.
type NetworkId struct {
	Type   NetworkType
	Suffix uint32
}

var (
	Mainnet   = NetworkId{Type: NetworkType_Mainnet}
	Testnet10 = NetworkId{Type: NetworkType_Testnet, Suffix: DefaultTestnetSuffix}
)

// String renders the id the way a node reports it in getServerInfo.
func (n NetworkId) String() string {
	if n.Suffix == 0 {
		return string(n.Type)
	}
	return fmt.Sprintf("%s-%d", n.Type, n.Suffix)
}

// AddressPrefix returns the human readable prefix for addresses on this network.
func (n NetworkId) AddressPrefix() string {
	return NetworkTypeToAddressPrefix[n.Type]
}

func (n NetworkId) IsZero() bool {
	return n.Type == ""
}

// ParseNetwork maps the user facing network selector to a network id.
// Only "mainnet" and "testnet" are accepted.
func ParseNetwork(name string) (NetworkId, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(NetworkType_Mainnet):
		return Mainnet, nil
	case string(NetworkType_Testnet):
		return Testnet10, nil
	default:
		return NetworkId{}, fmt.Errorf("unsupported network %q. Supported: %s", name, GetSupportedNetworksString())
	}
}

// ParseNetworkId parses a full network id string such as "testnet-10".
func ParseNetworkId(s string) (NetworkId, error) {
	name, suffix, hasSuffix := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "-")
	nt := NetworkType(name)
	if _, ok := NetworkTypeToAddressPrefix[nt]; !ok {
		return NetworkId{}, fmt.Errorf("unknown network id %q", s)
	}
	id := NetworkId{Type: nt}
	if hasSuffix {
		v, err := strconv.ParseUint(suffix, 10, 32)
		if err != nil {
			return NetworkId{}, fmt.Errorf("invalid network suffix in %q: %w", s, err)
		}
		id.Suffix = uint32(v)
	}
	if id.Type == NetworkType_Testnet && id.Suffix == 0 {
		return NetworkId{}, fmt.Errorf("testnet network id %q requires a suffix", s)
	}
	return id, nil
}

func GetSupportedNetworks() []string {
	return []string{string(NetworkType_Mainnet), string(NetworkType_Testnet)}
}

func GetSupportedNetworksString() string {
	return strings.Join(GetSupportedNetworks(), ", ")
}

type StoreBackend string

const (
	StoreBackend_Badger StoreBackend = "badger"
	StoreBackend_Redis  StoreBackend = "redis"
)

const (
	DefaultWalletName  = "kaspa"
	DefaultRedisPrefix = "kaspa-wallet"
	DefaultWalletDir   = ".kaspa"
)

type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"-" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

type StoreConfig struct {
	Backend StoreBackend `json:"backend" yaml:"backend"`
	Redis   RedisConfig  `json:"redis" yaml:"redis"`
}

// DepositConfig is the complete configuration of one deposit invocation.
type DepositConfig struct {
	Network    string      `json:"network" yaml:"network"`
	RpcUrl     string      `json:"rpcUrl" yaml:"rpcUrl"`
	WalletDir  string      `json:"walletDir" yaml:"walletDir"`
	WalletName string      `json:"walletName" yaml:"walletName"`
	Escrow     string      `json:"escrow" yaml:"escrow"`
	Store      StoreConfig `json:"store" yaml:"store"`
	AWSRegion  string      `json:"awsRegion" yaml:"awsRegion"`

	// Amount in sompi and hex payload are supplied per invocation.
	Amount  string `json:"-" yaml:"-"`
	Payload string `json:"-" yaml:"-"`

	WalletSecret    secret.Secret `json:"-" yaml:"-"`
	WalletSecretKMS string        `json:"-" yaml:"-"`

	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	Debug   bool          `json:"debug" yaml:"debug"`
}

// Validate checks presence and enum values. Amount, payload and escrow
// contents are parsed later into a deposit intent.
func (c *DepositConfig) Validate() error {
	var allErrors field.ErrorList
	if c.WalletSecret.IsEmpty() && c.WalletSecretKMS == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("walletSecret"), "wallet secret is required"))
	}
	if strings.TrimSpace(c.RpcUrl) == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("rpcUrl"), "rpc url is required"))
	}
	if strings.TrimSpace(c.Escrow) == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("escrow"), "escrow address is required"))
	}
	if strings.TrimSpace(c.Amount) == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("amount"), "amount is required"))
	}
	if _, err := ParseNetwork(c.Network); err != nil {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("network"), c.Network, GetSupportedNetworks()))
	}
	allErrors = append(allErrors, c.Store.validate(field.NewPath("store"))...)
	if c.Timeout < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("timeout"), c.Timeout.String(), "timeout cannot be negative"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// Validate checks the store section on its own, for commands that only
// touch the wallet store.
func (s *StoreConfig) Validate() error {
	if errs := s.validate(field.NewPath("store")); len(errs) > 0 {
		return errs.ToAggregate()
	}
	return nil
}

func (s *StoreConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch s.Backend {
	case "", StoreBackend_Badger:
	case StoreBackend_Redis:
		if s.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(path.Child("redis", "address"), "redis address is required for the redis store"))
		}
		if s.Redis.DB < 0 {
			allErrors = append(allErrors, field.Invalid(path.Child("redis", "db"), s.Redis.DB, "redis db cannot be negative"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("backend"), string(s.Backend),
			[]string{string(StoreBackend_Badger), string(StoreBackend_Redis)}))
	}
	return allErrors
}

// FileConfig holds defaults read from a YAML file. Flags set on the command
// line take precedence.
type FileConfig struct {
	Network    string        `yaml:"network"`
	RpcUrl     string        `yaml:"rpcUrl"`
	WalletDir  string        `yaml:"walletDir"`
	WalletName string        `yaml:"walletName"`
	Escrow     string        `yaml:"escrow"`
	AWSRegion  string        `yaml:"awsRegion"`
	Timeout    time.Duration `yaml:"timeout"`
	Store      StoreConfig   `yaml:"store"`
}

// LoadFile reads a YAML defaults file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	fc := &FileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

// ResolveStorageDir turns the optional wallet directory override into an
// absolute directory path. An empty override selects ~/.kaspa. A path that
// exists must be a directory; a missing one is left for the store to report.
func ResolveStorageDir(override string) (string, error) {
	dir := strings.TrimSpace(override)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, DefaultWalletDir)
	}
	if strings.HasPrefix(dir, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err == nil && !info.IsDir() {
		return "", fmt.Errorf("storage location %s is not a directory", abs)
	}
	return abs, nil
}
