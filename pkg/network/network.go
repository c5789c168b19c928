// Package network resolves Blockfrost networks and the credentials used to
// talk to them.
package network

import (
	"errors"
	"fmt"
	"strings"

	ouroboros "github.com/blinklabs-io/gouroboros"
)

// Network identifies a Blockfrost deployment of the Cardano API.
type Network int

const (
	// Mainnet is the Cardano production network.
	Mainnet Network = iota + 1

	// Testnet is the legacy Cardano testnet.
	Testnet

	// Preprod is the pre-production test network.
	Preprod

	// Preview is the preview test network.
	Preview
)

// Blockfrost base URLs per network.
const (
	MainnetBaseURL = "https://cardano-mainnet.blockfrost.io/api/v0"
	TestnetBaseURL = "https://cardano-testnet.blockfrost.io/api/v0"
	PreprodBaseURL = "https://cardano-preprod.blockfrost.io/api/v0"
	PreviewBaseURL = "https://cardano-preview.blockfrost.io/api/v0"
)

// Environment variables holding the API key for each network.
const (
	EnvMainnetAPIKey = "BLOCKFROST_MAINNET_API_KEY"
	EnvTestnetAPIKey = "BLOCKFROST_LEGACY_API_KEY"
	EnvPreprodAPIKey = "BLOCKFROST_PREPROD_API_KEY"
	EnvPreviewAPIKey = "BLOCKFROST_PREVIEW_API_KEY"
)

var (
	// ErrInvalidNetwork is returned when a name matches none of the known networks.
	ErrInvalidNetwork = errors.New("invalid network")

	// ErrMissingCredentials is returned when no API key was given and the
	// network's environment variable is unset or empty.
	ErrMissingCredentials = errors.New("missing blockfrost api key")
)

// tokens are checked in this order; the first substring match wins.
var tokens = []struct {
	token   string
	network Network
}{
	{"mainnet", Mainnet},
	{"testnet", Testnet},
	{"legacy", Testnet},
	{"preprod", Preprod},
	{"preview", Preview},
}

// ParseNetwork maps a symbolic name to a Network. Matching is case-insensitive
// and by substring, so "cardano-mainnet" resolves to Mainnet.
func ParseNetwork(name string) (Network, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower != "" {
		for _, t := range tokens {
			if strings.Contains(lower, t.token) {
				return t.network, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidNetwork, name)
}

// String returns the canonical network name.
func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Preprod:
		return "preprod"
	case Preview:
		return "preview"
	default:
		return "invalid"
	}
}

// BaseURL returns the Blockfrost API prefix for the network.
func (n Network) BaseURL() string {
	switch n {
	case Mainnet:
		return MainnetBaseURL
	case Testnet:
		return TestnetBaseURL
	case Preprod:
		return PreprodBaseURL
	case Preview:
		return PreviewBaseURL
	default:
		return ""
	}
}

// EnvVar returns the environment variable consulted for the network's API key.
func (n Network) EnvVar() string {
	switch n {
	case Mainnet:
		return EnvMainnetAPIKey
	case Testnet:
		return EnvTestnetAPIKey
	case Preprod:
		return EnvPreprodAPIKey
	case Preview:
		return EnvPreviewAPIKey
	default:
		return ""
	}
}

// Cardano returns the Ouroboros network definition backing this Blockfrost
// network, or ouroboros.NetworkInvalid for an unknown value.
func (n Network) Cardano() ouroboros.Network {
	if n.String() == "invalid" {
		return ouroboros.NetworkInvalid
	}
	return ouroboros.NetworkByName(n.String())
}

// Magic returns the Cardano network magic.
func (n Network) Magic() uint32 {
	return n.Cardano().NetworkMagic
}

// Valid reports whether n is one of the known networks.
func (n Network) Valid() bool {
	return n >= Mainnet && n <= Preview
}
