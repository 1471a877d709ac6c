package asset

// Core asset identity shared across the exchange clients, the search layer
// and the chain stores. Assets are exchange-agnostic; exchange-specific
// codes are mapped onto them through a Resolver.

// Type classifies an asset within the registry.
type Type string

const (
	// TypeOwnChain marks a native chain asset (ETH, BTC, ...).
	TypeOwnChain Type = "own chain"
	// TypeEvmToken marks a token contract on an EVM chain.
	TypeEvmToken Type = "evm token"
	// TypeFiat marks a fiat currency.
	TypeFiat Type = "fiat"
	// TypeNFT marks a non-fungible token.
	TypeNFT Type = "nft"
)

// Asset identifies a single asset known to the application.
type Asset struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	Type       Type   `json:"asset_type"`
	// EvmChain names the chain for native and token EVM assets ("ethereum").
	EvmChain string `json:"evm_chain,omitempty"`
	// EvmAddress is the contract address for evm token assets.
	EvmAddress string `json:"evm_address,omitempty"`
	// CollectionName groups NFT assets.
	CollectionName string `json:"collection_name,omitempty"`
}

// Well known identifiers. ETH2 is staked ether, optionally folded into ETH
// by the search layer.
const (
	EthIdentifier  = "ETH"
	Eth2Identifier = "ETH2"
)

// Eth returns the canonical ether asset.
func Eth() Asset {
	return Asset{
		Identifier: EthIdentifier,
		Name:       "Ethereum",
		Symbol:     "ETH",
		Type:       TypeOwnChain,
		EvmChain:   "ethereum",
	}
}

// OnEvmChain reports whether on-chain transaction ids for the asset use the
// 0x hash notation, i.e. the asset is an EVM native asset or an EVM token.
func (a Asset) OnEvmChain() bool {
	if a.EvmChain == "" {
		return false
	}
	return a.Type == TypeOwnChain || a.Type == TypeEvmToken
}

// IsNFT reports whether the asset is a non-fungible token.
func (a Asset) IsNFT() bool {
	return a.Type == TypeNFT
}
