// Package chain maps chain ids to human-readable network names and formats
// balances, addresses, and timestamps for display.
package chain

import (
	"strconv"
	"strings"
)

// Network is the display metadata for a chain id.
type Network struct {
	Name      string
	ShortName string
}

// networkNames keys are lowercase 0x-hex chain ids.
var networkNames = map[string]Network{
	"0x1":      {Name: "Ethereum Mainnet", ShortName: "Mainnet"},
	"0x3":      {Name: "Ropsten Testnet", ShortName: "Ropsten"},
	"0x4":      {Name: "Rinkeby Testnet", ShortName: "Rinkeby"},
	"0x5":      {Name: "Goerli Testnet", ShortName: "Goerli"},
	"0x89":     {Name: "Polygon Mainnet", ShortName: "Polygon"},
	"0x13881":  {Name: "Polygon Mumbai", ShortName: "Mumbai"},
	"0xa":      {Name: "Optimism", ShortName: "Optimism"},
	"0xa4b1":   {Name: "Arbitrum One", ShortName: "Arbitrum"},
	"0x2105":   {Name: "Base", ShortName: "Base"},
	"0xaa36a7": {Name: "Sepolia Testnet", ShortName: "Sepolia"},
	"0x1a4":    {Name: "Optimism Goerli", ShortName: "Optimism Goerli"},
	"0x66eee":  {Name: "Arbitrum Sepolia", ShortName: "Arbitrum Sepolia"},
}

// NetworkName returns the full network name for a chain id in hex or decimal
// form, or the input unchanged when the chain is unknown.
func NetworkName(chainID string) string {
	if network, ok := lookupNetwork(chainID); ok {
		return network.Name
	}
	return chainID
}

// NetworkShortName is NetworkName with the short display name.
func NetworkShortName(chainID string) string {
	if network, ok := lookupNetwork(chainID); ok {
		return network.ShortName
	}
	return chainID
}

func lookupNetwork(chainID string) (Network, bool) {
	normalized := strings.ToLower(chainID)
	if !strings.HasPrefix(normalized, "0x") {
		n, err := strconv.ParseInt(chainID, 10, 64)
		if err != nil {
			return Network{}, false
		}
		normalized = "0x" + strconv.FormatInt(n, 16)
	}
	network, ok := networkNames[normalized]
	return network, ok
}
