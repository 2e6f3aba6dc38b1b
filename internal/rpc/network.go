package rpc

import (
	"fmt"
	"strings"

	"suigen/internal/common"
	"suigen/internal/naming"
)

// Networks maps the supported network names to public full node endpoints.
var Networks = map[string]string{
	"mainnet": "https://fullnode.mainnet.sui.io:443",
	"testnet": "https://fullnode.testnet.sui.io:443",
	"devnet":  "https://fullnode.devnet.sui.io:443",
}

// ParseNetwork returns the endpoint of a named network.
func ParseNetwork(name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	url, ok := Networks[key]
	if !ok {
		if hint := naming.Suggest(key, NetworkNames(), 2); hint != "" {
			return "", fmt.Errorf("unknown network %q, did you mean %q?", name, hint)
		}

		return "", fmt.Errorf("unknown network %q (expected one of %s)", name, strings.Join(NetworkNames(), ", "))
	}

	return url, nil
}

// NetworkNames returns the supported network names, sorted.
func NetworkNames() []string {
	return common.SortedKeys(Networks)
}
