package chain

import (
	"math/big"
	"strings"
	"time"
)

// FormatBalance renders a wei amount (decimal or 0x-hex string) as ETH with
// four decimal places. Unparseable input renders as "0.0000".
func FormatBalance(wei string) string {
	amount, ok := parseWei(wei)
	if !ok {
		amount = new(big.Int)
	}

	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	eth := new(big.Float).Quo(new(big.Float).SetInt(amount), divisor)
	return eth.Text('f', 4)
}

// FormatAddress truncates an address for display: 0x1234...beb0.
func FormatAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// FormatTimestamp renders epoch milliseconds as a local date-time string.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).Format("02/01/2006 15:04")
}

func parseWei(s string) (*big.Int, bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}
