package id

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
)

var evmAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ParseAddress parses a 0x-prefixed address. Mixed-case input must carry a
// valid EIP-55 checksum; single-case input is accepted as-is.
func ParseAddress(field, value string) (common.Address, error) {
	raw := strings.TrimSpace(value)
	if !evmAddressPattern.MatchString(raw) {
		return common.Address{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s: invalid address %q", field, value))
	}
	hexPart := raw[2:]
	if hexPart != strings.ToLower(hexPart) && hexPart != strings.ToUpper(hexPart) {
		mixed, err := common.NewMixedcaseAddressFromString(raw)
		if err != nil || !mixed.ValidChecksum() {
			return common.Address{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s: bad checksum for address %q", field, value))
		}
	}
	return common.HexToAddress(raw), nil
}

// ParseNonZeroAddress is ParseAddress that also rejects the zero address.
func ParseNonZeroAddress(field, value string) (common.Address, error) {
	addr, err := ParseAddress(field, value)
	if err != nil {
		return common.Address{}, err
	}
	if addr == (common.Address{}) {
		return common.Address{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s: zero address is not allowed", field))
	}
	return addr, nil
}
