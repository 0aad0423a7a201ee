package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// GenerateID generates a random ID for records created by this service
func GenerateID() string {
	return uuid.NewString()
}

// IsValidAddress checks if a string is a valid Ethereum address
func IsValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

// NormalizeAddress normalizes an address to lowercase with 0x prefix
func NormalizeAddress(address string) string {
	if !strings.HasPrefix(address, "0x") {
		address = "0x" + address
	}
	return strings.ToLower(address)
}

// ShortAddress renders an account the way the wallet header shows it: 0x1234...abcd
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
