package domain

import (
	"encoding/hex"
	"strings"
)

const (
	UndefinedTier Tier = iota
	Gold
	Silver
	Bronze
)

// Tiers lists prize tiers in draw order.
var Tiers = []Tier{Gold, Silver, Bronze}

type Tier int

func (t Tier) String() string {
	switch t {
	case Gold:
		return "gold"
	case Silver:
		return "silver"
	case Bronze:
		return "bronze"
	default:
		return "undefined"
	}
}

func ParseTier(s string) Tier {
	switch strings.ToLower(s) {
	case "gold":
		return Gold
	case "silver":
		return Silver
	case "bronze":
		return Bronze
	default:
		return UndefinedTier
	}
}

const addressLen = 20

// NormalizeAddress validates a 0x-prefixed 20 bytes hex address and returns
// its lowercase form.
func NormalizeAddress(addr string) (string, error) {
	s := strings.TrimSpace(addr)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", ErrInvalidAddress
	}
	buf, err := hex.DecodeString(s[2:])
	if err != nil || len(buf) != addressLen {
		return "", ErrInvalidAddress
	}
	return "0x" + hex.EncodeToString(buf), nil
}
