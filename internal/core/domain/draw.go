package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

const maxDrawAttempts = 256

// ResolveWinners maps a random value to one distinct entrant per tier.
//
// Each tier draws an index with rejection sampling over
// sha256(randomValue || tier || attempt), so every entry has the same chance.
// A draw landing on an address that already won an earlier tier is repeated
// with the next attempt counter. Tiers beyond the number of distinct
// entrants stay unassigned.
func ResolveWinners(randomValue []byte, entries []Entry) []Winner {
	winners := make([]Winner, 0, len(Tiers))
	if len(entries) <= 0 {
		return winners
	}

	distinct := make(map[string]struct{})
	for _, e := range entries {
		distinct[e.Participant] = struct{}{}
	}

	won := make(map[string]struct{})
	for _, tier := range Tiers {
		if len(won) >= len(distinct) {
			break
		}

		entry, ok := drawEntry(randomValue, tier, entries, won)
		if !ok {
			entry = firstEligibleEntry(entries, won)
		}

		won[entry.Participant] = struct{}{}
		winners = append(winners, Winner{
			Tier:        tier,
			Participant: entry.Participant,
			EntryIndex:  entry.Index,
		})
	}

	return winners
}

func drawEntry(
	randomValue []byte, tier Tier, entries []Entry, won map[string]struct{},
) (Entry, bool) {
	n := uint64(len(entries))
	// largest multiple of n that fits in 64 bits
	limit := math.MaxUint64 - (math.MaxUint64%n+1)%n

	for attempt := uint32(0); attempt < maxDrawAttempts; attempt++ {
		x := drawUint64(randomValue, tier, attempt)
		if x > limit {
			continue
		}
		entry := entries[x%n]
		if _, ok := won[entry.Participant]; ok {
			continue
		}
		return entry, true
	}
	return Entry{}, false
}

func drawUint64(randomValue []byte, tier Tier, attempt uint32) uint64 {
	buf := make([]byte, 0, len(randomValue)+1+4)
	buf = append(buf, randomValue...)
	buf = append(buf, byte(tier))
	buf = binary.BigEndian.AppendUint32(buf, attempt)

	h := sha256.Sum256(buf)
	return binary.BigEndian.Uint64(h[:8])
}

func firstEligibleEntry(entries []Entry, won map[string]struct{}) Entry {
	for _, e := range entries {
		if _, ok := won[e.Participant]; !ok {
			return e
		}
	}
	return entries[0]
}
