package report

import (
	"strings"

	"golang.org/x/text/width"
)

type Rank string

const (
	RankSA Rank = "SA"
	RankA  Rank = "A"
	RankB  Rank = "B"
	RankC  Rank = "C"
	RankD  Rank = "D"
	RankE  Rank = "E"
	RankF  Rank = "F"
)

// DefaultRank is assigned when no rule matches the phase text.
const DefaultRank = RankE

// DefaultDisplayRank is the display rank for anything outside the remap table.
const DefaultDisplayRank = RankE

type phaseRule struct {
	text string
	rank Rank
}

// Rules are evaluated in order: prefixes, then a leading pipeline letter,
// then keywords anywhere in the phase.
var (
	phasePrefixRules = []phaseRule{
		{"SA", RankSA},
		{"受注", RankSA},
	}
	phaseLetterRanks = map[byte]Rank{
		'A': RankA,
		'B': RankB,
		'C': RankC,
		'D': RankD,
		'E': RankE,
		'F': RankF,
	}
	phaseKeywordRules = []phaseRule{
		{"受注内示", RankA},
		{"見込", RankB},
		{"先方検討中", RankC},
		{"提案中", RankD},
		{"提案前商談中", RankE},
		{"初期コンタクト", RankF},
	}
)

var displayRanks = map[Rank]Rank{
	RankSA: RankSA,
	RankA:  RankA,
	RankB:  RankB,
	RankC:  RankB,
	RankD:  RankB,
	RankE:  RankC,
	RankF:  RankD,
}

// ExtractRank classifies free-text CRM phase into a pipeline rank.
func ExtractRank(phase string) Rank {
	value := strings.ToUpper(strings.TrimSpace(width.Fold.String(phase)))
	if value == "" {
		return DefaultRank
	}
	for _, rule := range phasePrefixRules {
		if strings.HasPrefix(value, rule.text) {
			return rule.rank
		}
	}
	if rank, ok := phaseLetterRanks[value[0]]; ok {
		return rank
	}
	for _, rule := range phaseKeywordRules {
		if strings.Contains(value, rule.text) {
			return rule.rank
		}
	}
	return DefaultRank
}

// Eligible reports whether a CRM record with this rank takes part in the
// report: rank A always, B through F only when flagged high potential.
func Eligible(rank Rank, highPotential bool) bool {
	if rank == RankA {
		return true
	}
	if !highPotential {
		return false
	}
	switch rank {
	case RankB, RankC, RankD, RankE, RankF:
		return true
	}
	return false
}

// DisplayRank maps a classification rank to the rank shown in reports.
func DisplayRank(rank Rank) Rank {
	if mapped, ok := displayRanks[rank]; ok {
		return mapped
	}
	return DefaultDisplayRank
}
