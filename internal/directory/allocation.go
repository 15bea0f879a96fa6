package directory

import (
	"strings"

	"github.com/sansad-av/talktime/internal/broadcast"
)

// OthersParty is the pooled allocation for parties without one of their own
const OthersParty = "Others"

// EffectiveParty returns the allocation a member's party draws from: the matching
// party_allocations entry, compared case-insensitively, or Others
func EffectiveParty(bill Bill, memberParty string) string {
	want := strings.ToUpper(strings.TrimSpace(memberParty))
	if want == "" {
		return OthersParty
	}
	for _, a := range bill.PartyAllocations {
		if strings.ToUpper(strings.TrimSpace(a.Party)) == want {
			return a.Party
		}
	}
	return OthersParty
}

// allocatedSeconds returns the time allotted to a party as named by EffectiveParty
func allocatedSeconds(bill Bill, party string) int {
	if party == OthersParty {
		return bill.OthersTime.Seconds()
	}
	want := strings.ToUpper(strings.TrimSpace(party))
	for _, a := range bill.PartyAllocations {
		if strings.ToUpper(strings.TrimSpace(a.Party)) == want {
			return a.Seconds()
		}
	}
	return 0
}

// PartyAllocationFor builds the party row shown during a bill discussion. consumed is
// everything the party has logged on the bill, which already includes memberBase,
// the current speaker's earlier time; the display adds the live timer back on.
func PartyAllocationFor(bill Bill, memberParty string, consumed ConsumedTime, memberBase int) broadcast.PartyAllocation {
	party := EffectiveParty(bill, memberParty)
	adjusted := int(consumed[party]) - memberBase
	if adjusted < 0 {
		adjusted = 0
	}
	return broadcast.PartyAllocation{
		PartyName:        strings.TrimSpace(memberParty),
		AllocatedSeconds: allocatedSeconds(bill, party),
		ConsumedSeconds:  adjusted,
		EffectiveParty:   party,
	}
}

// MemberAllocationFor builds the member row shown during a bill discussion, looking
// for the seat in each party's member list and then in the Others pool
func MemberAllocationFor(bill Bill, seatNo broadcast.SeatNo, spokenBase int) broadcast.MemberAllocation {
	alloc := broadcast.MemberAllocation{
		SeatNo:            seatNo,
		SpokenBaseSeconds: spokenBase,
	}
	if mt, ok := findMemberTime(bill, seatNo); ok {
		alloc.AllocatedSeconds = mt.Seconds()
		alloc.IsAllocated = true
	}
	return alloc
}

func findMemberTime(bill Bill, seatNo broadcast.SeatNo) (MemberTime, bool) {
	for _, a := range bill.PartyAllocations {
		for _, m := range a.Members {
			if m.SeatNo.Matches(seatNo) {
				return m, true
			}
		}
	}
	for _, m := range bill.OthersTime.Members {
		if m.SeatNo.Matches(seatNo) {
			return m, true
		}
	}
	return MemberTime{}, false
}
