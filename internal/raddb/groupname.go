package raddb

import (
	"strings"
	"unicode"
)

// UserState is the derived lifecycle state of a customer, read back from the
// radusergroup row rather than stored anywhere.
type UserState string

const (
	StateUnknown   UserState = "UNKNOWN"
	StateActive    UserState = "ACTIVE"
	StateSuspended UserState = "SUSPENDED"
	StateRemoved   UserState = "REMOVED"
)

// SuspendedPlanCode is the reserved plan slug of the suspension group.
const SuspendedPlanCode = "SUSPENDED"

// Slug uppercases and strips everything but letters and digits. Company and
// plan codes both go through this before entering a group name.
func Slug(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// GroupName computes the COMPANY:PLAN key into radgroupreply.
func GroupName(companyCode, planCode string) string {
	return Slug(companyCode) + ":" + Slug(planCode)
}

// SuspendedGroupName is the group a suspended customer is parked in.
func SuspendedGroupName(companyCode string) string {
	return Slug(companyCode) + ":" + SuspendedPlanCode
}

// StateOfGroup derives the customer state from a radusergroup groupname. An
// absent row is REMOVED; that case is handled by the caller.
func StateOfGroup(groupname string) UserState {
	if groupname == "" {
		return StateUnknown
	}
	if strings.HasSuffix(groupname, ":"+SuspendedPlanCode) {
		return StateSuspended
	}
	return StateActive
}

// SanitizeUsername strips control, format, surrogate, private-use,
// unassigned and separator runes. RADIUS usernames are ASCII identifiers;
// anything from those categories is either invisible or hostile.
func SanitizeUsername(username string) string {
	var b strings.Builder
	for _, r := range username {
		if unicode.In(r, unicode.Cc, unicode.Cf, unicode.Cs, unicode.Co, unicode.Zs, unicode.Zl, unicode.Zp) {
			continue
		}
		// Unassigned code points carry no range table of their own: a rune
		// in no category at all is unassigned.
		if !unicode.In(r, unicode.L, unicode.M, unicode.N, unicode.P, unicode.S, unicode.Z, unicode.C) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
