package autofill

import (
	"sort"
	"time"

	"github.com/arlenn/secvault/internal/storage"
)

// lessAccount is the tie-break order shared by every ranking operation.
// An account sorting earlier wins deduplication and gets a higher rank.
func lessAccount(a, b storage.Account) bool {
	aHasUser, bHasUser := a.Username != "", b.Username != ""
	if aHasUser != bHasUser {
		return aHasUser
	}

	switch {
	case a.LastUsed != nil && b.LastUsed != nil:
		if !a.LastUsed.Equal(*b.LastUsed) {
			return a.LastUsed.After(*b.LastUsed)
		}
	case a.LastUsed != nil:
		return true
	case b.LastUsed != nil:
		return false
	}

	// Calendar-day granularity: same-day updates fall through to the
	// stabler domain/username ordering.
	aDay := a.LastUpdated.Truncate(24 * time.Hour)
	bDay := b.LastUpdated.Truncate(24 * time.Hour)
	if !aDay.Equal(bDay) {
		return aDay.After(bDay)
	}

	if a.Domain != b.Domain {
		if (a.Domain != "") != (b.Domain != "") {
			return a.Domain != ""
		}
		return a.Domain < b.Domain
	}

	return a.Username < b.Username
}

// SortedAndDeduplicated collapses accounts sharing a signature down to
// one representative per registrable domain, then sorts the result.
// Accounts with an empty signature are never grouped; they pass through
// unchanged. Accounts with the same signature but different eTLD+1
// hosts are distinct sites that happen to share credentials, so both
// are kept.
func SortedAndDeduplicated(accounts []storage.Account, tld TLDService) []storage.Account {
	result := make([]storage.Account, 0, len(accounts))
	groups := make(map[string][]storage.Account)

	for _, account := range accounts {
		if account.Signature == "" {
			result = append(result, account)
			continue
		}
		groups[account.Signature] = append(groups[account.Signature], account)
	}

	for _, group := range groups {
		if len(group) == 1 {
			result = append(result, group[0])
			continue
		}

		hosts := make(map[string][]storage.Account)
		for _, account := range group {
			host := tld.ETLDPlus1(account.Domain)
			if host == "" {
				host = account.Domain
			}
			hosts[host] = append(hosts[host], account)
		}

		for _, subgroup := range hosts {
			sort.SliceStable(subgroup, func(i, j int) bool {
				return lessAccount(subgroup[i], subgroup[j])
			})
			result = append(result, subgroup[0])
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return lessAccount(result[i], result[j])
	})
	return result
}

// SortedForDomain orders accounts for a target domain: exact matches
// first, then registrable-domain matches, then everything else, each
// partition sorted by the shared tie-break order.
func SortedForDomain(target string, accounts []storage.Account, tld TLDService) []storage.Account {
	targetHost := tld.ETLDPlus1(target)

	var exact, related, others []storage.Account
	for _, account := range accounts {
		switch {
		case account.Domain == target:
			exact = append(exact, account)
		case targetHost != "" && tld.ETLDPlus1(account.Domain) == targetHost:
			related = append(related, account)
		default:
			others = append(others, account)
		}
	}

	for _, partition := range [][]storage.Account{exact, related, others} {
		sort.SliceStable(partition, func(i, j int) bool {
			return lessAccount(partition[i], partition[j])
		})
	}

	result := make([]storage.Account, 0, len(accounts))
	result = append(result, exact...)
	result = append(result, related...)
	result = append(result, others...)
	return result
}

// RankedAccount pairs an account with its numeric rank for export to an
// external identity store.
type RankedAccount struct {
	Account storage.Account
	Rank    int64
}

// RankedForDomain assigns ranks by reversed sort index: the account
// sorting first (most recently used) gets the numerically highest rank.
func RankedForDomain(target string, accounts []storage.Account, tld TLDService) []RankedAccount {
	sorted := SortedForDomain(target, accounts, tld)

	ranked := make([]RankedAccount, len(sorted))
	for i, account := range sorted {
		ranked[i] = RankedAccount{
			Account: account,
			Rank:    int64(len(sorted) - i),
		}
	}
	return ranked
}
