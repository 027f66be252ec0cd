package switcher

import "github.com/j-veylop/antigravity-switcher/internal/models"

// NextAccount picks the account after currentID in list order, wrapping
// around. With no current account, or one that is no longer listed, the
// first account is returned.
func NextAccount(accounts []models.Account, currentID string) (models.Account, error) {
	if len(accounts) == 0 {
		return models.Account{}, ErrNoAccounts
	}
	for i, a := range accounts {
		if a.ID == currentID {
			return accounts[(i+1)%len(accounts)], nil
		}
	}
	return accounts[0], nil
}
