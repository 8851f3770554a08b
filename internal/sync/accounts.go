package sync

import "github.com/nhle/vvm-sync/internal/model"

// AccountList is a fixed set of accounts.
type AccountList struct {
	accounts []model.PhoneAccount
}

var _ Accounts = (*AccountList)(nil)

// NewAccountList creates an AccountList.
func NewAccountList(accounts ...model.PhoneAccount) *AccountList {
	return &AccountList{accounts: accounts}
}

// AccountsFromConfig returns the enabled accounts of the configuration.
func AccountsFromConfig(cfgs []model.AccountConfig) *AccountList {
	l := &AccountList{}
	for _, c := range cfgs {
		if c.IsEnabled() {
			l.accounts = append(l.accounts, c.PhoneAccount())
		}
	}
	return l
}

// List implements Accounts.
func (l *AccountList) List() []model.PhoneAccount {
	out := make([]model.PhoneAccount, len(l.accounts))
	copy(out, l.accounts)
	return out
}

// Get implements Accounts.
func (l *AccountList) Get(id string) (model.PhoneAccount, bool) {
	for _, a := range l.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return model.PhoneAccount{}, false
}
