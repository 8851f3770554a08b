package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/vvm-sync/internal/credential"
	"github.com/nhle/vvm-sync/internal/model"
	appsync "github.com/nhle/vvm-sync/internal/sync"
)

// interfaceBindings maps each account's network specifier to the
// interface carrying its subscription. Accounts without an interface
// are served by the default route.
func interfaceBindings(accounts []model.PhoneAccount) map[string]string {
	bindings := make(map[string]string, len(accounts))
	for _, a := range accounts {
		if a.Interface != "" {
			bindings[a.NetworkSpecifier()] = a.Interface
		}
	}
	return bindings
}

// Provision stores the IMAP credentials of a configured account.
func (a *App) Provision(accountID string, c credential.Credentials) error {
	if _, ok := a.cfg.Account(accountID); !ok {
		return fmt.Errorf("%w %q", appsync.ErrUnknownAccount, accountID)
	}
	if err := a.creds.Save(accountID, c); err != nil {
		return fmt.Errorf("provisioning %s: %w", accountID, err)
	}
	a.log.Info().Str("account", accountID).Str("server", c.Server).Msg("account provisioned")
	return nil
}

// Unprovision removes the IMAP credentials of an account and cancels
// the retries it is owed. The local voicemails are kept.
func (a *App) Unprovision(ctx context.Context, accountID string) error {
	if _, ok := a.cfg.Account(accountID); !ok {
		return fmt.Errorf("%w %q", appsync.ErrUnknownAccount, accountID)
	}
	if err := a.creds.Clear(accountID); err != nil {
		return fmt.Errorf("unprovisioning %s: %w", accountID, err)
	}
	a.service.CancelAllRetries(ctx, accountID)
	a.log.Info().Str("account", accountID).Msg("account unprovisioned")
	return nil
}

// AccountStatus is the sync state of one account.
type AccountStatus struct {
	Account       string
	VvmType       model.VvmType
	Enabled       bool
	Server        string
	LastFullSync  time.Time
	RetryInterval time.Duration
	Retries       []model.RetryAlarm
	Voicemails    int
	Unread        int
}

// Provisioned reports whether credentials are stored for the account.
func (s AccountStatus) Provisioned() bool {
	return s.Server != ""
}

// Status reports the sync state of every served account.
func (a *App) Status(ctx context.Context) ([]AccountStatus, error) {
	alarms, err := a.store.ListAlarms(ctx)
	if err != nil {
		return nil, err
	}

	var out []AccountStatus
	for _, account := range a.accounts.List() {
		st := AccountStatus{Account: account.ID, VvmType: account.VvmType}

		if st.Enabled, err = a.store.IsEnabled(ctx, account.ID); err != nil {
			return nil, err
		}
		if st.LastFullSync, err = a.store.LastFullSync(ctx, account.ID); err != nil {
			return nil, err
		}
		if st.RetryInterval, err = a.store.RetryInterval(ctx, account.ID); err != nil {
			return nil, err
		}

		creds, err := a.creds.Load(account.ID)
		if err != nil {
			return nil, err
		}
		st.Server = creds.Server

		for _, alarm := range alarms {
			if alarm.Account == account.ID {
				st.Retries = append(st.Retries, alarm)
			}
		}

		vms, err := a.store.GetAllVoicemails(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		for _, vm := range vms {
			if vm.IsDeleted {
				continue
			}
			st.Voicemails++
			if !vm.IsRead {
				st.Unread++
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// SetEnabled turns visual voicemail on or off for an account. Disabling
// cancels the retries the account is owed.
func (a *App) SetEnabled(ctx context.Context, accountID string, enabled bool) error {
	if _, ok := a.cfg.Account(accountID); !ok {
		return fmt.Errorf("%w %q", appsync.ErrUnknownAccount, accountID)
	}
	if err := a.store.SetEnabled(ctx, accountID, enabled); err != nil {
		return err
	}
	if !enabled {
		a.service.CancelAllRetries(ctx, accountID)
	}
	a.log.Info().Str("account", accountID).Bool("enabled", enabled).Msg("account state changed")
	return nil
}
