package model

import (
	"fmt"
	"time"
)

// SyncAction selects which directions a sync pass runs.
type SyncAction string

const (
	// SyncFull uploads local changes and then downloads remote state.
	SyncFull SyncAction = "full_sync"
	// SyncUploadOnly only pushes local read/delete changes.
	SyncUploadOnly SyncAction = "upload_only"
	// SyncDownloadOnly only pulls remote state.
	SyncDownloadOnly SyncAction = "download_only"
)

// ParseSyncAction converts a string into a SyncAction.
func ParseSyncAction(s string) (SyncAction, error) {
	switch a := SyncAction(s); a {
	case SyncFull, SyncUploadOnly, SyncDownloadOnly:
		return a, nil
	default:
		return "", fmt.Errorf("unknown sync action %q", s)
	}
}

// Uploads reports whether the action includes the upload direction.
func (a SyncAction) Uploads() bool {
	return a == SyncFull || a == SyncUploadOnly
}

// Downloads reports whether the action includes the download direction.
func (a SyncAction) Downloads() bool {
	return a == SyncFull || a == SyncDownloadOnly
}

// Narrow returns the action that retries only the failed directions.
// When both directions failed (or both succeeded) the action is unchanged.
func (a SyncAction) Narrow(uploadOK, downloadOK bool) SyncAction {
	switch {
	case uploadOK && !downloadOK:
		return SyncDownloadOnly
	case downloadOK && !uploadOK:
		return SyncUploadOnly
	default:
		return a
	}
}

// Union merges two actions into one that covers both.
func (a SyncAction) Union(b SyncAction) SyncAction {
	if a == "" {
		return b
	}
	if b == "" || a == b {
		return a
	}
	return SyncFull
}

// SyncRequest names an account (empty means every known account), the
// action to run and whether it was triggered externally.
type SyncRequest struct {
	Account      string
	Action       SyncAction
	FirstAttempt bool
}

func (r SyncRequest) String() string {
	acct := r.Account
	if acct == "" {
		acct = "*"
	}
	return fmt.Sprintf("%s[%s first=%t]", r.Action, acct, r.FirstAttempt)
}

// RetryAlarm is a scheduled one-shot retry of a sync. There is at most
// one alarm per account and action.
type RetryAlarm struct {
	ID      string     `json:"id" db:"id"`
	Account string     `json:"account" db:"account_id"`
	Action  SyncAction `json:"action" db:"action"`
	FireAt  time.Time  `json:"fire_at" db:"fire_at"`
}

// Request returns the sync request the alarm re-invokes. Alarm retries
// are never first attempts.
func (a RetryAlarm) Request() SyncRequest {
	return SyncRequest{Account: a.Account, Action: a.Action}
}
