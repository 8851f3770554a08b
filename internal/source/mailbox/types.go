package mailbox

import (
	"context"
	"time"

	"github.com/emersion/go-imap/v2"
)

// Inbox is the only folder visual voicemail servers expose.
const Inbox = "INBOX"

// FolderMode selects how a folder is opened.
type FolderMode int

const (
	ModeReadOnly FolderMode = iota
	ModeReadWrite
)

// AuthMode selects the transport security of the IMAP connection.
type AuthMode int

const (
	AuthNone AuthMode = iota
	AuthSSL
)

// MessageInfo is the lightweight metadata of a remote message: flags,
// envelope and MIME structure. The body is not included.
type MessageInfo struct {
	UID           string
	Flags         []imap.Flag
	SentDate      time.Time
	From          []string
	BodyStructure imap.BodyStructure
}

// HasFlag reports whether the message carries flag.
func (m MessageInfo) HasFlag(flag imap.Flag) bool {
	for _, f := range m.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Folder is an open mailbox folder. Every call blocks on network I/O.
type Folder interface {
	// UIDs lists every message in the folder.
	UIDs(ctx context.Context) ([]string, error)

	// FetchStructure fetches flags, envelope and structure of the messages.
	FetchStructure(ctx context.Context, uids []string) ([]MessageInfo, error)

	// FetchBody fetches the full RFC 822 body of one message without
	// setting \Seen.
	FetchBody(ctx context.Context, uid string) ([]byte, error)

	// SetFlags adds (value=true) or removes flags on the messages in one
	// batch.
	SetFlags(ctx context.Context, uids []string, flags []imap.Flag, value bool) error

	// Close releases the folder, expunging \Deleted messages when asked.
	Close(expunge bool) error
}

// Store opens folders on a mailbox server.
type Store interface {
	OpenFolder(ctx context.Context, name string, mode FolderMode) (Folder, error)
}
