package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/vvm-sync/internal/connectivity"
	"github.com/nhle/vvm-sync/internal/source"
)

// StoreConfig holds what is needed to reach one account's mailbox.
type StoreConfig struct {
	Account  string
	Host     string
	Port     int
	Username string
	Password string
	Auth     AuthMode

	// Network routes the connection. Nil dials over the default route.
	Network *connectivity.Network
}

// IMAPStore opens folders over go-imap v2. Each OpenFolder call dials a
// fresh connection; nothing is kept between operations.
type IMAPStore struct {
	cfg StoreConfig
}

// NewIMAPStore creates a new IMAP store configuration.
func NewIMAPStore(cfg StoreConfig) *IMAPStore {
	return &IMAPStore{cfg: cfg}
}

// connect establishes a connection over the configured network,
// authenticates, and returns the connected client. The caller is
// responsible for logging out.
func (s *IMAPStore) connect(ctx context.Context) (*imapclient.Client, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	conn, err := s.cfg.Network.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if s.cfg.Auth == AuthSSL {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: s.cfg.Host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("TLS handshake with %s: %w", addr, err)
		}
		conn = tlsConn
	}

	client := imapclient.New(conn, nil)

	if err := client.Login(s.cfg.Username, s.cfg.Password).Wait(); err != nil {
		_ = client.Close()
		var imapErr *imap.Error
		if errors.As(err, &imapErr) {
			return nil, &source.AuthError{
				Account: s.cfg.Account,
				Message: fmt.Sprintf(
					"authentication failed for %s: %v",
					s.cfg.Username, err,
				),
			}
		}
		return nil, fmt.Errorf("logging in to %s: %w", addr, err)
	}

	return client, nil
}

// OpenFolder implements Store.
func (s *IMAPStore) OpenFolder(
	ctx context.Context, name string, mode FolderMode,
) (Folder, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	opts := &imap.SelectOptions{ReadOnly: mode == ModeReadOnly}
	if _, err := client.Select(name, opts).Wait(); err != nil {
		_ = client.Logout().Wait()
		_ = client.Close()
		return nil, fmt.Errorf("selecting %s: %w", name, err)
	}

	return &imapFolder{client: client, name: name}, nil
}

// imapFolder is a selected mailbox on a live connection.
type imapFolder struct {
	client *imapclient.Client
	name   string
}

func (f *imapFolder) UIDs(_ context.Context) ([]string, error) {
	data, err := f.client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", f.name, err)
	}

	uids := data.AllUIDs()
	out := make([]string, 0, len(uids))
	for _, uid := range uids {
		out = append(out, formatUID(uid))
	}
	return out, nil
}

func (f *imapFolder) FetchStructure(
	_ context.Context, uids []string,
) ([]MessageInfo, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	uidSet, err := toUIDSet(uids)
	if err != nil {
		return nil, err
	}

	fetchOpts := &imap.FetchOptions{
		UID:           true,
		Flags:         true,
		Envelope:      true,
		BodyStructure: &imap.FetchItemBodyStructure{},
	}

	bufs, err := f.client.Fetch(uidSet, fetchOpts).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching structure: %w", err)
	}

	infos := make([]MessageInfo, 0, len(bufs))
	for _, buf := range bufs {
		infos = append(infos, infoFromBuffer(buf))
	}
	return infos, nil
}

func (f *imapFolder) FetchBody(_ context.Context, uid string) ([]byte, error) {
	uidSet, err := toUIDSet([]string{uid})
	if err != nil {
		return nil, err
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	bufs, err := f.client.Fetch(uidSet, fetchOpts).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching body of %s: %w", uid, err)
	}
	if len(bufs) == 0 {
		return nil, fmt.Errorf("message UID %s not found", uid)
	}

	raw := bufs[0].FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("message UID %s returned no body", uid)
	}
	return raw, nil
}

func (f *imapFolder) SetFlags(
	_ context.Context, uids []string, flags []imap.Flag, value bool,
) error {
	uidSet, err := toUIDSet(uids)
	if err != nil {
		return err
	}

	op := imap.StoreFlagsAdd
	if !value {
		op = imap.StoreFlagsDel
	}

	storeCmd := f.client.Store(uidSet, &imap.StoreFlags{
		Op:     op,
		Silent: true,
		Flags:  flags,
	}, nil)

	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("storing flags %v: %w", flags, err)
	}
	return nil
}

func (f *imapFolder) Close(expunge bool) error {
	var errs []error
	if expunge {
		if err := f.client.Expunge().Close(); err != nil {
			errs = append(errs, fmt.Errorf("expunging %s: %w", f.name, err))
		}
	}
	if err := f.client.Logout().Wait(); err != nil {
		errs = append(errs, fmt.Errorf("logging out: %w", err))
	}
	// The server drops the connection after LOGOUT.
	_ = f.client.Close()
	return errors.Join(errs...)
}

// infoFromBuffer extracts MessageInfo from a FetchMessageBuffer.
func infoFromBuffer(buf *imapclient.FetchMessageBuffer) MessageInfo {
	info := MessageInfo{
		UID:           formatUID(buf.UID),
		Flags:         buf.Flags,
		BodyStructure: buf.BodyStructure,
	}

	if buf.Envelope != nil {
		info.SentDate = buf.Envelope.Date
		for _, from := range buf.Envelope.From {
			info.From = append(info.From, from.Addr())
		}
	}

	return info
}

func formatUID(uid imap.UID) string {
	return strconv.FormatUint(uint64(uid), 10)
}

// parseUID converts a string source data value to an IMAP UID.
func parseUID(s string) (imap.UID, error) {
	uid, err := strconv.ParseUint(s, 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("invalid message UID %q", s)
	}
	return imap.UID(uid), nil
}

func toUIDSet(uids []string) (imap.UIDSet, error) {
	parsed := make([]imap.UID, 0, len(uids))
	for _, s := range uids {
		uid, err := parseUID(s)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, uid)
	}
	return imap.UIDSetNum(parsed...), nil
}
