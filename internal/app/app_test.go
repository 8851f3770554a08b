package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/vvm-sync/internal/credential"
	"github.com/nhle/vvm-sync/internal/logger"
	"github.com/nhle/vvm-sync/internal/model"
	appsync "github.com/nhle/vvm-sync/internal/sync"
)

const (
	imapUser     = "15551230000"
	imapPassword = "secret"
	accountID    = "sim1"
)

type imapFixture struct {
	addr string
}

func startServer(t *testing.T) *imapFixture {
	t.Helper()

	mem := imapmemserver.New()
	user := imapmemserver.NewUser(imapUser, imapPassword)
	require.NoError(t, user.Create("INBOX", nil))
	mem.AddUser(user)

	server := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		Caps:         imap.CapSet{imap.CapIMAP4rev1: {}, imap.CapIMAP4rev2: {}},
		InsecureAuth: true,
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { _ = server.Close() })

	return &imapFixture{addr: ln.Addr().String()}
}

func (f *imapFixture) client(t *testing.T) *imapclient.Client {
	t.Helper()
	c, err := imapclient.DialInsecure(f.addr, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Login(imapUser, imapPassword).Wait())
	return c
}

func (f *imapFixture) deliver(t *testing.T, from string, audio []byte) {
	t.Helper()
	raw := voicemail(from, audio)

	c := f.client(t)
	cmd := c.Append("INBOX", int64(len(raw)), nil)
	_, err := cmd.Write(raw)
	require.NoError(t, err)
	require.NoError(t, cmd.Close())
	_, err = cmd.Wait()
	require.NoError(t, err)
	require.NoError(t, c.Logout().Wait())
}

func (f *imapFixture) search(t *testing.T, criteria *imap.SearchCriteria) []imap.UID {
	t.Helper()
	c := f.client(t)
	_, err := c.Select("INBOX", &imap.SelectOptions{ReadOnly: true}).Wait()
	require.NoError(t, err)
	data, err := c.UIDSearch(criteria, nil).Wait()
	require.NoError(t, err)
	require.NoError(t, c.Logout().Wait())
	return data.AllUIDs()
}

func voicemail(from string, audio []byte) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: <%s>\r\n", from)
	b.WriteString("Date: Tue, 05 Mar 2024 10:00:00 +0000\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/voice-message; boundary=\"b1\"\r\n\r\n")
	b.WriteString("--b1\r\nContent-Type: audio/amr\r\nContent-Transfer-Encoding: base64\r\n\r\n")
	b.WriteString(base64.StdEncoding.EncodeToString(audio))
	b.WriteString("\r\n--b1--\r\n")
	return []byte(b.String())
}

func newTestApp(t *testing.T, f *imapFixture, tweaks ...func(*model.AppConfig)) *App {
	t.Helper()

	cfg := &model.AppConfig{
		Accounts: []model.AccountConfig{
			{ID: accountID, SubscriptionID: 1, VvmType: string(model.VvmTypeOMTP)},
		},
		Sync: model.SyncConfig{
			NetworkRequestTimeout:   5 * time.Second,
			MinimumFullSyncInterval: 0,
			RetryCount:              2,
			BaseRetryInterval:       time.Hour,
		},
		Store: model.StoreConfig{Path: ":memory:"},
	}
	for _, tweak := range tweaks {
		tweak(cfg)
	}

	a, err := New(cfg, logger.Nop(), WithKeyring(keyring.NewArrayKeyring(nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	host, port, err := net.SplitHostPort(f.addr)
	require.NoError(t, err)
	require.NoError(t, a.Provision(accountID, credential.Credentials{
		Username: imapUser, Password: imapPassword, Server: host, Port: port,
	}))
	return a
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestApp_SyncFetchReadDelete(t *testing.T) {
	f := startServer(t)
	audio := []byte("#!AMR\n\x3c\x91\x17")
	f.deliver(t, "+15550001111@vvm.example.net", audio)
	f.deliver(t, "+15550002222@vvm.example.net", audio)

	a := newTestApp(t, f)
	ctx := testContext(t)

	require.NoError(t, a.SyncOnce(ctx, model.SyncFull, accountID))
	vms, err := a.Voicemails(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, vms, 2)

	payload, err := a.FetchPayload(ctx, accountID, vms[0].SourceData)
	require.NoError(t, err)
	assert.Equal(t, audio, payload.Data)
	assert.Empty(t, f.search(t, &imap.SearchCriteria{Flag: []imap.Flag{imap.FlagSeen}}),
		"fetching the payload must not mark the message read")

	require.NoError(t, a.MarkRead(ctx, vms[0].ID))
	require.NoError(t, a.SyncOnce(ctx, model.SyncUploadOnly, accountID))
	seen := f.search(t, &imap.SearchCriteria{Flag: []imap.Flag{imap.FlagSeen}})
	require.Len(t, seen, 1)
	assert.Equal(t, vms[0].SourceData, fmt.Sprint(uint32(seen[0])))

	require.NoError(t, a.Delete(ctx, vms[1].ID))
	require.NoError(t, a.SyncOnce(ctx, model.SyncFull, accountID))
	assert.Len(t, f.search(t, &imap.SearchCriteria{}), 1)

	vms, err = a.Voicemails(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, vms, 1)
	assert.True(t, vms[0].IsRead)
	assert.False(t, vms[0].Dirty)
}

func TestApp_SyncOnceUnknownAccount(t *testing.T) {
	a := newTestApp(t, startServer(t))

	err := a.SyncOnce(testContext(t), model.SyncFull, "nope")
	assert.ErrorIs(t, err, appsync.ErrUnknownAccount)
}

func TestApp_ProvisionUnknownAccount(t *testing.T) {
	a := newTestApp(t, startServer(t))

	err := a.Provision("nope", credential.Credentials{})
	assert.ErrorIs(t, err, appsync.ErrUnknownAccount)

	c, err := a.creds.Load(accountID)
	require.NoError(t, err)
	assert.Equal(t, imapUser, c.Username)
}

func TestApp_StatusAndUnprovision(t *testing.T) {
	f := startServer(t)
	f.deliver(t, "+15550001111@vvm.example.net", []byte("x"))
	f.deliver(t, "+15550002222@vvm.example.net", []byte("y"))
	a := newTestApp(t, f)
	ctx := testContext(t)

	require.NoError(t, a.SyncOnce(ctx, model.SyncFull, accountID))
	vms, err := a.Voicemails(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, vms, 2)
	require.NoError(t, a.MarkRead(ctx, vms[0].ID))

	statuses, err := a.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	st := statuses[0]
	assert.Equal(t, accountID, st.Account)
	assert.Equal(t, model.VvmTypeOMTP, st.VvmType)
	assert.True(t, st.Enabled)
	assert.True(t, st.Provisioned())
	assert.False(t, st.LastFullSync.IsZero())
	assert.Equal(t, time.Hour, st.RetryInterval)
	assert.Empty(t, st.Retries)
	assert.Equal(t, 2, st.Voicemails)
	assert.Equal(t, 1, st.Unread)

	require.NoError(t, a.store.SaveAlarm(ctx, model.RetryAlarm{
		Account: accountID, Action: model.SyncUploadOnly, FireAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, a.Unprovision(ctx, accountID))

	statuses, err = a.Status(ctx)
	require.NoError(t, err)
	assert.False(t, statuses[0].Provisioned())
	assert.Empty(t, statuses[0].Retries)
	assert.Equal(t, 2, statuses[0].Voicemails, "local voicemails survive")

	assert.ErrorIs(t, a.Unprovision(ctx, "nope"), appsync.ErrUnknownAccount)
}

func TestApp_DisabledAccountDoesNotSync(t *testing.T) {
	f := startServer(t)
	f.deliver(t, "+15550001111@vvm.example.net", []byte("x"))
	a := newTestApp(t, f)
	ctx := testContext(t)

	require.NoError(t, a.SetEnabled(ctx, accountID, false))
	require.NoError(t, a.SyncOnce(ctx, model.SyncFull, accountID))

	vms, err := a.Voicemails(ctx, accountID)
	require.NoError(t, err)
	assert.Empty(t, vms)

	require.NoError(t, a.SetEnabled(ctx, accountID, true))
	require.NoError(t, a.SyncOnce(ctx, model.SyncFull, accountID))
	vms, err = a.Voicemails(ctx, accountID)
	require.NoError(t, err)
	assert.Len(t, vms, 1)
}

func TestApp_FailedSyncPersistsRetryAlarm(t *testing.T) {
	f := startServer(t)
	a := newTestApp(t, f)
	ctx := testContext(t)
	require.NoError(t, a.Provision(accountID, credential.Credentials{
		Username: imapUser, Password: "wrong", Server: "127.0.0.1", Port: strings.Split(f.addr, ":")[1],
	}))

	require.NoError(t, a.SyncOnce(ctx, model.SyncDownloadOnly, accountID))

	alarms, err := a.store.ListAlarms(ctx)
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.Equal(t, model.SyncDownloadOnly, alarms[0].Action)
	interval, err := a.store.RetryInterval(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, interval)
}

func TestApp_RunKeepsPersistedAlarmsInsideDebounceWindow(t *testing.T) {
	f := startServer(t)
	f.deliver(t, "+15550001111@vvm.example.net", []byte("x"))
	a := newTestApp(t, f, func(cfg *model.AppConfig) {
		cfg.Sync.MinimumFullSyncInterval = time.Minute
	})
	ctx := testContext(t)

	now := time.Now()
	require.NoError(t, a.store.SaveAlarm(ctx, model.RetryAlarm{
		Account: accountID, Action: model.SyncDownloadOnly, FireAt: now.Add(time.Hour),
	}))
	require.NoError(t, a.store.SetRetryInterval(ctx, accountID, 4*time.Hour))
	require.NoError(t, a.store.SetLastFullSync(ctx, accountID, now.Add(-10*time.Second)))

	runCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, a.Run(runCtx, nil))

	alarms, err := a.store.ListAlarms(ctx)
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.Equal(t, model.SyncDownloadOnly, alarms[0].Action)

	interval, err := a.store.RetryInterval(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, interval)

	vms, err := a.Voicemails(ctx, accountID)
	require.NoError(t, err)
	assert.Empty(t, vms, "startup full sync is debounced")
}

func TestInterfaceBindings(t *testing.T) {
	got := interfaceBindings([]model.PhoneAccount{
		{ID: "a", SubscriptionID: 1, Interface: "wwan0"},
		{ID: "b", SubscriptionID: 2},
	})
	assert.Equal(t, map[string]string{"1": "wwan0"}, got)
}
