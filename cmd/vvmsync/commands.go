package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/nhle/vvm-sync/internal/app"
	"github.com/nhle/vvm-sync/internal/credential"
	"github.com/nhle/vvm-sync/internal/model"
)

var errMissingFlag = errors.New("missing required flag")

func runCommand(ctx context.Context, a *app.App) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	refresh := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				select {
				case refresh <- struct{}{}:
				default:
				}
			}
		}
	}()

	return a.Run(ctx, refresh)
}

func syncCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	account := fs.String("account", "", "Account ID (default: every account)")
	action := fs.String("action", string(model.SyncFull), "full_sync, upload_only or download_only")
	_ = fs.Parse(args)

	act, err := model.ParseSyncAction(*action)
	if err != nil {
		return err
	}
	return a.SyncOnce(ctx, act, *account)
}

func provisionCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("provision", flag.ExitOnError)
	account := fs.String("account", "", "Account ID")
	server := fs.String("server", "", "IMAP server host")
	port := fs.String("port", "143", "IMAP server port")
	user := fs.String("user", "", "IMAP username")
	_ = fs.Parse(args)

	if *account == "" || *server == "" || *user == "" {
		return fmt.Errorf("%w: -account, -server and -user are needed", errMissingFlag)
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	return a.Provision(*account, credential.Credentials{
		Username: *user,
		Password: string(password),
		Server:   *server,
		Port:     *port,
	})
}

func listCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	account := fs.String("account", "", "Account ID")
	_ = fs.Parse(args)

	if *account == "" {
		return fmt.Errorf("%w: -account", errMissingFlag)
	}

	vms, err := a.Voicemails(ctx, *account)
	if err != nil {
		return err
	}
	if len(vms) == 0 {
		fmt.Println("No voicemails.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUID\tFROM\tDATE\tSTATE")
	for _, vm := range vms {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			vm.ID, vm.SourceData, vm.Number, vm.Timestamp.Local().Format("2006-01-02 15:04"), state(vm))
	}
	return w.Flush()
}

func state(vm model.Voicemail) string {
	var parts []string
	switch {
	case vm.IsDeleted:
		parts = append(parts, "deleted")
	case vm.IsRead:
		parts = append(parts, "read")
	default:
		parts = append(parts, "new")
	}
	if vm.Dirty {
		parts = append(parts, "pending")
	}
	if vm.HasContent {
		parts = append(parts, "audio")
	}
	return strings.Join(parts, ",")
}

func fetchCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	account := fs.String("account", "", "Account ID")
	uid := fs.String("uid", "", "Message UID")
	out := fs.String("out", "", "Write the audio to this file")
	_ = fs.Parse(args)

	if *account == "" || *uid == "" {
		return fmt.Errorf("%w: -account and -uid", errMissingFlag)
	}

	p, err := a.FetchPayload(ctx, *account, *uid)
	if err != nil {
		return err
	}
	if *out != "" {
		if err := os.WriteFile(*out, p.Data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", *out, err)
		}
	}
	fmt.Printf("Fetched %d bytes of %s\n", len(p.Data), p.MimeType)
	return nil
}

func markReadCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("mark-read", flag.ExitOnError)
	id := fs.String("id", "", "Local voicemail ID")
	_ = fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("%w: -id", errMissingFlag)
	}
	return a.MarkRead(ctx, *id)
}

func deleteCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "Local voicemail ID")
	_ = fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("%w: -id", errMissingFlag)
	}
	return a.Delete(ctx, *id)
}

func setEnabledCommand(ctx context.Context, a *app.App, name string, enabled bool, args []string) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	account := fs.String("account", "", "Account ID")
	_ = fs.Parse(args)

	if *account == "" {
		return fmt.Errorf("%w: -account", errMissingFlag)
	}
	return a.SetEnabled(ctx, *account, enabled)
}

func unprovisionCommand(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("unprovision", flag.ExitOnError)
	account := fs.String("account", "", "Account ID")
	_ = fs.Parse(args)

	if *account == "" {
		return fmt.Errorf("%w: -account", errMissingFlag)
	}
	return a.Unprovision(ctx, *account)
}

func statusCommand(ctx context.Context, a *app.App) error {
	statuses, err := a.Status(ctx)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Println("No accounts configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tTYPE\tENABLED\tSERVER\tLAST FULL SYNC\tBACKOFF\tRETRIES\tVOICEMAILS")
	for _, st := range statuses {
		server := "-"
		if st.Provisioned() {
			server = st.Server
		}
		last := "never"
		if !st.LastFullSync.IsZero() {
			last = st.LastFullSync.Local().Format("2006-01-02 15:04")
		}
		retries := make([]string, 0, len(st.Retries))
		for _, r := range st.Retries {
			retries = append(retries, fmt.Sprintf("%s@%s", r.Action, r.FireAt.Local().Format("15:04")))
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\t%s\t%d (%d new)\n",
			st.Account, st.VvmType, st.Enabled, server, last, st.RetryInterval,
			orDash(strings.Join(retries, ",")), st.Voicemails, st.Unread)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
