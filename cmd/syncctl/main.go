// Command syncctl runs the bridge's diagnostic actions from a shell:
// showing the effective configuration, requesting a token, sending the sample
// order batch and listing recorded sync results.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	integrationapp "github.com/erp/syncbridge/internal/application/integration"
	"github.com/erp/syncbridge/internal/infrastructure/config"
	"github.com/erp/syncbridge/internal/infrastructure/credential"
	"github.com/erp/syncbridge/internal/infrastructure/dispatch"
	"github.com/erp/syncbridge/internal/infrastructure/logger"
	"github.com/erp/syncbridge/internal/infrastructure/persistence"
)

// errUsage is returned for malformed command lines
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	switch {
	case errors.Is(err, errUsage):
		os.Exit(2)
	case err != nil:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("syncctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "Path to config.toml (default: search ., ./config, /app)")
	logLevel := global.String("log-level", "warn", "Log level (debug, info, warn, error)")
	global.Usage = func() { printUsage(stderr) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}

	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return errUsage
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logger.MustNew(&logger.Config{
		Level:  *logLevel,
		Format: "console",
		Output: "stderr",
	})
	defer func() {
		_ = log.Sync()
	}()

	cmd := &commands{cfg: cfg, log: log, out: stdout, errOut: stderr}
	command, cmdArgs := rest[0], rest[1:]
	switch command {
	case "show":
		return cmd.show()
	case "get-token":
		return cmd.getToken(ctx, cmdArgs)
	case "call-order":
		return cmd.callOrder(ctx, cmdArgs)
	case "results":
		return cmd.results(ctx, cmdArgs)
	default:
		fmt.Fprintf(stderr, "Unknown command %q\n\n", command)
		printUsage(stderr)
		return errUsage
	}
}

type commands struct {
	cfg    *config.Config
	log    *zap.Logger
	out    io.Writer
	errOut io.Writer
}

// show prints the effective configuration with the secret masked
func (c *commands) show() error {
	return c.printJSON(map[string]any{
		"token_url":   c.cfg.Credential.TokenURL,
		"corp_id":     c.cfg.Credential.CorpID,
		"app_type":    c.cfg.Credential.AppType,
		"app_id":      c.cfg.Credential.AppID,
		"app_secret":  c.cfg.Credential.MaskedSecret(),
		"token":       config.MaskSecret(c.cfg.Credential.Token),
		"sync_target": c.cfg.Dispatch.Target,
		"grpc_listen": c.cfg.GRPC.Address,
		"database":    c.cfg.Database.Driver,
	})
}

func (c *commands) getToken(ctx context.Context, args []string) error {
	fs := c.flagSet("get-token")
	live := fs.Bool("live", false, "Send the token request instead of printing it")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	result, err := c.triggerService().GetToken(ctx, !*live)
	if err != nil {
		var acqErr *credential.AcquisitionError
		if errors.As(err, &acqErr) && len(acqErr.Payload) > 0 {
			fmt.Fprintf(c.errOut, "Last response (HTTP %d): %s\n", acqErr.StatusCode, truncate(acqErr.Payload, 2000))
		}
		return err
	}
	if !*live {
		fmt.Fprintln(c.errOut, "Dry run: no request sent. Use -live to send it.")
	}
	return c.printJSON(result)
}

func (c *commands) callOrder(ctx context.Context, args []string) error {
	fs := c.flagSet("call-order")
	live := fs.Bool("live", false, "Call the target instead of printing the request")
	target := fs.String("target", c.cfg.Dispatch.Target, "gRPC target of the Order service")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	result, err := c.triggerService().CallOrder(ctx, *target, !*live)
	if err != nil {
		return err
	}
	if !*live {
		fmt.Fprintf(c.errOut, "Dry run: not calling %s. Use -live to call it.\n", result.Target)
	}
	return c.printJSON(result)
}

// results prints the most recent sync outcomes as a table
func (c *commands) results(ctx context.Context, args []string) error {
	fs := c.flagSet("results")
	limit := fs.Int("limit", 50, "Number of rows to show")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	db, err := persistence.NewDatabase(&c.cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer db.Close()

	rows, err := integrationapp.NewSyncResultQueryService(persistence.NewSyncOutcomeRepository(db.DB)).ListRecent(ctx, *limit)
	if err != nil {
		return err
	}
	return writeResults(c.out, rows)
}

func writeResults(w io.Writer, rows []integrationapp.SyncResultResponse) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No sync results found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBILL_KEY\tERP_KEY\tBILL_TYPE\tSYNC_STATE\tSYNC_MSG\tERROR_CODE\tCREATED_AT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%d\t%s\n",
			r.ID, r.BillKey, r.ErpKey, r.BillType, r.SyncState, r.SyncMsg, r.ErrorCode,
			r.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (c *commands) triggerService() *integrationapp.TriggerService {
	client := credential.NewClient(credential.ClientConfig{
		TokenURL:  c.cfg.Credential.TokenURL,
		CorpID:    c.cfg.Credential.CorpID,
		AppType:   c.cfg.Credential.AppType,
		AppID:     c.cfg.Credential.AppID,
		AppSecret: c.cfg.Credential.AppSecret,
		Timeout:   c.cfg.Credential.Timeout,
	}, c.log)
	provider := credential.NewProvider(client, credential.NewMemoryTokenCache(c.cfg.Credential.SafetyMargin), credential.ProviderConfig{
		Token:      c.cfg.Credential.Token,
		StaticTTL:  c.cfg.Credential.StaticTTL,
		DefaultTTL: c.cfg.Credential.DefaultTTL,
	}, c.log)
	dispatcher := dispatch.New(provider, dispatch.Config{
		Timeout:           c.cfg.Dispatch.Timeout,
		RequireCredential: c.cfg.Dispatch.RequireCredential,
	}, c.log)

	return integrationapp.NewTriggerService(client, dispatcher, integrationapp.TriggerConfig{
		DefaultTarget: c.cfg.Dispatch.Target,
		Mask:          config.MaskSecret,
	}, c.log)
}

func (c *commands) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func (c *commands) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `ERP sync bridge diagnostics

Usage:
  syncctl [flags] <command> [command flags]

Commands:
  show                          Print the effective configuration (secrets masked)
  get-token [-live]             Print the token request, or send it with -live
  call-order [-live] [-target]  Print the sample order batch, or send it with -live
  results [-limit n]            List the most recent sync results (default 50)

Flags:
  -config string        Path to config.toml
  -log-level string     Log level: debug, info, warn, error (default: warn)

Environment Variables:
  ERP_CREDENTIAL_TOKEN_URL, ERP_CREDENTIAL_APP_ID, ERP_CREDENTIAL_APP_SECRET,
  ERP_DISPATCH_TARGET, ERP_DATABASE_PATH`)
}
