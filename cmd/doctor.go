package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/golang-migrate/migrate/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/mcpgate/internal/config"
	"github.com/nextlevelbuilder/mcpgate/internal/drive"
	"github.com/nextlevelbuilder/mcpgate/internal/store/sqlstore"
	"github.com/nextlevelbuilder/mcpgate/pkg/protocol"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

func doctorCmd() *cobra.Command {
	var online bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check environment, configuration and dependencies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), online)
		},
	}
	cmd.Flags().BoolVar(&online, "online", false, "also check provider endpoints over the network")
	return cmd
}

// doctorReport counts failures so the command can exit non-zero.
type doctorReport struct{ failures int }

func (r *doctorReport) line(label, status string, style lipgloss.Style, detail string) {
	if detail != "" {
		detail = " " + dimStyle.Render(detail)
	}
	fmt.Printf("    %-16s %s%s\n", label+":", style.Render(status), detail)
}

func (r *doctorReport) ok(label, detail string)   { r.line(label, "OK", okStyle, detail) }
func (r *doctorReport) warn(label, detail string) { r.line(label, "WARN", warnStyle, detail) }
func (r *doctorReport) fail(label, detail string) {
	r.failures++
	r.line(label, "FAIL", failStyle, detail)
}

func runDoctor(ctx context.Context, online bool) error {
	rep := &doctorReport{}

	fmt.Println(titleStyle.Render("mcpgate doctor"))
	fmt.Printf("  Version:  %s (protocol %d)\n", Version, protocol.ProtocolVersion)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Println("  Config:")
	if _, err := os.Stat(cfgPath); err != nil {
		rep.warn("file", cfgPath+" not found, using defaults")
	} else {
		rep.ok("file", cfgPath)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		rep.fail("load", err.Error())
		return fmt.Errorf("%d check(s) failed", rep.failures)
	}
	rep.ok("validate", "hash "+cfg.Hash())

	fmt.Println()
	fmt.Println("  Security:")
	if cfg.Auth.JWTSecret == "" {
		rep.warn("jwt secret", "not set; serve will use an ephemeral secret")
	} else {
		rep.ok("jwt secret", "")
	}
	if cfg.Database.EncryptionKey == "" {
		rep.warn("encryption key", "not set; API keys are stored in plain text")
	} else {
		rep.ok("encryption key", "")
	}

	fmt.Println()
	fmt.Println("  Storage:")
	checkDatabase(rep, cfg)
	if cfg.Database.CredentialBackend == "redis" {
		checkRedis(ctx, rep, cfg.Database.RedisURL)
	} else {
		rep.ok("credentials", "sql")
	}

	fmt.Println()
	fmt.Println("  Providers:")
	fmt.Printf("    %-16s %s\n", "default model:", cfg.Providers.DefaultModel)
	for _, p := range providerTargets(cfg) {
		switch {
		case p.envKey == "":
			fmt.Printf("    %-16s %s\n", p.name+":", p.apiBase)
		case os.Getenv(p.envKey) != "":
			fmt.Printf("    %-16s %s (fallback %s)\n", p.name+":", p.apiBase, maskKey(os.Getenv(p.envKey)))
		default:
			fmt.Printf("    %-16s %s %s\n", p.name+":", p.apiBase, dimStyle.Render("(per-user keys only)"))
		}
	}
	if online {
		fmt.Println()
		fmt.Println("  Connectivity:")
		if fatal := verifyAllProviders(cfg); len(fatal) > 0 {
			rep.failures += len(fatal)
		}
	}

	fmt.Println()
	fmt.Println("  Google Drive:")
	checkDrive(rep, cfg)

	fmt.Println()
	if rep.failures > 0 {
		return fmt.Errorf("%d check(s) failed", rep.failures)
	}
	fmt.Println("Doctor check complete.")
	return nil
}

func checkDatabase(rep *doctorReport, cfg *config.Config) {
	sc := cfg.StoreConfig()
	label := "sqlite"
	if sc.IsPostgres() {
		label = "postgres"
	}

	m, err := sqlstore.NewMigrator(sc)
	if err != nil {
		rep.fail(label, err.Error())
		return
	}
	defer m.Close()

	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		rep.warn(label, "no migrations applied (run 'mcpgate migrate up')")
	case err != nil:
		rep.fail(label, err.Error())
	case dirty:
		rep.fail(label, fmt.Sprintf("schema version %d is dirty", v))
	default:
		rep.ok(label, fmt.Sprintf("schema version %d", v))
	}
}

func checkRedis(ctx context.Context, rep *doctorReport, url string) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		rep.fail("redis", err.Error())
		return
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rep.fail("redis", err.Error())
		return
	}
	rep.ok("redis", opts.Addr)
}

func checkDrive(rep *doctorReport, cfg *config.Config) {
	creds := config.ExpandHome(cfg.Drive.CredentialsPath)
	if _, err := os.Stat(creds); err != nil {
		rep.warn("credentials", creds+" not found; Drive commands will fail")
	} else {
		rep.ok("credentials", creds)
	}

	tokens := drive.NewTokenStore(cfg.Drive.TokenStore, config.ExpandHome(cfg.Drive.TokenPath))
	tok, err := tokens.Load()
	switch {
	case errors.Is(err, drive.ErrNoToken):
		rep.warn("token", "none stored (run 'mcpgate drive auth')")
	case err != nil:
		rep.fail("token", err.Error())
	case !tok.Valid() && tok.RefreshToken == "":
		rep.warn("token", "expired and not refreshable")
	default:
		rep.ok("token", cfg.Drive.TokenStore)
	}
}

func maskKey(k string) string {
	if len(k) <= 8 {
		return "****"
	}
	return k[:4] + "****" + k[len(k)-4:]
}
