package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/config"
	"github.com/JonMunkholm/quizadmin/internal/core"
	"github.com/JonMunkholm/quizadmin/internal/csvimport"
	"github.com/JonMunkholm/quizadmin/internal/logging"
	"github.com/JonMunkholm/quizadmin/internal/store"
)

// errInvalidRows is returned by validate --strict when any row is rejected.
var errInvalidRows = errors.New("file has invalid rows")

func setupLogging(w io.Writer, level, format string) {
	slog.SetDefault(logging.New(w, level, format))
}

func newTemplateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the CSV template with one example row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return csvimport.WriteTemplate(cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := csvimport.WriteTemplate(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "template written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Parse and validate a CSV without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := parseFile(args[0])
			if err != nil {
				return err
			}
			summary := csvimport.Summarize(results)
			printPreview(cmd.OutOrStdout(), filepath.Base(args[0]), summary, csvimport.Rejections(results))
			if strict && summary.Invalid > 0 {
				return errInvalidRows
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any row is invalid")
	return cmd
}

func parseFile(path string) ([]csvimport.ValidationResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csvimport.ParseReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return csvimport.ValidateAll(rows), nil
}

func printPreview(w io.Writer, name string, s csvimport.Summary, rejected []csvimport.RowErrors) {
	fmt.Fprintf(w, "%s: %d rows, %d valid, %d invalid\n", name, s.Total, s.Valid, s.Invalid)
	for _, r := range rejected {
		for _, msg := range r.Errors {
			fmt.Fprintf(w, "  row %d: %s\n", r.Row, msg)
		}
	}
}

type importOptions struct {
	yes   bool
	actor string
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Validate a CSV and, once confirmed, create its valid questions",
		Long: `Import previews the file first. Invalid rows are listed and skipped.
Nothing is written until the import is confirmed, either at the prompt or
with --yes. Rows created before a failure or an interrupt are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.actor == "" {
				opts.actor = currentUser()
			}
			return runImport(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Confirm without prompting")
	cmd.Flags().StringVar(&opts.actor, "actor", "", "Name recorded in the audit log (default: OS user)")
	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, path string, opts importOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := store.New(pool)

	// The server's cached dashboard goes stale after a CLI import unless
	// the same cache is invalidated here.
	var cache core.StatsCache
	if cfg.Cache.RedisURL != "" {
		rc, err := core.NewRedisStatsCache(ctx, cfg.Cache.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, dashboard cache not invalidated", "error", err)
		} else {
			defer rc.Close()
			cache = rc
		}
	}

	imports := core.NewService(core.Deps{
		Questions:  st,
		Audit:      core.NewAuditService(st),
		Dashboards: core.NewDashboards(st, cache, cfg.Cache.DashboardTTL),
	}, cfg.Import)

	ctx = auth.WithPrincipal(ctx, auth.Principal{UserID: "cli:" + opts.actor, Role: auth.SuperAdmin})
	ctx = core.WithRequestMeta(ctx, "", "qbimport")

	return importWith(ctx, imports, cmd.InOrStdin(), cmd.OutOrStdout(), filepath.Base(path), f, opts.yes)
}

// importWith previews r, asks for confirmation unless yes is set, then runs
// the batch and prints progress and the final report.
func importWith(ctx context.Context, imports *core.Service, in io.Reader, out io.Writer, name string, r io.Reader, yes bool) error {
	preview, err := imports.Preview(ctx, name, r)
	if err != nil {
		return errors.New(core.FormatUserError(err))
	}
	printPreview(out, name, preview.Summary, preview.Errors)

	if preview.Summary.Valid == 0 {
		fmt.Fprintln(out, "nothing to import")
		return imports.Cancel(preview.SessionID)
	}

	confirmed := yes
	if !confirmed {
		confirmed, err = confirm(in, out, fmt.Sprintf("Import %d questions?", preview.Summary.Valid))
		if err != nil {
			_ = imports.Cancel(preview.SessionID)
			return err
		}
	}
	if !confirmed {
		fmt.Fprintln(out, "aborted, nothing was written")
		return imports.Cancel(preview.SessionID)
	}

	updates, unsubscribe, err := imports.Subscribe(preview.SessionID)
	if err != nil {
		return err
	}
	defer unsubscribe()

	if err := imports.Confirm(ctx, preview.SessionID, true); err != nil {
		return errors.New(core.FormatUserError(err))
	}

	stop := context.AfterFunc(ctx, func() { _ = imports.Cancel(preview.SessionID) })
	defer stop()

	for p := range updates {
		if p.Phase == core.PhaseImporting {
			fmt.Fprintf(out, "\r%3d%% (%d/%d, %d failed)", p.Percent(), p.Processed, p.Total, p.Failed)
		}
	}
	fmt.Fprintln(out)

	res, err := imports.Result(context.WithoutCancel(ctx), preview.SessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s in %s\n", res.Report, res.Duration.Round(time.Millisecond))
	for _, f := range res.Report.Failures {
		fmt.Fprintf(out, "  row %d: %v\n", f.Row, f.Err)
	}
	if res.Phase != core.PhaseCompleted {
		return fmt.Errorf("import %s: %s", res.Phase, res.Error)
	}
	return nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

func newTokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token for the admin API",
		Long: `Token signs an HS256 access token with JWT_SECRET for scripts and local
testing. The user's role is still read from their profile on every request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Security.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			tok, err := auth.NewVerifier(cfg.Security.JWTSecret, cfg.Security.JWTIssuer).Sign(userID, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id (token subject)")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
