package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gsarma/oneid/internal/api"
	"github.com/gsarma/oneid/internal/config"
	"github.com/gsarma/oneid/internal/crypto"
	"github.com/gsarma/oneid/internal/logger"
	"github.com/gsarma/oneid/internal/metrics"
	"github.com/gsarma/oneid/internal/oneid"
	"github.com/gsarma/oneid/internal/tracing"
)

type rootFlags struct {
	configFile string
	envFile    string
}

func (f *rootFlags) load() (*config.Config, error) {
	return config.Load(config.WithConfigFile(f.configFile), config.WithEnvFile(f.envFile))
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "oneid-server",
		Short:         "OneID login gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded into the environment")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd, flags)
			},
		},
		newValidateConfigCmd(flags),
		newAuthorizeURLCmd(flags),
	)
	return root
}

func newValidateConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Check the OneID configuration and print the effective values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			provider := cfg.Provider()
			if errs := provider.Validate(); len(errs) > 0 {
				fmt.Fprintln(out, "OneID configuration has errors:")
				for _, e := range errs {
					fmt.Fprintf(out, "  - %s\n", e)
				}
				return errors.New("invalid configuration")
			}
			fmt.Fprintln(out, "OneID configuration is valid.")
			printConfig(out, cfg)
			return nil
		},
	}
}

func newAuthorizeURLCmd(flags *rootFlags) *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "authorize-url",
		Short: "Print an authorization URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			client, err := oneid.New(cfg.Provider())
			if err != nil {
				return err
			}
			if state == "" {
				if state, err = oneid.NewState(); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), client.AuthorizationURL(state))
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "state value (random when empty)")
	return cmd
}

func printConfig(out io.Writer, cfg *config.Config) {
	rows := [][2]string{
		{"base_url", cfg.BaseURL},
		{"client_id", cfg.ClientID},
		{"client_secret", maskSecret(cfg.ClientSecret)},
		{"redirect_uri", cfg.RedirectURI},
		{"scope", cfg.Scope},
		{"endpoints.authorization", cfg.Endpoints.Authorization},
		{"endpoints.token", cfg.Endpoints.Token},
		{"endpoints.user_info", cfg.Endpoints.UserInfo},
		{"endpoints.logout", cfg.Endpoints.Logout},
		{"http.timeout", strconv.Itoa(cfg.HTTP.Timeout) + "s"},
		{"http.connect_timeout", strconv.Itoa(cfg.HTTP.ConnectTimeout) + "s"},
		{"http.retry_times", strconv.Itoa(cfg.HTTP.RetryTimes)},
		{"http.retry_delay", strconv.Itoa(cfg.HTTP.RetryDelay) + "ms"},
		{"routes.enabled", strconv.FormatBool(cfg.Routes.Enabled)},
		{"routes.prefix", cfg.Routes.Prefix},
		{"user.pin_field", cfg.User.PINField},
		{"user.required_fields", strings.Join(cfg.User.RequiredFields, ", ")},
		{"logging.enabled", strconv.FormatBool(cfg.Logging.Enabled)},
		{"logging.level", cfg.Logging.Level},
		{"security.verify_ssl", strconv.FormatBool(cfg.Security.VerifySSL)},
		{"security.allowed_origins", cfg.Security.AllowedOrigins},
		{"tracing.enabled", strconv.FormatBool(cfg.Tracing.Enabled)},
		{"tracing.endpoint", cfg.Tracing.Endpoint},
	}
	headers := make([]string, 0, len(cfg.DefaultHeaders))
	for k, v := range cfg.DefaultHeaders {
		headers = append(headers, k+": "+v)
	}
	sort.Strings(headers)
	rows = append(rows, [2]string{"default_headers", strings.Join(headers, "; ")})

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
	}
	tw.Flush()
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}

func runServe(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := flags.load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging, "oneid")
	if log.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	m, err := metrics.New(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	shutdownTracing, err := tracing.Setup(cmd.Context(), cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("flush traces")
		}
	}()
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint != "" {
		log.Info().Str("endpoint", cfg.Tracing.Endpoint).Float64("sample_rate", cfg.Tracing.SampleRate).Msg("tracing enabled")
	}

	client, err := oneid.New(cfg.Provider(),
		oneid.WithRecorder(m),
		oneid.WithLogger(logger.Channel(log, cfg.Logging), cfg.Logging.ParseLevel()),
	)
	if err != nil {
		return err
	}
	for _, e := range client.ConfigurationErrors() {
		log.Warn().Str("problem", e).Msg("OneID is not fully configured")
	}

	sealer, err := stateSealer(cfg.Server.StateKey, log)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Options{
		OneID:          client,
		Sealer:         sealer,
		StateTTL:       cfg.Server.StateTTL,
		RoutesEnabled:  cfg.Routes.Enabled,
		Prefix:         cfg.Routes.Prefix,
		AllowedOrigins: cfg.AllowedOrigins(),
		Log:            log,
		Observer:       m,
		Metrics:        m.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("prefix", cfg.Routes.Prefix).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func stateSealer(key string, log zerolog.Logger) (*crypto.Sealer, error) {
	if key == "" {
		generated, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		log.Warn().Msg("ONEID_STATE_KEY not set; using a per-process key, state cookies will not survive restarts")
		key = generated
	}
	return crypto.NewSealer(key)
}
