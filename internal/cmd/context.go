package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dagucloud/watcher/internal/cmn/config"
	"github.com/dagucloud/watcher/internal/cmn/logger"
	"github.com/dagucloud/watcher/internal/cmn/logger/tag"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/spec"
	"github.com/dagucloud/watcher/internal/runtime/builtin/mail"
	"github.com/dagucloud/watcher/internal/runtime/builtin/slack"
	"github.com/dagucloud/watcher/internal/runtime/builtin/webhook"
	"github.com/dagucloud/watcher/internal/runtime/script/jq"
	"github.com/dagucloud/watcher/internal/runtime/store/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Context holds the configuration and services of a command.
type Context struct {
	context.Context

	Command *cobra.Command
	Config  *config.Config
	Quiet   bool
	Out     io.Writer

	scripts core.ScriptService
	store   *lazyStore
}

// NewContext loads the configuration and sets up the logger of a command.
func NewContext(cmd *cobra.Command) (*Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	v := viper.New()
	if err := bindFlags(cmd, v); err != nil {
		return nil, err
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}

	var loaderOpts []config.ConfigLoaderOption
	if cfgPath := v.GetString("config"); cfgPath != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(cfgPath))
	}
	cfg, err := config.Load(loaderOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var opts []logger.Option
	if cfg.Core.Debug {
		opts = append(opts, logger.WithDebug())
	}
	if cfg.Core.LogFormat != "" {
		opts = append(opts, logger.WithFormat(cfg.Core.LogFormat))
	}
	switch w := cmd.ErrOrStderr(); {
	case quiet:
		opts = append(opts, logger.WithQuiet())
	case w != os.Stderr:
		// Logs follow the error writer of the command instead of stderr.
		opts = append(opts, logger.WithQuiet(), logger.WithWriter(w))
	}
	ctx = logger.WithLogger(ctx, logger.NewLogger(opts...))

	for _, w := range cfg.Warnings {
		logger.Warn(ctx, w)
	}

	scripts := core.NewScriptEngines(jq.New())
	return &Context{
		Context: ctx,
		Command: cmd,
		Config:  cfg,
		Quiet:   quiet,
		Out:     cmd.OutOrStdout(),
		scripts: scripts,
		store:   &lazyStore{dsn: cfg.Store.DSN, scripts: scripts},
	}, nil
}

// Parser returns a watch parser bound to the configured services.
func (c *Context) Parser() *spec.Parser {
	return spec.NewParser(spec.NewRegistries(spec.Deps{
		Store:   c.store,
		Scripts: c.scripts,
		Email: mail.New(mail.Config{
			Host:     c.Config.SMTP.Host,
			Port:     c.Config.SMTP.Port,
			Username: c.Config.SMTP.Username,
			Password: c.Config.SMTP.Password,
		}),
		HTTP: webhook.New(webhook.WithTimeout(c.Config.Webhook.Timeout)),
		Slack: slack.New(slack.Config{
			WebhookURL: c.Config.Slack.WebhookURL,
			Channel:    c.Config.Slack.Channel,
			Username:   c.Config.Slack.Username,
		}),
	}, c.Config.Script.DefaultLang))
}

// LoadWatch parses the watch file at path. The watch id is the file name
// without its extension.
func (c *Context) LoadWatch(path string, includeStatus bool) (*core.Watch, error) {
	path = c.resolveWatchPath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read watch file: %w", err)
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return c.Parser().Parse(id, includeStatus, data, core.SystemClock{})
}

// resolveWatchPath looks bare names up in the watches directory.
func (c *Context) resolveWatchPath(path string) string {
	if _, err := os.Stat(path); err == nil || strings.ContainsRune(path, os.PathSeparator) {
		return path
	}
	for _, ext := range []string{"", ".yaml", ".yml", ".json"} {
		candidate := filepath.Join(c.Config.Paths.WatchesDir, path+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return path
}

// Close releases the services opened by the command.
func (c *Context) Close() error {
	return c.store.Close()
}

// NewCommand wires runFunc as the body of cmd with a prepared Context.
func NewCommand(cmd *cobra.Command, flags []commandLineFlag, runFunc func(ctx *Context, args []string) error) *cobra.Command {
	initFlags(cmd, flags...)
	cmd.SilenceUsage = true

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, err := NewContext(cmd)
		if err != nil {
			return fmt.Errorf("initialization error: %w", err)
		}
		defer func() {
			_ = ctx.Close()
		}()
		if err := runFunc(ctx, args); err != nil {
			logger.Error(ctx.Context, "Command failed", tag.Error(err))
			return err
		}
		return nil
	}
	return cmd
}

// lazyStore opens the SQLite store on first use so commands that never reach
// the store do not create a database.
type lazyStore struct {
	dsn     string
	scripts core.ScriptService

	once  sync.Once
	store *sqlite.Store
	err   error
}

var _ core.Store = (*lazyStore)(nil)

func (s *lazyStore) open(ctx context.Context) (*sqlite.Store, error) {
	s.once.Do(func() {
		if dir := filepath.Dir(s.dsn); s.dsn != ":memory:" && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				s.err = fmt.Errorf("failed to create store directory: %w", err)
				return
			}
		}
		s.store, s.err = sqlite.Open(ctx, s.dsn, s.scripts)
	})
	return s.store, s.err
}

func (s *lazyStore) Search(ctx context.Context, req core.SearchRequest) (map[string]any, error) {
	store, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	return store.Search(ctx, req)
}

func (s *lazyStore) Index(ctx context.Context, req core.IndexRequest) (core.IndexResponse, error) {
	store, err := s.open(ctx)
	if err != nil {
		return core.IndexResponse{}, err
	}
	return store.Index(ctx, req)
}

func (s *lazyStore) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
