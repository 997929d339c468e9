package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/sahilm/fuzzy"

	"github.com/raphi011/cachemgr/internal/action"
	"github.com/raphi011/cachemgr/internal/config"
	"github.com/raphi011/cachemgr/internal/history"
	"github.com/raphi011/cachemgr/internal/log"
	"github.com/raphi011/cachemgr/internal/reconcile"
	"github.com/raphi011/cachemgr/internal/scan"
	"github.com/raphi011/cachemgr/internal/scene"
	"github.com/raphi011/cachemgr/internal/session"
	"github.com/raphi011/cachemgr/internal/storage"
	"github.com/raphi011/cachemgr/internal/ui/progress"
	"github.com/raphi011/cachemgr/internal/ui/prompt"
	"github.com/raphi011/cachemgr/internal/ui/styles"
	versionpkg "github.com/raphi011/cachemgr/internal/version"
)

// app is the state shared by the commands of one invocation.
type app struct {
	ctx      context.Context
	cfg      *config.Config
	flags    *globalFlags
	manifest *scene.Manifest
	journal  *history.Journal
	closeLog func() error
}

type appKey struct{}

func withApp(ctx context.Context, a *app) context.Context {
	return context.WithValue(ctx, appKey{}, a)
}

func appFrom(ctx context.Context) *app {
	a, _ := ctx.Value(appKey{}).(*app)
	return a
}

// setup resolves the configuration (file, local overrides, environment,
// flags), applies the theme, attaches the file log and opens the scene.
func setup(ctx context.Context, flags *globalFlags, getenv func(string) string, stderr io.Writer) (*app, error) {
	// Flags take precedence over the environment.
	overrides := map[string]string{
		config.EnvScene:   flags.scene,
		config.EnvRoot:    flags.root,
		config.EnvPattern: flags.pattern,
		config.EnvVar:     flags.envVar,
	}
	cfg, err := config.Resolve(func(k string) string {
		if v := overrides[k]; v != "" {
			return v
		}
		return getenv(k)
	})
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	styles.Init(cfg.Theme)

	l := log.New(stderr, flags.verbose, flags.quiet)
	for _, k := range cfg.Unknown {
		l.Warnf("unknown config key %q", k)
	}
	closeLog := func() error { return nil }
	logDir := cfg.Log.Dir
	if logDir == "" {
		if dir, err := storage.DataDir(); err == nil {
			logDir = filepath.Join(dir, "logs")
		}
	}
	if logDir != "" {
		z, closeFn, err := log.OpenFile(logDir, cfg.Log.Level)
		if err != nil {
			l.Warnf("file log disabled: %v", err)
		} else {
			l = l.WithFile(z)
			closeLog = closeFn
		}
	}
	ctx = log.WithLogger(ctx, l)

	historyPath := cfg.HistoryPath
	if historyPath == "" {
		if historyPath, err = history.DefaultPath(); err != nil {
			return nil, err
		}
	}

	l.Debug("configuration resolved", "scene", cfg.Scene, "root", cfg.RootFolder, "pattern", cfg.VersionPattern)
	return &app{
		ctx:      ctx,
		cfg:      cfg,
		flags:    flags,
		manifest: scene.NewManifest(cfg.Scene),
		journal:  history.NewJournal(historyPath),
		closeLog: closeLog,
	}, nil
}

func (a *app) close() error {
	_ = a.closeLog()
	return nil
}

func (a *app) sessionConfig() (session.Config, error) {
	scheme, err := versionpkg.ParseScheme(a.cfg.VersionScheme)
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		Root:             a.cfg.RootFolder,
		Pattern:          a.cfg.VersionPattern,
		Scheme:           scheme,
		EnvVar:           a.cfg.EnvVar,
		Workers:          a.cfg.Scan.Workers,
		ProgressEvery:    a.cfg.Scan.ProgressEvery,
		ProgressInterval: a.cfg.Scan.ProgressInterval.Duration,
	}, nil
}

// session opens a session over the scene. Applied actions are journaled.
func (a *app) session(opts ...action.Option) (*session.Session, error) {
	cfg, err := a.sessionConfig()
	if err != nil {
		return nil, err
	}
	opts = append([]action.Option{action.WithRecorder(a.journal)}, opts...)
	return session.New(a.manifest, cfg, session.WithActionOptions(opts...))
}

// scan runs a scan to completion, with a spinner on a terminal.
func (a *app) scan(ctx context.Context, sess *session.Session) (*reconcile.Tree, error) {
	root, err := sess.Root()
	if err != nil {
		return nil, err
	}

	var onProgress func(p scan.Progress)
	if showProgress(ctx) {
		sp := progress.NewSpinner(progress.ScanMessage(root, scan.Progress{}))
		sp.Start()
		defer sp.Stop()
		onProgress = func(p scan.Progress) { sp.UpdateMessage(progress.ScanMessage(root, p)) }
	}

	tree, err := sess.ScanWait(ctx, onProgress)
	if err != nil {
		var fatal *session.FatalError
		if errors.As(err, &fatal) {
			log.FromContext(ctx).Debug("scan panicked", "stage", fatal.Stage, "stack", string(fatal.Stack))
		}
		return nil, err
	}
	return tree, nil
}

// showProgress reports whether progress UI should be drawn on stderr.
func showProgress(ctx context.Context) bool {
	return !log.FromContext(ctx).IsQuiet() && isatty.IsTerminal(os.Stderr.Fd())
}

// interactive reports whether prompts can be shown.
func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stderr.Fd())
}

var errNoTTY = errors.New("confirmation needs a terminal, pass --yes to skip it")

// confirmer asks on the terminal unless yes is set.
func confirmer(yes bool) action.Confirmer {
	if yes {
		return action.AutoConfirm
	}
	return action.ConfirmFunc(func(ctx context.Context, p action.Prompt) (bool, error) {
		if !interactive() {
			return false, errNoTTY
		}
		res, err := prompt.Confirm(p.Title, p.Lines...)
		if err != nil {
			return false, err
		}
		return res.Confirmed, nil
	})
}

// findCache returns the named cache or an error suggesting close names.
func findCache(tree *reconcile.Tree, name string) (*reconcile.Cache, error) {
	if c := tree.Find(name); c != nil {
		return c, nil
	}
	names := make([]string, len(tree.Caches))
	for i, c := range tree.Caches {
		names[i] = c.Name
	}
	if m := fuzzy.Find(name, names); len(m) > 0 {
		return nil, fmt.Errorf("unknown cache %q (did you mean %q?)", name, m[0].Str)
	}
	return nil, fmt.Errorf("unknown cache %q", name)
}

// findVersion resolves token in c. Empty selects the LATEST version.
func findVersion(c *reconcile.Cache, token string) (*reconcile.Version, error) {
	if token == "" {
		if v := c.Latest(); v != nil {
			return v, nil
		}
		return nil, fmt.Errorf("cache %s has no version matching the pattern", c.Name)
	}
	if v := c.Find(token); v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("cache %s has no version %q", c.Name, token)
}

// selectCaches validates names and selects their versions. No names
// selects the whole tree.
func selectCaches(tree *reconcile.Tree, names []string) (action.Selection, error) {
	for _, n := range names {
		if _, err := findCache(tree, n); err != nil {
			return nil, err
		}
	}
	return action.SelectCaches(tree, names...), nil
}
