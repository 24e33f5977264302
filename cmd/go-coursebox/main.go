package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"fyne.io/fyne/v2/app"
	"github.com/tartampluch/go-coursebox/internal/audit"
	"github.com/tartampluch/go-coursebox/internal/config"
	"github.com/tartampluch/go-coursebox/internal/export"
	"github.com/tartampluch/go-coursebox/internal/gate"
	"github.com/tartampluch/go-coursebox/internal/launcher"
	"github.com/tartampluch/go-coursebox/internal/oracle"
	"github.com/tartampluch/go-coursebox/internal/registry"
	"github.com/tartampluch/go-coursebox/internal/schedule"
	"github.com/tartampluch/go-coursebox/internal/ui"
)

// main delegates to runMain so deferred cleanups run before the process
// terminates. os.Exit() does not run defers.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
func runMain() int {
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	registryOverride := flag.String(config.FlagRegistry, "", config.FlagDescRegistry)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	logCloser := setupLogging(*debugMode)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close()
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	if err := run(ctx, *registryOverride); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run resolves the build variant, wires dependencies, and starts the UI loop.
func run(ctx context.Context, registryOverride string) error {
	a := app.NewWithID(config.AppID)
	a.Preferences().SetString(config.PrefLastRun, config.Version)

	execDir, err := executableDir()
	if err != nil {
		return err
	}
	resourceDir := filepath.Join(execDir, config.ExportAppsDir)

	reg, registryPath, err := resolveRegistry(execDir, registryOverride)
	if err != nil {
		return err
	}
	gated := reg.Mode() == registry.ModeGated

	slog.Info(config.MsgRegistryLoaded,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyMode, string(reg.Mode()),
		config.LogKeyCount, reg.Len(),
	)

	// The gate validates against trusted network time; the oracle never
	// falls back to the host clock.
	g := gate.New(reg, oracle.NewClient())

	if auditLog := openAudit(); auditLog != nil {
		defer func() { _ = auditLog.Close() }()
		g.Recorder = auditLog
	}

	supervisor := launcher.New(resourceDir)
	defer supervisor.Shutdown(context.Background())

	// The schedule feed server is a teacher-build convenience only.
	var srv *schedule.Server
	if !gated {
		port := a.Preferences().StringWithFallback(config.PrefServerPort, config.DefaultPort)
		srv = schedule.NewServer(port)
	}

	gui := ui.NewCourseboxApp(a, ctx, g, supervisor, srv)
	gui.RegistryPath = registryPath
	if !gated {
		exporter := export.New(resourceDir)
		exporter.TitleFor = gui.TitleFor
		gui.Exporter = exporter
	}

	gui.Run()
	gui.CloseSessions()

	return nil
}

// resolveRegistry decides between the two build variants. A manifest next to
// the executable marks a student build: the frozen gated registry inside it
// is authoritative and any error aborts the launch, never falls back to
// unrestricted. Otherwise this is a teacher build running off an editable
// registry file in the user config dir.
func resolveRegistry(execDir, override string) (*registry.Registry, string, error) {
	manifestPath := filepath.Join(execDir, config.ManifestFileName)
	if _, err := os.Stat(manifestPath); err == nil {
		m, err := export.LoadManifest(manifestPath)
		if err != nil {
			return nil, "", err
		}
		slog.Info(config.MsgManifestLoaded,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyPath, manifestPath,
			config.LogKeyCount, len(m.Apps),
		)
		return m.Registry, "", nil
	}

	path := override
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", config.ErrConfigDir, err)
		}
		appDir := filepath.Join(configDir, config.AppID)
		if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
			return nil, "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
		}
		path = filepath.Join(appDir, config.RegistryFileName)
	}

	reg, err := registry.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		// First run: start with an empty unrestricted registry.
		return registry.New(registry.ModeUnrestricted), path, nil
	}
	if err != nil {
		return nil, "", err
	}
	return reg, path, nil
}

// openAudit opens the decision log in the cache dir. Audit is advisory: any
// failure degrades to structured logging only.
func openAudit() *audit.Log {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		slog.Warn(config.MsgAuditDegraded, config.LogKeyError, err)
		return nil
	}
	path := filepath.Join(cacheDir, config.AppID, config.AuditDBFileName)
	l, err := audit.Open(path)
	if err != nil {
		slog.Warn(config.MsgAuditDegraded,
			config.LogKeyError, err,
			config.LogKeyPath, path,
		)
		return nil
	}
	return l
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", err
	}
	return filepath.Dir(resolved), nil
}

// printVersion outputs the build information to stdout and exits.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
func setupLogging(debugMode bool) io.Closer {
	var writers []io.Writer
	var logFile *os.File

	writers = append(writers, os.Stdout)

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
