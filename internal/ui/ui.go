package ui

import (
	"context"
	_ "embed"
	"log/slog"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-coursebox/internal/apps"
	"github.com/tartampluch/go-coursebox/internal/config"
	"github.com/tartampluch/go-coursebox/internal/export"
	"github.com/tartampluch/go-coursebox/internal/gate"
	"github.com/tartampluch/go-coursebox/internal/launcher"
	"github.com/tartampluch/go-coursebox/internal/registry"
	"github.com/tartampluch/go-coursebox/internal/schedule"
)

//go:embed Icon.png
var appIconData []byte

// CourseboxApp encapsulates the UI state, preferences, and the wiring between
// the shell and the gate, launcher, and schedule services.
type CourseboxApp struct {
	App         fyne.App
	MainWindow  fyne.Window
	Preferences fyne.Preferences
	I18nBundle  *i18n.Bundle
	Localizer   *i18n.Localizer
	Ctx         context.Context

	Registry   *registry.Registry
	Gate       *gate.Gate
	Supervisor *launcher.Supervisor
	Exporter   *export.Exporter
	Server     *schedule.Server

	// RegistryPath is where admin edits are persisted. Empty in a student
	// build, where the registry is frozen and there is nothing to save.
	RegistryPath string

	SupportedLanguages []string
	configChan         chan string

	settingsWindow fyne.Window
	adminWindow    fyne.Window
	fileWindows    map[string]fyne.Window

	sessionsMut sync.Mutex
	sessions    map[string]*gate.Session
}

// NewCourseboxApp constructs the application shell around already-wired
// services.
func NewCourseboxApp(a fyne.App, ctx context.Context, g *gate.Gate, sup *launcher.Supervisor, srv *schedule.Server) *CourseboxApp {
	a.SetIcon(fyne.NewStaticResource(config.IconFile, appIconData))

	return &CourseboxApp{
		App:                a,
		Preferences:        a.Preferences(),
		Ctx:                ctx,
		Registry:           g.Registry,
		Gate:               g,
		Supervisor:         sup,
		Server:             srv,
		SupportedLanguages: config.SupportedLanguages,
		configChan:         make(chan string, config.ChannelBufferSize),
		fileWindows:        make(map[string]fyne.Window),
		sessions:           make(map[string]*gate.Session),
	}
}

// Gated reports whether this shell runs a frozen student registry.
func (app *CourseboxApp) Gated() bool {
	return app.Registry.Mode() == registry.ModeGated
}

// Run launches background services and the main UI loop. It blocks until
// the Fyne event loop exits.
func (app *CourseboxApp) Run() {
	app.SetupI18n()
	app.watchPreferences()

	if !app.Gated() && app.Server != nil {
		app.RefreshFeed()
		go func() {
			if err := app.Server.Start(app.Ctx); err != nil {
				slog.Error(config.ErrServerStartup,
					config.LogKeyError, err,
					config.LogKeyComponent, config.CompUI)
				app.App.SendNotification(fyne.NewNotification(
					config.TitleStartupError,
					app.GetMsg(config.TKeyDlgLaunchFail)))
			}
		}()
	}

	go app.watchRecheckInterval()

	go func() {
		<-app.Ctx.Done()
		slog.Info(config.MsgCtxCancel, config.LogKeyComponent, config.CompUI)
		fyne.Do(app.App.Quit)
	}()

	app.buildMainWindow()
	app.MainWindow.ShowAndRun()
}

// watchPreferences signals the re-check worker when settings change.
func (app *CourseboxApp) watchPreferences() {
	app.Preferences.AddChangeListener(func() {
		select {
		case app.configChan <- config.PrefRecheckMinutes:
		default:
		}
	})
}

// watchRecheckInterval applies the configured re-check interval to the gate.
// Only sessions created after a change pick up the new value; that is fine,
// sessions are short-lived relative to settings edits.
func (app *CourseboxApp) watchRecheckInterval() {
	log := slog.With(config.LogKeyComponent, config.CompUI)

	getInterval := func() time.Duration {
		val := app.Preferences.IntWithFallback(config.PrefRecheckMinutes, config.DefaultRecheckMin)
		if val <= 0 {
			val = config.DefaultRecheckMin
		}
		return time.Duration(val) * time.Minute
	}

	current := getInterval()
	app.Gate.SetRecheck(current)

	for {
		select {
		case <-app.Ctx.Done():
			return
		case <-app.configChan:
			next := getInterval()
			if next != current {
				log.Info(config.MsgRecheckUpdated, config.LogKeyOld, current, config.LogKeyNew, next)
				current = next
				app.Gate.SetRecheck(next)
			}
		}
	}
}

// RefreshFeed re-renders the schedule feed from the current registry.
// Teacher build only; student builds serve no feed.
func (app *CourseboxApp) RefreshFeed() {
	if app.Server == nil {
		return
	}
	data, err := schedule.BuildFeed(app.Registry.List(), app.TitleFor)
	if err != nil {
		slog.Error(config.ErrICalEncode,
			config.LogKeyComponent, config.CompUI,
			config.LogKeyError, err)
		return
	}
	app.Server.Update(data)
}

// TitleFor localizes an app identifier for display.
func (app *CourseboxApp) TitleFor(appID string) string {
	if d, ok := apps.ByID(appID); ok {
		return app.GetMsg(d.TitleKey)
	}
	return appID
}
