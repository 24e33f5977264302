package ui

import (
	"fmt"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-coursebox/internal/apps"
	"github.com/tartampluch/go-coursebox/internal/config"
	"github.com/tartampluch/go-coursebox/internal/gate"
)

// appCard groups the widgets of one launcher card so session transitions can
// update them from the render goroutine.
type appCard struct {
	descriptor apps.Descriptor
	status     *widget.Label
	launchBtn  *widget.Button
}

// buildMainWindow assembles the launcher: one card per bundled tool plus the
// toolbar. The admin action only exists in teacher builds.
func (app *CourseboxApp) buildMainWindow() {
	titleKey := config.TKeyWinTitle
	if app.Gated() {
		titleKey = config.TKeyWinTitleGated
	}
	w := app.App.NewWindow(app.GetMsg(titleKey))
	w.Resize(fyne.NewSize(config.MainWindowWidth, config.MainWindowHeight))
	w.SetMaster()
	app.MainWindow = w

	cards := make([]fyne.CanvasObject, 0, len(apps.All()))
	for _, d := range apps.All() {
		cards = append(cards, app.buildAppCard(d))
	}

	toolbar := app.buildToolbar()
	content := container.NewBorder(toolbar, nil, nil, nil,
		container.NewVScroll(container.NewVBox(cards...)))
	w.SetContent(content)
}

func (app *CourseboxApp) buildToolbar() *widget.Toolbar {
	items := []widget.ToolbarItem{}

	if !app.Gated() {
		items = append(items, widget.NewToolbarAction(theme.DocumentCreateIcon(), func() {
			app.ShowAdminWindow()
		}))
	}

	items = append(items,
		widget.NewToolbarSpacer(),
		widget.NewToolbarAction(theme.SettingsIcon(), func() {
			app.ShowSettingsWindow()
		}),
	)
	return widget.NewToolbar(items...)
}

func (app *CourseboxApp) buildAppCard(d apps.Descriptor) fyne.CanvasObject {
	card := &appCard{descriptor: d}

	card.status = widget.NewLabel(app.initialStatus(d))
	card.status.Wrapping = fyne.TextWrapWord

	card.launchBtn = widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnLaunch),
		theme.MediaPlayIcon(), func() {
			app.launchApp(card)
		})
	card.launchBtn.Importance = widget.HighImportance

	actions := container.NewHBox(card.launchBtn)
	if d.HasFileArea {
		filesBtn := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnFiles),
			theme.FolderOpenIcon(), func() {
				app.ShowFilesWindow(d)
			})
		actions.Add(filesBtn)
	}

	return widget.NewCard(app.TitleFor(d.ID), "",
		container.NewVBox(card.status, actions))
}

// initialStatus renders the availability line before any launch attempt.
func (app *CourseboxApp) initialStatus(d apps.Descriptor) string {
	if !app.Gated() {
		return app.GetMsg(config.TKeyStatusUnlimited)
	}
	w, err := app.Registry.Get(d.ID)
	if err != nil {
		return app.GetMsg(config.TKeyLblNoWindow)
	}
	return app.localizeWithEnd(config.TKeyStatusOpen, w.End)
}

// launchApp opens a gate session for the tool and consumes its transitions.
// A second tap while a session is live is a no-op.
func (app *CourseboxApp) launchApp(card *appCard) {
	d := card.descriptor

	app.sessionsMut.Lock()
	if _, live := app.sessions[d.ID]; live {
		app.sessionsMut.Unlock()
		return
	}
	app.sessionsMut.Unlock()

	session, err := app.Gate.RequestLaunch(app.Ctx, d.ID)
	if err != nil {
		slog.Error(config.ErrLaunchFailed,
			config.LogKeyComponent, config.CompUI,
			config.LogKeyAppID, d.ID,
			config.LogKeyError, err)
		dialog.ShowError(fmt.Errorf("%s: %w", app.GetMsg(config.TKeyDlgLaunchFail), err), app.MainWindow)
		return
	}

	app.sessionsMut.Lock()
	app.sessions[d.ID] = session
	app.sessionsMut.Unlock()

	go app.consumeSession(card, session)
}

// consumeSession drives one card through the session's state machine until
// the transition channel closes.
func (app *CourseboxApp) consumeSession(card *appCard, session *gate.Session) {
	d := card.descriptor
	launched := false

	for tr := range session.Transitions() {
		app.renderTransition(card, tr)

		switch tr.State {
		case gate.StateAllowed:
			if !launched {
				launched = true
				if err := app.Supervisor.Launch(d); err != nil {
					fyne.Do(func() {
						dialog.ShowError(fmt.Errorf("%s: %w",
							app.GetMsg(config.TKeyDlgLaunchFail), err), app.MainWindow)
					})
					session.Close()
				}
			} else if !app.Supervisor.Running(d.ID) {
				// The user closed the tool; the session has nothing left
				// to guard.
				session.Close()
			}

		case gate.StateDenied:
			if tr.Terminate {
				app.Supervisor.Terminate(d.ID)
				app.App.SendNotification(fyne.NewNotification(
					config.AppName, app.GetMsg(config.TKeyDlgTerminated)))
			} else if !launched {
				title := config.TKeyDlgDeniedTitle
				if tr.Reason == gate.ReasonNetworkRequired {
					title = config.TKeyDlgNetworkTitle
				}
				reason := app.statusText(tr)
				fyne.Do(func() {
					dialog.ShowInformation(app.GetMsg(title), reason, app.MainWindow)
				})
			}
		}
	}

	app.sessionsMut.Lock()
	delete(app.sessions, d.ID)
	app.sessionsMut.Unlock()
}

// CloseSessions ends every live session. Called on shutdown before the
// supervisor reaps the child processes.
func (app *CourseboxApp) CloseSessions() {
	app.sessionsMut.Lock()
	defer app.sessionsMut.Unlock()
	for _, s := range app.sessions {
		s.Close()
	}
}

func (app *CourseboxApp) renderTransition(card *appCard, tr gate.Transition) {
	text := app.statusText(tr)
	fyne.Do(func() {
		card.status.SetText(text)
	})
}

// statusText localizes one transition for the card's status line.
func (app *CourseboxApp) statusText(tr gate.Transition) string {
	switch tr.State {
	case gate.StateChecking:
		return app.GetMsg(config.TKeyStatusChecking)
	case gate.StateAllowed:
		return app.localizeWithEnd(config.TKeyStatusOpen, tr.Window.End)
	case gate.StateErrored:
		return app.GetMsg(config.TKeyStatusSuspicious)
	}

	switch tr.Reason {
	case gate.ReasonNotYetOpen:
		return app.localizeWithStart(config.TKeyStatusNotYetOpen, tr.Window.Start)
	case gate.ReasonExpired:
		return app.localizeWithEnd(config.TKeyStatusExpired, tr.Window.End)
	case gate.ReasonSuspicious:
		return app.GetMsg(config.TKeyStatusSuspicious)
	case gate.ReasonNoWindow:
		return app.GetMsg(config.TKeyLblNoWindow)
	default:
		return app.GetMsg(config.TKeyStatusNetwork)
	}
}

func (app *CourseboxApp) localizeWithEnd(key string, end time.Time) string {
	return app.localizeWindowBound(key, "End", end)
}

func (app *CourseboxApp) localizeWithStart(key string, start time.Time) string {
	return app.localizeWindowBound(key, "Start", start)
}

func (app *CourseboxApp) localizeWindowBound(key, field string, bound time.Time) string {
	formatted := bound.UTC().Format(config.TimeLayoutMinute)
	if app.Localizer != nil {
		msg, err := app.Localizer.Localize(&i18n.LocalizeConfig{
			MessageID:    key,
			TemplateData: map[string]interface{}{field: formatted},
		})
		if err == nil && msg != "" {
			return msg
		}
	}
	if key == config.TKeyStatusOpen {
		return fmt.Sprintf(config.FallbackStatusOpen, formatted)
	}
	return config.FallbackStatusClosed
}
