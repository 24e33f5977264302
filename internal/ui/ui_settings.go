package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/tartampluch/go-coursebox/internal/config"
)

// settingsWidgets holds references to UI elements to simplify data retrieval
// during save.
type settingsWidgets struct {
	langSelect   *widget.Select
	entryPort    *NumericalEntry
	entryRecheck *NumericalEntry
}

// ShowSettingsWindow displays the configuration dialog.
func (app *CourseboxApp) ShowSettingsWindow() {
	if app.settingsWindow != nil {
		slog.Debug("Settings window already open, requesting focus", config.LogKeyComponent, config.CompUISet)
		app.settingsWindow.RequestFocus()
		return
	}

	slog.Info("Opening settings window", config.LogKeyComponent, config.CompUISet)
	w := app.App.NewWindow(app.GetMsg(config.TKeyWinSettings))
	app.settingsWindow = w

	sw := &settingsWidgets{}

	// --- 1. Language ---
	sw.langSelect = widget.NewSelect(app.SupportedLanguages, nil)
	sw.langSelect.SetSelected(app.Preferences.StringWithFallback(config.PrefLanguage, config.DefaultLanguage))

	itemLang := widget.NewFormItem(app.GetMsg(config.TKeyLblLanguage), sw.langSelect)
	itemLang.HintText = app.GetMsg(config.TKeyHelpLanguage)

	// --- 2. Re-check interval ---
	// Numerical only. "0" or empty falls back to the default in save logic.
	sw.entryRecheck = NewNumericalEntry()
	sw.entryRecheck.SetText(strconv.Itoa(app.Preferences.IntWithFallback(config.PrefRecheckMinutes, config.DefaultRecheckMin)))

	widRecheck := container.NewBorder(nil, nil, nil,
		widget.NewLabel(app.GetMsg(config.TKeyLblMinutes)), sw.entryRecheck)
	itemRecheck := widget.NewFormItem(app.GetMsg(config.TKeyLblRecheck), widRecheck)
	itemRecheck.HintText = app.GetMsg(config.TKeyHelpRecheck)

	// --- 3. Schedule server port ---
	// Numerical only, strict validation (range 1-65535).
	sw.entryPort = NewNumericalEntry()
	sw.entryPort.SetText(app.Preferences.StringWithFallback(config.PrefServerPort, config.DefaultPort))
	sw.entryPort.Validator = func(s string) error {
		if s == "" {
			return errors.New(app.GetMsg(config.TKeyErrPortReq))
		}
		port, err := strconv.Atoi(s)
		if err != nil {
			return errors.New(app.GetMsg(config.TKeyErrPortNum))
		}
		if port < config.MinPort || port > config.MaxPort {
			return errors.New(app.GetMsg(config.TKeyErrPortRange))
		}
		return nil
	}

	items := []*widget.FormItem{itemLang, itemRecheck}
	if !app.Gated() {
		itemPort := widget.NewFormItem(app.GetMsg(config.TKeyLblPort), sw.entryPort)
		itemPort.HintText = app.GetMsg(config.TKeyHelpPort)
		items = append(items, itemPort)
	}

	generalForm := widget.NewForm(items...)
	generalCard := widget.NewCard(app.GetMsg(config.TKeyLblGeneral), "", generalForm)

	// --- Actions ---
	saveAction := func() {
		if !app.Gated() {
			if err := sw.entryPort.Validate(); err != nil {
				dialog.ShowError(err, w)
				return
			}
		}
		app.saveSettings(sw, w)
	}

	btnSave := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnSave), theme.DocumentSaveIcon(), saveAction)
	btnSave.Importance = widget.HighImportance
	btnCancel := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnCancel), theme.CancelIcon(), func() { w.Close() })

	// --- Footer ---
	footerText := fmt.Sprintf(app.GetMsg(config.TKeyLblFooter), config.Version)
	footerLabel := widget.NewLabel(footerText)
	footerLabel.Alignment = fyne.TextAlignCenter
	footerLabel.TextStyle = fyne.TextStyle{Italic: true}

	paddedContent := container.NewPadded(container.NewVBox(
		generalCard,
		container.NewGridWithColumns(config.LayoutColumnsDouble, btnCancel, btnSave),
		footerLabel,
	))

	w.SetContent(paddedContent)
	w.Resize(fyne.NewSize(config.SettingsWindowWidth, paddedContent.MinSize().Height))
	w.SetFixedSize(true)
	w.SetOnClosed(func() { app.settingsWindow = nil })
	w.Show()
}

// saveSettings persists the preferences and applies them immediately.
func (app *CourseboxApp) saveSettings(sw *settingsWidgets, w fyne.Window) {
	slog.Info("Saving preferences", config.LogKeyComponent, config.CompUISet)

	app.Preferences.SetString(config.PrefLanguage, sw.langSelect.Selected)

	recheckText := sw.entryRecheck.Text
	if recheckText == "" || recheckText == "0" {
		app.Preferences.SetInt(config.PrefRecheckMinutes, config.DefaultRecheckMin)
	} else if i, err := strconv.Atoi(recheckText); err == nil {
		app.Preferences.SetInt(config.PrefRecheckMinutes, i)
	}

	if !app.Gated() && sw.entryPort.Text != "" {
		app.Preferences.SetString(config.PrefServerPort, sw.entryPort.Text)
	}

	app.UpdateLocalizer()
	w.Close()
}
