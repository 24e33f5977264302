package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/tartampluch/go-coursebox/internal/apps"
	"github.com/tartampluch/go-coursebox/internal/config"
	"github.com/tartampluch/go-coursebox/internal/registry"
)

// adminRow holds the window entries of one tool.
type adminRow struct {
	descriptor apps.Descriptor
	startEntry *widget.Entry
	endEntry   *widget.Entry
}

// ShowAdminWindow displays the availability editor. Teacher build only: the
// caller never builds the admin toolbar action for a gated registry, and the
// registry itself rejects mutation as a second line.
func (app *CourseboxApp) ShowAdminWindow() {
	if app.adminWindow != nil {
		app.adminWindow.RequestFocus()
		return
	}

	slog.Info(config.MsgAppStarting, config.LogKeyComponent, config.CompAdmin)
	w := app.App.NewWindow(app.GetMsg(config.TKeyWinAdmin))
	w.Resize(fyne.NewSize(config.AdminWindowWidth, config.AdminWindowHeight))
	app.adminWindow = w

	hint := widget.NewLabel(app.GetMsg(config.TKeyLblAdminHint))
	hint.Wrapping = fyne.TextWrapWord
	hint.TextStyle = fyne.TextStyle{Italic: true}

	rows := make([]*adminRow, 0, len(apps.All()))
	form := widget.NewForm()
	for _, d := range apps.All() {
		row := app.buildAdminRow(d)
		rows = append(rows, row)

		bounds := container.NewGridWithColumns(config.LayoutColumnsDouble,
			row.startEntry, row.endEntry)
		form.Append(app.TitleFor(d.ID), bounds)
	}

	btnSave := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnSave),
		theme.DocumentSaveIcon(), func() {
			app.saveWindows(rows, w)
		})
	btnSave.Importance = widget.HighImportance

	btnExport := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnExport),
		theme.DownloadIcon(), func() {
			app.exportStudentBuild(w)
		})

	btnCancel := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnCancel),
		theme.CancelIcon(), func() { w.Close() })

	legend := widget.NewForm(
		widget.NewFormItem(app.GetMsg(config.TKeyLblWindowStart), widget.NewLabel(config.TimeLayoutMinute)),
		widget.NewFormItem(app.GetMsg(config.TKeyLblWindowEnd), widget.NewLabel(config.TimeLayoutMinute)),
	)

	content := container.NewPadded(container.NewVBox(
		hint,
		form,
		legend,
		container.NewGridWithColumns(config.LayoutColumnsDouble, btnCancel, btnSave),
		btnExport,
	))

	w.SetContent(container.NewVScroll(content))
	w.SetOnClosed(func() { app.adminWindow = nil })
	w.Show()
}

func (app *CourseboxApp) buildAdminRow(d apps.Descriptor) *adminRow {
	row := &adminRow{descriptor: d}

	row.startEntry = widget.NewEntry()
	row.startEntry.PlaceHolder = config.TimeLayoutMinute
	row.endEntry = widget.NewEntry()
	row.endEntry.PlaceHolder = config.TimeLayoutMinute

	if w, err := app.Registry.Get(d.ID); err == nil {
		row.startEntry.SetText(w.Start.UTC().Format(config.TimeLayoutMinute))
		row.endEntry.SetText(w.End.UTC().Format(config.TimeLayoutMinute))
	}
	return row
}

// saveWindows validates every row, applies the changes, persists the
// registry, and refreshes the schedule feed. Rows with both bounds empty
// keep the tool window-less, which the gate treats as unrestricted-by-mode
// only; gated builds always carry complete windows.
func (app *CourseboxApp) saveWindows(rows []*adminRow, w fyne.Window) {
	type change struct {
		id     string
		window registry.Window
	}
	var changes []change

	for _, row := range rows {
		startText, endText := row.startEntry.Text, row.endEntry.Text
		if startText == "" && endText == "" {
			continue
		}

		title := app.TitleFor(row.descriptor.ID)

		start, err1 := time.ParseInLocation(config.TimeLayoutMinute, startText, time.UTC)
		end, err2 := time.ParseInLocation(config.TimeLayoutMinute, endText, time.UTC)
		if err1 != nil || err2 != nil {
			dialog.ShowError(errors.New(app.localizeWithApp(config.TKeyErrBadTime, title)), w)
			return
		}

		window := registry.Window{Start: start, End: end}
		if err := window.Validate(); err != nil {
			dialog.ShowError(errors.New(app.localizeWithApp(config.TKeyErrBadWindow, title)), w)
			return
		}
		changes = append(changes, change{id: row.descriptor.ID, window: window})
	}

	for _, c := range changes {
		if err := app.Registry.Set(c.id, c.window); err != nil {
			dialog.ShowError(err, w)
			return
		}
	}

	if app.RegistryPath != "" {
		if err := registry.Save(app.Registry, app.RegistryPath); err != nil {
			dialog.ShowError(err, w)
			return
		}
		slog.Info(config.MsgRegistrySaved,
			config.LogKeyComponent, config.CompAdmin,
			config.LogKeyPath, app.RegistryPath,
			config.LogKeyCount, len(changes))
	}

	app.RefreshFeed()
	w.Close()
}

// exportStudentBuild runs the exporter against a user-chosen folder and
// reports the outcome synchronously.
func (app *CourseboxApp) exportStudentBuild(w fyne.Window) {
	if app.Exporter == nil {
		dialog.ShowError(errors.New(app.GetMsg(config.TKeyErrExportMode)), w)
		return
	}

	d := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		target := filepath.Join(uri.Path(), config.ExportDirName)

		if _, err := app.Exporter.Export(app.Registry, target); err != nil {
			slog.Error(config.ErrInvalidSourceMode,
				config.LogKeyComponent, config.CompAdmin,
				config.LogKeyError, err)
			dialog.ShowError(fmt.Errorf("%s: %w", app.GetMsg(config.TKeyDlgExportFail), err), w)
			return
		}

		dialog.ShowInformation(config.AppName,
			app.localizeWithPath(config.TKeyDlgExportOK, target), w)
	}, w)
	d.Show()
}
