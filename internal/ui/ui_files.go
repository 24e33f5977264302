package ui

import (
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/tartampluch/go-coursebox/internal/apps"
	"github.com/tartampluch/go-coursebox/internal/config"
	"github.com/tartampluch/go-coursebox/internal/launcher"
)

// ShowFilesWindow displays the managed data files of one tool, with import
// and remove actions. One window per tool; reopening focuses the existing
// one.
func (app *CourseboxApp) ShowFilesWindow(d apps.Descriptor) {
	if w, open := app.fileWindows[d.ID]; open {
		w.RequestFocus()
		return
	}

	area, err := launcher.AreaFor(d, app.Supervisor.ResourceDir)
	if err != nil {
		dialog.ShowError(err, app.MainWindow)
		return
	}

	w := app.App.NewWindow(app.GetMsg(config.TKeyWinFiles) + ": " + app.TitleFor(d.ID))
	w.Resize(fyne.NewSize(config.FileWindowWidth, config.FileWindowHeight))
	app.fileWindows[d.ID] = w

	var names []string
	selected := -1

	list := widget.NewList(
		func() int { return len(names) },
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.ListItemID, o fyne.CanvasObject) {
			if id < len(names) {
				o.(*widget.Label).SetText(names[id])
			}
		},
	)
	list.OnSelected = func(id widget.ListItemID) { selected = id }
	list.OnUnselected = func(widget.ListItemID) { selected = -1 }

	reload := func() {
		loaded, err := area.List()
		if err != nil {
			slog.Warn(config.ErrCreateDir,
				config.LogKeyComponent, config.CompUI,
				config.LogKeyError, err)
			return
		}
		names = loaded
		selected = -1
		list.UnselectAll()
		list.Refresh()
	}
	reload()

	btnImport := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnImport),
		theme.ContentAddIcon(), func() {
			fd := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
				if err != nil || r == nil {
					return
				}
				path := r.URI().Path()
				_ = r.Close()
				if err := area.Import(path); err != nil {
					dialog.ShowError(err, w)
					return
				}
				reload()
			}, w)
			fd.Show()
		})

	btnRemove := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnRemove),
		theme.DeleteIcon(), func() {
			if selected < 0 || selected >= len(names) {
				return
			}
			if err := area.Remove(names[selected]); err != nil {
				dialog.ShowError(err, w)
				return
			}
			reload()
		})

	actions := container.NewGridWithColumns(config.LayoutColumnsDouble, btnImport, btnRemove)
	w.SetContent(container.NewBorder(nil, actions, nil, nil, list))

	w.SetOnClosed(func() { delete(app.fileWindows, d.ID) })
	w.Show()
}
