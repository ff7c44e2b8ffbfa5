package gui

import (
	"aniso-smooth/internal/logger"
	"aniso-smooth/internal/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

type Manager struct {
	window     fyne.Window
	controller *Controller
	view       *View
	logger     logger.Logger
	isShutdown bool
}

func NewManager(window fyne.Window, log logger.Logger) *Manager {
	manager := &Manager{
		window: window,
		logger: log,
		view:   NewView(window),
	}

	log.Info("GUIManager", "initialized", map[string]interface{}{
		"window_title": window.Title(),
	})

	return manager
}

// SetProcessingCoordinator connects the view to a coordinator; presets may
// be nil.
func (m *Manager) SetProcessingCoordinator(coordinator *pipeline.Coordinator, presets PresetSource) {
	m.controller = NewController(coordinator, coordinator.AlgorithmManager(), presets, m.logger)

	m.view.SetController(m.controller)
	m.controller.SetView(m.view)

	m.logger.Info("GUIManager", "processing coordinator connected", nil)
}

// FileMenuItems returns menu entries for the viewer actions. They are no-ops
// until a coordinator is connected.
func (m *Manager) FileMenuItems() []*fyne.MenuItem {
	action := func(fn func(*Controller)) func() {
		return func() {
			if m.controller != nil {
				fn(m.controller)
			}
		}
	}

	open := fyne.NewMenuItem("Open Image...", action((*Controller).LoadImage))
	open.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault}
	save := fyne.NewMenuItem("Save Smoothed...", action((*Controller).SaveImage))
	save.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}
	smooth := fyne.NewMenuItem("Smooth", action((*Controller).ProcessImage))
	smooth.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyReturn, Modifier: fyne.KeyModifierShortcutDefault}

	return []*fyne.MenuItem{
		open,
		save,
		fyne.NewMenuItemSeparator(),
		smooth,
		fyne.NewMenuItem("Cancel", action((*Controller).CancelProcessing)),
	}
}

func (m *Manager) GetMainContainer() *fyne.Container {
	return m.view.GetMainContainer()
}

func (m *Manager) Show() {
	m.view.Show()
	m.logger.Info("GUIManager", "GUI displayed", nil)
}

func (m *Manager) UpdateStatus(status string) {
	fyne.Do(func() {
		m.view.SetStatus(status)
	})
}

func (m *Manager) ShowError(title string, err error) {
	fyne.Do(func() {
		m.view.ShowError(title, err)
	})
}

func (m *Manager) Shutdown() {
	if m.isShutdown {
		return
	}

	m.isShutdown = true
	m.logger.Info("GUIManager", "shutdown initiated", nil)

	if m.controller != nil {
		m.controller.Shutdown()
	}

	m.logger.Info("GUIManager", "shutdown completed", nil)
}
