package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"aniso-smooth/internal/config"
	"aniso-smooth/internal/gui"
	"aniso-smooth/internal/gui/widgets"
	"aniso-smooth/internal/logger"
	"aniso-smooth/internal/opencv/memory"
	"aniso-smooth/internal/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

const (
	AppName    = "Aniso Smooth"
	AppID      = "com.imageprocessing.aniso-smooth"
	AppVersion = "1.0.0"
)

type shutdownHandler interface {
	Shutdown()
}

type Application struct {
	fyneApp       fyne.App
	window        fyne.Window
	guiManager    *gui.Manager
	coordinator   *pipeline.Coordinator
	memoryManager *memory.Manager
	config        *config.Config
	logger        logger.Logger
	shutdownables []shutdownHandler
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	shutdown      chan struct{}
	menuSetup     bool
}

// NewApplication builds the viewer from the config file at configPath; an
// empty path uses the built-in defaults.
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewConsoleLogger(cfg.Level())

	app.SetMetadata(fyne.AppMetadata{
		ID:      AppID,
		Name:    AppName,
		Version: AppVersion,
		Build:   1,
	})

	fyneApp := app.NewWithID(AppID)
	fyneApp.Settings().SetTheme(gui.NewTheme())
	window := fyneApp.NewWindow(AppName)

	windowSize := calculateMinimumWindowSize()
	window.Resize(windowSize)
	window.SetFixedSize(false)
	window.SetPadded(false)
	window.CenterOnScreen()
	window.SetMaster()

	ctx, cancel := context.WithCancel(context.Background())

	log.Info("Application", "starting application", map[string]interface{}{
		"version":         AppVersion,
		"window_width":    windowSize.Width,
		"window_height":   windowSize.Height,
		"log_level":       cfg.Level().String(),
		"workers":         cfg.Workers,
		"memory_limit_mb": cfg.MemoryLimitMB,
		"config":          configPath,
	})

	memoryManager := memory.NewManager(log, cfg.MemoryLimitBytes())
	coordinator := pipeline.NewCoordinator(memoryManager, log, cfg.Workers)

	if err := coordinator.AlgorithmManager().SetCurrentAlgorithm(cfg.DefaultAlgorithm); err != nil {
		cancel()
		coordinator.Shutdown()
		memoryManager.Shutdown()
		return nil, fmt.Errorf("failed to select default algorithm: %w", err)
	}

	guiManager := gui.NewManager(window, log)
	guiManager.SetProcessingCoordinator(coordinator, cfg)

	application := &Application{
		fyneApp:       fyneApp,
		window:        window,
		guiManager:    guiManager,
		coordinator:   coordinator,
		memoryManager: memoryManager,
		config:        cfg,
		logger:        log,
		ctx:           ctx,
		cancel:        cancel,
		shutdown:      make(chan struct{}),
		shutdownables: []shutdownHandler{
			memoryManager,
			coordinator,
			guiManager,
		},
	}

	application.setupSignalHandling()
	log.Info("Application", "initialization complete", nil)
	return application, nil
}

func (a *Application) setupMenu() {
	if a.menuSetup {
		return
	}
	a.menuSetup = true

	aboutAction := func() {
		fyne.Do(func() {
			a.showAbout()
		})
	}

	fileMenu := fyne.NewMenu("File", a.guiManager.FileMenuItems()...)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", aboutAction),
	)

	a.window.SetMainMenu(fyne.NewMainMenu(fileMenu, helpMenu))

	a.logger.Debug("Application", "menu setup completed", map[string]interface{}{
		"menus": []string{"File", "Help"},
	})
}

func (a *Application) showAbout() {
	metadata := a.fyneApp.Metadata()

	name := metadata.Name
	if name == "" {
		name = AppName
	}

	version := metadata.Version
	if version == "" {
		version = AppVersion
	}

	stats := a.memoryManager.GetStats()

	aboutContent := container.NewVBox(
		widget.NewLabel(name),
		widget.NewLabel(fmt.Sprintf("Version: %s", version)),
		widget.NewLabel("Structure tensor anisotropic diffusion"),
		widget.NewLabel(""),
		widget.NewLabel("Runtime Info:"),
		widget.NewLabel(fmt.Sprintf("Go: %s", runtime.Version())),
		widget.NewLabel(fmt.Sprintf("Platform: %s/%s", runtime.GOOS, runtime.GOARCH)),
		widget.NewLabel(fmt.Sprintf("Workers: %d (0 = all cores)", a.config.Workers)),
		widget.NewLabel(fmt.Sprintf("Memory: %d of %d MB in use", stats.UsedBytes>>20, stats.LimitBytes>>20)),
	)

	dialog.ShowCustom("About", "Close", aboutContent, a.window)
}

func calculateMinimumWindowSize() fyne.Size {
	imageDisplayWidth := widgets.ImageAreaWidth * 2
	toolbarHeight := float32(70)
	parametersHeight := float32(150)

	return fyne.Size{
		Width:  float32(imageDisplayWidth + 100),
		Height: float32(widgets.ImageAreaHeight) + toolbarHeight + parametersHeight + 100,
	}
}

func (a *Application) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			a.logger.Info("Application", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			a.initiateShutdown()
		case <-a.ctx.Done():
			return
		}
	}()
}

func (a *Application) Run() error {
	a.setupMenu()

	a.window.SetCloseIntercept(func() {
		a.logger.Info("Application", "shutdown requested via window close", nil)
		a.initiateShutdown()
		a.window.Close()
	})

	fyne.Do(func() {
		a.guiManager.Show()
	})

	go func() {
		<-a.shutdown
		fyne.Do(func() {
			a.fyneApp.Quit()
		})
	}()

	a.fyneApp.Run()
	a.wg.Wait()
	return nil
}

func (a *Application) initiateShutdown() {
	select {
	case <-a.shutdown:
		return
	default:
		close(a.shutdown)
	}

	a.logger.Info("Application", "shutdown sequence initiated", map[string]interface{}{
		"components": len(a.shutdownables),
	})

	a.cancel()

	for i := len(a.shutdownables) - 1; i >= 0; i-- {
		component := a.shutdownables[i]

		done := make(chan struct{})
		go func() {
			defer close(done)
			component.Shutdown()
		}()

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			a.logger.Warning("Application", "component shutdown timeout", map[string]interface{}{
				"component_index": i,
			})
		}
	}

	a.logger.Info("Application", "shutdown sequence completed", nil)
}

func (a *Application) Shutdown(ctx context.Context) error {
	a.initiateShutdown()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
