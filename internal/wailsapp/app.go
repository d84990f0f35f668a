// Package wailsapp provides the Wails-based GUI for Chottu Desktop.
package wailsapp

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"

	"github.com/chottu/chottu-desktop/internal/config"
	"github.com/chottu/chottu-desktop/internal/constants"
	"github.com/chottu/chottu-desktop/internal/core"
	"github.com/chottu/chottu-desktop/internal/logging"
	"github.com/chottu/chottu-desktop/internal/notify"
	"github.com/chottu/chottu-desktop/internal/version"
)

// Assets holds the embedded frontend files, passed in from main package.
var Assets embed.FS

// wailsLogger is the package-level logger for Wails mode
var wailsLogger = logging.NewNop()

// App is the main Wails application struct.
// All public methods are exposed to the frontend as callable functions.
type App struct {
	ctx    context.Context
	engine *core.Engine
	window window

	// Event bridge for forwarding EventBus events to frontend
	eventBridge *EventBridge

	// quitting is set by Quit so beforeClose lets the window close for real.
	quitting atomic.Bool

	// Desktop notifications are only sent while the window is hidden.
	notifier desktopNotifier
	hidden   atomic.Bool

	pairMu     sync.Mutex
	pairCancel context.CancelFunc
}

// desktopNotifier is the subset of notify.Notifier the app uses.
type desktopNotifier interface {
	Paired(deviceName string)
	PairingFailed(reason string)
	TokenRejected()
	SetEnabled(enabled bool)
}

// NewApp creates a new Wails application instance.
func NewApp(engine *core.Engine) *App {
	var settings map[string]string
	if engine != nil {
		settings, _ = engine.ListSettings()
	}
	return &App{
		engine:   engine,
		ctx:      context.Background(),
		notifier: notify.NewNotifier(settings, wailsLogger.Child("notify")),
	}
}

// startup is called when the app starts. The context is saved
// so we can call the Wails runtime methods.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.window = runtimeWindow{ctx: ctx}

	if a.engine != nil {
		a.eventBridge = NewEventBridge(ctx, a.engine.Events())
		if err := a.eventBridge.Start(); err != nil {
			wailsLogger.Error().Err(err).Msg("Failed to start event bridge")
		}
	}

	wailsLogger.Info().Msg("Wails application started")
}

// domReady is called after the frontend DOM is ready.
func (a *App) domReady(ctx context.Context) {
	wailsLogger.Debug().Msg("Frontend DOM ready")
}

// beforeClose is called when the window close is requested.
// Closing hides the window; only Quit ends the process.
func (a *App) beforeClose(ctx context.Context) bool {
	if a.quitting.Load() {
		return false
	}
	a.HideWindow()
	return true
}

// shutdown is called at application termination.
func (a *App) shutdown(ctx context.Context) {
	wailsLogger.Info().Msg("Wails application shutting down")

	a.CancelPairing()
	if a.eventBridge != nil {
		a.eventBridge.Stop()
	}
	if a.engine != nil {
		a.engine.Events().Close()
	}
}

// Run launches the Wails GUI application.
func Run(args []string) error {
	logger, err := logging.NewFileLogger(config.LogDirectory(), constants.LogFileName)
	if err != nil {
		logger.Warn().Err(err).Msg("File logging disabled")
	}
	defer logger.Close()
	wailsLogger = logger.Child("wails")

	// Check for display on Linux
	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return fmt.Errorf("GUI mode requires a display. No display detected.\n" +
				"DISPLAY and WAYLAND_DISPLAY are not set.\n" +
				"Use '" + constants.BinaryName + " --cli' for CLI mode")
		}
	}

	if !EnsureSingleInstance() {
		wailsLogger.Info().Msg("Another instance is running; activated it instead")
		return nil
	}

	settings := config.NewDefaultSettingsStore()
	cfg, err := config.Load(settings)
	if err != nil {
		wailsLogger.Warn().Err(err).Str("path", settings.Path()).Msg("Failed to load settings, using defaults")
		cfg = config.NewConfig()
		if envErr := cfg.ApplyEnvironment(); envErr != nil {
			return envErr
		}
	}

	if cfg.Debug {
		logging.SetGlobalLevel(zerolog.DebugLevel)
		wailsLogger.Info().Msg("Debug logging enabled via CHOTTU_DEBUG")
	}

	engine, err := core.NewEngine(cfg, core.Options{
		Settings: settings,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	app := NewApp(engine)

	err = wails.Run(&options.App{
		Title:     constants.AppName,
		Width:     480,
		Height:    640,
		MinWidth:  380,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Assets: Assets,
		},
		BackgroundColour: &options.RGBA{R: 248, G: 250, B: 252, A: 1},
		OnStartup:        app.startup,
		OnDomReady:       app.domReady,
		OnBeforeClose:    app.beforeClose,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   constants.AppName,
				Message: fmt.Sprintf("Version %s", version.Version),
			},
		},
		Windows: &windows.Options{
			WebviewBrowserPath: getWebView2BrowserPath(),
		},
		Linux: &linux.Options{
			ProgramName: constants.BinaryName,
		},
	})
	if err != nil {
		return fmt.Errorf("wails application error: %w", err)
	}

	return nil
}

// getWebView2BrowserPath returns the path to a WebView2 Fixed Version Runtime
// shipped next to the executable, or "" to use the system runtime.
func getWebView2BrowserPath() string {
	if runtime.GOOS != "windows" {
		return ""
	}

	exePath, err := os.Executable()
	if err != nil {
		return ""
	}

	webview2Dir := filepath.Join(filepath.Dir(exePath), "webview2")
	if _, err := os.Stat(filepath.Join(webview2Dir, "msedgewebview2.exe")); err == nil {
		return webview2Dir
	}
	return ""
}
