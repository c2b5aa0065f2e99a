// Package ui shows a system tray menu with render progress and a
// pause switch for status polling.
package ui

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/reelforge/reelforge/internal/renders"
)

//go:embed icon.png
var iconBytes []byte

const refreshInterval = 5 * time.Second

type Tray struct {
	runner *renders.Runner
	logger *slog.Logger

	statusItem *systray.MenuItem
	pauseItem  *systray.MenuItem

	mu     sync.Mutex
	active int

	onQuit func()
	stop   chan struct{}
}

type TrayConfig struct {
	Runner *renders.Runner
	Logger *slog.Logger
	OnQuit func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		runner: cfg.Runner,
		logger: cfg.Logger,
		onQuit: cfg.OnQuit,
		stop:   make(chan struct{}),
	}
}

// Run blocks on the platform event loop until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Reelforge")
	systray.SetTooltip("Reelforge render service")

	t.statusItem = systray.AddMenuItem(statusTitle(0, false), "Renders in progress")
	t.statusItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause polling", "Stop checking render progress")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Reelforge")

	go t.refreshLoop()

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				t.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		t.refresh()
		select {
		case <-t.stop:
			return
		case <-ticker.C:
		}
	}
}

func (t *Tray) refresh() {
	if t.runner == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	t.UpdateActive(t.runner.ActiveCount(ctx))
}

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner == nil {
		return
	}

	if t.runner.IsPaused() {
		t.runner.Resume()
		t.pauseItem.SetTitle("Pause polling")
	} else {
		t.runner.Pause()
		t.pauseItem.SetTitle("Resume polling")
	}
	t.statusItem.SetTitle(statusTitle(t.active, t.runner.IsPaused()))
}

// UpdateActive sets the number of renders shown as in progress.
func (t *Tray) UpdateActive(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = n
	paused := t.runner != nil && t.runner.IsPaused()
	if t.statusItem != nil {
		t.statusItem.SetTitle(statusTitle(n, paused))
	}
}

func statusTitle(active int, paused bool) string {
	switch {
	case paused:
		return fmt.Sprintf("Paused (%d active)", active)
	case active == 0:
		return "Idle"
	case active == 1:
		return "Rendering 1 video"
	default:
		return fmt.Sprintf("Rendering %d videos", active)
	}
}

func (t *Tray) Quit() {
	t.mu.Lock()
	select {
	case <-t.stop:
	default:
		close(t.stop)
	}
	t.mu.Unlock()
	systray.Quit()
}
