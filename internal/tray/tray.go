// Package tray provides a system tray menu showing the default session's
// rep count while the server runs.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/fitlock/internal/counter"
)

// Tray represents the system tray application.
type Tray struct {
	onReset func()
	onQuit  func()
	state   counter.State
	mu      sync.RWMutex

	// Menu items stored for later updates
	menuCount    *systray.MenuItem
	menuFeedback *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnReset sets the callback function to be called when "Reset counter" is clicked.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called and must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle(Title(counter.State{}))
	systray.SetTooltip("FitLock push-up counter")

	t.mu.Lock()
	t.menuCount = systray.AddMenuItem(CountLabel(t.state), "Push-ups in the default session")
	t.menuCount.Disable()
	t.menuFeedback = systray.AddMenuItem(FeedbackLabel(t.state), "Latest form feedback")
	t.menuFeedback.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuReset := systray.AddMenuItem("Reset counter", "Reset the default session to zero")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit FitLock")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuReset.ClickedCh:
				t.handleReset()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleReset() {
	t.mu.RLock()
	callback := t.onReset
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetState updates the title and menu with the latest counter state.
func (t *Tray) SetState(st counter.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st == t.state {
		return
	}
	t.state = st

	if t.menuCount == nil {
		return
	}
	systray.SetTitle(Title(st))
	t.menuCount.SetTitle(CountLabel(st))
	t.menuFeedback.SetTitle(FeedbackLabel(st))
}

// Title is the text shown next to the tray icon.
func Title(st counter.State) string {
	return fmt.Sprintf("FitLock %d", st.Count)
}

// CountLabel describes the count and stage.
func CountLabel(st counter.State) string {
	if st.Stage == counter.StageNone {
		return fmt.Sprintf("Count: %d", st.Count)
	}
	return fmt.Sprintf("Count: %d (%s)", st.Count, st.Stage)
}

// FeedbackLabel shows the latest feedback.
func FeedbackLabel(st counter.State) string {
	if st.Feedback == "" {
		return "Get into plank position"
	}
	return st.Feedback
}
