// Command fitlock-notify is a goal hook that shows a desktop notification
// when a workout goal is reached. Point hooks.goal_command at it.
//
// It reads a hook event as JSON from stdin and writes a hook response to
// stdout. Notifications use osascript on macOS and notify-send elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ayusman/fitlock/internal/hook"
)

// notifier shows a notification with the given title and body.
type notifier func(title, body string) error

func main() {
	notify := notifySend
	if runtime.GOOS == "darwin" {
		notify = appleNotification
	}
	os.Exit(run(os.Stdin, os.Stdout, notify))
}

func run(in io.Reader, out io.Writer, notify notifier) int {
	var ev hook.Event
	if err := json.NewDecoder(in).Decode(&ev); err != nil {
		writeResponse(out, hook.Response{Error: fmt.Sprintf("failed to decode event: %v", err)})
		return 1
	}
	if ev.Event != hook.EventGoalReached {
		writeResponse(out, hook.Response{Error: fmt.Sprintf("unknown event: %s", ev.Event)})
		return 1
	}

	title, body := message(ev)
	if err := notify(title, body); err != nil {
		writeResponse(out, hook.Response{Error: fmt.Sprintf("notify failed: %v", err)})
		return 1
	}

	data, _ := json.Marshal(map[string]string{"title": title, "body": body})
	writeResponse(out, hook.Response{Success: true, Data: data})
	return 0
}

func message(ev hook.Event) (title, body string) {
	title = fmt.Sprintf("Goal reached: %d push-ups", ev.Count)
	if len(ev.UnlockApps) == 0 {
		return title, "Nice work!"
	}
	return title, "Unlocked: " + strings.Join(ev.UnlockApps, ", ")
}

func writeResponse(w io.Writer, resp hook.Response) {
	_ = json.NewEncoder(w).Encode(resp)
}

// appleNotification displays a notification via AppleScript.
func appleNotification(title, body string) error {
	script := fmt.Sprintf("display notification %q with title %q", body, title)
	return runCommand("osascript", "-e", script)
}

// notifySend displays a notification via libnotify.
func notifySend(title, body string) error {
	return runCommand("notify-send", "--app-name=FitLock", title, body)
}

func runCommand(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
