package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ayusman/fitlock/internal/hook"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		notifyErr   error
		wantCode    int
		wantSuccess bool
		wantBody    string
	}{
		{
			name:        "goal with apps",
			input:       `{"event":"goal_reached","session_id":"s1","count":20,"goal":20,"unlock_apps":["instagram","tiktok"]}`,
			wantSuccess: true,
			wantBody:    "Unlocked: instagram, tiktok",
		},
		{
			name:        "goal without apps",
			input:       `{"event":"goal_reached","count":5,"goal":5}`,
			wantSuccess: true,
			wantBody:    "Nice work!",
		},
		{name: "invalid json", input: `{`, wantCode: 1},
		{name: "unknown event", input: `{"event":"rep"}`, wantCode: 1},
		{name: "notifier fails", input: `{"event":"goal_reached"}`, notifyErr: errors.New("no display"), wantCode: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody string
			notify := func(_, body string) error {
				gotBody = body
				return tt.notifyErr
			}

			var out bytes.Buffer
			code := run(strings.NewReader(tt.input), &out, notify)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}

			var resp hook.Response
			if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if resp.Success != tt.wantSuccess {
				t.Errorf("success = %v, want %v (error %q)", resp.Success, tt.wantSuccess, resp.Error)
			}
			if tt.wantBody != "" && gotBody != tt.wantBody {
				t.Errorf("body = %q, want %q", gotBody, tt.wantBody)
			}
		})
	}
}
