package dispatch

import "testing"

func TestClassifyGenerateCapturesAppName(t *testing.T) {
	cases := []struct {
		command string
		want    string
	}{
		{"create me a todo app", "todo"},
		{"Generate me an expense tracker app", "expense tracker"},
		{"BUILD ME A weather-dashboard APP", "weather-dashboard"},
		{"please create notes app for me", "notes"},
		{"build me an  awesome blog  app now", "awesome blog"},
		{"create me a chat app manager app", "chat app manager"},
	}
	for _, tc := range cases {
		got := Classify(tc.command)
		if got.Action != ActionGenerate {
			t.Fatalf("Classify(%q).Action = %s, want generate", tc.command, got.Action)
		}
		if got.AppName != tc.want {
			t.Fatalf("Classify(%q).AppName = %q, want %q", tc.command, got.AppName, tc.want)
		}
	}
}

func TestClassifyGenerateWinsOverPushAndDeploy(t *testing.T) {
	got := Classify("generate me a github dashboard app and deploy it")
	if got.Action != ActionGenerate {
		t.Fatalf("Action = %s, want generate to win over push/deploy tokens", got.Action)
	}
}

func TestClassifyPushTokens(t *testing.T) {
	for _, cmd := range []string{"push it", "PUSH", "send this to github please", "GitHub it"} {
		if got := Classify(cmd); got.Action != ActionPush {
			t.Fatalf("Classify(%q).Action = %s, want push", cmd, got.Action)
		}
	}
	// Standalone token only: substrings must not match.
	if got := Classify("pushing my luck"); got.Action == ActionPush {
		t.Fatalf("Classify matched push inside %q", "pushing my luck")
	}
}

func TestClassifyDeployToken(t *testing.T) {
	if got := Classify("deploy now"); got.Action != ActionDeploy {
		t.Fatalf("Action = %s, want deploy", got.Action)
	}
	if got := Classify("redeployment"); got.Action == ActionDeploy {
		t.Fatalf("Classify matched deploy inside %q", "redeployment")
	}
}

func TestClassifyUnknown(t *testing.T) {
	for _, cmd := range []string{"hello there", "what can you do?", ""} {
		if got := Classify(cmd); got.Action != ActionUnknown {
			t.Fatalf("Classify(%q).Action = %s, want unknown", cmd, got.Action)
		}
	}
}
