package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetOutput_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")
	defer SetOutput(&bytes.Buffer{}, "disabled")

	Token.Info().Str("mint", "abc").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"component":"token"`) {
		t.Fatalf("missing component field: %s", out)
	}
	if !strings.Contains(out, `"mint":"abc"`) {
		t.Fatalf("missing mint field: %s", out)
	}
}

func TestParseLevel_DefaultsToInfo(t *testing.T) {
	if got := parseLevel("nonsense").String(); got != "info" {
		t.Fatalf("unexpected level: %s", got)
	}
}
