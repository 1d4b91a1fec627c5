package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, false, false)
	log.Info("hello")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected a json line, got %q: %v", buf.String(), err)
	}

	if record["message"] != "hello" {
		t.Fatalf("expected message hello, got %v", record["message"])
	}

	if record["level"] != "info" {
		t.Fatalf("expected level info, got %v", record["level"])
	}
}

func TestDebugSuppressedUnlessEnabled(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, false, false)
	log.Debug("should not appear")

	if buf.Len() != 0 {
		t.Fatalf("expected no output at info level, got %q", buf.String())
	}

	buf.Reset()

	log = New(&buf, true, false)
	log.Debug("should appear")

	if buf.Len() == 0 {
		t.Fatal("expected debug output once enabled")
	}
}

func TestNamedAndBindAddFields(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, false, false).Named("dispatcher").BindStr("addr", "127.0.0.1:0").BindInt("n", 3)
	log.Info("serving")

	out := buf.String()
	for _, want := range []string{`"component":"dispatcher"`, `"addr":"127.0.0.1:0"`, `"n":3`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %s, got %s", want, out)
		}
	}
}

func TestWarningErrorIncludesError(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, false, false)
	log.WarningError("listener stopped", errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, `"error":"boom"`) {
		t.Fatalf("expected error field in output, got %s", out)
	}
}

func TestExtraWritersReceivePlainJSON(t *testing.T) {
	var pretty, extra bytes.Buffer

	log := New(&pretty, false, true, &extra)
	log.Info("fanned out")

	var record map[string]interface{}
	if err := json.Unmarshal(extra.Bytes(), &record); err != nil {
		t.Fatalf("expected extra writer to receive plain json, got %q: %v", extra.String(), err)
	}

	if pretty.Len() == 0 {
		t.Fatal("expected primary writer to receive console-formatted output")
	}
}
