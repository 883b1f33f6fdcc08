package hermes

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/nats-io/nats.go"
)

func TestDispatch_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	c := &Client{logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	c.dispatch(func(string, []byte) { panic("boom") }, &nats.Msg{Subject: SubjectSessionTranscribed, Data: []byte("{}")})

	out := buf.String()
	if !strings.Contains(out, "handler panicked") || !strings.Contains(out, "boom") {
		t.Errorf("expected panic to be logged, got %s", out)
	}
}

func TestDispatch_PassesMessage(t *testing.T) {
	c := &Client{logger: slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))}

	var gotSubject, gotData string
	c.dispatch(func(subject string, data []byte) {
		gotSubject, gotData = subject, string(data)
	}, &nats.Msg{Subject: "a.b", Data: []byte("payload")})

	if gotSubject != "a.b" || gotData != "payload" {
		t.Errorf("handler got %q %q", gotSubject, gotData)
	}
}
