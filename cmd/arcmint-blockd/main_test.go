package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunRequiresDir(t *testing.T) {
	var errOut bytes.Buffer
	if code := run([]string{"--listen", "127.0.0.1:0"}, &errOut); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(errOut.String(), "--dir is required") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	var errOut bytes.Buffer
	if code := run([]string{"--bogus"}, &errOut); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}
