package main

import (
	"bytes"
	"testing"

	"github.com/gonzalop/ftransfer/internal/config"
)

func TestUsageWithoutHost(t *testing.T) {
	for _, args := range [][]string{{}, {"a", "b"}} {
		cfg, err := config.Load()
		if err != nil {
			t.Fatal(err)
		}
		cmd := newRootCmd(cfg)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(args)

		if err := cmd.Execute(); err != nil {
			t.Fatalf("Execute(%v) = %v, want nil", args, err)
		}
		if want := "Usage:\n\tftclient <server hostname>\n"; out.String() != want {
			t.Errorf("Execute(%v) printed %q, want %q", args, out.String(), want)
		}
	}
}
