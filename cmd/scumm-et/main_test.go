package main

import (
	"os/exec"
	"strings"
	"testing"
)

// TestCLIHelp はヘルプ表示を確認する
func TestCLIHelp(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	for _, args := range [][]string{{"--help"}, {"-h"}} {
		t.Run(args[0], func(t *testing.T) {
			cmd := exec.Command("go", append([]string{"run", "."}, args...)...)
			output, err := cmd.CombinedOutput()
			if err != nil {
				t.Fatalf("exit: %v\n%s", err, output)
			}
			out := string(output)
			for _, want := range []string{"scumm-et - adventure script interpreter", "Usage:", "--headless"} {
				if !strings.Contains(out, want) {
					t.Errorf("help output lacks %q", want)
				}
			}
		})
	}
}

// TestCLIInvalidArgs は不正な引数で終了コード 1 になることを確認する
func TestCLIInvalidArgs(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	cmd := exec.Command("go", "run", ".", "--log-level", "loud")
	output, err := cmd.CombinedOutput()
	exitErr, ok := err.(*exec.ExitError)
	if !ok || exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %v\n%s", err, output)
	}
	if !strings.Contains(string(output), "Error:") {
		t.Errorf("output = %s", output)
	}
}
