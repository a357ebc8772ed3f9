package main

import (
	"os"
	"os/exec"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain lets testscript re-exec this test binary as the latc command
// itself, per the standard github.com/rogpeppe/go-internal/testscript
// pattern — each .txtar script's `exec latc ...` line runs run() in a
// genuine child process, so main.go's os.Exit calls behave exactly as in
// a real install.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"latc": run,
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Condition: func(cond string) (bool, error) {
			if cond == "llvm" {
				return toolsOnPath(), nil
			}
			return false, nil
		},
	})
}

// toolsOnPath reports whether llvm-as and llvm-link are installed, so
// the one end-to-end script that exercises bitcode assembly (the actual
// external collaborator spec.md §1 scopes out of this compiler) only
// runs where they're actually available.
func toolsOnPath() bool {
	_, errAs := exec.LookPath("llvm-as")
	_, errLink := exec.LookPath("llvm-link")
	return errAs == nil && errLink == nil
}
