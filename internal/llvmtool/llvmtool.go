// Package llvmtool wraps the external llvm-as/llvm-link invocations
// SPEC_FULL.md §4.9 calls for: textual IR to bitcode, then linked
// against the bundled C runtime's bitcode, in a scoped temp directory
// that is always cleaned up on the way out.
package llvmtool

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// RuntimeBitcodePath is the bundled C runtime's pre-compiled bitcode,
// linked against every program (spec.md §6's runtime ABI symbols are
// all defined there).
var RuntimeBitcodePath = "runtime/latte_runtime.bc"

// Assemble runs llvm-as over irText and returns the resulting bitcode
// bytes. It allocates its own UUID-named scratch directory under the
// system temp root and removes it on every return path, matching
// spec.md §5's scoped-resource-guard requirement.
func Assemble(irText string) ([]byte, error) {
	dir, err := scratchDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	llPath := filepath.Join(dir, "module.ll")
	bcPath := filepath.Join(dir, "module.bc")
	if err := os.WriteFile(llPath, []byte(irText), 0o644); err != nil {
		return nil, errors.Wrapf(err, "writing %s", llPath)
	}

	cmd := exec.Command("llvm-as", "-o", bcPath, llPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, errors.Wrapf(err, "llvm-as failed: %s", string(out))
	}

	bc, err := os.ReadFile(bcPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading assembled bitcode %s", bcPath)
	}
	return bc, nil
}

// Link runs llvm-link over programBC and the bundled runtime bitcode,
// returning the final linked bitcode.
func Link(programBC []byte) ([]byte, error) {
	dir, err := scratchDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	progPath := filepath.Join(dir, "program.bc")
	outPath := filepath.Join(dir, "linked.bc")
	if err := os.WriteFile(progPath, programBC, 0o644); err != nil {
		return nil, errors.Wrapf(err, "writing %s", progPath)
	}

	cmd := exec.Command("llvm-link", "-o", outPath, progPath, RuntimeBitcodePath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, errors.Wrapf(err, "llvm-link failed: %s", string(out))
	}

	linked, err := os.ReadFile(outPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading linked bitcode %s", outPath)
	}
	return linked, nil
}

func scratchDir() (string, error) {
	dir := filepath.Join(os.TempDir(), "latc-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating scratch directory %s", dir)
	}
	return dir, nil
}
