package gen

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/WhisperCapital/go-yd/internal/common"
)

const linkStub = "../../testdata/link"

// cxxCompiler returns the first C++ compiler found on PATH, honoring $CXX.
func cxxCompiler() (string, bool) {
	candidates := []string{"c++", "g++", "clang++"}
	if env := strings.Fields(os.Getenv("CXX")); len(env) > 0 {
		candidates = append([]string{env[0]}, candidates...)
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, true
		}
	}
	return "", false
}

func copyInto(t *testing.T, dst string, src ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dst, 0o755))
	for _, s := range src {
		data, err := os.ReadFile(s)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dst, filepath.Base(s)), data, 0o644))
	}
}

// TestGeneratedBindingsLink compiles the fixture's bindings against an
// in-process stub of the library and runs a round trip through every call
// flavor and the callback stream.
func TestGeneratedBindingsLink(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a cgo package")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go tool not on PATH")
	}
	if _, ok := cxxCompiler(); !ok {
		t.Skip("no C++ compiler available")
	}
	if out, err := exec.Command(goBin, "env", "CGO_ENABLED").Output(); err != nil || strings.TrimSpace(string(out)) != "1" {
		t.Skip("cgo is disabled")
	}

	files, err := NewGenerator(testConfig(func(c *common.Config) {
		c.Cgo = common.CgoConfig{
			CPPFlags: "-I${SRCDIR}",
			CXXFlags: "-std=c++11",
			LDFlags:  "-lstdc++",
		}
	}), loadFixture(t)).Generate()
	require.NoError(t, err)

	root := t.TempDir()
	mod := []string{"../../go.mod"}
	if _, err := os.Stat("../../go.sum"); err == nil {
		mod = append(mod, "../../go.sum")
	}
	copyInto(t, root, mod...)

	bridgeSrc, err := filepath.Glob("../../bridge/*.go")
	require.NoError(t, err)
	var runtime []string
	for _, f := range bridgeSrc {
		if !strings.HasSuffix(f, "_test.go") {
			runtime = append(runtime, f)
		}
	}
	copyInto(t, filepath.Join(root, "bridge"), runtime...)

	pkg := filepath.Join(root, "yd")
	require.NoError(t, common.WriteFiles(pkg, files))
	copyInto(t, pkg,
		filepath.Join(linkStub, "ydApi.h"),
		filepath.Join(linkStub, "ydapi_stub.cpp"),
		filepath.Join(linkStub, "roundtrip_test.go"),
	)

	cmd := exec.Command(goBin, "test", "-count=1", "./yd")
	cmd.Dir = root
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		"GOWORK=off",
		"GOFLAGS=-mod=mod",
		"GOSUMDB=off",
		"GOTOOLCHAIN=local",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "go test on generated bindings:\n%s", out)
}
