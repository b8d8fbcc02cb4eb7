package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/flowgridgo/internal/asset"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates a new app instance for system testing.
func SetupAppTest(t *testing.T, config *Config, modules ...asset.Module) (*App, *SafeBuffer) {
	t.Helper()

	outBuffer := &SafeBuffer{}
	config.LogLevel = "debug"
	config.LogFormat = "text"
	testApp := NewApp(outBuffer, config, modules...)

	t.Cleanup(func() {
		if os.Getenv("FGGO_TEST_LOGS") == "true" {
			t.Logf("--- Full Output for %s ---\n%s", t.Name(), outBuffer.String())
		}
	})

	return testApp, outBuffer
}
