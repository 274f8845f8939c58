package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("LEDGERLENS_TEST_MODE", "1")
		if os.Getenv("PROVIDER_BASE_URL") == "" {
			_ = os.Setenv("PROVIDER_BASE_URL", "http://127.0.0.1:0")
		}
		if os.Getenv("PROVIDER_TOKEN") == "" {
			_ = os.Setenv("PROVIDER_TOKEN", "test-token")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
