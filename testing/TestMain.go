// Package testing flips the shelfwatch test-mode flag for packages that import it.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("SHELFWATCH_TEST_MODE", "1")
		if os.Getenv("PUSHGATEWAY_URL") != "" {
			_ = os.Unsetenv("PUSHGATEWAY_URL")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
