package app

import (
	"os"
	"sync"
)

// testModeEnv is set by the testing package; binaries return before
// opening network connections when it is "1".
const testModeEnv = "BIZPRO_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})

// InTestMode reports whether main should skip startup.
func InTestMode() bool {
	return testMode()
}
