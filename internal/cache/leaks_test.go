package cache

import (
	"testing"

	"go.uber.org/goleak"
)

// redis clients and miniredis servers must be closed by every test
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreCurrent())
}
