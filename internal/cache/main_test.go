package cache

import (
	"io"
	"os"
	"testing"

	"github.com/extractio/extractio/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}
