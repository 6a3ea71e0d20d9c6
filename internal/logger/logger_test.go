package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Info.Printf("opened %s", "shop")
	Error.WithField("server", 3).Println("guard failed")

	out := buf.String()
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, `msg="opened shop"`)
	assert.Contains(t, out, "level=error")
	assert.Contains(t, out, "server=3")
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, Init(dir))
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Info.Println("hello file")

	data, err := os.ReadFile(filepath.Join(dir, "dbconsole.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}
