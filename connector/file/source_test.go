package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RuiFG/streaming/streaming-unique/connector"
	"github.com/RuiFG/streaming/streaming-unique/element"
	"github.com/RuiFG/streaming/streaming-unique/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const quotes = `{"symbol":"IBM","price":75.6,"volume":100}

{"symbol":"WSO2","price":57.6,"volume":10}
not json
{"symbol":"IBM","price":76.0,"volume":5}`

func TestSourceReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.json")
	require.NoError(t, os.WriteFile(path, []byte(quotes), 0o644))
	core, logs := observer.New(zapcore.WarnLevel)
	source := NewSource(path, connector.DecodeJSON(element.Schema{"volume": element.Int}), log.NewWithCore(core))

	var symbols []any
	var volumes []any
	require.NoError(t, source.Run(context.Background(), func(event *element.Event[element.Record]) {
		symbols = append(symbols, event.Value["symbol"])
		volumes = append(volumes, event.Value["volume"])
	}))
	assert.Equal(t, []any{"IBM", "WSO2", "IBM"}, symbols)
	assert.Equal(t, []any{100, 10, 5}, volumes)
	require.Equal(t, 1, logs.Len())
	assert.EqualValues(t, 4, logs.All()[0].ContextMap()["line"])
}

func TestSourceMissingFile(t *testing.T) {
	source := NewSource(filepath.Join(t.TempDir(), "missing"), connector.DecodeJSON(nil), log.Nop())
	assert.Error(t, source.Run(context.Background(), func(*element.Event[element.Record]) {}))
}

func TestSourceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := NewSource("", connector.DecodeJSON(nil), log.Nop())
	count := 0
	require.NoError(t, source.read(ctx, strings.NewReader(quotes), func(*element.Event[element.Record]) {
		count++
		cancel()
	}))
	assert.Equal(t, 1, count)
}

func TestSourceFollowsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"symbol":"IBM","price":75.6}`+"\n"), 0o644))
	source := NewSource(path, connector.DecodeJSON(nil), log.Nop()).WithFollow(true)

	var (
		mutex   sync.Mutex
		symbols []any
	)
	seen := func() []any {
		mutex.Lock()
		defer mutex.Unlock()
		return append([]any(nil), symbols...)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- source.Run(ctx, func(event *element.Event[element.Record]) {
			mutex.Lock()
			defer mutex.Unlock()
			symbols = append(symbols, event.Value["symbol"])
		})
	}()
	require.Eventually(t, func() bool { return len(seen()) == 1 }, 5*time.Second, 10*time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{\"symbol\":\"WSO2\",\"price\":57.6}\nnot json\n{\"symbol\":\"ORCL\",\"price\":12.1}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Eventually(t, func() bool { return len(seen()) == 3 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []any{"IBM", "WSO2", "ORCL"}, seen())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("followed source did not stop on cancel")
	}
}

func TestSourceFollowMissingFile(t *testing.T) {
	source := NewSource(filepath.Join(t.TempDir(), "missing"), connector.DecodeJSON(nil), log.Nop()).WithFollow(true)
	assert.Error(t, source.Run(context.Background(), func(*element.Event[element.Record]) {}))
}
