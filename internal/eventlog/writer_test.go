package eventlog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/listingbot/internal/events"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

// MockMirror records mirrored lines
type MockMirror struct {
	mu    sync.Mutex
	Kinds []string
	Lines [][]byte
	Err   error
}

func (m *MockMirror) Mirror(_ context.Context, kind string, line []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Kinds = append(m.Kinds, kind)
	m.Lines = append(m.Lines, line)
	return m.Err
}

func readLines(t *testing.T, data []byte) []string {
	t.Helper()
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestAppend_OneRecordPerEventWithMatchingKind(t *testing.T) {
	contact := &events.Contact{ID: "1", Name: "Alice"}
	inputs := []*events.LogEvent{
		events.NewDebugInfo("note"),
		events.NewChatEvent(contact, json.RawMessage(`{"text":"hi"}`)),
		events.NewFriendRequest(contact, "hello"),
		events.NewBotAddedToGroup(contact, events.GroupEastBay),
	}

	for _, ev := range inputs {
		t.Run(ev.Kind().String(), func(t *testing.T) {
			var buf bytes.Buffer
			w := New(&buf)

			require.NoError(t, w.Append(context.Background(), ev))

			lines := readLines(t, buf.Bytes())
			require.Len(t, lines, 1)

			var got events.LogEvent
			require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
			assert.Equal(t, ev.Kind(), got.Kind())
			assert.Equal(t, ev.ID(), got.ID())
		})
	}
}

func TestAppend_PreservesSubmissionOrder(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	const n = 50
	var ids []string
	for i := 0; i < n; i++ {
		ev := events.NewDebugInfo(strings.Repeat("x", i))
		ids = append(ids, ev.ID().String())
		require.NoError(t, w.Append(context.Background(), ev))
	}

	lines := readLines(t, buf.Bytes())
	require.Len(t, lines, n)
	for i, line := range lines {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		assert.Equal(t, ids[i], m["id"], "line %d", i)
	}
	assert.Equal(t, int64(n), w.Written())
}

func TestAppend_BestEffortSwallowsFailure(t *testing.T) {
	w := New(failingWriter{}, WithPolicy(BestEffort))

	err := w.Append(context.Background(), events.NewDebugInfo("lost"))

	assert.NoError(t, err)
	assert.Equal(t, int64(1), w.Dropped())
	assert.Equal(t, int64(0), w.Written())
}

func TestAppend_FailFastReturnsError(t *testing.T) {
	w := New(failingWriter{}, WithPolicy(FailFast))

	err := w.Append(context.Background(), events.NewDebugInfo("lost"))

	assert.ErrorIs(t, err, ErrWrite)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, int64(1), w.Dropped())
}

func TestAppend_MirrorsLines(t *testing.T) {
	var buf bytes.Buffer
	mirror := &MockMirror{Err: errors.New("nats down")}
	w := New(&buf, WithMirror(mirror))

	err := w.Append(context.Background(), events.NewDebugInfo("mirrored"))

	// mirror failures never reach the caller
	require.NoError(t, err)
	require.Len(t, mirror.Lines, 1)
	assert.Equal(t, "debug_info", mirror.Kinds[0])
	assert.Equal(t, strings.TrimSuffix(buf.String(), "\n"), string(mirror.Lines[0]))
}

func TestAppend_ConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Append(context.Background(), events.NewDebugInfo("concurrent"))
		}()
	}
	wg.Wait()

	lines := readLines(t, buf.Bytes())
	require.Len(t, lines, 20)
	for _, line := range lines {
		assert.True(t, json.Valid([]byte(line)), line)
	}
}

func TestOpen_AppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "log.jsonl")

	for i := 0; i < 2; i++ {
		w, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, w.Append(context.Background(), events.NewDebugInfo("boot")))
		require.NoError(t, w.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readLines(t, data), 2)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("fail_fast")
	require.NoError(t, err)
	assert.Equal(t, FailFast, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, BestEffort, p)

	_, err = ParsePolicy("yolo")
	assert.Error(t, err)
}
