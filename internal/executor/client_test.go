package executor

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/actiongate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeExecutor answers frames with handler until the client closes its side.
type fakeExecutor struct {
	mu       sync.Mutex
	received []map[string]any
}

func (f *fakeExecutor) requests() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.received...)
}

func startFake(t *testing.T, cfg Config, handler func(map[string]any) any) (*Client, *fakeExecutor) {
	t.Helper()

	toExec, execIn := io.Pipe()
	execOut, fromExec := io.Pipe()
	f := &fakeExecutor{}

	go func() {
		codec := NewCodec(toExec, fromExec, 0)
		for {
			var req map[string]any
			if err := codec.Read(&req); err != nil {
				_ = fromExec.Close()
				return
			}
			f.mu.Lock()
			f.received = append(f.received, req)
			f.mu.Unlock()

			reply := handler(req)
			if reply == nil {
				continue
			}
			if err := codec.Write(reply); err != nil {
				return
			}
		}
	}()

	c := NewClient(execOut, execIn, cfg, zap.NewNop())
	t.Cleanup(func() {
		_ = execIn.Close()
		_ = toExec.Close()
	})
	return c, f
}

func echoHandler(req map[string]any) any {
	switch req["action"] {
	case "ping":
		return map[string]any{"success": true, "message": "pong", "version": "1.0.0"}
	case "get_capabilities":
		return map[string]any{"success": true, "capabilities": map[string]bool{
			"screen_capture": true, "ui_automation": true, "input_control": true, "local_llm": false,
		}}
	case "capture_screen":
		return map[string]any{"success": true, "screenshot": "iVBORw0KGgo=", "width": 1920, "height": 1080}
	case "inspect_ui":
		return map[string]any{"success": true, "uiTree": map[string]any{"role": "window", "name": "Editor"}}
	case "execute_action":
		return map[string]any{"success": true}
	case "get_actions":
		return map[string]any{"success": true, "request_id": "req-1"}
	case "poll":
		return map[string]any{"request_id": req["request_id"], "status": "complete", "actions": []any{}}
	case "cancel":
		return map[string]any{"request_id": req["request_id"], "status": "cancelled"}
	case "store_api_key", "delete_api_key":
		return map[string]any{"success": true}
	case "get_provider_status":
		return map[string]any{"openai": map[string]bool{"has_key": true}}
	}
	return map[string]any{"success": false, "error": "Unknown action"}
}

// =============================================================================
// 🧪 Client 测试
// =============================================================================

func TestClient_Operations(t *testing.T) {
	c, f := startFake(t, Config{}, echoHandler)
	ctx := context.Background()

	pong, err := c.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pong", pong.Message)
	assert.Equal(t, "1.0.0", pong.Version)

	caps, err := c.GetCapabilities(ctx)
	require.NoError(t, err)
	assert.True(t, caps.ScreenCapture)
	assert.False(t, caps.LocalLLM)

	shot, err := c.CaptureScreen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1920, shot.Width)
	assert.Equal(t, "iVBORw0KGgo=", shot.Data)

	tree, err := c.InspectUI(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"window","name":"Editor"}`, string(tree))

	id, err := c.SubmitGetActions(ctx, "openai", "open settings")
	require.NoError(t, err)
	assert.Equal(t, "req-1", id)

	st, err := c.Poll(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, st.Status)
	assert.True(t, st.Done())

	st, err = c.Cancel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, st.Status)

	require.NoError(t, c.StoreAPIKey(ctx, "openai", "sk-test"))
	require.NoError(t, c.DeleteAPIKey(ctx, "openai"))

	status, err := c.GetProviderStatus(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(status), "has_key")

	reqs := f.requests()
	require.Len(t, reqs, 10)
	assert.Equal(t, "get_actions", reqs[4]["action"])
	assert.Equal(t, "open settings", reqs[4]["user_request"])
	assert.Equal(t, "store_api_key", reqs[7]["action"])
	assert.Equal(t, "sk-test", reqs[7]["api_key"])
	assert.Equal(t, "delete_api_key", reqs[8]["action"])
	assert.NotContains(t, reqs[8], "api_key")
}

func TestClient_ExecuteActionSendsRecord(t *testing.T) {
	c, f := startFake(t, Config{ActionsPerSecond: 1000}, echoHandler)

	_, err := c.ExecuteAction(context.Background(), types.ActionRecord{
		Action:     types.ActionClick,
		Params:     map[string]any{"x": 10, "y": 20},
		Confidence: 0.9,
	})
	require.NoError(t, err)

	reqs := f.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "execute_action", reqs[0]["action"])
	params := reqs[0]["params"].(map[string]any)
	assert.Equal(t, "click", params["action"])
	assert.Equal(t, 0.9, params["confidence"])
}

func TestClient_ExecuteActionIsPaced(t *testing.T) {
	c, _ := startFake(t, Config{ActionsPerSecond: 20}, echoHandler)
	a := types.ActionRecord{Action: types.ActionWait, Params: map[string]any{"ms": 1}}

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.ExecuteAction(context.Background(), a)
		require.NoError(t, err)
	}
	// burst 1 at 20/s: the 2nd and 3rd actions wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestClient_FailureEnvelope(t *testing.T) {
	c, _ := startFake(t, Config{}, echoHandler)

	err := c.Call(context.Background(), map[string]any{"action": "reboot"}, nil)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrExecutor))
	assert.Contains(t, err.Error(), "Unknown action")

	// 业务失败不影响连接
	_, err = c.Ping(context.Background())
	assert.NoError(t, err)
}

func TestClient_TimeoutBreaksConnection(t *testing.T) {
	c, _ := startFake(t, Config{CallTimeout: 50 * time.Millisecond}, func(map[string]any) any { return nil })

	_, err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrExecutor))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = c.Ping(context.Background())
	assert.ErrorContains(t, err, "executor unavailable")
}

func TestClient_ClosedPeer(t *testing.T) {
	r, w := io.Pipe()
	_ = r.Close()
	c := NewClient(r, w, Config{}, nil)

	_, err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrExecutor))
}

func TestStart_RequiresPath(t *testing.T) {
	_, err := Start(Config{}, nil)
	assert.True(t, types.IsErrorCode(err, types.ErrConfig))
}

func TestRequestStatus_Done(t *testing.T) {
	for status, done := range map[string]bool{
		StatusQueued: false, StatusProcessing: false,
		StatusComplete: true, StatusError: true, StatusCancelled: true, StatusNotFound: true,
	} {
		s := RequestStatus{Status: status}
		assert.Equal(t, done, s.Done(), status)
	}
}

func TestRequestStatus_JSON(t *testing.T) {
	var s RequestStatus
	require.NoError(t, json.Unmarshal([]byte(`{"request_id":"r","status":"error","error":"boom"}`), &s))
	assert.Equal(t, "boom", s.Error)
	assert.True(t, s.Done())
}
