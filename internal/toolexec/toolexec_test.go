package toolexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	calls []CallRequest
}

func (f *fakeExecutor) Call(_ context.Context, req CallRequest) (CallResult, error) {
	f.calls = append(f.calls, req)
	if req.ToolName == "explode" {
		return CallResult{Content: "boom", IsError: true}, nil
	}
	return CallResult{Content: "ok:" + req.ArgumentsJSON}, nil
}

func TestExecutorContractRecordsCallsAndResults(t *testing.T) {
	var e Executor = &fakeExecutor{}
	res, err := e.Call(context.Background(), CallRequest{ToolName: "read_file", ArgumentsJSON: `{"path":"a.txt"}`})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, `ok:{"path":"a.txt"}`, res.Content)
}

func TestExecutorContractSurfacesToolErrors(t *testing.T) {
	var e Executor = &fakeExecutor{}
	res, err := e.Call(context.Background(), CallRequest{ToolName: "explode"})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, "boom", res.Content)
}
