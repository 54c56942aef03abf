package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packmgr-deploy/internal/types"
)

func interpret(t *testing.T, body string) *ResponseInterpreter {
	t.Helper()
	interpreter := NewResponseInterpreter("localhost:4502")
	require.NoError(t, interpreter.Consume(context.Background(), strings.NewReader(body)))
	return interpreter
}

func TestResponseInterpreterVerdicts(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
		kind     types.FailureKind
	}{
		{
			name:     "success status line",
			body:     `code="200">Package installed in 140ms.` + "\n",
			expected: "",
			kind:     types.FailureNone,
		},
		{
			name:     "aem status element",
			body:     "<crx>\n<response>\n<status code=\"200\">ok</status>\n</response>\n</crx>\n",
			expected: "",
			kind:     types.FailureNone,
		},
		{
			name:     "error with trailing diagnostic",
			body:     "code=\"500\">Error occurred\nE cause: disk full\n",
			expected: "Error occurred\ncause: disk full",
			kind:     types.FailureSubmissionRejected,
		},
		{
			name:     "diagnostic before status line",
			body:     "E /apps/foo: failed\n<status code=\"500\">Install failed</status>\n",
			expected: "Install failed\n/apps/foo: failed",
			kind:     types.FailureSubmissionRejected,
		},
		{
			name:     "markup inside status text",
			body:     "<status code=\"500\">Package <b>site</b> rejected</status>\n",
			expected: "Package <b>site</b> rejected",
			kind:     types.FailureSubmissionRejected,
		},
		{
			name:     "status text without closing tag",
			body:     "code=\"500\">Install aborted\n",
			expected: "Install aborted",
			kind:     types.FailureSubmissionRejected,
		},
		{
			name:     "last status line wins",
			body:     "code=\"200\">ok\nsomething in between\ncode=\"500\">bad\n",
			expected: "bad",
			kind:     types.FailureSubmissionRejected,
		},
		{
			name:     "later success clears earlier failure",
			body:     "code=\"500\">bad\ncode=\"200\">ok\n",
			expected: "",
			kind:     types.FailureNone,
		},
		{
			name:     "diagnostics make a 200 fail",
			body:     "A /apps/foo\nE /apps/bar: constraint violation\n<status code=\"200\">ok</status>\n",
			expected: "\n/apps/bar: constraint violation",
			kind:     types.FailureSubmissionRejected,
		},
		{
			name:     "no status line",
			body:     "<html><body>404 Not Found</body></html>\n",
			expected: InvalidResponseMessage,
			kind:     types.FailureUnrecognizedResponse,
		},
		{
			name:     "diagnostics without status line",
			body:     "E something\n",
			expected: InvalidResponseMessage,
			kind:     types.FailureUnrecognizedResponse,
		},
		{
			name:     "empty body",
			body:     "",
			expected: InvalidResponseMessage,
			kind:     types.FailureUnrecognizedResponse,
		},
		{
			name:     "carriage returns stripped",
			body:     "code=\"500\">bad\r\nE detail\r\n",
			expected: "bad\ndetail",
			kind:     types.FailureSubmissionRejected,
		},
		{
			name:     "last line without newline",
			body:     "E first\ncode=\"403\">denied",
			expected: "denied\nfirst",
			kind:     types.FailureSubmissionRejected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interpreter := interpret(t, tt.body)
			assert.Equal(t, tt.expected, interpreter.Verdict())
			assert.Equal(t, tt.kind, interpreter.Kind())
		})
	}
}

func TestResponseInterpreterHandlesSplitReads(t *testing.T) {
	body := "E cause: disk full\n<status code=\"500\">Error occurred</status>\n"
	interpreter := NewResponseInterpreter("localhost:4502")
	require.NoError(t, interpreter.Consume(context.Background(), iotest.OneByteReader(strings.NewReader(body))))
	assert.Equal(t, "Error occurred\ncause: disk full", interpreter.Verdict())
}

func TestResponseInterpreterInvalidUTF8(t *testing.T) {
	interpreter := interpret(t, "code=\"500\">bad \xff byte\n")
	assert.Equal(t, "bad � byte", interpreter.Verdict())
}

func TestResponseInterpreterReadErrorKeepsVerdict(t *testing.T) {
	broken := io.MultiReader(
		strings.NewReader("code=\"500\">partial\n"),
		iotest.ErrReader(errors.New("connection reset")),
	)
	interpreter := NewResponseInterpreter("localhost:4502")
	err := interpreter.Consume(context.Background(), broken)
	require.Error(t, err)
	assert.Equal(t, "partial", interpreter.Verdict())
}

func TestResponseInterpreterLongLine(t *testing.T) {
	long := strings.Repeat("A", 1<<20)
	interpreter := interpret(t, long+"\ncode=\"200\">ok\n")
	assert.Equal(t, "", interpreter.Verdict())
}
