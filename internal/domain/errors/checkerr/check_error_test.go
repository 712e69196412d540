package checkerr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIOError_MissingFile(t *testing.T) {
	err := NewIOError("index.html", fmt.Errorf("open: %w", fs.ErrNotExist))

	assert.Equal(t, ErrorCategoryIO, err.Category)
	assert.Equal(t, "target does not exist", err.Message)
	assert.True(t, err.IsFatal())
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "io error in index.html")
}

func TestCheckError_ErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *CheckError
		want string
	}{
		{
			name: "message only",
			err:  NewConfigError("unknown profile"),
			want: "config error: unknown profile",
		},
		{
			name: "path and line",
			err:  NewParseError("token too large", 12).WithPath("a.html"),
			want: "parse error in a.html at line 12: token too large",
		},
		{
			name: "with cause",
			err:  NewEncodingError("invalid UTF-8").WithCause(errors.New("byte 0xff")),
			want: "encoding error: invalid UTF-8: byte 0xff",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIs_MatchesWrappedCategory(t *testing.T) {
	wrapped := fmt.Errorf("validate: %w", NewResourceLimitError("too big"))

	assert.True(t, Is(wrapped, ErrorCategoryResourceLimit))
	assert.False(t, Is(wrapped, ErrorCategoryIO))
	assert.False(t, Is(errors.New("plain"), ErrorCategoryIO))
}

func TestTimeoutFromContext(t *testing.T) {
	assert.Nil(t, TimeoutFromContext(context.Background(), "scan"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := TimeoutFromContext(ctx, "scan")
	require.NotNil(t, err)
	assert.Equal(t, ErrorCategoryTimeout, err.Category)
	assert.Equal(t, "scan", err.Operation)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithDetails_InitializesMap(t *testing.T) {
	err := NewCheckError(ErrorCategoryParse, "x").WithDetails("offset", 10)
	assert.Equal(t, 10, err.Details["offset"])
}
