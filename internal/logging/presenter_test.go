package logging

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
)

func TestPresentError(t *testing.T) {
	assert.Equal(t, "", PresentError("ctx", nil))
	assert.Equal(t, "boom", PresentError("", errors.New("boom")))
	assert.Equal(t,
		"open failed: dial postgres://*:*@db:5432/app",
		PresentError("open failed", errors.New("dial postgres://alice:s3cret@db:5432/app")))
}

func TestPresentServiceError(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	assert.Equal(t, "", PresentServiceError("executing query", "http://localhost:8000", nil))

	out := PresentServiceError("executing query", "http://localhost:8000", fmt.Errorf("post: %w", context.DeadlineExceeded))
	assert.Contains(t, out, "Connection timeout while executing query")
	assert.Contains(t, out, "localhost:8000")

	out = PresentServiceError("executing query", "http://localhost:8000", errors.New("token=abc123 rejected"))
	assert.Equal(t, "Failed executing query: token=*** rejected", out)
}
