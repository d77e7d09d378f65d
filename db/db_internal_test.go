package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type journalRepo struct{}

func (*journalRepo) Ensure() string {
	return callerName(1)
}

func TestCallerName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "journalRepo.Ensure", new(journalRepo).Ensure())
}
