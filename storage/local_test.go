package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFor(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"HR Leave Policy.txt", "HR_Leave_Policy.txt", false},
		{"../../etc/passwd", "passwd", false},
		{`C:\docs\it_india.md`, "it_india.md", false},
		{"", "", true},
		{"..", "", true},
	}
	for _, tt := range tests {
		got, err := KeyFor(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "finance_india.txt", strings.NewReader("reimbursement within 30 days")))
	require.NoError(t, s.Put(ctx, "hr_common.txt", strings.NewReader("leave policy")))

	rc, err := s.Open(ctx, "finance_india.txt")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "reimbursement within 30 days", string(body))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "finance_india.txt", all[0].Key)
	assert.EqualValues(t, len("reimbursement within 30 days"), all[0].Size)

	hr, err := s.List(ctx, "hr_")
	require.NoError(t, err)
	require.Len(t, hr, 1)

	require.NoError(t, s.Delete(ctx, "hr_common.txt"))
	require.NoError(t, s.Delete(ctx, "hr_common.txt"))
	_, err = s.Open(ctx, "hr_common.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}
