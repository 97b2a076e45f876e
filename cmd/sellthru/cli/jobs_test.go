package cli

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/jegsons/sellthru/jobs"
)

func TestJobsCLIEnqueueNormalisesVendor(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewJobsCLI(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	info, err := c.Enqueue(context.Background(), jobs.WeeklyReportPayload{Year: 2024, Week: 11, VendorID: " hmdglobal "})
	require.NoError(t, err)
	require.Equal(t, jobs.QueueReports, info.Queue)

	payload, err := jobs.ParseWeeklyReportPayload(asynq.NewTask(info.Type, info.Payload))
	require.NoError(t, err)
	require.Equal(t, "HMDGLOBAL", payload.VendorID)
	require.Equal(t, "cli", payload.RequestedBy)
}

func TestNewJobsCLIRequiresAddress(t *testing.T) {
	_, err := NewJobsCLI(" ")
	require.Error(t, err)
}
