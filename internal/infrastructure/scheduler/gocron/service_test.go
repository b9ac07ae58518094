package timescheduler_test

import (
	"testing"
	"time"

	timescheduler "github.com/ark-network/giveaway/internal/infrastructure/scheduler/gocron"
	"github.com/stretchr/testify/require"
)

func TestScheduleTaskOnce(t *testing.T) {
	svc := timescheduler.NewScheduler()
	svc.Start()
	defer svc.Stop()

	now := time.Now().Unix()
	require.True(t, svc.AfterNow(now+10))
	require.False(t, svc.AfterNow(now-1))

	err := svc.ScheduleTaskOnce(now-10, func() {})
	require.Error(t, err)

	done := make(chan struct{}, 2)
	err = svc.ScheduleTaskOnce(time.Now().Unix()+1, func() { done <- struct{}{} })
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled task did not run")
	}

	// runs only once
	select {
	case <-done:
		t.Fatal("scheduled task ran twice")
	case <-time.After(1500 * time.Millisecond):
	}
}
