package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"intake/internal/storage"
	"intake/pkg/models"
)

type pollResult struct {
	status JobStatus
	err    error
}

// scriptedProvider replays poll results in order and repeats the last one.
type scriptedProvider struct {
	polls  []pollResult
	calls  int
	blocks []models.Block
}

func (p *scriptedProvider) Submit(ctx context.Context, loc storage.Location) (string, error) {
	return "job-1", nil
}

func (p *scriptedProvider) Poll(ctx context.Context, jobID string) (JobStatus, error) {
	i := p.calls
	if i >= len(p.polls) {
		i = len(p.polls) - 1
	}
	p.calls++
	return p.polls[i].status, p.polls[i].err
}

func (p *scriptedProvider) Fetch(ctx context.Context, jobID string) ([]models.Block, error) {
	return p.blocks, nil
}

var (
	running   = pollResult{status: JobStatus{State: JobRunning}}
	succeeded = pollResult{status: JobStatus{State: JobSucceeded}}
)

func TestWaitForCompletion(t *testing.T) {
	fast := PollConfig{MaxAttempts: 5, Delay: time.Millisecond}

	tests := []struct {
		name      string
		polls     []pollResult
		wantErr   error
		anyErr    bool
		wantCalls int
	}{
		{
			name:      "succeeds after running",
			polls:     []pollResult{running, running, succeeded},
			wantCalls: 3,
		},
		{
			name:      "failed job is terminal",
			polls:     []pollResult{running, {status: JobStatus{State: JobFailed, Message: "bad pdf"}}},
			wantErr:   ErrJobFailed,
			wantCalls: 2,
		},
		{
			name:      "times out after max attempts",
			polls:     []pollResult{running},
			wantErr:   ErrJobTimeout,
			wantCalls: 5,
		},
		{
			name:      "transient poll errors are retried",
			polls:     []pollResult{{err: errors.New("connection reset")}, succeeded},
			wantCalls: 2,
		},
		{
			name:      "permanent poll errors stop the wait",
			polls:     []pollResult{{err: status.Error(codes.PermissionDenied, "denied")}, succeeded},
			anyErr:    true,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{polls: tt.polls}
			err := WaitForCompletion(context.Background(), p, "job-1", fast)

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("WaitForCompletion() error = %v, want %v", err, tt.wantErr)
				}
			case tt.anyErr:
				if err == nil {
					t.Fatal("WaitForCompletion() succeeded, want error")
				}
			case err != nil:
				t.Fatalf("WaitForCompletion() error = %v", err)
			}
			if p.calls != tt.wantCalls {
				t.Fatalf("Poll called %d times, want %d", p.calls, tt.wantCalls)
			}
		})
	}
}

func TestWaitForCompletionCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &scriptedProvider{polls: []pollResult{running}}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := WaitForCompletion(ctx, p, "job-1", PollConfig{MaxAttempts: 1000, Delay: time.Hour})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitForCompletion() error = %v, want context.Canceled", err)
	}
}

func TestAnalyze(t *testing.T) {
	want := []models.Block{{ID: "w1", BlockType: models.BlockTypeWord, Text: "hello"}}
	p := &scriptedProvider{polls: []pollResult{succeeded}, blocks: want}

	got, err := Analyze(context.Background(), p, storage.Location{Bucket: "b", Key: "doc.pdf"}, PollConfig{MaxAttempts: 1})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(got) != 1 || got[0].Text != "hello" {
		t.Fatalf("Analyze() = %+v", got)
	}
}
