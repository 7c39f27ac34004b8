package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestNewJob(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeAffinityRebuild)

	if job.ID == uuid.Nil {
		t.Error("Expected job ID to be set")
	}
	if job.Type != JobTypeAffinityRebuild {
		t.Errorf("Expected job type to be %s, got %s", JobTypeAffinityRebuild, job.Type)
	}
	if job.Metadata == nil {
		t.Error("Expected metadata to be initialized")
	}
	if job.RetryCount != 0 {
		t.Errorf("Expected retry count to be 0, got %d", job.RetryCount)
	}
	if job.MaxRetries != 3 {
		t.Errorf("Expected max retries to be 3, got %d", job.MaxRetries)
	}
}

func TestNewRebuildJob_Source(t *testing.T) {
	t.Parallel()

	job := NewRebuildJob(SourceCron)
	if job.Type != JobTypeAffinityRebuild {
		t.Errorf("Expected %s, got %s", JobTypeAffinityRebuild, job.Type)
	}
	if job.Source() != SourceCron {
		t.Errorf("Expected source %s, got %s", SourceCron, job.Source())
	}

	// Source survives the wire format
	body, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded Job
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Source() != SourceCron {
		t.Errorf("Expected decoded source %s, got %s", SourceCron, decoded.Source())
	}

	if (&Job{}).Source() != "unknown" {
		t.Error("Expected unknown source for job without metadata")
	}
}

func TestJob_ShouldProcess(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name string
		job  *Job
		want bool
	}{
		{name: "no time constraints", job: &Job{}, want: true},
		{name: "not before in past", job: &Job{NotBefore: timePtr(now.Add(-time.Hour))}, want: true},
		{name: "not before in future", job: &Job{NotBefore: timePtr(now.Add(time.Hour))}, want: false},
		{name: "not after in future", job: &Job{NotAfter: timePtr(now.Add(time.Hour))}, want: true},
		{name: "not after in past", job: &Job{NotAfter: timePtr(now.Add(-time.Hour))}, want: false},
		{
			name: "inside window",
			job:  &Job{NotBefore: timePtr(now.Add(-time.Hour)), NotAfter: timePtr(now.Add(time.Hour))},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.job.ShouldProcess(); got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_IsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	if (&Job{}).IsExpired() {
		t.Error("Job without NotAfter must not expire")
	}
	if (&Job{NotAfter: timePtr(now.Add(time.Hour))}).IsExpired() {
		t.Error("Job with future NotAfter must not be expired")
	}
	if !(&Job{NotAfter: timePtr(now.Add(-time.Hour))}).IsExpired() {
		t.Error("Job with past NotAfter must be expired")
	}
}

func TestJob_Retry(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeAffinityRebuild)
	for i := 0; i < job.MaxRetries; i++ {
		if !job.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i)
		}
		job.IncrementRetry()
	}
	if job.CanRetry() {
		t.Error("Expected retries to be exhausted")
	}
}

func TestRabbitMQQueue_BuildPublishing(t *testing.T) {
	t.Parallel()

	q := &RabbitMQQueue{exchangeName: DefaultExchangeName, delayedExchangeName: DefaultDelayedExchangeName}
	now := time.Now()

	t.Run("immediate", func(t *testing.T) {
		t.Parallel()
		job := NewRebuildJob(SourceAPI)
		pub, exchange, err := q.buildPublishing(job, now)
		if err != nil {
			t.Fatalf("buildPublishing failed: %v", err)
		}
		if exchange != DefaultExchangeName {
			t.Errorf("Expected exchange %s, got %s", DefaultExchangeName, exchange)
		}
		if pub.MessageId != job.ID.String() || pub.Type != string(JobTypeAffinityRebuild) {
			t.Errorf("Unexpected publishing metadata: id=%s type=%s", pub.MessageId, pub.Type)
		}
		if pub.Expiration != "" || pub.Headers != nil {
			t.Error("Immediate job must not carry expiration or delay")
		}
	})

	t.Run("delayed with expiry", func(t *testing.T) {
		t.Parallel()
		job := NewRebuildJob(SourceAPI)
		job.NotBefore = timePtr(now.Add(2 * time.Second))
		job.NotAfter = timePtr(now.Add(time.Minute))
		pub, exchange, err := q.buildPublishing(job, now)
		if err != nil {
			t.Fatalf("buildPublishing failed: %v", err)
		}
		if exchange != DefaultDelayedExchangeName {
			t.Errorf("Expected delayed exchange, got %s", exchange)
		}
		if pub.Headers["x-delay"] != int64(2000) {
			t.Errorf("Expected x-delay 2000, got %v", pub.Headers["x-delay"])
		}
		if pub.Expiration != "60000" {
			t.Errorf("Expected expiration 60000, got %s", pub.Expiration)
		}
	})
}
