package workers

import (
	"testing"
)

func TestNewCronScheduler(t *testing.T) {
	t.Parallel()

	trigger := NewRebuildTrigger(newMockRebuilder(), &mockSubmitter{}, nil)

	tests := []struct {
		spec    string
		wantErr bool
	}{
		{spec: "0 3 * * *"},
		{spec: "@daily"},
		{spec: "@every 6h"},
		{spec: "not a schedule", wantErr: true},
		{spec: "0 3 * *", wantErr: true},
	}

	for _, tt := range tests {
		_, err := NewCronScheduler(tt.spec, trigger, nil)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewCronScheduler(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
		}
	}
}

func TestCronScheduler_FireTriggersRebuild(t *testing.T) {
	t.Parallel()

	builder := newMockRebuilder()
	s, err := NewCronScheduler("@hourly", NewRebuildTrigger(builder, &mockSubmitter{}, nil), nil)
	if err != nil {
		t.Fatalf("NewCronScheduler failed: %v", err)
	}
	s.fire()
	if builder.callCount() != 1 {
		t.Errorf("Expected one rebuild, got %d", builder.callCount())
	}

	builder.running.Store(true)
	s.fire()
	if builder.callCount() != 1 {
		t.Errorf("Expected no rebuild while running, got %d", builder.callCount())
	}

	s.Start()
	s.Stop()
}
