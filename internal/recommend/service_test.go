package recommend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/benvon/toptag/internal/models"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{input: "", want: KindAffinity},
		{input: "affinity", want: KindAffinity},
		{input: " Category ", want: KindCategory},
		{input: "jaccard", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownStrategy) {
				t.Errorf("ParseKind(%q): expected ErrUnknownStrategy, got %v", tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
		}
	}
}

func TestService_Recommend(t *testing.T) {
	t.Parallel()

	t.Run("normalises seeds and dispatches", func(t *testing.T) {
		t.Parallel()
		st := &stubStrategy{kind: KindAffinity, result: []models.Recommendation{{Tag: "x"}}}
		svc := NewService(nil, st)
		got, err := svc.Recommend(context.Background(), []string{" #Sunset", "sunset", "", "Beach"}, KindAffinity)
		if err != nil {
			t.Fatalf("Recommend failed: %v", err)
		}
		if fmt.Sprint(st.seeds) != "[sunset beach]" {
			t.Errorf("Expected normalised seeds, got %v", st.seeds)
		}
		if len(got) != 1 {
			t.Errorf("Expected 1 result, got %d", len(got))
		}
	})

	t.Run("unknown strategy", func(t *testing.T) {
		t.Parallel()
		svc := NewService(nil, &stubStrategy{kind: KindAffinity})
		if _, err := svc.Recommend(context.Background(), []string{"a"}, KindCategory); !errors.Is(err, ErrUnknownStrategy) {
			t.Errorf("Expected ErrUnknownStrategy, got %v", err)
		}
	})

	t.Run("caps output and replaces nil", func(t *testing.T) {
		t.Parallel()
		many := make([]models.Recommendation, 40)
		svc := NewService(nil, &stubStrategy{kind: KindCategory, result: many}, &stubStrategy{kind: KindAffinity})

		got, err := svc.Recommend(context.Background(), []string{"a"}, KindCategory)
		if err != nil || len(got) != MaxRecommendations {
			t.Errorf("Expected %d results, got %d (err %v)", MaxRecommendations, len(got), err)
		}
		got, err = svc.Recommend(context.Background(), []string{"a"}, KindAffinity)
		if err != nil || got == nil {
			t.Errorf("Expected empty non-nil result, got %v (err %v)", got, err)
		}
	})

	t.Run("strategy error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		svc := NewService(nil, &stubStrategy{kind: KindAffinity, err: boom})
		if _, err := svc.Recommend(context.Background(), []string{"a"}, KindAffinity); !errors.Is(err, boom) {
			t.Errorf("Expected strategy error, got %v", err)
		}
	})
}

func TestService_Strategies(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, &stubStrategy{kind: KindCategory}, &stubStrategy{kind: KindAffinity})
	if got := fmt.Sprint(svc.Strategies()); got != "[affinity category]" {
		t.Errorf("Expected [affinity category], got %s", got)
	}
}
