package worker

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/bufilter/internal/match"
	"github.com/ppiankov/bufilter/internal/model"
)

func inputs(n int) []model.InputRecord {
	records := make([]model.InputRecord, n)
	for i := range records {
		email := model.Absent()
		if i%3 == 0 {
			email = model.Of(fmt.Sprintf("user%d@x.com", i%50))
		}
		records[i] = model.InputRecord{Row: i + 2, Email: email, Name: model.Of("nobody")}
	}
	return records
}

func resolver() *match.Resolver {
	rows := make([]model.MasterRow, 0, 50)
	for i := 0; i < 50; i++ {
		rows = append(rows, model.MasterRow{
			Email:    model.Of(fmt.Sprintf("user%d@x.com", i)),
			Name:     model.Of(fmt.Sprintf("User %d", i)),
			Position: model.Of("Rep"),
			Company:  model.Of("Acme"),
		})
	}
	return match.NewResolver(match.BuildIndex([]model.MasterTable{{Group: "Sales", Rows: rows}}))
}

func TestBatchResolver_MatchesSequential(t *testing.T) {
	r := resolver()
	records := inputs(5000)
	want := r.ResolveAll(records)

	for _, workers := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			progress := NewProgress(len(records), time.Hour, zerolog.Nop())
			got, err := NewBatchResolver(r, workers, progress).Resolve(context.Background(), records)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("expected %d records, got %d", len(want), len(got))
			}
			for i := range want {
				if got[i].Row != want[i].Row || got[i].Status != want[i].Status || got[i].AssignedGroup != want[i].AssignedGroup {
					t.Fatalf("record %d differs: got row %d %s, want row %d %s",
						i, got[i].Row, got[i].Status, want[i].Row, want[i].Status)
				}
			}
			if !reflect.DeepEqual(got, want) {
				t.Error("batch result differs from sequential resolution")
			}
			if progress.Done() != len(records) {
				t.Errorf("expected progress %d, got %d", len(records), progress.Done())
			}
		})
	}
}

func TestBatchResolver_Empty(t *testing.T) {
	got, err := NewBatchResolver(resolver(), 4, nil).Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}

func TestBatchResolver_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		_, err := NewBatchResolver(resolver(), workers, nil).Resolve(ctx, inputs(2000))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: expected context.Canceled, got %v", workers, err)
		}
	}
}

func TestChunkSize(t *testing.T) {
	if got := chunkSize(100, 4); got != minChunk {
		t.Errorf("expected floor of %d, got %d", minChunk, got)
	}
	if got := chunkSize(160000, 4); got != 10000 {
		t.Errorf("expected 10000, got %d", got)
	}
}
