package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/icfextract/internal/model"
)

// MockRunner implements Runner
type MockRunner struct {
	FailOn string
	Seen   []string
	OnCall func()
}

func (m *MockRunner) RunFile(ctx context.Context, location string, items []model.WorkItem) (*model.Report, error) {
	m.Seen = append(m.Seen, location)
	if m.OnCall != nil {
		m.OnCall()
	}
	if location == m.FailOn {
		return nil, errors.New("run error")
	}
	return &model.Report{
		SourcePath: location,
		Summary:    model.RunSummary{TotalSections: len(items)},
	}, nil
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "protocols.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessPaths(t *testing.T) {
	runner := &MockRunner{}
	processor := NewBatchProcessor(runner, nil)

	paths := []string{"a.txt", "b.txt", "c.txt"}
	items := []model.WorkItem{{ID: "1.0"}, {ID: "2.0"}}

	results := processor.ProcessPaths(context.Background(), paths, items)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Location, res.Error)
		}
		if res.Location != paths[i] {
			t.Errorf("result %d: expected %s, got %s", i, paths[i], res.Location)
		}
		if res.Report == nil || res.Report.Summary.TotalSections != 2 {
			t.Errorf("result %d: expected report covering 2 sections", i)
		}
	}

	for i, p := range runner.Seen {
		if p != paths[i] {
			t.Errorf("expected sequential order, got %v", runner.Seen)
			break
		}
	}
}

func TestBatchProcessor_FailureDoesNotStopBatch(t *testing.T) {
	runner := &MockRunner{FailOn: "b.txt"}
	processor := NewBatchProcessor(runner, nil)

	results := processor.ProcessPaths(context.Background(), []string{"a.txt", "b.txt", "c.txt"}, nil)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[1].GetError() == nil {
		t.Error("expected error for b.txt")
	}
	if results[1].Report != nil {
		t.Error("expected nil report on error")
	}
	if results[2].GetError() != nil {
		t.Errorf("expected c.txt to run, got %v", results[2].Error)
	}
}

func TestBatchProcessor_CancelSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &MockRunner{OnCall: cancel}
	processor := NewBatchProcessor(runner, nil)

	results := processor.ProcessPaths(ctx, []string{"a.txt", "b.txt", "c.txt"}, nil)

	if len(runner.Seen) != 1 {
		t.Fatalf("expected 1 protocol to run, got %d", len(runner.Seen))
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, res := range results[1:] {
		if !errors.Is(res.Error, context.Canceled) {
			t.Errorf("expected context.Canceled for %s, got %v", res.Location, res.Error)
		}
	}
}

func TestBatchProcessor_ProcessPaths_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockRunner{}, nil)

	results := processor.ProcessPaths(context.Background(), nil, nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadPathsFromFile(t *testing.T) {
	path := writeTemp(t, "protocols/a.txt\n# comment\nprotocols/b.txt\n   \nprotocols/c.txt   \nprotocols/a.txt\n")

	paths, err := ReadPathsFromFile(path)
	if err != nil {
		t.Fatalf("ReadPathsFromFile failed: %v", err)
	}

	expected := []string{"protocols/a.txt", "protocols/b.txt", "protocols/c.txt"}
	if len(paths) != len(expected) {
		t.Fatalf("expected %d paths, got %d", len(expected), len(paths))
	}
	for i, p := range paths {
		if p != expected[i] {
			t.Errorf("expected %s at index %d, got %s", expected[i], i, p)
		}
	}
}

func TestReadPathsFromFile_NonExistent(t *testing.T) {
	_, err := ReadPathsFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeTemp(t, "a.txt\nb.txt\n# comment\n\nc.txt\n")

	processor := NewBatchProcessor(&MockRunner{}, nil)

	results, err := processor.ProcessFile(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}

	if _, err := processor.ProcessFile(context.Background(), "no_such_file.txt", nil); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}
