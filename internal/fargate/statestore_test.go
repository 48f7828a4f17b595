package fargate

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestStateStoreRoundTrip(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "state.json"))

	state := &DeploymentState{
		App:     "chatbot",
		Region:  "us-east-1",
		ApplyID: "abc",
		Resources: []ResourceState{
			{Type: ResTypeCluster, Name: "chatbot-cluster", ARN: "arn:..."},
			{Type: ResTypeSecurityGroup, Name: "chatbot-sg", Metadata: map[string]string{"group_id": "sg-1234abcd"}},
		},
	}
	if err := store.Save(state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(state, loaded) {
		t.Errorf("round trip mismatch:\n  saved:  %+v\n  loaded: %+v", state, loaded)
	}
}

func TestStateStoreMissingFile(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "nope.json"))
	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state != nil {
		t.Errorf("expected nil state, got %+v", state)
	}
}

func TestStateStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStateStore(path).Load(); err == nil {
		t.Fatal("expected error for corrupt state file")
	}
}

func TestStateStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	store := NewStateStore(path)
	if err := store.Save(&DeploymentState{App: "chatbot"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("state file missing: %v", err)
	}
}

func TestStateStoreClearIdempotent(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "state.json"))
	if err := store.Save(&DeploymentState{App: "chatbot"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	state, err := store.Load()
	if err != nil || state != nil {
		t.Errorf("expected empty store after Clear, got %+v, %v", state, err)
	}
}
