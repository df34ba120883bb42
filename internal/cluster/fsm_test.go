package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

func logOf(t *testing.T, idx uint64, m Mutation) *raft.Log {
	t.Helper()
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return &raft.Log{Index: idx, Data: b}
}

func setMutation(t *testing.T, rec maintenance.Record) Mutation {
	t.Helper()
	p, err := json.Marshal(rec)
	require.NoError(t, err)
	return Mutation{Type: MutationSetMaintenance, Payload: p}
}

func TestFSM_SetAndClear(t *testing.T) {
	f := NewFSM()
	assert.Nil(t, f.Record())

	rec := maintenance.Record{Start: time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC), Message: "upgrade"}
	assert.Nil(t, f.Apply(logOf(t, 3, setMutation(t, rec))))
	require.NotNil(t, f.Record())
	assert.True(t, f.Record().Equal(&rec))
	assert.EqualValues(t, 3, f.AppliedIndex())

	assert.Nil(t, f.Apply(logOf(t, 4, Mutation{Type: MutationClearMaintenance})))
	assert.Nil(t, f.Record())
	assert.EqualValues(t, 4, f.AppliedIndex())
}

func TestFSM_BadEntries(t *testing.T) {
	f := NewFSM()
	assert.Nil(t, f.Apply(nil))
	assert.Nil(t, f.Apply(&raft.Log{}))

	res := f.Apply(&raft.Log{Index: 1, Data: []byte("{")})
	assert.Error(t, res.(error))

	res = f.Apply(logOf(t, 2, Mutation{Type: "maintenance.future"}))
	assert.ErrorContains(t, res.(error), "unknown mutation")

	res = f.Apply(logOf(t, 3, Mutation{Type: MutationSetMaintenance, Payload: []byte(`"x"`)}))
	assert.Error(t, res.(error))
	assert.Nil(t, f.Record())
}

type memSink struct {
	bytes.Buffer
	cancelled bool
}

func (s *memSink) ID() string    { return "test" }
func (s *memSink) Close() error  { return nil }
func (s *memSink) Cancel() error { s.cancelled = true; return nil }

func TestFSM_SnapshotRestore(t *testing.T) {
	src := NewFSM()
	rec := maintenance.Record{Message: "snap"}
	src.Apply(logOf(t, 1, setMutation(t, rec)))

	snap, err := src.Snapshot()
	require.NoError(t, err)
	sink := &memSink{}
	require.NoError(t, snap.Persist(sink))
	snap.Release()

	dst := NewFSM()
	require.NoError(t, dst.Restore(io.NopCloser(bytes.NewReader(sink.Bytes()))))
	require.NotNil(t, dst.Record())
	assert.Equal(t, "snap", dst.Record().Message)

	// snapshot sin mantenimiento restaura a nil
	empty, err := NewFSM().Snapshot()
	require.NoError(t, err)
	sink = &memSink{}
	require.NoError(t, empty.Persist(sink))
	require.NoError(t, dst.Restore(io.NopCloser(bytes.NewReader(sink.Bytes()))))
	assert.Nil(t, dst.Record())
}

func TestNode_SingleNodeApply(t *testing.T) {
	if testing.Short() {
		t.Skip("raft node test skipped in -short")
	}
	n, err := NewNode(NodeOptions{
		NodeID:   "n1",
		RaftAddr: "127.0.0.1:0",
		RaftDir:  t.TempDir(),
	})
	require.NoError(t, err)
	defer n.Close()

	require.Eventually(t, n.IsLeader, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, "n1", n.LeaderID())

	idx, err := n.Apply(context.Background(), setMutation(t, maintenance.Record{Message: "replicated"}))
	require.NoError(t, err)
	assert.NotZero(t, idx)
	require.NotNil(t, n.FSM().Record())
	assert.Equal(t, "replicated", n.FSM().Record().Message)

	_, err = n.Apply(context.Background(), Mutation{Type: "bogus"})
	assert.ErrorContains(t, err, "unknown mutation")

	require.NoError(t, n.Close())
	_, err = n.Apply(context.Background(), Mutation{Type: MutationClearMaintenance})
	assert.Error(t, err)
}

func TestNewNode_Validation(t *testing.T) {
	_, err := NewNode(NodeOptions{NodeID: "n1"})
	assert.Error(t, err)
}

func TestFSM_OnApplyFiresAfterChange(t *testing.T) {
	f := NewFSM()
	seen := make(chan *maintenance.Record, 4)
	f.OnApply(func() { seen <- f.Record() })

	f.Apply(logOf(t, 1, setMutation(t, maintenance.Record{Message: "a"})))
	select {
	case rec := <-seen:
		require.NotNil(t, rec)
		assert.Equal(t, "a", rec.Message)
	case <-time.After(time.Second):
		t.Fatal("OnApply not called after set")
	}

	// una mutación rechazada no avisa
	f.Apply(logOf(t, 2, Mutation{Type: "maintenance.future"}))
	f.Apply(logOf(t, 3, Mutation{Type: MutationClearMaintenance}))
	select {
	case rec := <-seen:
		assert.Nil(t, rec)
	case <-time.After(time.Second):
		t.Fatal("OnApply not called after clear")
	}
	assert.Empty(t, seen)
}
