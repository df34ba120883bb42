package push

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

type sent struct{ to, subject, body string }

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	fail map[string]bool
}

func (f *fakeSender) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[to] {
		return errors.New("smtp down")
	}
	f.msgs = append(f.msgs, sent{to, subject, body})
	return nil
}

func TestMailerAnnouncesStart(t *testing.T) {
	fs := &fakeSender{}
	m := NewMailer(fs, []string{"ops@example.com", "oncall@example.com"})

	start := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	rec := &maintenance.Record{Start: start, Message: "upgrade"}
	n := maintenance.ClientNotice{Event: "maintenance.start", Record: rec, Status: maintenance.StatusOf(rec)}

	require.NoError(t, m.Broadcast(context.Background(), n.Event, n))
	m.Wait()

	require.Len(t, fs.msgs, 2)
	assert.Contains(t, fs.msgs[0].subject, "Mantenimiento en curso")
	assert.Contains(t, fs.msgs[0].body, "2026-03-01T02:00:00Z")
	assert.Contains(t, fs.msgs[0].body, "upgrade")
}

func TestMailerAnnouncesEnd(t *testing.T) {
	fs := &fakeSender{fail: map[string]bool{"bad@example.com": true}}
	m := NewMailer(fs, []string{"bad@example.com", "ops@example.com"})

	n := maintenance.ClientNotice{Event: "maintenance.end"}
	require.NoError(t, m.Broadcast(context.Background(), n.Event, n))
	m.Wait()

	require.Len(t, fs.msgs, 1)
	assert.Equal(t, "ops@example.com", fs.msgs[0].to)
	assert.Contains(t, fs.msgs[0].subject, "Fin de mantenimiento")
}

func TestMailerRejectsUnknownPayload(t *testing.T) {
	m := NewMailer(&fakeSender{}, []string{"ops@example.com"})
	assert.Error(t, m.Broadcast(context.Background(), "maintenance.start", "nope"))
}

func TestMailerWithoutRecipientsIsNoop(t *testing.T) {
	fs := &fakeSender{}
	m := NewMailer(fs, nil)
	require.NoError(t, m.Broadcast(context.Background(), "maintenance.end", maintenance.ClientNotice{}))
	m.Wait()
	assert.Empty(t, fs.msgs)
}

type recordingPush struct {
	events []string
	err    error
}

func (r *recordingPush) Broadcast(_ context.Context, event string, _ any) error {
	r.events = append(r.events, event)
	return r.err
}

func TestFanoutReachesEveryone(t *testing.T) {
	a := &recordingPush{err: errors.New("boom")}
	b := &recordingPush{}
	f := Fanout{a, nil, b}

	err := f.Broadcast(context.Background(), "maintenance.end", nil)
	assert.Error(t, err)
	assert.Equal(t, []string{"maintenance.end"}, a.events)
	assert.Equal(t, []string{"maintenance.end"}, b.events)
}
