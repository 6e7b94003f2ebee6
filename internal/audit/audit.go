// Package audit writes the append-only trail of logins, reservation actions
// and failures.  Entries are free-form text blocks separated by a blank
// line, meant for people rather than for re-parsing.  An unwritable trail
// is a hard failure of the operation that triggered it.
package audit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// ErrAudit is returned when the log destination cannot be opened or
// written.
var ErrAudit = errors.New("audit log unavailable")

const (
	timestampLayout = "2006-01-02 15:04:05"
	blockSeparator  = "\n\n"
	notAvailable    = "N/A"
)

// Publisher receives an event for every entry written to the log.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// Snapshot is the record state printed under an entry.  Zero values are
// rendered as N/A; Table is a 0-based index and negative means absent.
type Snapshot struct {
	ID        string
	Name      string
	Phone     string
	PartySize int
	Date      string
	Time      string
	Table     int
}

// SnapshotOf captures every field of a reservation.
func SnapshotOf(res model.Reservation) *Snapshot {
	return &Snapshot{
		ID:        res.ID,
		Name:      res.CustomerName,
		Phone:     res.PhoneNumber,
		PartySize: res.PartySize,
		Date:      res.Date,
		Time:      res.Time,
		Table:     res.TableIndex,
	}
}

// Log appends entries to a single file.
type Log struct {
	path      string
	now       func() time.Time
	publisher Publisher
	log       *logrus.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithClock sets the source of entry timestamps.
func WithClock(now func() time.Time) Option { return func(l *Log) { l.now = now } }

// WithPublisher forwards every written entry as a queue.ReservationEvent.
func WithPublisher(p Publisher) Option { return func(l *Log) { l.publisher = p } }

// WithLogger sets the diagnostic logger used for publish failures.
func WithLogger(lg *logrus.Logger) Option { return func(l *Log) { l.log = lg } }

// New returns a Log appending to path.
func New(path string, opts ...Option) *Log {
	l := &Log{path: path, now: time.Now, log: utils.DiscardLogger()}
	for _, o := range opts {
		o(l)
	}
	return l
}

// RecordLogin notes that username signed in as role.  The secret is
// reduced to a short fingerprint and never written in clear.
func (l *Log) RecordLogin(ctx context.Context, role model.Role, username, secret string) error {
	ts := l.now()
	var b strings.Builder
	b.WriteString("Account Log\n")
	fmt.Fprintf(&b, "Timestamp: %s\n", ts.Format(timestampLayout))
	fmt.Fprintf(&b, "Login by %s: %s\n", role, username)
	fmt.Fprintf(&b, "Secret: sha256:%s", utils.Fingerprint(secret))
	if err := l.append(b.String()); err != nil {
		return err
	}
	l.publish(ctx, queue.ReservationEvent{
		Kind:       queue.KindLogin,
		Role:       string(role),
		Username:   username,
		OccurredAt: ts.UTC().Format(time.RFC3339),
	})
	return nil
}

// RecordAction notes a successful action.  snap may be nil.
func (l *Log) RecordAction(ctx context.Context, role model.Role, username, action, detail string, snap *Snapshot) error {
	return l.record(ctx, queue.KindAction, "Reservation Log", "Details", role, username, action, detail, snap)
}

// RecordError notes a failed action and its error message.  snap may be nil.
func (l *Log) RecordError(ctx context.Context, role model.Role, username, action, message string, snap *Snapshot) error {
	return l.record(ctx, queue.KindError, "Reservation Error Log", "Error", role, username, action, message, snap)
}

func (l *Log) record(ctx context.Context, kind, title, label string, role model.Role, username, action, text string, snap *Snapshot) error {
	ts := l.now()
	var b strings.Builder
	b.WriteString(title + "\n")
	fmt.Fprintf(&b, "Timestamp: %s\n", ts.Format(timestampLayout))
	fmt.Fprintf(&b, "Action: %s by %s: %s\n", action, role, username)
	fmt.Fprintf(&b, "%s: %s", label, text)
	if line := snap.line(); line != "" {
		b.WriteString("\n" + line)
	}
	if err := l.append(b.String()); err != nil {
		return err
	}
	l.publish(ctx, queue.ReservationEvent{
		Kind:       kind,
		Role:       string(role),
		Username:   username,
		Action:     action,
		Detail:     text,
		Snapshot:   snap.event(),
		OccurredAt: ts.UTC().Format(time.RFC3339),
	})
	return nil
}

// Entries returns every block in the log, oldest first.  A log that does
// not exist yet has no entries.
func (l *Log) Entries(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrAudit, l.path, err)
	}
	var entries []string
	for _, block := range strings.Split(string(b), blockSeparator) {
		if block = strings.Trim(block, "\n"); block != "" {
			entries = append(entries, block)
		}
	}
	return entries, nil
}

func (l *Log) append(entry string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrAudit, err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAudit, err)
	}
	if _, err := f.WriteString(entry + blockSeparator); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %w", ErrAudit, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrAudit, err)
	}
	return nil
}

// publish forwards ev to the publisher, if any.  Broker trouble is logged
// and otherwise ignored: the durable record is the file.
func (l *Log) publish(ctx context.Context, ev queue.ReservationEvent) {
	if l.publisher == nil {
		return
	}
	ev.EventID = uuid.NewString()
	if err := l.publisher.Publish(ctx, ev); err != nil {
		l.log.WithFields(logrus.Fields{"event_id": ev.EventID, "kind": ev.Kind}).
			Warnf("publish reservation event: %v", err)
	}
}

func (s *Snapshot) line() string {
	if s == nil {
		return ""
	}
	if s.ID == "" && s.Name == "" && s.Phone == "" && s.PartySize <= 0 &&
		s.Date == "" && s.Time == "" && s.Table < 0 {
		return ""
	}
	party, table := notAvailable, notAvailable
	if s.PartySize > 0 {
		party = strconv.Itoa(s.PartySize)
	}
	if s.Table >= 0 {
		table = strconv.Itoa(s.Table + 1)
	}
	return fmt.Sprintf("ID: %s | Name: %s | Contact: %s | Party-Size: %s | Date: %s | Time: %s | Table: %s",
		orNA(s.ID), orNA(s.Name), orNA(s.Phone), party, orNA(s.Date), orNA(s.Time), table)
}

func (s *Snapshot) event() *queue.ReservationSnapshot {
	if s.line() == "" {
		return nil
	}
	ev := &queue.ReservationSnapshot{
		ID:           s.ID,
		CustomerName: s.Name,
		PhoneNumber:  s.Phone,
		Date:         s.Date,
		Time:         s.Time,
	}
	if s.PartySize > 0 {
		ev.PartySize = s.PartySize
	}
	if s.Table >= 0 {
		ev.TableNumber = s.Table + 1
	}
	return ev
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
