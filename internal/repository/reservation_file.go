package repository

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/utils"
)

const recordFields = 7

// ReservationFileRepo persists reservations as pipe-delimited lines and the
// ID counter as a single integer in a separate file.  Every save rewrites
// both files completely.
type ReservationFileRepo struct {
	recordsPath string
	counterPath string
	log         *logrus.Logger
}

// NewReservationFileRepo returns a repo bound to the given file paths.  A nil
// logger disables diagnostics.
func NewReservationFileRepo(recordsPath, counterPath string, log *logrus.Logger) *ReservationFileRepo {
	if log == nil {
		log = utils.DiscardLogger()
	}
	return &ReservationFileRepo{recordsPath: recordsPath, counterPath: counterPath, log: log}
}

// Save writes every record, then the counter.  Both writes must succeed;
// the first failure is returned wrapped in ErrPersistence.
func (r *ReservationFileRepo) Save(ctx context.Context, records []model.Reservation, counter int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, res := range records {
		buf.WriteString(FormatRecordLine(res))
		buf.WriteByte('\n')
	}
	if err := writeFileAtomic(r.recordsPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: save reservations: %w", ErrPersistence, err)
	}
	if err := writeFileAtomic(r.counterPath, []byte(strconv.Itoa(counter)+"\n"), 0o644); err != nil {
		return fmt.Errorf("%w: save counter: %w", ErrPersistence, err)
	}
	return nil
}

// Load reads back what Save wrote.  A missing records file yields no
// records; malformed lines are skipped and logged.  The returned counter is
// at least 1, at least the persisted value, and greater than every numeric
// ID suffix found among the loaded records.
func (r *ReservationFileRepo) Load(ctx context.Context) ([]model.Reservation, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	records, err := r.loadRecords()
	if err != nil {
		return nil, 0, err
	}
	counter := 1
	for _, res := range records {
		if n, ok := model.IDNumber(res.ID); ok && n+1 > counter {
			counter = n + 1
		}
	}
	if persisted, ok := r.loadCounter(); ok && persisted > counter {
		counter = persisted
	}
	return records, counter, nil
}

func (r *ReservationFileRepo) loadRecords() ([]model.Reservation, error) {
	f, err := os.Open(r.recordsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: open reservations: %w", ErrPersistence, err)
	}
	defer f.Close()

	var records []model.Reservation
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		res, err := ParseRecordLine(line)
		if err != nil {
			r.log.WithFields(logrus.Fields{"file": r.recordsPath, "line": lineNo}).
				Warnf("skipping malformed reservation: %v", err)
			continue
		}
		records = append(records, res)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read reservations: %w", ErrPersistence, err)
	}
	return records, nil
}

func (r *ReservationFileRepo) loadCounter() (int, bool) {
	b, err := os.ReadFile(r.counterPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.log.WithField("file", r.counterPath).Warnf("ignoring unreadable counter: %v", err)
		}
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		r.log.WithField("file", r.counterPath).Warnf("ignoring malformed counter %q", strings.TrimSpace(string(b)))
		return 0, false
	}
	return n, true
}

// FormatRecordLine renders a reservation in the records-file layout
// ID|customerName|phoneNumber|partySize|date|time|tableIndex, without the
// trailing newline.
func FormatRecordLine(res model.Reservation) string {
	return strings.Join([]string{
		res.ID,
		res.CustomerName,
		res.PhoneNumber,
		strconv.Itoa(res.PartySize),
		res.Date,
		res.Time,
		strconv.Itoa(res.TableIndex),
	}, "|")
}

// ParseRecordLine is the inverse of FormatRecordLine.  It checks structure
// only: field count, integer fields and a positive party size.  Table range
// and uniqueness are the store's concern.
func ParseRecordLine(line string) (model.Reservation, error) {
	parts := strings.Split(line, "|")
	if len(parts) != recordFields {
		return model.Reservation{}, fmt.Errorf("want %d fields, got %d", recordFields, len(parts))
	}
	if strings.TrimSpace(parts[0]) == "" {
		return model.Reservation{}, errors.New("empty id")
	}
	size, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return model.Reservation{}, fmt.Errorf("party size %q: %w", parts[3], err)
	}
	if size < 1 {
		return model.Reservation{}, fmt.Errorf("party size %d below 1", size)
	}
	table, err := strconv.Atoi(strings.TrimSpace(parts[6]))
	if err != nil {
		return model.Reservation{}, fmt.Errorf("table index %q: %w", parts[6], err)
	}
	return model.Reservation{
		ID:           model.CanonicalID(parts[0]),
		CustomerName: parts[1],
		PhoneNumber:  parts[2],
		PartySize:    size,
		Date:         parts[4],
		Time:         parts[5],
		TableIndex:   table,
	}, nil
}
