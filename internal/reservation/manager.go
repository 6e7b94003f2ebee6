// Package reservation is the core of the system: the table pool, the active
// reservations and the rules that keep them consistent.  A Manager is built
// once per process and handed to whatever front end drives it.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/audit"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/utils"
	"github.com/iliyamo/table-reservation/internal/validate"
)

// DefaultTables is the size of the table pool when Deps.Tables is zero.
const DefaultTables = 10

const (
	msgName  = "customer name must not be empty or contain '|' or line breaks"
	msgPhone = "invalid phone number format, use XXX-XXX-XXXX"
	msgParty = "party size must be at least 1"
	msgDate  = "invalid date format (use YYYY-MM-DD) or date is in the past"
	msgTime  = "invalid time format (use HH:MM) or time is in the past for today"
	msgID    = "invalid reservation ID format, use 'ID <number>A', e.g. ID 1A"
)

// Repository loads and saves the full set of records together with the ID
// counter.  repository.ReservationFileRepo is the production implementation.
type Repository interface {
	Load(ctx context.Context) ([]model.Reservation, int, error)
	Save(ctx context.Context, records []model.Reservation, counter int) error
}

// Auditor receives one entry per attempted mutation.  *audit.Log satisfies it.
type Auditor interface {
	RecordAction(ctx context.Context, role model.Role, username, action, detail string, snap *audit.Snapshot) error
	RecordError(ctx context.Context, role model.Role, username, action, message string, snap *audit.Snapshot) error
}

// Actor is the authenticated principal performing an operation.
type Actor struct {
	Role     model.Role
	Username string
}

// Deps are the collaborators of a Manager.  Audit and Logger may be nil.
type Deps struct {
	Repo   Repository
	Audit  Auditor
	Clock  func() time.Time
	Tables int
	Logger *logrus.Logger
}

// ReserveRequest holds the fields of a new booking.  TableIndex is 0-based.
type ReserveRequest struct {
	Name       string
	Phone      string
	PartySize  int
	Date       string
	Time       string
	TableIndex int
}

// UpdateRequest lists the fields to change.  A nil field keeps its current
// value.
type UpdateRequest struct {
	NewID      *string
	Name       *string
	Phone      *string
	PartySize  *int
	Date       *string
	Time       *string
	TableIndex *int
}

// Manager owns the table pool, the records and the ID counter.  It is not
// safe for concurrent use.
type Manager struct {
	repo    Repository
	audit   Auditor
	now     func() time.Time
	log     *logrus.Logger
	store   *store
	counter int
}

// NewManager builds an empty Manager.  Call Open to load persisted state.
func NewManager(d Deps) *Manager {
	if d.Tables <= 0 {
		d.Tables = DefaultTables
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = utils.DiscardLogger()
	}
	return &Manager{
		repo:    d.Repo,
		audit:   d.Audit,
		now:     d.Clock,
		log:     d.Logger,
		store:   newStore(d.Tables),
		counter: 1,
	}
}

// Open replaces the in-memory state with what the repository holds.
// Records that would break the one-record-per-table or unique-ID rules are
// skipped with a warning rather than failing the load.
func (m *Manager) Open(ctx context.Context) error {
	records, counter, err := m.repo.Load(ctx)
	if err != nil {
		return err
	}
	m.store = newStore(len(m.store.available))
	for _, res := range records {
		fields := logrus.Fields{"id": res.ID, "table": res.TableIndex}
		switch {
		case !m.store.inRange(res.TableIndex):
			m.log.WithFields(fields).Warn("skipping stored reservation: table out of range")
		case m.store.exists(res.ID, ""):
			m.log.WithFields(fields).Warn("skipping stored reservation: duplicate id")
		case !m.store.isFree(res.TableIndex):
			m.log.WithFields(fields).Warn("skipping stored reservation: table already claimed")
		default:
			m.store.insert(res)
		}
	}
	m.counter = max(1, counter)
	m.log.WithFields(logrus.Fields{"records": len(m.store.byID), "counter": m.counter}).Debug("reservations loaded")
	return nil
}

// Reserve books req.TableIndex and returns the new reservation ID.  When the
// returned error wraps ErrPersistence or ErrAudit the booking exists in
// memory and the ID is still returned.
func (m *Manager) Reserve(ctx context.Context, actor Actor, req ReserveRequest) (string, error) {
	const failed = "Failed to reserve table"
	snap := &audit.Snapshot{
		Name:      req.Name,
		Phone:     req.Phone,
		PartySize: req.PartySize,
		Date:      req.Date,
		Time:      req.Time,
		Table:     req.TableIndex,
	}
	if err := m.checkReserve(req); err != nil {
		return "", m.fail(ctx, actor, failed, err, snap)
	}

	res := model.Reservation{
		ID:           m.nextID(),
		CustomerName: req.Name,
		PhoneNumber:  req.Phone,
		PartySize:    req.PartySize,
		Date:         req.Date,
		Time:         req.Time,
		TableIndex:   req.TableIndex,
	}
	m.store.insert(res)

	if err := m.persist(ctx); err != nil {
		return res.ID, m.fail(ctx, actor, failed, err, audit.SnapshotOf(res))
	}
	detail := fmt.Sprintf("#%d for %d on %s at %s", res.TableNumber(), res.PartySize, res.Date, res.Time)
	return res.ID, m.record(ctx, actor, "Reserved table", detail, res)
}

func (m *Manager) checkReserve(req ReserveRequest) error {
	ref := validate.ReferenceAt(m.now())
	switch {
	case !validate.CustomerName(req.Name):
		return invalid("name", msgName)
	case !validate.Phone(req.Phone):
		return invalid("phone", msgPhone)
	case !validate.PartySize(req.PartySize):
		return invalid("party size", msgParty)
	case !validate.Date(req.Date, ref.Date):
		return invalid("date", msgDate)
	case !validate.Time(req.Time, req.Date, ref.Date, ref.Time):
		return invalid("time", msgTime)
	}
	return m.checkTable(req.TableIndex, -1)
}

// checkTable reports whether table can be claimed by a record currently on
// own (-1 for a new record).
func (m *Manager) checkTable(table, own int) error {
	if !m.store.inRange(table) {
		return fmt.Errorf("%w: table number must be between 1 and %d", ErrTableRange, len(m.store.available))
	}
	if table != own && !m.store.isFree(table) {
		return fmt.Errorf("%w: table %d", ErrTableBooked, table+1)
	}
	return nil
}

// Cancel removes the reservation id and frees its table.
func (m *Manager) Cancel(ctx context.Context, actor Actor, id string) error {
	const failed = "Failed to cancel reservation"
	res, err := m.lookup(actor, id)
	if err != nil {
		return m.fail(ctx, actor, failed, err, &audit.Snapshot{ID: model.CanonicalID(id), Table: -1})
	}
	m.store.remove(res.ID)
	if err := m.persist(ctx); err != nil {
		return m.fail(ctx, actor, failed, err, audit.SnapshotOf(res))
	}
	return m.record(ctx, actor, "Cancelled reservation", "ID: "+res.ID, res)
}

// Update applies the non-nil fields of req to reservation id.  Every field
// is checked before anything changes, so a failed update leaves the store
// as it was.  The returned record reflects the stored state.
func (m *Manager) Update(ctx context.Context, actor Actor, id string, req UpdateRequest) (model.Reservation, error) {
	const failed = "Failed to update reservation"
	cur, err := m.lookup(actor, id)
	if err != nil {
		return model.Reservation{}, m.fail(ctx, actor, failed, err, &audit.Snapshot{ID: model.CanonicalID(id), Table: -1})
	}
	next, err := m.applyUpdate(actor, cur, req)
	if err != nil {
		return cur, m.fail(ctx, actor, failed, err, audit.SnapshotOf(cur))
	}

	m.store.replace(cur.ID, next)
	if err := m.persist(ctx); err != nil {
		return next, m.fail(ctx, actor, failed, err, audit.SnapshotOf(next))
	}
	return next, m.record(ctx, actor, "Updated reservation", "ID: "+cur.ID, next)
}

func (m *Manager) applyUpdate(actor Actor, cur model.Reservation, req UpdateRequest) (model.Reservation, error) {
	ref := validate.ReferenceAt(m.now())
	next := cur

	if req.NewID != nil {
		if actor.Role != model.RoleAdmin {
			return cur, fmt.Errorf("%w: only an admin may change a reservation id", ErrForbidden)
		}
		if !validate.ReservationID(*req.NewID) {
			return cur, invalid("new id", msgID)
		}
		next.ID = model.CanonicalID(*req.NewID)
		if m.store.exists(next.ID, cur.ID) {
			return cur, fmt.Errorf("%w: %s", ErrDuplicateID, next.ID)
		}
	}
	if req.Name != nil {
		if !validate.CustomerName(*req.Name) {
			return cur, invalid("name", msgName)
		}
		// A customer's bookings are filed under their username.
		if actor.Role == model.RoleCustomer && *req.Name != actor.Username {
			return cur, fmt.Errorf("%w: customers cannot rename a booking", ErrForbidden)
		}
		next.CustomerName = *req.Name
	}
	if req.Phone != nil {
		if !validate.Phone(*req.Phone) {
			return cur, invalid("phone", msgPhone)
		}
		next.PhoneNumber = *req.Phone
	}
	if req.PartySize != nil {
		if !validate.PartySize(*req.PartySize) {
			return cur, invalid("party size", msgParty)
		}
		next.PartySize = *req.PartySize
	}
	if req.Date != nil {
		if !validate.Date(*req.Date, ref.Date) {
			return cur, invalid("date", msgDate)
		}
		next.Date = *req.Date
	}
	// The time is judged against the date in effect after the update, so
	// moving a booking to today also rechecks the time it keeps.
	if req.Time != nil {
		next.Time = *req.Time
	}
	if req.Time != nil || req.Date != nil {
		if !validate.Time(next.Time, next.Date, ref.Date, ref.Time) {
			return cur, invalid("time", msgTime)
		}
	}
	if req.TableIndex != nil {
		if err := m.checkTable(*req.TableIndex, cur.TableIndex); err != nil {
			return cur, err
		}
		next.TableIndex = *req.TableIndex
	}
	return next, nil
}

// lookup resolves id to an active record the actor is allowed to modify.
func (m *Manager) lookup(actor Actor, id string) (model.Reservation, error) {
	if !validate.ReservationID(id) {
		return model.Reservation{}, invalid("id", msgID)
	}
	res, ok := m.store.get(id)
	if !ok {
		return model.Reservation{}, fmt.Errorf("%w: %s", ErrNotFound, model.CanonicalID(id))
	}
	if actor.Role == model.RoleCustomer && res.CustomerName != actor.Username {
		return model.Reservation{}, fmt.Errorf("%w: %s belongs to another customer", ErrForbidden, res.ID)
	}
	return res, nil
}

// Get returns the active reservation with the given ID.
func (m *Manager) Get(id string) (model.Reservation, error) {
	if !validate.ReservationID(id) {
		return model.Reservation{}, invalid("id", msgID)
	}
	res, ok := m.store.get(id)
	if !ok {
		return model.Reservation{}, fmt.Errorf("%w: %s", ErrNotFound, model.CanonicalID(id))
	}
	return res, nil
}

// ListByCustomer returns the customer's reservations ordered by ID.
func (m *Manager) ListByCustomer(name string) []model.Reservation {
	return m.store.list(func(r model.Reservation) bool { return r.CustomerName == name })
}

// ListAll returns every active reservation ordered by ID.
func (m *Manager) ListAll() []model.Reservation {
	return m.store.list(nil)
}

// HasReservations reports whether the customer holds any booking.
func (m *Manager) HasReservations(name string) bool {
	for _, r := range m.store.byID {
		if r.CustomerName == name {
			return true
		}
	}
	return false
}

// IDExists reports whether id names an active reservation other than
// excluding.  Both are compared case-insensitively.
func (m *Manager) IDExists(id, excluding string) bool {
	return m.store.exists(id, excluding)
}

// Tables returns a copy of the pool: true means the table is free.
func (m *Manager) Tables() []bool {
	return m.store.tables()
}

// nextID hands out the counter value, skipping any ID already in use.
func (m *Manager) nextID() string {
	id := model.FormatID(m.counter)
	for m.store.exists(id, "") {
		m.counter++
		id = model.FormatID(m.counter)
	}
	m.counter++
	return id
}

func (m *Manager) persist(ctx context.Context) error {
	if err := m.repo.Save(ctx, m.store.list(nil), m.counter); err != nil {
		m.log.WithError(err).Error("save reservations")
		return err
	}
	return nil
}

func (m *Manager) record(ctx context.Context, actor Actor, action, detail string, res model.Reservation) error {
	if m.audit == nil {
		return nil
	}
	return m.audit.RecordAction(ctx, actor.Role, actor.Username, action, detail, audit.SnapshotOf(res))
}

// fail audits err and returns it.  A failure to audit is joined to err.
func (m *Manager) fail(ctx context.Context, actor Actor, action string, err error, snap *audit.Snapshot) error {
	m.log.WithFields(logrus.Fields{"actor": actor.Username, "kind": KindOf(err)}).Debugf("%s: %v", action, err)
	if m.audit == nil {
		return err
	}
	if aerr := m.audit.RecordError(ctx, actor.Role, actor.Username, action, err.Error(), snap); aerr != nil {
		return errors.Join(err, aerr)
	}
	return err
}
