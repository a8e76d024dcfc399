package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"equipment-compliance/internal/dto"
	"equipment-compliance/internal/entities"
	"equipment-compliance/internal/repositories"
	"equipment-compliance/pkg/constants"
	apperrors "equipment-compliance/pkg/errors"
	"equipment-compliance/pkg/eventbus"
	"equipment-compliance/pkg/utils"
)

// memStore - общая память для фейковых репозиториев. fakeTxManager делает
// снимок перед транзакцией и откатывает к нему при ошибке, так что тесты
// проверяют атомарность так же, как с настоящей БД.
type memStore struct {
	mu sync.Mutex

	tickets      map[uint64]entities.Ticket
	equipment    map[uint64]entities.Equipment
	vendors      map[uint64]entities.Vendor
	reminders    map[string]entities.ReminderRecord
	nextTicketID uint64

	failUpdateSchedule error
}

func newMemStore() *memStore {
	return &memStore{
		tickets:      map[uint64]entities.Ticket{},
		equipment:    map[uint64]entities.Equipment{},
		vendors:      map[uint64]entities.Vendor{},
		reminders:    map[string]entities.ReminderRecord{},
		nextTicketID: 1,
	}
}

type memSnapshot struct {
	tickets   map[uint64]entities.Ticket
	equipment map[uint64]entities.Equipment
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := memSnapshot{
		tickets:   make(map[uint64]entities.Ticket, len(m.tickets)),
		equipment: make(map[uint64]entities.Equipment, len(m.equipment)),
	}
	for k, v := range m.tickets {
		snap.tickets[k] = v
	}
	for k, v := range m.equipment {
		snap.equipment[k] = v
	}
	return snap
}

func (m *memStore) restore(snap memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = snap.tickets
	m.equipment = snap.equipment
}

func (m *memStore) ticket(id uint64) entities.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets[id]
}

func (m *memStore) equipmentByID(id uint64) entities.Equipment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.equipment[id]
}

// ---------------------------------------------------------------

type fakeTxManager struct {
	store *memStore
	calls int
}

func (f *fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	f.calls++
	snap := f.store.snapshot()
	if err := fn(nil); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

var _ repositories.TxManagerInterface = (*fakeTxManager)(nil)

// ---------------------------------------------------------------

type fakeTicketRepo struct {
	store     *memStore
	createErr error
}

var _ repositories.TicketRepositoryInterface = (*fakeTicketRepo)(nil)

func (r *fakeTicketRepo) CreateTicket(ctx context.Context, ticket entities.Ticket) (uint64, error) {
	if r.createErr != nil {
		return 0, r.createErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	id := r.store.nextTicketID
	r.store.nextTicketID++
	now := time.Now().UTC()
	ticket.ID = id
	ticket.Status = constants.TicketStatusOpen
	ticket.CreatedAt = &now
	ticket.UpdatedAt = &now
	r.store.tickets[id] = ticket
	return id, nil
}

func (r *fakeTicketRepo) FindTicket(ctx context.Context, id uint64) (*entities.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tickets[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &t, nil
}

func (r *fakeTicketRepo) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Ticket, error) {
	return r.FindTicket(ctx, id)
}

func (r *fakeTicketRepo) MarkResolvedInTx(ctx context.Context, tx pgx.Tx, id uint64, resolution string, hours float64, resolvedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tickets[id]
	if !ok || t.Status != constants.TicketStatusOpen {
		return apperrors.NewInvalidStateTransition(id, t.Status, constants.TicketStatusResolved)
	}
	t.Status = constants.TicketStatusResolved
	t.ResolutionDescription = &resolution
	t.CalculatedHours = &hours
	t.ResolvedAt = &resolvedAt
	r.store.tickets[id] = t
	return nil
}

func (r *fakeTicketRepo) MarkClosedInTx(ctx context.Context, tx pgx.Tx, id uint64, closedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tickets[id]
	if !ok || t.Status != constants.TicketStatusResolved {
		return apperrors.NewInvalidStateTransition(id, t.Status, constants.TicketStatusClosed)
	}
	t.Status = constants.TicketStatusClosed
	t.ClosedAt = &closedAt
	r.store.tickets[id] = t
	return nil
}

// ---------------------------------------------------------------

type fakeEquipmentRepo struct{ store *memStore }

var _ repositories.EquipmentRepositoryInterface = (*fakeEquipmentRepo)(nil)

func (r *fakeEquipmentRepo) FindEquipment(ctx context.Context, id uint64) (*entities.Equipment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.equipment[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &e, nil
}

func (r *fakeEquipmentRepo) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	return r.FindEquipment(ctx, id)
}

func (r *fakeEquipmentRepo) FindBySerialForUpdateInTx(ctx context.Context, tx pgx.Tx, serial string) (*entities.Equipment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.equipment {
		if e.SerialNumber == serial {
			return &e, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeEquipmentRepo) UpdateScheduleInTx(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failUpdateSchedule != nil {
		return r.store.failUpdateSchedule
	}
	if _, ok := r.store.equipment[equipment.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.store.equipment[equipment.ID] = *equipment
	return nil
}

func (r *fakeEquipmentRepo) UpdateComplianceStatusIfUnchanged(ctx context.Context, snapshot *entities.Equipment, status constants.ComplianceStatus) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.equipment[snapshot.ID]
	if !ok || !sameDate(e.NextMaintenanceDate, snapshot.NextMaintenanceDate) || !sameDate(e.ExpirationDate, snapshot.ExpirationDate) {
		return false, nil
	}
	e.ComplianceStatus = status
	r.store.equipment[snapshot.ID] = e
	return true, nil
}

// sameDate - аналог IS NOT DISTINCT FROM для nullable-дат.
func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (r *fakeEquipmentRepo) ListSchedules(ctx context.Context, afterID uint64, limit uint64) ([]entities.Equipment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ids := make([]uint64, 0, len(r.store.equipment))
	for id := range r.store.equipment {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if uint64(len(ids)) > limit {
		ids = ids[:limit]
	}
	list := make([]entities.Equipment, 0, len(ids))
	for _, id := range ids {
		list = append(list, r.store.equipment[id])
	}
	return list, nil
}

func (r *fakeEquipmentRepo) FindReminderCandidates(ctx context.Context, kind constants.ReminderKind, from, to time.Time) ([]entities.ReminderCandidate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var candidates []entities.ReminderCandidate
	for _, e := range r.store.equipment {
		var date *time.Time
		switch kind {
		case constants.ReminderMaintenanceDue:
			date = e.NextMaintenanceDate
		case constants.ReminderExpiration:
			date = e.ExpirationDate
		default:
			return nil, fmt.Errorf("неизвестный тип напоминания: %s", kind)
		}
		if date == nil || date.Before(from) || date.After(to) {
			continue
		}
		vendor, ok := r.store.vendors[e.VendorID]
		if !ok || !vendor.IsActive {
			continue
		}
		typeName := ""
		if e.EquipmentType != nil {
			typeName = e.EquipmentType.Name
		}
		candidates = append(candidates, entities.ReminderCandidate{
			EquipmentID:       e.ID,
			SerialNumber:      e.SerialNumber,
			EquipmentTypeName: typeName,
			DueDate:           *date,
			Vendor:            vendor,
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].EquipmentID < candidates[j].EquipmentID })
	return candidates, nil
}

// ---------------------------------------------------------------

// fakeReminderRepo повторяет уникальный индекс (entity_type, entity_id, kind, period_key).
type fakeReminderRepo struct {
	store     *memStore
	insertErr error
}

var _ repositories.ReminderRepositoryInterface = (*fakeReminderRepo)(nil)

func reminderKey(r entities.ReminderRecord) string {
	return fmt.Sprintf("%s|%d|%s|%s", r.EntityType, r.EntityID, r.Kind, r.PeriodKey)
}

func (r *fakeReminderRepo) TryInsert(ctx context.Context, record entities.ReminderRecord) (bool, error) {
	if r.insertErr != nil {
		return false, r.insertErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := reminderKey(record)
	if _, exists := r.store.reminders[key]; exists {
		return false, nil
	}
	r.store.reminders[key] = record
	return true, nil
}

func (r *fakeReminderRepo) Release(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for key, rec := range r.store.reminders {
		if rec.ID == id {
			delete(r.store.reminders, key)
		}
	}
	return nil
}

func (r *fakeReminderRepo) Count(ctx context.Context, entityType string, entityID uint64, kind constants.ReminderKind) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := 0
	for _, rec := range r.store.reminders {
		if rec.EntityType == entityType && rec.EntityID == entityID && rec.Kind == kind {
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------

// fakeCache - Redis в памяти для блокировки запуска.
type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
}

var _ repositories.CacheRepositoryInterface = (*fakeCache)(nil)

func newFakeCache() *fakeCache { return &fakeCache{data: map[string]string{}} }

func (c *fakeCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = fmt.Sprint(value)
	return true, nil
}

func (c *fakeCache) DelIfValue(ctx context.Context, key string, value string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data[key] != value {
		return false, nil
	}
	delete(c.data, key)
	return true, nil
}

// put подменяет владельца ключа, как будто TTL истёк и ключ взял другой запуск.
func (c *fakeCache) put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

func (c *fakeCache) get(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key]
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// ---------------------------------------------------------------

type sentMessage struct {
	Recipient Recipient
	Template  string
	Data      TemplateData
}

// fakeSender запоминает отправки; failFor задаёт ошибку по серийному номеру.
type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]error
	onSend  func()
}

func (s *fakeSender) Send(ctx context.Context, recipient Recipient, templateKind string, data TemplateData) error {
	if s.onSend != nil {
		s.onSend()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[data.SerialNumber]; ok {
		return err
	}
	s.sent = append(s.sent, sentMessage{Recipient: recipient, Template: templateKind, Data: data})
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// ---------------------------------------------------------------

type fakePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.Name())
	}
	return names
}

// ---------------------------------------------------------------

// fakeDependencyRepo хранит счётчики зависимостей; beforeRecount срабатывает
// между блокировкой и пересчётом в Delete и имитирует конкурентную вставку.
type fakeDependencyRepo struct {
	mu            sync.Mutex
	existing      map[string]bool
	counts        map[string]map[string]uint64
	deleted       []string
	locked        []string
	beforeRecount func()
	inDelete      bool
	// clientVendor: клиент -> поставщик, удаление клиента уменьшает счётчик поставщика.
	clientVendor map[uint64]uint64
}

var _ repositories.DependencyRepositoryInterface = (*fakeDependencyRepo)(nil)

func depKey(entityType string, id uint64) string { return fmt.Sprintf("%s:%d", entityType, id) }

func newFakeDependencyRepo() *fakeDependencyRepo {
	return &fakeDependencyRepo{existing: map[string]bool{}, counts: map[string]map[string]uint64{}}
}

func (r *fakeDependencyRepo) add(entityType string, id uint64, counts map[string]uint64) {
	r.existing[depKey(entityType, id)] = true
	r.counts[depKey(entityType, id)] = counts
}

func (r *fakeDependencyRepo) checkType(entityType string) error {
	if entityType != constants.EntityVendor && entityType != constants.EntityClient {
		return apperrors.NewValidationError("entityType", "неизвестный тип сущности '%s'", entityType)
	}
	return nil
}

func (r *fakeDependencyRepo) CountDependents(ctx context.Context, tx pgx.Tx, entityType string, id uint64) (map[string]uint64, error) {
	if err := r.checkType(entityType); err != nil {
		return nil, err
	}
	r.mu.Lock()
	hook := r.beforeRecount
	inDelete := r.inDelete
	r.mu.Unlock()
	if inDelete && hook != nil {
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	src := r.counts[depKey(entityType, id)]
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}

func (r *fakeDependencyRepo) Exists(ctx context.Context, tx pgx.Tx, entityType string, id uint64) error {
	if err := r.checkType(entityType); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.existing[depKey(entityType, id)] {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *fakeDependencyRepo) LockForDeleteInTx(ctx context.Context, tx pgx.Tx, entityType string, id uint64) error {
	if err := r.Exists(ctx, tx, entityType, id); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = append(r.locked, depKey(entityType, id))
	r.inDelete = true
	return nil
}

func (r *fakeDependencyRepo) DeleteInTx(ctx context.Context, tx pgx.Tx, entityType string, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := depKey(entityType, id)
	if !r.existing[key] {
		return apperrors.ErrNotFound
	}
	delete(r.existing, key)
	r.deleted = append(r.deleted, key)
	if vendorID, ok := r.clientVendor[id]; ok && entityType == constants.EntityClient {
		if counts := r.counts[depKey(constants.EntityVendor, vendorID)]; counts[dto.CountClients] > 0 {
			counts[dto.CountClients]--
		}
	}
	return nil
}

// ---------------------------------------------------------------

func date(s string) time.Time {
	t, err := utils.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func fixedNow(s string) func() time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func zeroCounts() map[string]uint64 {
	return map[string]uint64{
		dto.CountClients:       0,
		dto.CountEquipment:     0,
		dto.CountAssignments:   0,
		dto.CountActiveTickets: 0,
	}
}
