package reminders

import (
	"context"
	"errors"
	"sync"
	"time"

	"tuition_tracker_echo/internal/models"
)

type memStore struct {
	mu        sync.Mutex
	records   []models.PaymentRecord
	logs      []models.NotificationLog
	reminded  map[uint]time.Time
	fetchErr  map[Period]error
	logErr    error
	fetchedBy []Period
}

func newMemStore(records ...models.PaymentRecord) *memStore {
	return &memStore{
		records:  records,
		reminded: make(map[uint]time.Time),
		fetchErr: make(map[Period]error),
	}
}

func (m *memStore) UnpaidRecords(_ context.Context, period Period, studentIDs ...uint) ([]models.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchedBy = append(m.fetchedBy, period)
	if err := m.fetchErr[period]; err != nil {
		return nil, err
	}

	var out []models.PaymentRecord
	for _, r := range m.records {
		if r.Month != period.Month || r.Year != period.Year || r.Status != models.PaymentStatusNotPaid {
			continue
		}
		if len(studentIDs) > 0 && !containsID(studentIDs, r.StudentID) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) LogNotification(_ context.Context, entry *models.NotificationLog, remindedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logErr != nil {
		return m.logErr
	}
	entry.ID = uint(len(m.logs) + 1)
	m.logs = append(m.logs, *entry)
	if remindedAt != nil {
		m.reminded[entry.PaymentRecordID] = *remindedAt
	}
	return nil
}

func (m *memStore) logsFor(recordID uint) []models.NotificationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.NotificationLog
	for _, l := range m.logs {
		if l.PaymentRecordID == recordID {
			out = append(out, l)
		}
	}
	return out
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type sentMessage struct {
	To   string
	Body string
}

type recordingSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]error
}

func (s *recordingSender) Send(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[to]; err != nil {
		return err
	}
	s.sent = append(s.sent, sentMessage{To: to, Body: body})
	return nil
}

var errGatewayDown = errors.New("gateway unavailable")

func unpaidRecord(id uint, name, phone string, month models.Month, year int) models.PaymentRecord {
	return models.PaymentRecord{
		ID:        id,
		StudentID: id,
		Month:     month,
		Year:      year,
		Status:    models.PaymentStatusNotPaid,
		Student: &models.Student{
			ID:                  id,
			Name:                name,
			ParentContactNumber: phone,
			Status:              models.StudentStatusActive,
		},
	}
}
