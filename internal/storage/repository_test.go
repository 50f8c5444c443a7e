package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tuition_tracker_echo/internal/models"
	"tuition_tracker_echo/internal/reminders"
	"tuition_tracker_echo/internal/services"
)

var march14 = time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := services.InitDB("sqlite://"+filepath.Join(t.TempDir(), "tuition.db"), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, services.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewRepository(db), db
}

func seedClass(t *testing.T, repo *Repository, name string) *models.Class {
	t.Helper()
	class := &models.Class{Name: name}
	require.NoError(t, repo.CreateClass(context.Background(), class))
	return class
}

func seedStudent(t *testing.T, repo *Repository, classID uint, name, phone string) *models.Student {
	t.Helper()
	student := &models.Student{ClassID: classID, Name: name, ParentContactNumber: phone}
	require.NoError(t, repo.CreateStudent(context.Background(), student, march14))
	return student
}

func markPaid(t *testing.T, repo *Repository, studentID uint, month models.Month) {
	t.Helper()
	_, err := repo.UpdatePaymentStatus(context.Background(), StatusChange{
		StudentID: studentID, Month: month, Year: 2024, Status: models.PaymentStatusPaid, MarkedBy: "admin@example.com",
	}, march14)
	require.NoError(t, err)
}

func TestRepository_CreateStudentCreatesRemainingMonths(t *testing.T) {
	repo, db := newTestRepository(t)
	class := seedClass(t, repo, "Ballet Juniors")
	student := seedStudent(t, repo, class.ID, "Ava", "4165551234")

	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.True(t, march14.Equal(student.JoinedAt))

	var records []models.PaymentRecord
	require.NoError(t, db.Where("student_id = ?", student.ID).Order("id").Find(&records).Error)
	require.Len(t, records, 10)
	assert.Equal(t, models.MonthMAR, records[0].Month)
	assert.Equal(t, models.MonthDEC, records[9].Month)
	for _, r := range records {
		assert.Equal(t, 2024, r.Year)
		assert.Equal(t, models.PaymentStatusNotPaid, r.Status)
		assert.False(t, r.Amount.Valid)
	}
}

func TestRepository_CreateStudentUnknownClass(t *testing.T) {
	repo, _ := newTestRepository(t)
	err := repo.CreateStudent(context.Background(), &models.Student{ClassID: 99, Name: "Ghost"}, march14)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_CreateClassDuplicate(t *testing.T) {
	repo, _ := newTestRepository(t)
	seedClass(t, repo, "Hip Hop")
	err := repo.CreateClass(context.Background(), &models.Class{Name: "hip hop"})
	assert.ErrorIs(t, err, ErrDuplicate)

	classes, err := repo.ListClasses(context.Background())
	require.NoError(t, err)
	assert.Len(t, classes, 1)
}

func TestRepository_UnpaidRecordsAppliesEligibility(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()
	class := seedClass(t, repo, "Ballet Juniors")

	active := seedStudent(t, repo, class.ID, "Ava", "4165551234")
	paid := seedStudent(t, repo, class.ID, "Ben", "4165552222")
	markPaid(t, repo, paid.ID, models.MonthMAR)

	// An inactive student whose unpaid record survived must not be reminded.
	inactive := seedStudent(t, repo, class.ID, "Cleo", "4165553333")
	require.NoError(t, db.Model(&models.Student{}).Where("id = ?", inactive.ID).
		Update("status", models.StudentStatusInactive).Error)

	period := reminders.Period{Month: models.MonthMAR, Year: 2024}
	records, err := repo.UnpaidRecords(ctx, period)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, active.ID, records[0].StudentID)
	require.NotNil(t, records[0].Student)
	assert.Equal(t, "Ava", records[0].Student.Name)
	assert.Equal(t, "4165551234", records[0].Student.ParentContactNumber)

	restricted, err := repo.UnpaidRecords(ctx, period, paid.ID)
	require.NoError(t, err)
	assert.Empty(t, restricted)

	other, err := repo.UnpaidRecords(ctx, reminders.Period{Month: models.MonthFEB, Year: 2024})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRepository_LogNotification(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()
	class := seedClass(t, repo, "Ballet Juniors")
	student := seedStudent(t, repo, class.ID, "Ava", "4165551234")

	records, err := repo.UnpaidRecords(ctx, reminders.Period{Month: models.MonthMAR, Year: 2024})
	require.NoError(t, err)
	require.Len(t, records, 1)
	recordID := records[0].ID

	t.Run("failure leaves last reminder untouched", func(t *testing.T) {
		entry := &models.NotificationLog{PaymentRecordID: recordID, SentAt: march14, Type: models.NotificationTypeScheduled, ErrorMessage: "invalid phone number"}
		require.NoError(t, repo.LogNotification(ctx, entry, nil))
		assert.NotZero(t, entry.ID)

		var record models.PaymentRecord
		require.NoError(t, db.First(&record, recordID).Error)
		assert.Nil(t, record.LastReminderAt)
	})

	t.Run("success stamps last reminder", func(t *testing.T) {
		at := march14.Add(time.Hour)
		entry := &models.NotificationLog{PaymentRecordID: recordID, SentAt: at, Type: models.NotificationTypeScheduled, Success: true}
		require.NoError(t, repo.LogNotification(ctx, entry, &at))

		var record models.PaymentRecord
		require.NoError(t, db.First(&record, recordID).Error)
		require.NotNil(t, record.LastReminderAt)
		assert.True(t, at.Equal(*record.LastReminderAt))
	})

	t.Run("missing record rolls back the log", func(t *testing.T) {
		at := march14
		entry := &models.NotificationLog{PaymentRecordID: 9999, SentAt: at, Type: models.NotificationTypeScheduled, Success: true}
		err := repo.LogNotification(ctx, entry, &at)
		assert.ErrorIs(t, err, ErrNotFound)

		var count int64
		require.NoError(t, db.Model(&models.NotificationLog{}).Where("payment_record_id = ?", 9999).Count(&count).Error)
		assert.Zero(t, count)
	})

	history, err := repo.NotificationHistory(ctx, student.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Success, "newest first")
}

func TestRepository_UpdatePaymentStatus(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	class := seedClass(t, repo, "Ballet Juniors")
	student := seedStudent(t, repo, class.ID, "Ava", "4165551234")

	amount := decimal.RequireFromString("120.50")
	record, err := repo.UpdatePaymentStatus(ctx, StatusChange{
		StudentID: student.ID, Month: models.MonthMAR, Year: 2024,
		Status: models.PaymentStatusPaid, Amount: &amount, MarkedBy: "admin@example.com",
	}, march14)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, record.Status)
	require.NotNil(t, record.PaidAt)
	assert.True(t, march14.Equal(*record.PaidAt))
	assert.Equal(t, "admin@example.com", record.MarkedBy)
	require.True(t, record.Amount.Valid)
	assert.True(t, amount.Equal(record.Amount.Decimal))

	record, err = repo.UpdatePaymentStatus(ctx, StatusChange{
		StudentID: student.ID, Month: models.MonthMAR, Year: 2024, Status: models.PaymentStatusNotPaid,
	}, march14)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusNotPaid, record.Status)
	assert.Nil(t, record.PaidAt)
	assert.Empty(t, record.MarkedBy)
	assert.False(t, record.Amount.Valid)

	_, err = repo.UpdatePaymentStatus(ctx, StatusChange{
		StudentID: student.ID, Month: models.MonthJAN, Year: 2024, Status: models.PaymentStatusPaid,
	}, march14)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_UpdatePaymentAmount(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	class := seedClass(t, repo, "Ballet Juniors")
	student := seedStudent(t, repo, class.ID, "Ava", "4165551234")

	record, err := repo.UpdatePaymentAmount(ctx, student.ID, models.MonthAPR, 2024, decimal.NewFromInt(95))
	require.NoError(t, err)
	require.True(t, record.Amount.Valid)
	assert.True(t, decimal.NewFromInt(95).Equal(record.Amount.Decimal))
	assert.Equal(t, models.PaymentStatusNotPaid, record.Status)
}

func TestRepository_ListAndStats(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	class := seedClass(t, repo, "Ballet Juniors")
	other := seedClass(t, repo, "Tap")

	names := []string{"Zoe", "Ava", "Mia", "Ben"}
	ids := map[string]uint{}
	for _, n := range names {
		ids[n] = seedStudent(t, repo, class.ID, n, "4165551234").ID
	}
	seedStudent(t, repo, other.ID, "Other", "4165559999")

	markPaid(t, repo, ids["Mia"], models.MonthMAR)
	markPaid(t, repo, ids["Ben"], models.MonthMAR)
	// Ben leaves after paying March: still counted for March.
	_, err := repo.DeactivateStudent(ctx, ids["Ben"], march14)
	require.NoError(t, err)
	// Zoe leaves without paying: gone from March entirely.
	_, err = repo.DeactivateStudent(ctx, ids["Zoe"], march14)
	require.NoError(t, err)

	page, err := repo.ListStudentPayments(ctx, StudentFilter{ClassID: class.ID, Month: models.MonthMAR, Year: 2024})
	require.NoError(t, err)
	require.Len(t, page.Records, 3)
	assert.Equal(t, "Ava", page.Records[0].Student.Name)
	assert.Equal(t, "Ben", page.Records[1].Student.Name)
	assert.Equal(t, "Mia", page.Records[2].Student.Name)
	assert.False(t, page.HasNext)

	unpaid, err := repo.ListStudentPayments(ctx, StudentFilter{ClassID: class.ID, Month: models.MonthMAR, Year: 2024, Status: models.PaymentStatusNotPaid})
	require.NoError(t, err)
	require.Len(t, unpaid.Records, 1)
	assert.Equal(t, ids["Ava"], unpaid.Records[0].StudentID)

	search, err := repo.ListStudentPayments(ctx, StudentFilter{ClassID: class.ID, Month: models.MonthMAR, Year: 2024, Search: "MI"})
	require.NoError(t, err)
	require.Len(t, search.Records, 1)
	assert.Equal(t, "Mia", search.Records[0].Student.Name)

	paged, err := repo.ListStudentPayments(ctx, StudentFilter{ClassID: class.ID, Month: models.MonthMAR, Year: 2024, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, paged.Records, 2)
	assert.True(t, paged.HasNext)

	stats, err := repo.PaymentStats(ctx, class.ID, models.MonthMAR, 2024)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Paid: 2, Unpaid: 1}, stats)

	// Ben has no record for April at all, so only Ava and Mia remain.
	stats, err = repo.PaymentStats(ctx, class.ID, models.MonthAPR, 2024)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Paid: 0, Unpaid: 2}, stats)
}

func TestRepository_DeactivateStudent(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()
	class := seedClass(t, repo, "Ballet Juniors")
	student := seedStudent(t, repo, class.ID, "Ava", "4165551234")
	markPaid(t, repo, student.ID, models.MonthMAR)

	records, err := repo.UnpaidRecords(ctx, reminders.Period{Month: models.MonthAPR, Year: 2024})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NoError(t, repo.LogNotification(ctx, &models.NotificationLog{PaymentRecordID: records[0].ID, SentAt: march14, Type: models.NotificationTypeScheduled}, nil))

	updated, err := repo.DeactivateStudent(ctx, student.ID, march14)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusInactive, updated.Status)
	require.NotNil(t, updated.InactiveFrom)
	assert.True(t, march14.Equal(*updated.InactiveFrom))

	var remaining []models.PaymentRecord
	require.NoError(t, db.Where("student_id = ?", student.ID).Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, models.MonthMAR, remaining[0].Month)

	var logCount int64
	require.NoError(t, db.Model(&models.NotificationLog{}).Count(&logCount).Error)
	assert.Zero(t, logCount)

	_, err = repo.DeactivateStudent(ctx, 12345, march14)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_DeleteStudentCascades(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()
	class := seedClass(t, repo, "Ballet Juniors")
	student := seedStudent(t, repo, class.ID, "Ava", "4165551234")
	keep := seedStudent(t, repo, class.ID, "Ben", "4165552222")

	records, err := repo.UnpaidRecords(ctx, reminders.Period{Month: models.MonthMAR, Year: 2024})
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, repo.LogNotification(ctx, &models.NotificationLog{PaymentRecordID: r.ID, SentAt: march14, Type: models.NotificationTypeScheduled}, nil))
	}

	_, err = repo.DeleteStudent(ctx, student.ID)
	require.NoError(t, err)

	_, err = repo.GetStudent(ctx, student.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	var recordCount, logCount int64
	require.NoError(t, db.Model(&models.PaymentRecord{}).Where("student_id = ?", student.ID).Count(&recordCount).Error)
	require.NoError(t, db.Model(&models.NotificationLog{}).Count(&logCount).Error)
	assert.Zero(t, recordCount)
	assert.Equal(t, int64(1), logCount, "other student's log survives")

	history, err := repo.NotificationHistory(ctx, keep.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRepository_UpdateStudent(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	class := seedClass(t, repo, "Ballet Juniors")
	student := seedStudent(t, repo, class.ID, "Ava", "4165551234")

	name := "  Ava Chen "
	phone := "6475550000"
	updated, err := repo.UpdateStudent(ctx, student.ID, StudentUpdate{Name: &name, ParentWhatsAppNumber: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Ava Chen", updated.Name)
	assert.Equal(t, "6475550000", updated.ParentWhatsAppNumber)
	assert.Equal(t, "4165551234", updated.ParentContactNumber)

	_, err = repo.UpdateStudent(ctx, 777, StudentUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}
