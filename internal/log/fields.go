package log

// Common attribute keys
const (
	FieldComponent        = "component"
	FieldError            = "error"
	FieldRunID            = "run_id"
	FieldRecordID         = "record_id"
	FieldStudentID        = "student_id"
	FieldClassID          = "class_id"
	FieldNotificationType = "notification_type"
	FieldMonth            = "month"
	FieldYear             = "year"
	FieldTaskID           = "task_id"
	FieldTaskName         = "task_name"
	FieldDuration         = "duration"
	FieldCount            = "count"
)
