package amqp

import (
	"encoding/json"
	"time"
)

// TaskWakeupMessage tells the worker that a scheduled task is ready to run.
// The task row stays the source of truth; the message only carries its ID.
type TaskWakeupMessage struct {
	TaskID    uint      `json:"task_id"`
	TaskName  string    `json:"task_name"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTaskWakeupMessage(taskID uint, taskName string) *TaskWakeupMessage {
	return &TaskWakeupMessage{
		TaskID:    taskID,
		TaskName:  taskName,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TaskWakeupMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TaskWakeupMessageFromJSON creates a message from JSON bytes
func TaskWakeupMessageFromJSON(data []byte) (*TaskWakeupMessage, error) {
	var msg TaskWakeupMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
