package entities

import "time"

// ReminderStatus - состояние напоминания.
type ReminderStatus string

// Состояния напоминания: none -> pending -> sent.
const (
	ReminderNone    ReminderStatus = "none"
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
)

// ParseReminderStatus принимает только none, pending и sent.
func ParseReminderStatus(s string) (ReminderStatus, error) {
	switch st := ReminderStatus(s); st {
	case ReminderNone, ReminderPending, ReminderSent:
		return st, nil
	default:
		return "", ErrInvalidReminder
	}
}

// Reminder - срок напоминания и его состояние.
type Reminder struct {
	DueAt  *time.Time
	Status ReminderStatus
}

// IsDue сообщает, пора ли отправлять напоминание.
func (r Reminder) IsDue(now time.Time) bool {
	return r.Status == ReminderPending && r.DueAt != nil && !r.DueAt.After(now)
}

// ScheduleReminder назначает напоминание на at. Из любого состояния
// переводит в pending, в том числе повторно после sent.
func (n *Note) ScheduleReminder(at, now time.Time) error {
	if !at.After(now) {
		return ErrReminderInPast
	}
	due := at.UTC()
	n.Reminder = Reminder{DueAt: &due, Status: ReminderPending}
	return nil
}

// ClearReminder снимает напоминание из любого состояния.
func (n *Note) ClearReminder() {
	n.Reminder = Reminder{Status: ReminderNone}
}

// MarkReminderSent переводит напоминание в sent, только если оно все еще
// pending с тем же сроком, что был отправлен.
func (n *Note) MarkReminderSent(dispatchedDue time.Time) bool {
	r := n.Reminder
	if r.Status != ReminderPending || r.DueAt == nil || !r.DueAt.Equal(dispatchedDue) {
		return false
	}
	n.Reminder.Status = ReminderSent
	return true
}
