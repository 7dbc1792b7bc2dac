package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"project-tracker/internal/model"
	"project-tracker/internal/notify"
	"project-tracker/internal/repository"
)

// SweepResult reports what one reminder sweep did.
type SweepResult struct {
	OverdueTasks int
	Notified     int
	Pushed       int
	PushFailures int
}

// ReminderService turns overdue tasks into user notifications.
type ReminderService struct {
	tasks         *repository.TaskRepository
	users         *repository.UserRepository
	notifications *repository.NotificationRepository
	notifier      notify.Notifier
	logger        *log.Logger
}

func NewReminderService(
	tasks *repository.TaskRepository,
	users *repository.UserRepository,
	notifications *repository.NotificationRepository,
	notifier notify.Notifier,
	logger *log.Logger,
) *ReminderService {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &ReminderService{tasks: tasks, users: users, notifications: notifications, notifier: notifier, logger: logger}
}

// Sweep records one notification per active user when any task is overdue,
// and pushes the same summary to users that linked a Telegram chat.
func (s *ReminderService) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult
	today := model.DateOf(now)

	overdue, err := s.tasks.Overdue(ctx, today, 0)
	if err != nil {
		return res, err
	}
	res.OverdueTasks = len(overdue)
	if len(overdue) == 0 {
		return res, nil
	}

	users, err := s.users.ListActive(ctx)
	if err != nil {
		return res, err
	}
	plain := OverdueSummary(overdue, today, false)
	rich := OverdueSummary(overdue, today, true)

	for _, user := range users {
		if err := s.notifications.Create(ctx, &model.UserNotification{UserID: user.ID, Message: plain}); err != nil {
			return res, fmt.Errorf("notify user %d: %w", user.ID, err)
		}
		res.Notified++

		if s.notifier == nil || user.Settings == nil || user.Settings.TelegramChatID == 0 {
			continue
		}
		if err := s.notifier.Notify(ctx, user.Settings.TelegramChatID, rich); err != nil {
			res.PushFailures++
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("push overdue reminder")
			continue
		}
		res.Pushed++
	}
	return res, nil
}

// OverdueSummary renders the reminder text. With markup set the text is
// escaped for Telegram's HTML parse mode.
func OverdueSummary(tasks []model.Task, today model.Date, markup bool) string {
	esc := func(s string) string { return strings.TrimSpace(s) }
	if markup {
		esc = func(s string) string { return html.EscapeString(strings.TrimSpace(s)) }
	}

	var sb strings.Builder
	header := fmt.Sprintf("You have %d overdue %s:", len(tasks), pluralWord(len(tasks), "task"))
	if markup {
		header = "<b>" + header + "</b>"
	}
	sb.WriteString(header)
	for _, task := range tasks {
		sb.WriteString("\n⚠️ ")
		sb.WriteString(esc(task.Title))
		if name := task.ProjectName(); name != "" {
			if markup {
				sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", esc(name)))
			} else {
				sb.WriteString(fmt.Sprintf(" (%s)", esc(name)))
			}
		}
		late := daysBetween(*task.DueDate, today)
		sb.WriteString(fmt.Sprintf(", due %s, %d %s late", task.DueDate, late, pluralWord(late, "day")))
	}
	return sb.String()
}

func daysBetween(from, to model.Date) int {
	return int(to.Time().Sub(from.Time()).Hours() / 24)
}

func pluralWord(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
