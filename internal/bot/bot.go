package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"study-planner/internal/config"
	"study-planner/internal/model"
	"study-planner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageSubject
	stageTitle
	stageDueDate
	stagePriority
	stageReminder
	stageCustomTime
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
	cbForgetConfirm  = "forget:yes"
	cbForgetCancel   = "forget:no"
)

const (
	btnSkip          = "⏭️ Skip"
	btnCancelDialog  = "⏪ Cancel"
	btnToday         = "Today"
	btnTomorrow      = "Tomorrow"
	menuLabelNewTask = "➕ New task"
	menuLabelTasks   = "📋 Tasks"
	menuLabelStats   = "⭐ Stats"
	menuLabelTop     = "🏆 Top"
	leaderboardSize  = 10
)

type conversationState struct {
	stage conversationStage
	input model.TaskInput
}

// Bot is the chat front end composing the task store and the ledger.
type Bot struct {
	api           *tgbotapi.BotAPI
	tasks         *service.TaskStore
	ledger        *service.Ledger
	subjects      *service.SubjectService
	reminders     *service.ReminderService
	config        *config.Config
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(token string, tasks *service.TaskStore, ledger *service.Ledger, subjects *service.SubjectService, reminders *service.ReminderService, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		tasks:         tasks,
		ledger:        ledger,
		subjects:      subjects,
		reminders:     reminders,
		config:        cfg,
		conversations: make(map[int64]*conversationState),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && strings.TrimSpace(msg.Text) == btnCancelDialog {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Task creation cancelled.")
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	switch strings.TrimSpace(msg.Text) {
	case menuLabelNewTask:
		return b.startNewTask(ctx, msg)
	case menuLabelTasks:
		return b.sendTaskList(ctx, msg.Chat.ID, msg.From)
	case menuLabelStats:
		return b.handleStats(ctx, msg)
	case menuLabelTop:
		return b.handleTop(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Send /newtask to add homework or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "newtask":
		return b.startNewTask(ctx, msg)
	case "tasks":
		return b.sendTaskList(ctx, msg.Chat.ID, msg.From)
	case "complete":
		return b.handleComplete(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "stats":
		return b.handleStats(ctx, msg)
	case "top":
		return b.handleTop(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "name":
		return b.handleName(ctx, msg)
	case "plan":
		return b.handlePlan(ctx, msg)
	case "forget":
		return b.askForgetConfirmation(msg.Chat.ID)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Task creation cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	profile, err := b.ledger.GetProfile(ctx, uidOf(msg.From))
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if profile.Name == "" && name != "" {
		if err := b.ledger.UpdateProfile(ctx, profile.UID, model.ProfilePatch{Name: &name}); err != nil {
			return b.sendError(msg.Chat.ID, err)
		}
	}
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep track of your homework and reward you for finishing it.</b>\n\n%s",
		escape(name), commandList)
	return b.sendText(msg.Chat.ID, text)
}

const commandList = "• /newtask — add homework step by step\n" +
	"• /tasks — list tasks with complete/delete buttons\n" +
	"• /complete &lt;n&gt; — complete task number n\n" +
	"• /delete &lt;n&gt; — delete task number n\n" +
	"• /stats — your level, XP and streak\n" +
	"• /top — leaderboard\n" +
	"• /report — daily summary now\n" +
	"• /name &lt;name&gt; — set your leaderboard name\n" +
	"• /forget — delete all your data\n" +
	"• /cancel — stop the current dialog"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Commands</b>\n"+commandList)
}

func (b *Bot) startNewTask(ctx context.Context, msg *tgbotapi.Message) error {
	profile, err := b.ledger.GetProfile(ctx, uidOf(msg.From))
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	subjects, err := b.subjects.List(ctx, profile.UID, profile.IsPremium())
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	b.setConversation(msg.From.ID, &conversationState{stage: stageSubject})
	return b.sendWithReplyMarkup(msg.Chat.ID, "📚 Which subject is it for?", subjectKeyboard(subjects))
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	text := strings.TrimSpace(msg.Text)

	switch state.stage {
	case stageSubject:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The subject can't be empty.", cancelKeyboard())
		}
		state.input.Subject = text
		state.stage = stageTitle
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ What is the assignment?", cancelKeyboard())

	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The title can't be empty.", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "📅 When is it due? (YYYY-MM-DD)", dueDateKeyboard())

	case stageDueDate:
		due, ok := b.parseDueDate(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Use the YYYY-MM-DD format, e.g. 2025-03-05.", dueDateKeyboard())
		}
		state.input.DueDate = due
		state.stage = stagePriority
		return b.sendWithReplyMarkup(msg.Chat.ID, "❗ Priority?", priorityKeyboard())

	case stagePriority:
		priority := model.Priority(strings.ToLower(text))
		switch priority {
		case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
		default:
			if text != btnSkip {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Pick low, medium or high.", priorityKeyboard())
			}
			priority = model.PriorityMedium
		}
		state.input.Priority = priority
		state.stage = stageReminder
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ Reminder? Free plan: sameday. Premium: 2h, 1d, custom.", reminderKeyboard())

	case stageReminder:
		reminder := model.Reminder(strings.ToLower(text))
		if text == btnSkip {
			reminder = model.ReminderNone
		}
		switch reminder {
		case model.ReminderNone, model.ReminderSameDay, model.ReminderTwoHours, model.ReminderOneDay, model.ReminderCustom:
		default:
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the offered reminders.", reminderKeyboard())
		}
		profile, err := b.ledger.GetProfile(ctx, uidOf(msg.From))
		if err != nil {
			b.clearConversation(msg.From.ID)
			return b.sendError(msg.Chat.ID, err)
		}
		if !reminder.FreeReminder() && !profile.IsPremium() {
			return b.sendWithReplyMarkup(msg.Chat.ID, "💎 That reminder is a premium feature. Pick sameday or skip.", reminderKeyboard())
		}
		state.input.Reminder = reminder
		if reminder == model.ReminderCustom {
			state.stage = stageCustomTime
			return b.sendWithReplyMarkup(msg.Chat.ID, "🕒 At what time on the due day? (HH:MM)", cancelKeyboard())
		}
		return b.finishTaskCreation(ctx, msg.From, msg.Chat.ID, profile, state.input)

	case stageCustomTime:
		if _, err := time.Parse("15:04", text); err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Use the HH:MM format, e.g. 18:30.", cancelKeyboard())
		}
		state.input.ReminderCustomTime = &text
		profile, err := b.ledger.GetProfile(ctx, uidOf(msg.From))
		if err != nil {
			b.clearConversation(msg.From.ID)
			return b.sendError(msg.Chat.ID, err)
		}
		return b.finishTaskCreation(ctx, msg.From, msg.Chat.ID, profile, state.input)
	}

	b.clearConversation(msg.From.ID)
	return nil
}

func (b *Bot) finishTaskCreation(ctx context.Context, from *tgbotapi.User, chatID int64, profile model.Profile, input model.TaskInput) error {
	b.clearConversation(from.ID)

	id, err := b.tasks.Create(ctx, profile.UID, input, profile.IsPremium())
	if err != nil {
		return b.sendError(chatID, err)
	}

	log.Printf("[info] task created user=%s task=%s premium=%t", profile.UID, id, profile.IsPremium())
	return b.sendText(chatID, fmt.Sprintf("✅ Added «%s» for %s, due %s.",
		escape(input.Title), escape(input.Subject), input.DueDate))
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	profile, tasks, err := b.listTasks(ctx, from)
	if err != nil {
		return b.sendError(chatID, err)
	}

	if len(tasks) == 0 {
		return b.sendText(chatID, "🎉 No tasks. Add one with /newtask.")
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Your tasks</b>\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, task := range tasks {
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, service.FormatTask(task)))
		if task.IsCompleted {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ %d", i+1), cbCompletePrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 %d", i+1), cbDeletePrefix+task.ID),
		))
	}
	if !profile.IsPremium() {
		sb.WriteString("\nCompleted tasks are kept for 30 days on the free plan.")
	}

	if len(rows) == 0 {
		return b.sendText(chatID, sb.String())
	}
	return b.sendWithReplyMarkup(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message) error {
	task, ok, err := b.taskByIndex(ctx, msg)
	if !ok || err != nil {
		return err
	}
	return b.completeTask(ctx, msg.Chat.ID, msg.From, task.ID)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	task, ok, err := b.taskByIndex(ctx, msg)
	if !ok || err != nil {
		return err
	}
	return b.deleteTask(ctx, msg.Chat.ID, msg.From, task.ID)
}

// taskByIndex resolves the 1-based task number in the command arguments.
// ok is false when a reply explaining the problem was already sent.
func (b *Bot) taskByIndex(ctx context.Context, msg *tgbotapi.Message) (model.Task, bool, error) {
	n, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil || n <= 0 {
		return model.Task{}, false, b.sendText(msg.Chat.ID, fmt.Sprintf("Give the task number from /tasks: /%s 2", msg.Command()))
	}
	_, tasks, err := b.listTasks(ctx, msg.From)
	if err != nil {
		return model.Task{}, false, b.sendError(msg.Chat.ID, err)
	}
	if n > len(tasks) {
		return model.Task{}, false, b.sendText(msg.Chat.ID, "No task with that number.")
	}
	return tasks[n-1], true, nil
}

var (
	errTaskNotFound = errors.New("task not found")
	errTaskDone     = errors.New("task already completed")
)

func (b *Bot) completeTask(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string) error {
	task, award, err := b.finishTask(ctx, from, taskID)
	if err != nil {
		return b.sendError(chatID, err)
	}
	return b.sendText(chatID, completionText(task, service.CompletionXP(task.Priority), award))
}

// finishTask marks one of the caller's tasks done and awards xp for it.
func (b *Bot) finishTask(ctx context.Context, from *tgbotapi.User, taskID string) (model.Task, service.Award, error) {
	profile, task, err := b.ownedTask(ctx, from, taskID)
	if err != nil {
		return model.Task{}, service.Award{}, err
	}
	if task.IsCompleted {
		return model.Task{}, service.Award{}, errTaskDone
	}

	if err := b.tasks.Update(ctx, task.ID, model.Completed(true), profile.IsPremium()); err != nil {
		return model.Task{}, service.Award{}, err
	}

	xp := service.CompletionXP(task.Priority)
	award, err := b.ledger.AwardXP(ctx, profile.UID, xp)
	if err != nil {
		return model.Task{}, service.Award{}, err
	}
	log.Printf("[info] task completed user=%s task=%s xp=%d level=%d streak=%d", profile.UID, task.ID, xp, award.NewLevel, award.NewStreak)
	task.IsCompleted = true
	return task, award, nil
}

func completionText(task model.Task, xp int, award service.Award) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ «%s» done! +%d XP", escape(task.Title), xp))
	if award.DidLevelUp {
		sb.WriteString(fmt.Sprintf("\n🎉 Level up! You are now level %d.", award.NewLevel))
	}
	if award.StreakExtended {
		sb.WriteString(fmt.Sprintf("\n🔥 Streak: %d days.", award.NewStreak))
	}
	return sb.String()
}

func (b *Bot) deleteTask(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string) error {
	if err := b.removeTask(ctx, from, taskID); err != nil {
		return b.sendError(chatID, err)
	}
	return b.sendText(chatID, "🗑 Task deleted.")
}

// removeTask deletes one of the caller's tasks.
func (b *Bot) removeTask(ctx context.Context, from *tgbotapi.User, taskID string) error {
	profile, task, err := b.ownedTask(ctx, from, taskID)
	if err != nil {
		return err
	}
	if err := b.tasks.Delete(ctx, task.ID, profile.IsPremium()); err != nil {
		return err
	}
	log.Printf("[info] task deleted user=%s task=%s", profile.UID, task.ID)
	return nil
}

// ownedTask looks taskID up among the caller's own tasks.
func (b *Bot) ownedTask(ctx context.Context, from *tgbotapi.User, taskID string) (model.Profile, model.Task, error) {
	profile, tasks, err := b.listTasks(ctx, from)
	if err != nil {
		return model.Profile{}, model.Task{}, err
	}
	task, found := findTask(tasks, taskID)
	if !found {
		return model.Profile{}, model.Task{}, errTaskNotFound
	}
	return profile, task, nil
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	profile, err := b.ledger.GetProfile(ctx, uidOf(msg.From))
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	active, err := b.tasks.Count(ctx, profile.UID, profile.IsPremium())
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}

	quota := "unlimited"
	if !profile.IsPremium() {
		quota = fmt.Sprintf("%d/%d", active, service.FreeActiveTaskLimit)
	}
	text := fmt.Sprintf("⭐ <b>Level %d</b>\nXP: %d (next level at %d)\n🔥 Streak: %d days\n📋 Active tasks: %s\n💎 Plan: %s",
		profile.Level, profile.XP, profile.Level*model.XPPerLevel, profile.Streak, quota, profile.Plan)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleTop(ctx context.Context, msg *tgbotapi.Message) error {
	profiles, err := b.ledger.GetLeaderboard(ctx, leaderboardSize)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	if len(profiles) == 0 {
		return b.sendText(msg.Chat.ID, "The leaderboard is empty.")
	}

	var sb strings.Builder
	sb.WriteString("🏆 <b>Leaderboard</b>\n")
	for i, p := range profiles {
		name := p.Name
		if name == "" {
			name = "anonymous"
		}
		sb.WriteString(fmt.Sprintf("%d. %s · level %d · %d XP\n", i+1, escape(name), p.Level, p.XP))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	profile, tasks, err := b.listTasks(ctx, msg.From)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, b.reminders.DailySummary(profile, tasks, time.Now()))
}

func (b *Bot) handleName(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		return b.sendText(msg.Chat.ID, "Usage: /name Alex")
	}
	if err := b.ledger.UpdateProfile(ctx, uidOf(msg.From), model.ProfilePatch{Name: &name}); err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("👤 You appear as %s on the leaderboard.", escape(name)))
}

func (b *Bot) handlePlan(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.config.AdminIDs[msg.From.ID] {
		return b.sendText(msg.Chat.ID, "💎 Premium is activated after purchase in the app.")
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /plan &lt;user id&gt; free|premium")
	}
	plan, ok := model.ParsePlan(args[1])
	if !ok {
		return b.sendText(msg.Chat.ID, "Plan must be free or premium.")
	}
	if err := b.ledger.UpdatePlan(ctx, args[0], plan); err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	log.Printf("[info] plan changed user=%s plan=%s by=%d", args[0], plan, msg.From.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("User %s is now on the %s plan.", escape(args[0]), plan))
}

func (b *Bot) askForgetConfirmation(chatID int64) error {
	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Delete everything", cbForgetConfirm),
		tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", cbForgetCancel),
	))
	return b.sendWithReplyMarkup(chatID, "⚠️ This deletes all your tasks, XP and streak. Continue?", markup)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	chatID := cb.Message.Chat.ID
	data := cb.Data
	log.Printf("[info] callback user=%d data=%s", cb.From.ID, data)

	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		return b.completeTask(ctx, chatID, cb.From, strings.TrimPrefix(data, cbCompletePrefix))
	case strings.HasPrefix(data, cbDeletePrefix):
		return b.deleteTask(ctx, chatID, cb.From, strings.TrimPrefix(data, cbDeletePrefix))
	case data == cbForgetConfirm:
		uid := uidOf(cb.From)
		if err := b.ledger.DeleteUserData(ctx, uid); err != nil {
			return b.sendError(chatID, err)
		}
		log.Printf("[info] user data deleted user=%s", uid)
		return b.sendText(chatID, "All your data has been deleted.")
	case data == cbForgetCancel:
		return b.sendText(chatID, "Nothing was deleted.")
	}
	return nil
}

// SendDailyReports sends every user a summary of their tasks.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	profiles, err := b.ledger.Profiles(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, profile := range profiles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		chatID, ok := chatIDOf(profile.UID)
		if !ok {
			continue
		}
		tasks, err := b.tasks.List(ctx, profile.UID, profile.IsPremium())
		if err != nil {
			log.Printf("list tasks for %s: %v", profile.UID, err)
			continue
		}
		if err := b.sendText(chatID, b.reminders.DailySummary(profile, tasks, now)); err != nil {
			log.Printf("send summary to %d: %v", chatID, err)
		}
	}
	return nil
}

// SendDueReminders notifies users about reminders firing in (from, to].
func (b *Bot) SendDueReminders(ctx context.Context, from, to time.Time) error {
	profiles, err := b.ledger.Profiles(ctx)
	if err != nil {
		return err
	}
	for _, profile := range profiles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		chatID, ok := chatIDOf(profile.UID)
		if !ok {
			continue
		}
		tasks, err := b.tasks.List(ctx, profile.UID, profile.IsPremium())
		if err != nil {
			log.Printf("list tasks for %s: %v", profile.UID, err)
			continue
		}
		for _, due := range b.reminders.Due(tasks, from, to) {
			if err := b.sendText(chatID, b.reminders.FormatReminder(due)); err != nil {
				log.Printf("send reminder to %d: %v", chatID, err)
			}
		}
	}
	return nil
}

func (b *Bot) listTasks(ctx context.Context, from *tgbotapi.User) (model.Profile, []model.Task, error) {
	profile, err := b.ledger.GetProfile(ctx, uidOf(from))
	if err != nil {
		return model.Profile{}, nil, err
	}
	tasks, err := b.tasks.List(ctx, profile.UID, profile.IsPremium())
	if err != nil {
		return model.Profile{}, nil, err
	}
	return profile, tasks, nil
}

func (b *Bot) parseDueDate(text string) (string, bool) {
	now := time.Now().In(b.config.Location)
	switch text {
	case btnToday:
		return now.Format(model.DateLayout), true
	case btnTomorrow:
		return now.AddDate(0, 0, 1).Format(model.DateLayout), true
	}
	if _, err := time.Parse(model.DateLayout, text); err != nil {
		return "", false
	}
	return text, true
}

// sendError turns store errors into the reply the user should see.
func (b *Bot) sendError(chatID int64, err error) error {
	log.Printf("[warn] chat %d: %v", chatID, err)
	return b.sendText(chatID, errorText(err))
}

func errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrQuotaExceeded):
		return fmt.Sprintf("📦 The free plan holds %d active tasks. Finish or delete one, or upgrade to 💎 premium for unlimited tasks.", service.FreeActiveTaskLimit)
	case errors.Is(err, service.ErrRemoteStore):
		return "☁️ Couldn't reach the cloud right now. Please retry in a moment."
	case errors.Is(err, errTaskNotFound):
		return "Task not found. Refresh with /tasks."
	case errors.Is(err, errTaskDone):
		return "That task is already done."
	case errors.Is(err, model.ErrInvalidTask):
		return fmt.Sprintf("⚠️ %s", escape(err.Error()))
	default:
		return "Something went wrong. Please try again."
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.conversations[userID]
	return ok && state.stage != stageNone
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func findTask(tasks []model.Task, id string) (model.Task, bool) {
	for _, task := range tasks {
		if task.ID == id {
			return task, true
		}
	}
	return model.Task{}, false
}

// uidOf maps a Telegram account to a profile uid. Private chats share the user's id.
func uidOf(from *tgbotapi.User) string {
	return strconv.FormatInt(from.ID, 10)
}

func chatIDOf(uid string) (int64, bool) {
	id, err := strconv.ParseInt(uid, 10, 64)
	return id, err == nil
}

func escape(s string) string {
	return html.EscapeString(s)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelStats),
			tgbotapi.NewKeyboardButton(menuLabelTop),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	return kb
}

// subjectKeyboard offers known subjects, three per row.
func subjectKeyboard(subjects []string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for _, name := range subjects {
		row = append(row, tgbotapi.NewKeyboardButton(name))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func dueDateKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnToday),
			tgbotapi.NewKeyboardButton(btnTomorrow),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(string(model.PriorityLow)),
			tgbotapi.NewKeyboardButton(string(model.PriorityMedium)),
			tgbotapi.NewKeyboardButton(string(model.PriorityHigh)),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func reminderKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(string(model.ReminderSameDay)),
			tgbotapi.NewKeyboardButton(string(model.ReminderTwoHours)),
			tgbotapi.NewKeyboardButton(string(model.ReminderOneDay)),
			tgbotapi.NewKeyboardButton(string(model.ReminderCustom)),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}
