package core

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
)

// Store is the durable home for the application state. The service is the
// only writer; it brackets every mutation with Save so the document on disk
// always matches memory.
type Store interface {
	// State returns the live document. Callers must hold the service
	// mutex for the whole read-modify-write.
	State() *State
	// Save atomically rewrites the whole document.
	Save() error
	// Replace installs a new document and persists it.
	Replace(*State) error
}

// PayoutNotifier receives a copy of every newly created payout request.
// Used by the Telegram bot to ping admins for settlement.
type PayoutNotifier interface {
	PayoutRequested(tx Transaction)
}

// Service implements the ledger and balance rules. Every operation takes the
// service mutex: the state is one document rewritten wholesale on save, so a
// global lock is the correct scope.
type Service struct {
	mu       sync.Mutex
	store    Store
	logger   *slog.Logger
	notifier PayoutNotifier

	now func() time.Time

	// same-millisecond transaction ids get a sequence suffix
	lastMillis int64
	lastSeq    int
}

// NewService creates a new Service instance.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// SetNotifier installs the payout notifier. Call before serving traffic.
func (s *Service) SetNotifier(n PayoutNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// roundMoney keeps monetary values at sub-cent precision. Four decimal
// places: per-view ad rewards sit well below one cent.
func roundMoney(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Login resumes an existing account or creates one. The role of a new
// account is derived from the email: any address containing "admin" is an
// administrator. Banned accounts cannot log in.
func (s *Service) Login(email string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	user, ok := st.Users[email]
	if ok {
		if user.Status == StatusBanned {
			return nil, fmt.Errorf("%w: %s", ErrAccountBanned, email)
		}
	} else {
		role := RoleUser
		if strings.Contains(strings.ToLower(email), "admin") {
			role = RoleAdmin
		}
		user = &User{
			ID:     email,
			Name:   email[:strings.Index(email, "@")],
			Role:   role,
			Status: StatusActive,
			Streak: 1,
		}
		st.Users[email] = user
		s.logger.Info("user created", "user", email, "role", role)
	}

	id := email
	st.CurrentUser = &id
	if err := s.store.Save(); err != nil {
		return nil, fmt.Errorf("save after login: %w", err)
	}

	out := *user
	return &out, nil
}

// Logout clears the session pointer.
func (s *Service) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.State().CurrentUser = nil
	return s.store.Save()
}

// CurrentUser returns the active session user, or nil when there is none.
func (s *Service) CurrentUser() (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	if st.CurrentUser == nil {
		return nil, nil
	}
	user, ok := st.Users[*st.CurrentUser]
	if !ok {
		return nil, fmt.Errorf("%w: session points at unknown user %q", ErrIntegrity, *st.CurrentUser)
	}
	out := *user
	return &out, nil
}

// requireSession returns the session user when it matches userID.
// Caller must hold the mutex.
func (s *Service) requireSession(userID string) (*User, error) {
	st := s.store.State()
	if st.CurrentUser == nil || *st.CurrentUser != userID {
		return nil, ErrUnauthorized
	}
	user, ok := st.Users[userID]
	if !ok {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// nextTxID builds a transaction id of the form userID_millis, with a
// sequence suffix when two appends land on the same millisecond.
// Caller must hold the mutex.
func (s *Service) nextTxID(userID string, now time.Time) string {
	millis := now.UnixMilli()
	if millis == s.lastMillis {
		s.lastSeq++
		return fmt.Sprintf("%s_%d_%d", userID, millis, s.lastSeq)
	}
	s.lastMillis = millis
	s.lastSeq = 0
	return fmt.Sprintf("%s_%d", userID, millis)
}

// appendTransaction creates a ledger record and prepends it, newest first.
// Caller must hold the mutex.
func (s *Service) appendTransaction(st *State, userID string, txType TransactionType, amount float64, status TransactionStatus, description, method string) *Transaction {
	now := s.now()
	tx := &Transaction{
		ID:          s.nextTxID(userID, now),
		UserID:      userID,
		Type:        txType,
		Amount:      roundMoney(amount),
		Date:        now.Format("2006-01-02"),
		Status:      status,
		Description: description,
		Method:      method,
	}
	st.Transactions = append([]*Transaction{tx}, st.Transactions...)
	return tx
}

// Tasks returns the task catalog.
func (s *Service) Tasks() ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	out := make([]*Task, 0, len(st.Tasks))
	for _, t := range st.Tasks {
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

// CompleteTask credits the task reward to the session user and appends a
// completed earning record. The reward is captured by value, so later task
// edits never alter the historical record.
func (s *Service) CompleteTask(userID, taskID string) (*User, *Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireSession(userID)
	if err != nil {
		return nil, nil, err
	}

	st := s.store.State()
	var task *Task
	for _, t := range st.Tasks {
		if t.ID == taskID {
			task = t
			break
		}
	}
	if task == nil {
		return nil, nil, fmt.Errorf("%w: task %q", ErrNotFound, taskID)
	}

	user.Balance = roundMoney(user.Balance + task.Reward)
	user.TotalEarned = roundMoney(user.TotalEarned + task.Reward)
	user.CompletedTasks++

	tx := s.appendTransaction(st, userID, TypeEarning, task.Reward, StatusCompleted,
		"Completed: "+task.Title, "")

	if err := s.store.Save(); err != nil {
		return nil, nil, fmt.Errorf("save after task completion: %w", err)
	}

	s.logger.Info("task completed", "user", userID, "task", taskID, "reward", task.Reward)

	userCopy, txCopy := *user, *tx
	return &userCopy, &txCopy, nil
}

// AdRewardAmount derives the per-view reward from the stored ad
// configuration: the estimated CPM per single impression, net of the global
// commission. Client input never decides the amount.
func AdRewardAmount(settings Settings) float64 {
	gross := settings.AdMob.EstimatedCPM / 1000
	return roundMoney(gross * (1 - settings.GlobalCommission/100))
}

// CompleteAd credits an ad-view reward to the session user. Fails when ads
// are disabled.
func (s *Service) CompleteAd(userID string) (*User, *Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireSession(userID)
	if err != nil {
		return nil, nil, err
	}

	st := s.store.State()
	if !st.Settings.AdMob.AdsEnabled {
		return nil, nil, fmt.Errorf("%w: ads are disabled", ErrForbidden)
	}

	reward := AdRewardAmount(st.Settings)
	user.Balance = roundMoney(user.Balance + reward)
	user.TotalEarned = roundMoney(user.TotalEarned + reward)
	user.AdsWatched++

	tx := s.appendTransaction(st, userID, TypeAdReward, reward, StatusCompleted,
		"AdMob Rewarded Bonus", "")

	if err := s.store.Save(); err != nil {
		return nil, nil, fmt.Errorf("save after ad completion: %w", err)
	}

	s.logger.Info("ad reward credited", "user", userID, "reward", reward)

	userCopy, txCopy := *user, *tx
	return &userCopy, &txCopy, nil
}

// History returns the session user's transactions, newest first. Without a
// session the history is empty.
func (s *Service) History() ([]*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	if st.CurrentUser == nil {
		return []*Transaction{}, nil
	}
	out := make([]*Transaction, 0)
	for _, tx := range st.Transactions {
		if tx.UserID == *st.CurrentUser {
			c := *tx
			out = append(out, &c)
		}
	}
	return out, nil
}

// RequestPayout deducts the amount up front and appends a pending payout.
// The deduction is optimistic: a rejection credits it back at settlement.
func (s *Service) RequestPayout(userID string, amount float64, method string) (*Transaction, error) {
	s.mu.Lock()

	user, err := s.requireSession(userID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	st := s.store.State()
	if !st.Settings.PayoutsEnabled {
		s.mu.Unlock()
		return nil, ErrPayoutsDisabled
	}
	if amount <= 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: payout amount must be positive", ErrValidation)
	}
	if method == "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: payout method is required", ErrValidation)
	}
	if user.Balance < amount {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: balance %.2f, requested %.2f", ErrInsufficientFunds, user.Balance, amount)
	}

	user.Balance = roundMoney(user.Balance - amount)
	tx := s.appendTransaction(st, userID, TypePayout, amount, StatusTxPending,
		"Withdrawal via "+method, method)

	if err := s.store.Save(); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("save after payout request: %w", err)
	}

	s.logger.Info("payout requested", "user", userID, "amount", amount, "method", method)

	txCopy := *tx
	notifier := s.notifier
	s.mu.Unlock()

	if notifier != nil {
		go notifier.PayoutRequested(txCopy)
	}
	return &txCopy, nil
}

// SettlePayout moves a pending payout to its terminal state. Approval leaves
// the balance alone (the funds left at request time); rejection credits the
// amount back. Settling anything that is not a pending payout fails with
// ErrInvalidTransition and mutates nothing.
func (s *Service) SettlePayout(txID string, decision SettleDecision) (*Transaction, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, fmt.Errorf("%w: unknown decision %q", ErrValidation, decision)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	var tx *Transaction
	for _, t := range st.Transactions {
		if t.ID == txID {
			tx = t
			break
		}
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: transaction %q", ErrNotFound, txID)
	}
	if tx.Type != TypePayout || tx.Status != StatusTxPending {
		return nil, fmt.Errorf("%w: %s transaction in state %s", ErrInvalidTransition, tx.Type, tx.Status)
	}

	if decision == DecisionApprove {
		tx.Status = StatusCompleted
	} else {
		user, ok := st.Users[tx.UserID]
		if !ok {
			return nil, fmt.Errorf("%w: payout %q references unknown user %q", ErrIntegrity, txID, tx.UserID)
		}
		tx.Status = StatusRejected
		user.Balance = roundMoney(user.Balance + tx.Amount)
	}

	if err := s.store.Save(); err != nil {
		return nil, fmt.Errorf("save after settlement: %w", err)
	}

	s.logger.Info("payout settled", "tx", txID, "decision", decision)

	out := *tx
	return &out, nil
}

// AdjustBalance sets a user's balance to an absolute value. This is a raw
// admin override: it neither touches totalEarned nor appends a transaction.
func (s *Service) AdjustBalance(userID string, newBalance float64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	user, ok := st.Users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, userID)
	}

	user.Balance = roundMoney(newBalance)
	if err := s.store.Save(); err != nil {
		return nil, fmt.Errorf("save after balance override: %w", err)
	}

	s.logger.Info("balance overridden", "user", userID, "balance", user.Balance)

	out := *user
	return &out, nil
}

// SetUserStatus bans, unbans or parks a user account.
func (s *Service) SetUserStatus(userID string, status UserStatus) (*User, error) {
	if !ValidUserStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	user, ok := st.Users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, userID)
	}

	user.Status = status
	if err := s.store.Save(); err != nil {
		return nil, fmt.Errorf("save after status change: %w", err)
	}

	out := *user
	return &out, nil
}

// Users returns all user accounts.
func (s *Service) Users() ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	out := make([]*User, 0, len(st.Users))
	for _, u := range st.Users {
		c := *u
		out = append(out, &c)
	}
	return out, nil
}

// Transactions returns the full ledger, newest first.
func (s *Service) Transactions() ([]*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	out := make([]*Transaction, 0, len(st.Transactions))
	for _, tx := range st.Transactions {
		c := *tx
		out = append(out, &c)
	}
	return out, nil
}

// validateTask checks the catalog rules for an upsert.
func validateTask(task *Task) error {
	if strings.TrimSpace(task.Title) == "" {
		return fmt.Errorf("%w: task title is required", ErrValidation)
	}
	if task.Reward < 0 {
		return fmt.Errorf("%w: reward cannot be negative", ErrValidation)
	}
	if !ValidCategory(task.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, task.Category)
	}
	if !ValidDifficulty(task.Difficulty) {
		return fmt.Errorf("%w: unknown difficulty %q", ErrValidation, task.Difficulty)
	}
	if task.Category == CategoryVideo && task.VideoURL != "" && task.RequiredWatchTime <= 0 {
		return fmt.Errorf("%w: video tasks need a positive requiredWatchTime", ErrValidation)
	}
	return nil
}

// UpsertTask creates or replaces a catalog entry. An empty id gets a
// generated millisecond id.
func (s *Service) UpsertTask(task Task) (*Task, error) {
	if err := validateTask(&task); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	if task.ID == "" {
		task.ID = fmt.Sprintf("%d", s.now().UnixMilli())
	}
	task.Reward = roundMoney(task.Reward)
	task.ProviderValue = roundMoney(task.ProviderValue)

	replaced := false
	for i, t := range st.Tasks {
		if t.ID == task.ID {
			st.Tasks[i] = &task
			replaced = true
			break
		}
	}
	if !replaced {
		st.Tasks = append(st.Tasks, &task)
	}

	if err := s.store.Save(); err != nil {
		return nil, fmt.Errorf("save after task upsert: %w", err)
	}

	s.logger.Info("task upserted", "task", task.ID, "replaced", replaced)

	out := task
	return &out, nil
}

// DeleteTask removes a catalog entry. Historical transactions keep their
// captured descriptions and amounts.
func (s *Service) DeleteTask(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	for i, t := range st.Tasks {
		if t.ID == taskID {
			st.Tasks = append(st.Tasks[:i], st.Tasks[i+1:]...)
			if err := s.store.Save(); err != nil {
				return fmt.Errorf("save after task delete: %w", err)
			}
			s.logger.Info("task deleted", "task", taskID)
			return nil
		}
	}
	return fmt.Errorf("%w: task %q", ErrNotFound, taskID)
}

// Settings returns the current settings.
func (s *Service) Settings() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.State().Settings, nil
}

// UpdateSettings deep-merges the patch into the settings singleton. Fields
// absent from the patch keep their values, including nested admob fields.
func (s *Service) UpdateSettings(patch SettingsPatch) (Settings, error) {
	if patch.GlobalCommission != nil && (*patch.GlobalCommission < 0 || *patch.GlobalCommission > 100) {
		return Settings{}, fmt.Errorf("%w: commission must be within 0-100", ErrValidation)
	}
	if patch.AdMob != nil && patch.AdMob.EstimatedCPM != nil && *patch.AdMob.EstimatedCPM < 0 {
		return Settings{}, fmt.Errorf("%w: estimated CPM cannot be negative", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	cfg := &st.Settings
	if patch.MaintenanceMode != nil {
		cfg.MaintenanceMode = *patch.MaintenanceMode
	}
	if patch.PayoutsEnabled != nil {
		cfg.PayoutsEnabled = *patch.PayoutsEnabled
	}
	if patch.Announcement != nil {
		cfg.Announcement = *patch.Announcement
	}
	if patch.GlobalCommission != nil {
		cfg.GlobalCommission = *patch.GlobalCommission
	}
	if p := patch.AdMob; p != nil {
		if p.AppID != nil {
			cfg.AdMob.AppID = *p.AppID
		}
		if p.RewardedID != nil {
			cfg.AdMob.RewardedID = *p.RewardedID
		}
		if p.InterstitialID != nil {
			cfg.AdMob.InterstitialID = *p.InterstitialID
		}
		if p.BannerID != nil {
			cfg.AdMob.BannerID = *p.BannerID
		}
		if p.EstimatedCPM != nil {
			cfg.AdMob.EstimatedCPM = *p.EstimatedCPM
		}
		if p.AdsEnabled != nil {
			cfg.AdMob.AdsEnabled = *p.AdsEnabled
		}
	}

	if err := s.store.Save(); err != nil {
		return Settings{}, fmt.Errorf("save after settings update: %w", err)
	}

	s.logger.Info("settings updated")
	return *cfg, nil
}

// Stats aggregates the admin overview numbers.
func (s *Service) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	stats := Stats{
		TotalUsers:  len(st.Users),
		ActiveTasks: len(st.Tasks),
		Settings:    st.Settings,
	}
	for _, u := range st.Users {
		stats.TotalBalance = roundMoney(stats.TotalBalance + u.Balance)
		stats.TotalAdsWatched += u.AdsWatched
	}
	for _, tx := range st.Transactions {
		if tx.Type != TypePayout {
			continue
		}
		switch tx.Status {
		case StatusCompleted:
			stats.TotalPayouts = roundMoney(stats.TotalPayouts + tx.Amount)
		case StatusTxPending:
			stats.PendingPayouts++
		}
	}
	stats.EstimatedAdRevenue = roundMoney(float64(stats.TotalAdsWatched) * st.Settings.AdMob.EstimatedCPM / 1000)
	return stats, nil
}

// Export serializes the whole state, pretty-printed, for backup.
func (s *Service) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.store.State(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return data, nil
}

// Import validates a backup document and installs it wholesale. A document
// that fails validation is rejected without touching the current state.
func (s *Service) Import(data []byte) error {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := ValidateState(&st); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Replace(&st); err != nil {
		return fmt.Errorf("install imported state: %w", err)
	}
	s.logger.Info("state imported", "users", len(st.Users), "transactions", len(st.Transactions))
	return nil
}
