package core

// Role determines what a user may do
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserStatus represents the account standing of a user
type UserStatus string

const (
	StatusActive  UserStatus = "Active"
	StatusBanned  UserStatus = "Banned"
	StatusPending UserStatus = "Pending"
)

// ValidUserStatus reports whether s is a known account status.
func ValidUserStatus(s UserStatus) bool {
	switch s {
	case StatusActive, StatusBanned, StatusPending:
		return true
	}
	return false
}

// User represents a user account. The email doubles as the primary key.
type User struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Balance        float64    `json:"balance"`
	TotalEarned    float64    `json:"totalEarned"`
	CompletedTasks int        `json:"completedTasks"`
	Streak         int        `json:"streak"`
	Role           Role       `json:"role"`
	Status         UserStatus `json:"status"`
	AdsWatched     int        `json:"adsWatched"`
}

// TaskCategory represents the kind of a task
type TaskCategory string

const (
	CategorySurvey    TaskCategory = "Survey"
	CategoryVideo     TaskCategory = "Video"
	CategoryGame      TaskCategory = "Game"
	CategoryMicroTask TaskCategory = "Micro Task"
	CategoryAIChat    TaskCategory = "AI Feedback"
)

// ValidCategory reports whether c is a known task category.
func ValidCategory(c TaskCategory) bool {
	switch c {
	case CategorySurvey, CategoryVideo, CategoryGame, CategoryMicroTask, CategoryAIChat:
		return true
	}
	return false
}

// Difficulty is the advertised effort level of a task
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ValidDifficulty reports whether d is a known difficulty.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Task represents an earning opportunity in the catalog.
// ProviderValue is what the external advertiser nominally pays for a
// completion; it only feeds the admin profit display.
type Task struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Reward            float64      `json:"reward"`
	ProviderValue     float64      `json:"providerValue,omitempty"`
	Category          TaskCategory `json:"category"`
	EstimatedTime     string       `json:"estimatedTime"`
	Difficulty        Difficulty   `json:"difficulty"`
	Icon              string       `json:"icon"`
	VideoURL          string       `json:"videoUrl,omitempty"`
	RequiredWatchTime int          `json:"requiredWatchTime,omitempty"`
}

// TransactionType represents the kind of a ledger entry
type TransactionType string

const (
	TypeEarning  TransactionType = "Earning"
	TypePayout   TransactionType = "Payout"
	TypeAdReward TransactionType = "AdReward"
)

// ValidTransactionType reports whether t is a known transaction type.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TypeEarning, TypePayout, TypeAdReward:
		return true
	}
	return false
}

// TransactionStatus represents the settlement state of a ledger entry.
// Earning and AdReward entries are created Completed and never move.
// Payout entries are created Pending and settle to Completed or Rejected.
type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "Completed"
	StatusTxPending TransactionStatus = "Pending"
	StatusRejected  TransactionStatus = "Rejected"
)

// ValidTransactionStatus reports whether s is a known transaction status.
func ValidTransactionStatus(s TransactionStatus) bool {
	switch s {
	case StatusCompleted, StatusTxPending, StatusRejected:
		return true
	}
	return false
}

// Transaction is an append-only ledger record. Only the status of a
// pending payout ever changes after creation.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Type        TransactionType   `json:"type"`
	Amount      float64           `json:"amount"`
	Date        string            `json:"date"` // calendar day, 2006-01-02
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`
	Method      string            `json:"method,omitempty"`
}

// AdMobSettings holds the ad-monetization parameters.
type AdMobSettings struct {
	AppID          string  `json:"appId"`
	RewardedID     string  `json:"rewardedId"`
	InterstitialID string  `json:"interstitialId"`
	BannerID       string  `json:"bannerId"`
	EstimatedCPM   float64 `json:"estimatedCPM"`
	AdsEnabled     bool    `json:"adsEnabled"`
}

// Settings is the process-wide configuration singleton.
type Settings struct {
	MaintenanceMode  bool          `json:"maintenanceMode"`
	PayoutsEnabled   bool          `json:"payoutsEnabled"`
	Announcement     string        `json:"announcement"`
	GlobalCommission float64       `json:"globalCommission"` // percent, 0-100
	AdMob            AdMobSettings `json:"admob"`
}

// AdMobPatch is a partial update to the admob sub-object. Nil fields are
// left untouched, so callers never have to resupply sibling fields.
type AdMobPatch struct {
	AppID          *string  `json:"appId,omitempty"`
	RewardedID     *string  `json:"rewardedId,omitempty"`
	InterstitialID *string  `json:"interstitialId,omitempty"`
	BannerID       *string  `json:"bannerId,omitempty"`
	EstimatedCPM   *float64 `json:"estimatedCPM,omitempty"`
	AdsEnabled     *bool    `json:"adsEnabled,omitempty"`
}

// SettingsPatch is a partial update to Settings; nested admob fields merge
// field-wise rather than replacing the whole sub-object.
type SettingsPatch struct {
	MaintenanceMode  *bool       `json:"maintenanceMode,omitempty"`
	PayoutsEnabled   *bool       `json:"payoutsEnabled,omitempty"`
	Announcement     *string     `json:"announcement,omitempty"`
	GlobalCommission *float64    `json:"globalCommission,omitempty"`
	AdMob            *AdMobPatch `json:"admob,omitempty"`
}

// State is the whole persisted object graph: the single source of truth.
type State struct {
	Users        map[string]*User `json:"users"`
	Tasks        []*Task          `json:"tasks"`
	Transactions []*Transaction   `json:"transactions"`
	CurrentUser  *string          `json:"currentUser"`
	Settings     Settings         `json:"settings"`
}

// SettleDecision is the admin verdict on a pending payout.
type SettleDecision string

const (
	DecisionApprove SettleDecision = "approve"
	DecisionReject  SettleDecision = "reject"
)

// Stats is the aggregate snapshot shown on the admin overview.
type Stats struct {
	TotalUsers         int      `json:"totalUsers"`
	TotalBalance       float64  `json:"totalBalance"`
	TotalPayouts       float64  `json:"totalPayouts"`
	PendingPayouts     int      `json:"pendingPayouts"`
	ActiveTasks        int      `json:"activeTasks"`
	TotalAdsWatched    int      `json:"totalAdsWatched"`
	EstimatedAdRevenue float64  `json:"estimatedAdRevenue"`
	Settings           Settings `json:"settings"`
}
