package store

import "earnpulse/internal/core"

// DefaultState builds the seed document installed on first open: one admin
// account, the starter task catalog and default settings.
func DefaultState() *core.State {
	return &core.State{
		Users: map[string]*core.User{
			"admin@earnpulse.com": {
				ID:     "admin@earnpulse.com",
				Name:   "System Admin",
				Role:   core.RoleAdmin,
				Status: core.StatusActive,
				Streak: 99,
			},
		},
		Tasks: []*core.Task{
			{
				ID:            "1",
				Title:         "Customer Satisfaction Survey",
				Description:   "Help brands improve their service.",
				Reward:        0.85,
				ProviderValue: 1.40,
				Category:      core.CategorySurvey,
				EstimatedTime: "5m",
				Difficulty:    core.DifficultyEasy,
				Icon:          "fa-poll",
			},
			{
				ID:                "2",
				Title:             "Watch: New Movie Trailer",
				Description:       "Watch the full video to earn rewards.",
				Reward:            0.15,
				ProviderValue:     0.30,
				Category:          core.CategoryVideo,
				EstimatedTime:     "2m",
				Difficulty:        core.DifficultyEasy,
				Icon:              "fa-play",
				VideoURL:          "https://cdn.earnpulse.com/trailers/launch.mp4",
				RequiredWatchTime: 90,
			},
			{
				ID:            "3",
				Title:         "Test Strategy Game: Kingdom Rise",
				Description:   "Reach level 5 within 48 hours.",
				Reward:        4.50,
				ProviderValue: 7.00,
				Category:      core.CategoryGame,
				EstimatedTime: "1h",
				Difficulty:    core.DifficultyMedium,
				Icon:          "fa-gamepad",
			},
			{
				ID:            "4",
				Title:         "Categorize Product Images",
				Description:   "Identify items in 20 product photos.",
				Reward:        1.20,
				ProviderValue: 2.00,
				Category:      core.CategoryMicroTask,
				EstimatedTime: "10m",
				Difficulty:    core.DifficultyEasy,
				Icon:          "fa-tags",
			},
		},
		Transactions: []*core.Transaction{},
		CurrentUser:  nil,
		Settings: core.Settings{
			MaintenanceMode:  false,
			PayoutsEnabled:   true,
			Announcement:     "",
			GlobalCommission: 30,
			AdMob: core.AdMobSettings{
				AppID:          "ca-app-pub-3940256099942544~3347511713",
				RewardedID:     "ca-app-pub-3940256099942544/5224354917",
				InterstitialID: "ca-app-pub-3940256099942544/1033173712",
				BannerID:       "ca-app-pub-3940256099942544/6300978111",
				EstimatedCPM:   5.0,
				AdsEnabled:     true,
			},
		},
	}
}
